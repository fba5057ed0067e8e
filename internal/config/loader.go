package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	BackendWorker    = "worker"
	BackendRemote    = "remote"
	BackendSynthetic = "synthetic"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified"; Defaults() provides the baseline.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	OutputDir string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	TempDir   string `json:"temp_dir" yaml:"temp_dir" toml:"temp_dir"`
	// TempTTLSec deletes hdi1_* downloads older than this many seconds; 0 disables the janitor.
	TempTTLSec int `json:"temp_ttl_sec" yaml:"temp_ttl_sec" toml:"temp_ttl_sec"`

	Backend               string   `json:"backend" yaml:"backend" toml:"backend"`
	WorkerCmd             string   `json:"worker_cmd" yaml:"worker_cmd" toml:"worker_cmd"`
	WorkerArgs            []string `json:"worker_args" yaml:"worker_args" toml:"worker_args"`
	WorkerHost            string   `json:"worker_host" yaml:"worker_host" toml:"worker_host"`
	WorkerPortStart       int      `json:"worker_port_start" yaml:"worker_port_start" toml:"worker_port_start"`
	WorkerPortEnd         int      `json:"worker_port_end" yaml:"worker_port_end" toml:"worker_port_end"`
	WorkerReadyTimeoutSec int      `json:"worker_ready_timeout_sec" yaml:"worker_ready_timeout_sec" toml:"worker_ready_timeout_sec"`
	RemoteURL             string   `json:"remote_url" yaml:"remote_url" toml:"remote_url"`
	TextEncoder           string   `json:"text_encoder" yaml:"text_encoder" toml:"text_encoder"`

	VariantsFile   string `json:"variants_file" yaml:"variants_file" toml:"variants_file"`
	DefaultVariant string `json:"default_variant" yaml:"default_variant" toml:"default_variant"`

	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSec    int `json:"max_wait_sec" yaml:"max_wait_sec" toml:"max_wait_sec"`
	// GenerateTimeoutSec bounds one HTTP generation, queueing included; 0 disables.
	GenerateTimeoutSec int `json:"generate_timeout_sec" yaml:"generate_timeout_sec" toml:"generate_timeout_sec"`

	HistoryDB string `json:"history_db" yaml:"history_db" toml:"history_db"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
	Swagger            bool     `json:"swagger" yaml:"swagger" toml:"swagger"`
	MaxBodyBytes       int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Addr:                  ":7860",
		OutputDir:             "outputs",
		Backend:               BackendWorker,
		WorkerCmd:             "python3",
		WorkerArgs:            []string{"-m", "hdi1.worker"},
		WorkerHost:            "127.0.0.1",
		WorkerReadyTimeoutSec: 600,
		MaxQueueDepth:         8,
		MaxWaitSec:            900,
		LogLevel:              "info",
		LogFormat:             "auto",
		MaxBodyBytes:          1 << 20,
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if err := DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DecodeFile unmarshals a .yaml/.yml, .json or .toml file into v.
func DecodeFile(path string, v any) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, v)
	case ".json":
		return json.Unmarshal(b, v)
	case ".toml":
		return toml.Unmarshal(b, v)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
}

// Merge returns c with every non-zero field of over applied on top.
// Booleans can only be switched on by over.
func (c Config) Merge(over Config) Config {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	list := func(dst *[]string, v []string) {
		if len(v) > 0 {
			*dst = append([]string(nil), v...)
		}
	}
	str(&c.Addr, over.Addr)
	str(&c.OutputDir, over.OutputDir)
	str(&c.TempDir, over.TempDir)
	num(&c.TempTTLSec, over.TempTTLSec)
	str(&c.Backend, over.Backend)
	str(&c.WorkerCmd, over.WorkerCmd)
	list(&c.WorkerArgs, over.WorkerArgs)
	str(&c.WorkerHost, over.WorkerHost)
	num(&c.WorkerPortStart, over.WorkerPortStart)
	num(&c.WorkerPortEnd, over.WorkerPortEnd)
	num(&c.WorkerReadyTimeoutSec, over.WorkerReadyTimeoutSec)
	str(&c.RemoteURL, over.RemoteURL)
	str(&c.TextEncoder, over.TextEncoder)
	str(&c.VariantsFile, over.VariantsFile)
	str(&c.DefaultVariant, over.DefaultVariant)
	num(&c.MaxQueueDepth, over.MaxQueueDepth)
	num(&c.MaxWaitSec, over.MaxWaitSec)
	num(&c.GenerateTimeoutSec, over.GenerateTimeoutSec)
	str(&c.HistoryDB, over.HistoryDB)
	str(&c.LogLevel, over.LogLevel)
	str(&c.LogFormat, over.LogFormat)
	c.CORSEnabled = c.CORSEnabled || over.CORSEnabled
	list(&c.CORSAllowedOrigins, over.CORSAllowedOrigins)
	list(&c.CORSAllowedMethods, over.CORSAllowedMethods)
	list(&c.CORSAllowedHeaders, over.CORSAllowedHeaders)
	c.Swagger = c.Swagger || over.Swagger
	if over.MaxBodyBytes != 0 {
		c.MaxBodyBytes = over.MaxBodyBytes
	}
	return c
}

// EnvPrefix is prepended to every environment override, e.g. HDI1D_ADDR.
const EnvPrefix = "HDI1D_"

// ApplyEnv overrides fields from environment variables read through getenv.
// Malformed numbers and booleans are reported, not ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	get := func(k string) string { return strings.TrimSpace(getenv(EnvPrefix + k)) }
	str := func(k string, dst *string) {
		if v := get(k); v != "" {
			*dst = v
		}
	}
	var firstErr error
	num := func(k string, dst *int) {
		v := get(k)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s%s: %w", EnvPrefix, k, err)
			}
			return
		}
		*dst = n
	}
	flag := func(k string, dst *bool) {
		v := get(k)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s%s: %w", EnvPrefix, k, err)
			}
			return
		}
		*dst = b
	}
	list := func(k string, dst *[]string) {
		if v := get(k); v != "" {
			*dst = SplitCSV(v)
		}
	}
	str("ADDR", &c.Addr)
	str("OUTPUT_DIR", &c.OutputDir)
	str("TEMP_DIR", &c.TempDir)
	num("TEMP_TTL_SEC", &c.TempTTLSec)
	str("BACKEND", &c.Backend)
	str("WORKER_CMD", &c.WorkerCmd)
	if v := get("WORKER_ARGS"); v != "" {
		c.WorkerArgs = strings.Fields(v)
	}
	str("WORKER_HOST", &c.WorkerHost)
	num("WORKER_PORT_START", &c.WorkerPortStart)
	num("WORKER_PORT_END", &c.WorkerPortEnd)
	num("WORKER_READY_TIMEOUT_SEC", &c.WorkerReadyTimeoutSec)
	str("REMOTE_URL", &c.RemoteURL)
	str("TEXT_ENCODER", &c.TextEncoder)
	str("VARIANTS_FILE", &c.VariantsFile)
	str("DEFAULT_VARIANT", &c.DefaultVariant)
	num("MAX_QUEUE_DEPTH", &c.MaxQueueDepth)
	num("MAX_WAIT_SEC", &c.MaxWaitSec)
	num("GENERATE_TIMEOUT_SEC", &c.GenerateTimeoutSec)
	str("HISTORY_DB", &c.HistoryDB)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	flag("CORS_ENABLED", &c.CORSEnabled)
	list("CORS_ALLOWED_ORIGINS", &c.CORSAllowedOrigins)
	list("CORS_ALLOWED_METHODS", &c.CORSAllowedMethods)
	list("CORS_ALLOWED_HEADERS", &c.CORSAllowedHeaders)
	flag("SWAGGER", &c.Swagger)
	if v := get("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%sMAX_BODY_BYTES: %w", EnvPrefix, err)
		} else if err == nil {
			c.MaxBodyBytes = n
		}
	}
	return firstErr
}

// Validate checks cross-field consistency after all sources are merged.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendWorker:
		if strings.TrimSpace(c.WorkerCmd) == "" {
			return fmt.Errorf("backend %q requires worker_cmd", c.Backend)
		}
	case BackendRemote:
		if strings.TrimSpace(c.RemoteURL) == "" {
			return fmt.Errorf("backend %q requires remote_url", c.Backend)
		}
	case BackendSynthetic:
	default:
		return fmt.Errorf("unknown backend %q (want worker, remote or synthetic)", c.Backend)
	}
	if c.WorkerPortStart > 0 && c.WorkerPortEnd < c.WorkerPortStart {
		return fmt.Errorf("worker port range %d-%d is empty", c.WorkerPortStart, c.WorkerPortEnd)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empties.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
