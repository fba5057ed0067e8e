package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hdi1d/internal/common/fsutil"
	"hdi1d/internal/config"
)

// globalOpts are the persistent flags shared by every command.
type globalOpts struct {
	configPath     string
	envFile        string
	logLevel       string
	logFormat      string
	outputDir      string
	tempDir        string
	backend        string
	remoteURL      string
	variantsFile   string
	defaultVariant string
	historyDB      string

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globalOpts{}
	root := &cobra.Command{
		Use:           "hdi1d",
		Short:         "HiDream-I1 image generation server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd, os.Getenv)
			if err != nil {
				return err
			}
			g.cfg = cfg
			g.log = newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&g.envFile, "env-file", ".env", "Dotenv file loaded before reading HDI1D_* variables; missing files are ignored")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: auto|console|json")
	pf.StringVar(&g.outputDir, "output-dir", "", "Directory for permanent outputs")
	pf.StringVar(&g.tempDir, "temp-dir", "", "Directory for hdi1_* download copies (default: system temp)")
	pf.StringVar(&g.backend, "backend", "", "Pipeline backend: worker|remote|synthetic")
	pf.StringVar(&g.remoteURL, "remote-url", "", "Base URL of a running worker (backend=remote)")
	pf.StringVar(&g.variantsFile, "variants-file", "", "Variant table file replacing the built-in variants")
	pf.StringVar(&g.defaultVariant, "default-variant", "", "Variant used when a request names none")
	pf.StringVar(&g.historyDB, "history-db", "", "SQLite history journal path (empty disables history)")

	root.AddCommand(
		newServeCmd(g),
		newGenerateCmd(g),
		newCleanupCmd(g),
		newVariantsCmd(g),
		newHistoryCmd(g),
	)
	return root
}

// load merges defaults < config file < environment < flags.
func (g *globalOpts) load(cmd *cobra.Command, getenv func(string) string) (config.Config, error) {
	if err := loadDotEnv(g.envFile); err != nil {
		return config.Config{}, fmt.Errorf("env file %s: %w", g.envFile, err)
	}
	cfg := config.Defaults()
	path := g.configPath
	if path == "" {
		path = getenv(config.EnvPrefix + "CONFIG")
	}
	if path != "" {
		p, err := fsutil.ExpandHome(path)
		if err != nil {
			return cfg, err
		}
		fileCfg, err := config.Load(p)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	cfg = cfg.Merge(g.flagOverrides(cmd))
	return cfg, nil
}

// flagOverrides collects the persistent flags the user actually set.
func (g *globalOpts) flagOverrides(cmd *cobra.Command) config.Config {
	var over config.Config
	set := func(name string, dst *string, v string) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = v
		}
	}
	set("log-level", &over.LogLevel, g.logLevel)
	set("log-format", &over.LogFormat, g.logFormat)
	set("output-dir", &over.OutputDir, g.outputDir)
	set("temp-dir", &over.TempDir, g.tempDir)
	set("backend", &over.Backend, g.backend)
	set("remote-url", &over.RemoteURL, g.remoteURL)
	set("variants-file", &over.VariantsFile, g.variantsFile)
	set("default-variant", &over.DefaultVariant, g.defaultVariant)
	set("history-db", &over.HistoryDB, g.historyDB)
	return over
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	if path == "" || !fsutil.PathExists(path) {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// newLogger builds the process logger. "auto" picks the console writer on a
// terminal and JSON otherwise.
func newLogger(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	console := false
	switch strings.ToLower(format) {
	case "console":
		console = true
	case "json":
	default:
		console = isTerminal(w)
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	st, err := f.Stat()
	return err == nil && st.Mode()&os.ModeCharDevice != 0
}

// splitCSV is used by list-valued flags such as --cors-origins.
func splitCSV(s string) []string { return config.SplitCSV(s) }
