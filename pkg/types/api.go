package types

import "encoding/json"

// GenerateRequest is the payload of POST /generate. Omitted sampling fields
// fall back to the variant defaults.
type GenerateRequest struct {
	// Variant identifier.
	// example: fast
	Variant string `json:"variant" example:"fast"`
	// Required prompt text.
	// example: a red cube
	Prompt string `json:"prompt" example:"a red cube"`
	// Preset label, its dimension part, or "Custom".
	// example: 1024 × 1024
	Resolution string `json:"resolution,omitempty" example:"1024 × 1024"`
	// Custom width in pixels, only read when resolution is "Custom".
	// example: 1024
	Width *int `json:"width,omitempty" example:"1024"`
	// Custom height in pixels, only read when resolution is "Custom".
	// example: 1024
	Height *int `json:"height,omitempty" example:"1024"`
	// Seed; -1 or omitted picks a random seed.
	// example: 42
	Seed json.Number `json:"seed,omitempty" swaggertype:"integer" example:"42"`
	// Scheduler kind.
	// example: FlashFlowMatchEulerDiscreteScheduler
	Scheduler string `json:"scheduler,omitempty" example:"FlashFlowMatchEulerDiscreteScheduler"`
	// Guidance scale in [0,10].
	// example: 0
	GuidanceScale *float64 `json:"guidance_scale,omitempty" example:"0"`
	// Inference steps in [1,100].
	// example: 16
	Steps *int `json:"steps,omitempty" example:"16"`
	// Scheduler shift in [1,10].
	// example: 3
	Shift *float64 `json:"shift,omitempty" example:"3"`
	// Output format: PNG, JPEG or WEBP.
	// example: PNG
	Format string `json:"format,omitempty" example:"PNG"`
}

// GenerateResponse is returned by a successful POST /generate.
type GenerateResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Seed    int64  `json:"seed"`
	Variant string `json:"variant"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"`
	// Human-readable save message, e.g. "💾 Image saved to: outputs/output_....png".
	SaveMessage  string `json:"save_message"`
	SavedPath    string `json:"saved_path"`
	DownloadPath string `json:"download_path"`
	// URL serving the temporary download copy.
	DownloadURL string `json:"download_url"`
	// URL serving the permanent output.
	ImageURL   string `json:"image_url"`
	DurationMS int64  `json:"duration_ms"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid steps: must be between 1 and 100
	Error string `json:"error" example:"invalid steps: must be between 1 and 100"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Error kind (validation, configuration, load, generation, persist, busy, internal).
	// example: validation
	Kind string `json:"kind,omitempty" example:"validation"`
	// Offending field for validation errors.
	// example: steps
	Field string `json:"field,omitempty" example:"steps"`
	// UI status line.
	Status string `json:"status,omitempty"`
}

// OptionsResponse lists everything the UI needs to build its form.
type OptionsResponse struct {
	Variants       []Variant `json:"variants"`
	DefaultVariant string    `json:"default_variant"`
	Schedulers     []string  `json:"schedulers"`
	Presets        []Preset  `json:"presets"`
	Formats        []string  `json:"formats"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Loaded variant id; empty when nothing is loaded.
	// example: fast
	LoadedVariant string `json:"loaded_variant" example:"fast"`
	// Manager state: unloaded, loading, ready or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Backend kind in use.
	// example: worker
	Backend string `json:"backend" example:"worker"`
	// Requests waiting for or holding the generation slot.
	QueueLen int `json:"queue_len"`
	// 1 while a generation holds the slot.
	Inflight      int    `json:"inflight"`
	MaxQueueDepth int    `json:"max_queue_depth"`
	LastError     string `json:"last_error,omitempty"`
	// Unix seconds of the last successful load.
	LoadedAtUnix   int64  `json:"loaded_at_unix,omitempty"`
	LoadsTotal     uint64 `json:"loads_total"`
	FallbacksTotal uint64 `json:"fallbacks_total"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	ServerTimeUnix int64  `json:"server_time_unix"`
}

// SwitchRequest asks the server to load a variant in the background.
type SwitchRequest struct {
	// example: full
	Variant string `json:"variant" example:"full"`
}

// SwitchResponse carries the id of the background switch operation.
type SwitchResponse struct {
	OpID    string `json:"op_id"`
	Variant string `json:"variant"`
}

// CleanupResponse is returned by POST /cleanup.
type CleanupResponse struct {
	Status  string   `json:"status"`
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
}

// HistoryResponse wraps GET /history.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
