package types

// Variant describes a model variant of the image pipeline.
type Variant struct {
	// Stable identifier for the variant.
	// example: fast
	ID string `json:"id" example:"fast"`
	// Human-friendly name.
	// example: HiDream-I1 Fast (nf4)
	Name string `json:"name" example:"HiDream-I1 Fast (nf4)"`
	// Source path or hub repository of the quantized weights.
	// example: azaneko/HiDream-I1-Fast-nf4
	Path string `json:"path" example:"azaneko/HiDream-I1-Fast-nf4"`
	// Default classifier-free guidance scale.
	// example: 0
	GuidanceScale float64 `json:"guidance_scale" example:"0"`
	// Default number of inference steps.
	// example: 16
	Steps int `json:"steps" example:"16"`
	// Default scheduler shift.
	// example: 3
	Shift float64 `json:"shift" example:"3"`
	// Default scheduler kind.
	// example: FlashFlowMatchEulerDiscreteScheduler
	Scheduler string `json:"scheduler" example:"FlashFlowMatchEulerDiscreteScheduler"`
	// Optional short description shown in the UI.
	Description string `json:"description,omitempty"`
}

// Preset is a named output resolution.
type Preset struct {
	// example: 1024 × 1024 (Square)
	Label string `json:"label" example:"1024 × 1024 (Square)"`
	// example: 1024
	Width int `json:"width" example:"1024"`
	// example: 1024
	Height int `json:"height" example:"1024"`
}

// HistoryEntry is one journaled generation.
type HistoryEntry struct {
	ID            string  `json:"id"`
	CreatedAtUnix int64   `json:"created_at_unix"`
	Variant       string  `json:"variant"`
	Prompt        string  `json:"prompt"`
	Seed          int64   `json:"seed"`
	Scheduler     string  `json:"scheduler"`
	GuidanceScale float64 `json:"guidance_scale"`
	Steps         int     `json:"steps"`
	Shift         float64 `json:"shift"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Format        string  `json:"format"`
	SavedPath     string  `json:"saved_path"`
	DurationMS    int64   `json:"duration_ms"`
}

// Event is a lifecycle or progress notification pushed on /events.
type Event struct {
	Name     string         `json:"name"`
	Variant  string         `json:"variant,omitempty"`
	TimeUnix int64          `json:"time_unix"`
	Fields   map[string]any `json:"fields,omitempty"`
}
