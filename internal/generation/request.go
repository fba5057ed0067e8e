// Package generation runs one image-generation request end to end: input
// validation, admission, model acquisition, scheduler configuration, seeding,
// sampling, persistence and reporting.
package generation

import (
	"image"
	"strconv"
	"strings"
	"time"

	"hdi1d/internal/errs"
	"hdi1d/internal/imaging"
	"hdi1d/internal/registry"
)

// RandomSeed asks the handler to draw a seed.
const RandomSeed int64 = -1

// MaxRandomSeed bounds drawn seeds: they fall in [0, MaxRandomSeed).
const MaxRandomSeed = 1_000_000

// Status lines shown to the user.
const (
	StatusComplete = "🎉 Image generation complete!"
	savedPrefix    = "💾 Image saved to: "
	errorPrefix    = "❌ Error: "
)

// Request is one generation request. Nil optional fields and empty strings
// fall back to the variant's defaults (scheduler, guidance, steps, shift),
// the first preset (resolution) and PNG (format).
type Request struct {
	Variant    string
	Prompt     string
	Resolution string
	// Width and Height are read only when Resolution is "Custom".
	Width         *int
	Height        *int
	Seed          int64
	Scheduler     string
	GuidanceScale *float64
	Steps         *int
	Shift         *float64
	Format        string
}

// Result is the outcome of Handle. On failure Err is set, Status carries the
// error line and every artifact field is zero.
type Result struct {
	ID          string
	Image       image.Image
	Seed        int64
	SavedPath   string
	SaveMessage string
	TempPath    string
	Status      string
	Err         error

	Variant       string
	Width         int
	Height        int
	Format        imaging.Format
	Scheduler     registry.SchedulerKind
	GuidanceScale float64
	Steps         int
	Shift         float64
	Duration      time.Duration
}

// OK reports whether the request produced an image.
func (r Result) OK() bool { return r.Err == nil }

// SaveMessage formats the save-path line for path.
func SaveMessage(path string) string { return savedPrefix + path }

// ErrorStatus formats the user-facing error line.
func ErrorStatus(err error) string { return errorPrefix + err.Error() }

// ParseSeed parses a user-supplied seed. Empty means random.
func ParseSeed(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RandomSeed, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Accept integral floats such as "42.0" coming from number widgets.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, errs.Validation("seed", "must be an integer")
		}
		n = int64(f)
	}
	if n < RandomSeed {
		return 0, errs.Validation("seed", "must be -1 (random) or a non-negative integer")
	}
	return n, nil
}
