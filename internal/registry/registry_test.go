package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdi1d/internal/config"
)

func TestBuiltinTable(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"fast", "dev", "full"}, r.IDs())
	assert.Equal(t, "fast", r.DefaultID())

	full, ok := r.Lookup("full")
	require.True(t, ok)
	assert.Equal(t, "azaneko/HiDream-I1-Full-nf4", full.Path)
	assert.Equal(t, 5.0, full.GuidanceScale)
	assert.Equal(t, 50, full.Steps)
	assert.Equal(t, 3.0, full.Shift)
	assert.Equal(t, FlowUniPCMultistep, full.Scheduler)

	dev, _ := r.Lookup("dev")
	assert.Equal(t, 28, dev.Steps)
	assert.Equal(t, 6.0, dev.Shift)
	assert.Equal(t, FlashFlowMatchEuler, dev.Scheduler)

	_, ok = r.Lookup("turbo")
	assert.False(t, ok)
}

func TestVariantsReturnsCopy(t *testing.T) {
	r := Default()
	vs := r.Variants()
	vs[0].Steps = 99
	v, _ := r.Lookup("fast")
	assert.Equal(t, 16, v.Steps)
}

func TestNewRejectsBadTables(t *testing.T) {
	good := BuiltinVariants()[0]
	cases := map[string][]Variant{
		"empty":     nil,
		"no id":     {{Path: "p", Steps: 1, Shift: 1, Scheduler: FlashFlowMatchEuler}},
		"no path":   {{ID: "a", Steps: 1, Shift: 1, Scheduler: FlashFlowMatchEuler}},
		"steps":     {{ID: "a", Path: "p", Steps: 0, Shift: 1, Scheduler: FlashFlowMatchEuler}},
		"guidance":  {{ID: "a", Path: "p", Steps: 1, GuidanceScale: 11, Shift: 1, Scheduler: FlashFlowMatchEuler}},
		"shift":     {{ID: "a", Path: "p", Steps: 1, Shift: 0.5, Scheduler: FlashFlowMatchEuler}},
		"scheduler": {{ID: "a", Path: "p", Steps: 1, Shift: 1, Scheduler: "DDIM"}},
		"duplicate": {good, good},
	}
	for name, vs := range cases {
		_, err := New(vs, "")
		assert.Error(t, err, name)
	}
	_, err := New([]Variant{good}, "missing")
	assert.Error(t, err)
}

func TestParseScheduler(t *testing.T) {
	k, ok := ParseScheduler("FlowUniPCMultistepScheduler")
	assert.True(t, ok)
	assert.Equal(t, FlowUniPCMultistep, k)
	_, ok = ParseScheduler("flowunipc")
	assert.False(t, ok)
	assert.Len(t, Schedulers(), 2)
}

func TestLookupPreset(t *testing.T) {
	p, ok := LookupPreset("1360 × 768 (Landscape)")
	require.True(t, ok)
	assert.Equal(t, 1360, p.Width)
	assert.Equal(t, 768, p.Height)

	p, ok = LookupPreset(" 832 × 1248 ")
	require.True(t, ok)
	assert.Equal(t, 1248, p.Height)

	_, ok = LookupPreset(CustomResolution)
	assert.False(t, ok)
	_, ok = LookupPreset("1000 × 1000")
	assert.False(t, ok)

	assert.Equal(t, "1024 × 1024", DefaultPreset().Name())
	assert.Len(t, Presets(), 7)
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "variants.yaml")
	body := `default: turbo
variants:
  - id: turbo
    path: local/turbo
    steps: 8
    shift: 2
    guidance_scale: 0
    scheduler: FlashFlowMatchEulerDiscreteScheduler
  - id: fine
    path: local/fine
    steps: 40
    shift: 3
    guidance_scale: 4.5
    scheduler: FlowUniPCMultistepScheduler
`
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	r, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "turbo", r.DefaultID())
	v, ok := r.Lookup("fine")
	require.True(t, ok)
	assert.Equal(t, 4.5, v.GuidanceScale)
	assert.Equal(t, "fine", v.Name, "name defaults to id")
}

func TestFromConfig(t *testing.T) {
	r, err := FromConfig(config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "fast", r.DefaultID())

	r, err = FromConfig(config.Config{DefaultVariant: "full"})
	require.NoError(t, err)
	assert.Equal(t, "full", r.DefaultID())

	_, err = FromConfig(config.Config{DefaultVariant: "nope"})
	assert.Error(t, err)

	dir := t.TempDir()
	p := filepath.Join(dir, "v.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"variants":[{"id":"x","path":"p","steps":4,"shift":1,"scheduler":"FlashFlowMatchEulerDiscreteScheduler"}]}`), 0o644))
	r, err = FromConfig(config.Config{VariantsFile: p})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, r.IDs())
}
