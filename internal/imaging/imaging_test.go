package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func translucent() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 10, A: uint8(x * 16)})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"png": PNG, "JPEG": JPEG, "jpg": JPEG, " webp ": WEBP} {
		got, ok := ParseFormat(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseFormat("GIF")
	assert.False(t, ok)
	assert.Equal(t, "jpeg", JPEG.Ext())
	assert.Equal(t, "image/webp", WEBP.ContentType())
}

func TestFlattenKeepsStraightColor(t *testing.T) {
	out := Flatten(translucent())
	assert.True(t, Opaque(out))
	c := out.RGBAAt(0, 0) // alpha 0 in the source
	assert.Equal(t, color.RGBA{R: 200, G: 40, B: 10, A: 255}, c)
}

func TestHasAlpha(t *testing.T) {
	assert.True(t, PNG.HasAlpha())
	assert.True(t, WEBP.HasAlpha())
	assert.False(t, JPEG.HasAlpha())
}

func TestJPEGDropsAlpha(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, translucent(), JPEG))
	dec, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.True(t, Opaque(dec))
}

func TestPNGKeepsAlpha(t *testing.T) {
	src := translucent()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, PNG))
	dec, err := png.Decode(&buf)
	require.NoError(t, err)
	_, _, _, a := dec.At(5, 3).RGBA()
	assert.Equal(t, uint32(80), a>>8)
	assert.False(t, Opaque(dec))
}

func TestWEBPKeepsAlpha(t *testing.T) {
	src := translucent()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, WEBP))
	dec, err := webp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), dec.Bounds())
	_, _, _, a := dec.At(5, 3).RGBA()
	assert.Equal(t, uint32(80), a>>8)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "outputs"), filepath.Join(t.TempDir(), "tmp"))
	require.NoError(t, err)
	return s
}

func TestSaveWritesOutputAndTemp(t *testing.T) {
	s := newTestStore(t)
	s.SetClock(func() time.Time { return time.Date(2025, 4, 12, 14, 3, 55, 0, time.Local) })
	saved, err := s.Save(translucent(), PNG)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.OutputDir(), "output_2025-04-12_14-03-55.png"), saved.OutputPath)
	assert.Equal(t, s.TempDir(), filepath.Dir(saved.TempPath))
	assert.True(t, strings.HasPrefix(filepath.Base(saved.TempPath), "hdi1_"))
	assert.True(t, strings.HasSuffix(saved.TempPath, ".png"))

	a, err := os.ReadFile(saved.OutputPath)
	require.NoError(t, err)
	b, err := os.ReadFile(saved.TempPath)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, len(a), saved.Bytes)
}

func TestSaveSameSecondGetsSuffix(t *testing.T) {
	s := newTestStore(t)
	s.SetClock(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local) })
	first, err := s.Save(translucent(), JPEG)
	require.NoError(t, err)
	second, err := s.Save(translucent(), JPEG)
	require.NoError(t, err)
	assert.Equal(t, "output_2025-01-02_03-04-05.jpeg", filepath.Base(first.OutputPath))
	assert.Equal(t, "output_2025-01-02_03-04-05_1.jpeg", filepath.Base(second.OutputPath))
	assert.NotEqual(t, first.TempPath, second.TempPath)
}

func TestTempFileResolution(t *testing.T) {
	s := newTestStore(t)
	saved, err := s.Save(translucent(), WEBP)
	require.NoError(t, err)
	name := filepath.Base(saved.TempPath)
	p, f, ok := s.TempFile(name)
	assert.True(t, ok)
	assert.Equal(t, WEBP, f)
	assert.Equal(t, saved.TempPath, p)

	for _, bad := range []string{"", "../" + name, "output.png", "hdi1_missing.png", "hdi1_x.gif", ".hdi1_x.png"} {
		_, _, ok := s.TempFile(bad)
		assert.False(t, ok, bad)
	}
	_, _, ok = s.OutputFile(filepath.Base(saved.OutputPath))
	assert.True(t, ok)
}

func TestCleanTempOnlyTouchesArtifacts(t *testing.T) {
	s := newTestStore(t)
	for _, n := range []string{"hdi1_a.png", "hdi1_b.jpeg", "hdi1_c.webp", "hdi1_d.txt", "other.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(s.TempDir(), n), []byte("x"), 0o644))
	}
	rep := s.CleanTemp()
	require.NoError(t, rep.Err())
	assert.Len(t, rep.Deleted, 3)
	for _, keep := range []string{"hdi1_d.txt", "other.png"} {
		_, err := os.Stat(filepath.Join(s.TempDir(), keep))
		assert.NoError(t, err, keep)
	}
	// second pass is a no-op
	assert.Empty(t, s.CleanTemp().Deleted)
}

func TestCleanOlderThan(t *testing.T) {
	s := newTestStore(t)
	old := filepath.Join(s.TempDir(), "hdi1_old.png")
	fresh := filepath.Join(s.TempDir(), "hdi1_new.png")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	rep := s.CleanOlderThan(time.Hour)
	assert.Equal(t, []string{old}, rep.Deleted)
	_, err := os.Stat(fresh)
	assert.NoError(t, err)
}
