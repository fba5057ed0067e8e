package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hdi1d/internal/common/fsutil"
)

// TempPrefix marks temporary download copies; only files with this prefix
// are ever deleted by cleanup.
const TempPrefix = "hdi1_"

// TimestampLayout names permanent outputs, e.g. output_2025-04-12_14-03-55.png.
const TimestampLayout = "2006-01-02_15-04-05"

// Store owns the output and temp directories.
type Store struct {
	outputDir string
	tempDir   string
	now       func() time.Time
}

// NewStore creates both directories if needed. An empty tempDir selects
// os.TempDir().
func NewStore(outputDir, tempDir string) (*Store, error) {
	out, err := fsutil.EnsureDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	if strings.TrimSpace(tempDir) == "" {
		tempDir = os.TempDir()
	}
	tmp, err := fsutil.EnsureDir(tempDir)
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	return &Store{outputDir: out, tempDir: tmp, now: time.Now}, nil
}

// SetClock overrides the clock used for output names.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) OutputDir() string { return s.outputDir }
func (s *Store) TempDir() string   { return s.tempDir }

// Saved describes the two files written for one image.
type Saved struct {
	OutputPath string
	TempPath   string
	Bytes      int
}

// Save encodes img once and writes it to a timestamped file in the output
// directory and to a fresh hdi1_* file in the temp directory.
func (s *Store) Save(img image.Image, f Format) (Saved, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f); err != nil {
		return Saved{}, fmt.Errorf("encode %s: %w", f, err)
	}
	out, err := s.writeOutput(buf.Bytes(), f)
	if err != nil {
		return Saved{}, err
	}
	tmp, err := s.writeTemp(buf.Bytes(), f)
	if err != nil {
		return Saved{OutputPath: out}, err
	}
	return Saved{OutputPath: out, TempPath: tmp, Bytes: buf.Len()}, nil
}

// writeOutput creates output_<ts>.<ext> exclusively; same-second collisions
// get a _1, _2, ... suffix.
func (s *Store) writeOutput(data []byte, f Format) (string, error) {
	stem := "output_" + s.now().Format(TimestampLayout)
	for n := 0; n < 1000; n++ {
		name := stem
		if n > 0 {
			name += "_" + strconv.Itoa(n)
		}
		p := filepath.Join(s.outputDir, name+"."+f.Ext())
		fh, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create output: %w", err)
		}
		if _, err := fh.Write(data); err != nil {
			_ = fh.Close()
			_ = os.Remove(p)
			return "", fmt.Errorf("write output: %w", err)
		}
		if err := fh.Close(); err != nil {
			return "", fmt.Errorf("close output: %w", err)
		}
		return p, nil
	}
	return "", fmt.Errorf("too many outputs named %s", stem)
}

func (s *Store) writeTemp(data []byte, f Format) (string, error) {
	fh, err := os.CreateTemp(s.tempDir, TempPrefix+"*."+f.Ext())
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		_ = os.Remove(fh.Name())
		return "", fmt.Errorf("write temp: %w", err)
	}
	if err := fh.Close(); err != nil {
		return "", fmt.Errorf("close temp: %w", err)
	}
	return fh.Name(), nil
}

// TempFile resolves a download name to a path inside the temp directory.
// Only plain hdi1_* names with a known extension resolve.
func (s *Store) TempFile(name string) (string, Format, bool) {
	if !strings.HasPrefix(name, TempPrefix) {
		return "", "", false
	}
	return resolve(s.tempDir, name)
}

// OutputFile resolves a name to a path inside the output directory.
func (s *Store) OutputFile(name string) (string, Format, bool) {
	return resolve(s.outputDir, name)
}

func resolve(dir, name string) (string, Format, bool) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", "", false
	}
	f, ok := formatForExt(filepath.Ext(name))
	if !ok {
		return "", "", false
	}
	p := filepath.Join(dir, name)
	fi, err := os.Stat(p)
	if err != nil || !fi.Mode().IsRegular() {
		return "", "", false
	}
	return p, f, true
}

func formatForExt(ext string) (Format, bool) {
	e := strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, f := range formats {
		if f.Ext() == e {
			return f, true
		}
	}
	return "", false
}
