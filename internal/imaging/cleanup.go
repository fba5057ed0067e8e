package imaging

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// CleanupReport lists what a cleanup pass removed and what it could not.
type CleanupReport struct {
	Deleted []string
	Failed  []string
	Errs    []error
}

// Err returns the first failure, if any.
func (r CleanupReport) Err() error {
	if len(r.Errs) == 0 {
		return nil
	}
	return r.Errs[0]
}

// tempArtifacts lists hdi1_*.{png,jpeg,webp} in the temp directory.
func (s *Store) tempArtifacts() ([]string, error) {
	var out []string
	for _, f := range formats {
		m, err := filepath.Glob(filepath.Join(s.tempDir, TempPrefix+"*."+f.Ext()))
		if err != nil {
			return nil, err
		}
		out = append(out, m...)
	}
	sort.Strings(out)
	return out, nil
}

// CleanTemp deletes every temporary artifact. Individual failures are
// collected, never fatal.
func (s *Store) CleanTemp() CleanupReport {
	return s.clean(func(os.FileInfo) bool { return true })
}

// CleanOlderThan deletes temporary artifacts last modified before now-age.
func (s *Store) CleanOlderThan(age time.Duration) CleanupReport {
	cutoff := s.now().Add(-age)
	return s.clean(func(fi os.FileInfo) bool { return fi.ModTime().Before(cutoff) })
}

func (s *Store) clean(match func(os.FileInfo) bool) CleanupReport {
	var rep CleanupReport
	paths, err := s.tempArtifacts()
	if err != nil {
		rep.Errs = append(rep.Errs, err)
		return rep
	}
	for _, p := range paths {
		fi, err := os.Lstat(p)
		if err != nil {
			if !os.IsNotExist(err) {
				rep.Failed = append(rep.Failed, p)
				rep.Errs = append(rep.Errs, err)
			}
			continue
		}
		if !fi.Mode().IsRegular() || !match(fi) {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			rep.Failed = append(rep.Failed, p)
			rep.Errs = append(rep.Errs, err)
			continue
		}
		rep.Deleted = append(rep.Deleted, p)
	}
	return rep
}
