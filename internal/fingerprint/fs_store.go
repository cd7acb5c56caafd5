package fingerprint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

// FSStore keeps one file per site:
//
//	<dir>/
//	  <site>.dat   content: path hash; mtime: last build time
type FSStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFSStore creates the store directory if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, ferrors.FileSystemError("create fingerprint directory").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	return &FSStore{dir: dir}, nil
}

// Path returns the record file for site.
func (s *FSStore) Path(site string) string {
	return filepath.Join(s.dir, site+".dat")
}

// Load reads the site's record.
func (s *FSStore) Load(_ context.Context, site string) (*Fingerprint, error) {
	if err := ValidateSite(site); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.Path(site)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ferrors.FileSystemError("stat fingerprint").WithCause(err).WithContext("path", path).Build()
	}
	if !info.Mode().IsRegular() {
		return nil, corrupt(site, "not a regular file")
	}
	// #nosec G304 - path is built from a validated site name
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.FileSystemError("read fingerprint").WithCause(err).WithContext("path", path).Build()
	}
	hash := strings.TrimSpace(string(data))
	if !validHash(hash) {
		return nil, corrupt(site, fmt.Sprintf("unexpected content (%d bytes)", len(data)))
	}
	return &Fingerprint{PathHash: hash, LastBuildTime: info.ModTime()}, nil
}

// Save writes the record to a temp file, stamps its mtime with
// fp.LastBuildTime and renames it over the previous record.
func (s *FSStore) Save(_ context.Context, site string, fp Fingerprint) error {
	if err := ValidateSite(site); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(site)
	if err := writeAtomic(path, fp); err != nil {
		return ferrors.FingerprintError("write fingerprint").
			WithCause(err).
			WithContext("site", site).
			WithContext("path", path).
			Build()
	}
	return nil
}

func writeAtomic(path string, fp Fingerprint) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.WriteString(fp.PathHash); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chtimes(tmpPath, fp.LastBuildTime, fp.LastBuildTime); err != nil {
		return fmt.Errorf("stamp build time: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *FSStore) Close() error { return nil }
