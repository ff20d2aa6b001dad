package probe

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Scratch hands out temp file paths for one request and removes them all on
// Release. Removal failures are logged, never returned.
type Scratch struct {
	dir   string
	log   *slog.Logger
	paths []string
}

// NewScratch uses dir, or os.TempDir() when dir is empty.
func NewScratch(dir string, log *slog.Logger) *Scratch {
	if dir == "" {
		dir = os.TempDir()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scratch{dir: dir, log: log}
}

// Path reserves a unique path that keeps the extension of name, so tools
// that pick a format by extension still work.
func (s *Scratch) Path(prefix, name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	p := filepath.Join(s.dir, prefix+"-"+uuid.NewString()+ext)
	s.paths = append(s.paths, p)
	return p
}

// Write reserves a path and writes data to it.
func (s *Scratch) Write(prefix, name string, data []byte) (string, error) {
	p := s.Path(prefix, name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", err
	}
	return p, nil
}

// Release removes every reserved path. Paths that were never created are
// skipped silently.
func (s *Scratch) Release() {
	for _, p := range s.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("failed to remove temp file", "path", p, "error", err)
		}
	}
	s.paths = nil
}
