package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"jardin/internal/model"
)

// FileSource reads the catalog from a local JSON file and keeps the last good
// parse in memory. Watch reloads it whenever the file changes on disk.
type FileSource struct {
	path         string
	photoBaseURL string
	logger       *zap.Logger
	debounce     time.Duration

	mu      sync.RWMutex
	catalog model.Catalog
	loaded  time.Time
}

func NewFileSource(path string, photoBaseURL string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{
		path:         filepath.Clean(path),
		photoBaseURL: photoBaseURL,
		logger:       logger,
		debounce:     250 * time.Millisecond,
	}
}

func (s *FileSource) Fetch(_ context.Context) (model.Catalog, error) {
	s.mu.RLock()
	cached := s.catalog
	s.mu.RUnlock()
	if cached != nil {
		return clone(cached), nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.catalog), nil
}

// Reload re-reads the file. A failed reload keeps the previous catalog.
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", s.path, err)
	}
	cat, err := Parse(data, s.photoBaseURL)
	if err != nil {
		return err
	}
	if len(cat) == 0 {
		return ErrEmptyCatalog
	}
	s.mu.Lock()
	s.catalog = cat
	s.loaded = time.Now()
	s.mu.Unlock()
	return nil
}

// LoadedAt reports when the cached catalog was last refreshed.
func (s *FileSource) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Watch blocks until ctx is done, reloading the catalog on file changes.
// The parent directory is watched so editors that replace the file are seen.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.logger.Info("watching catalog file", zap.String("path", s.path))

	var (
		pending bool
		last    time.Time
	)
	ticker := time.NewTicker(s.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			pending = true
			last = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("catalog watcher error", zap.Error(err))
		case <-ticker.C:
			if !pending || time.Since(last) < s.debounce {
				continue
			}
			pending = false
			if err := s.Reload(); err != nil {
				s.logger.Warn("catalog reload failed, keeping previous", zap.Error(err))
				continue
			}
			s.logger.Info("catalog reloaded", zap.String("path", s.path))
		}
	}
}
