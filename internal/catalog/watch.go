package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store hands out the current catalog and swaps it on reload.
type Store struct {
	current         atomic.Pointer[Catalog]
	path            string
	defaultLoginURL string
}

func NewStore(c *Catalog, path, defaultLoginURL string) *Store {
	s := &Store{path: path, defaultLoginURL: defaultLoginURL}
	s.current.Store(c)
	return s
}

func (s *Store) Current() *Catalog { return s.current.Load() }

// Reload re-reads the catalog file. A file that fails to parse leaves the
// current catalog in place.
func (s *Store) Reload() error {
	c, err := Load(s.path, s.defaultLoginURL)
	if err != nil {
		return err
	}
	s.current.Store(c)
	return nil
}

// Watch reloads the catalog whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are picked up.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("watch catalog: no file configured")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch catalog: %w", err)
	}
	target := filepath.Clean(s.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch catalog: %w", err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					slog.Warn("[catalog] reload failed, keeping previous routes", slog.String("err", err.Error()))
					continue
				}
				slog.Info("[catalog] reloaded", slog.String("path", target), slog.Int("routes", len(s.Current().routes)))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Debug("[catalog] watcher error", slog.String("err", err.Error()))
			}
		}
	}()
	return nil
}
