package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/logging"
)

// FSSource watches a directory tree with fsnotify. Directories created
// after Start are watched as they appear.
type FSSource struct {
	root    string
	filters []FileFilter
	watcher *fsnotify.Watcher
	logger  logging.Logger

	closeOnce sync.Once
}

// NewFSSource watches root recursively. Paths rejected by any filter,
// relative to root, produce no events and their directories are not
// descended into.
func NewFSSource(root string, logger logging.Logger, filters ...FileFilter) (*FSSource, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeInvalidPath, "failed to resolve watch root")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeInternalError, "failed to create file watcher")
	}
	s := &FSSource{
		root:    abs,
		filters: filters,
		watcher: w,
		logger:  logger.WithComponent("watcher"),
	}
	if err := s.addRecursive(abs); err != nil {
		w.Close()
		return nil, err
	}
	return s, nil
}

// Root returns the absolute watched root.
func (s *FSSource) Root() string {
	return s.root
}

// WatchList returns the watched directories.
func (s *FSSource) WatchList() []string {
	return s.watcher.WatchList()
}

func (s *FSSource) addRecursive(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// vanished while walking
			if path != dir && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.root && !s.accept(path) {
			return filepath.SkipDir
		}
		return s.watcher.Add(path)
	})
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to watch directory").WithFile(dir)
	}
	return nil
}

func (s *FSSource) rel(path string) (string, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (s *FSSource) accept(path string) bool {
	rel, ok := s.rel(path)
	if !ok {
		return false
	}
	for _, f := range s.filters {
		if !f(rel) {
			return false
		}
	}
	return true
}

// Start emits events until ctx ends or the source is closed. The returned
// channel is closed when the loop exits.
func (s *FSSource) Start(ctx context.Context) (<-chan ChangeEvent, error) {
	out := make(chan ChangeEvent, 100)
	go s.watchLoop(ctx, out)
	return out, nil
}

// Close stops watching.
func (s *FSSource) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.watcher.Close() })
	return err
}

func (s *FSSource) watchLoop(ctx context.Context, out chan<- ChangeEvent) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			ev, ok := s.convert(ctx, event)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (s *FSSource) convert(ctx context.Context, event fsnotify.Event) (ChangeEvent, bool) {
	if event.Op == fsnotify.Chmod || !s.accept(event.Name) {
		return ChangeEvent{}, false
	}
	rel, _ := s.rel(event.Name)

	var t EventType
	switch {
	case event.Op.Has(fsnotify.Create):
		t = EventTypeCreated
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.addRecursive(event.Name); err != nil {
				s.logger.Warn(ctx, err, "Could not watch new directory", "dir", rel)
			}
		}
	case event.Op.Has(fsnotify.Write):
		t = EventTypeModified
	case event.Op.Has(fsnotify.Remove):
		t = EventTypeDeleted
	case event.Op.Has(fsnotify.Rename):
		t = EventTypeRenamed
	default:
		t = EventTypeModified
	}
	return statEvent(t, event.Name, rel), true
}
