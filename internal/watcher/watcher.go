// Package watcher turns filesystem activity into coalesced decisions. A
// Source emits change events; a Debouncer collects them and, once a window
// passes without new events, hands the whole batch to a classifier.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type EventType
	// Path is relative to the watched root, with forward slashes.
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Source produces change events until its context ends or it is closed.
type Source interface {
	Start(ctx context.Context) (<-chan ChangeEvent, error)
	Close() error
}

// FileFilter determines if a path should produce events
type FileFilter func(path string) bool

// IgnoreFilter rejects paths with any segment in names, such as ".git" or
// "node_modules".
func IgnoreFilter(names []string) FileFilter {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.Trim(filepath.ToSlash(n), "/")] = true
	}
	return func(path string) bool {
		for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
			if set[seg] {
				return false
			}
		}
		return true
	}
}

// NoTempFilter rejects editor swap and backup files.
func NoTempFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasSuffix(base, "~") &&
		!strings.HasSuffix(base, ".swp") &&
		!strings.HasSuffix(base, ".swx") &&
		!strings.HasPrefix(base, ".#") &&
		base != "4913"
}

// Matches reports whether path matches any pattern. Patterns without a
// slash match the base name; others match the whole relative path.
func Matches(patterns []string, path string) bool {
	path = filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, p := range patterns {
		target := base
		if strings.Contains(p, "/") {
			target = path
		}
		if ok, _ := filepath.Match(p, target); ok {
			return true
		}
	}
	return false
}

func statEvent(t EventType, abs, rel string) ChangeEvent {
	ev := ChangeEvent{Type: t, Path: filepath.ToSlash(rel)}
	if info, err := os.Stat(abs); err == nil {
		ev.ModTime = info.ModTime()
		ev.Size = info.Size()
	}
	return ev
}
