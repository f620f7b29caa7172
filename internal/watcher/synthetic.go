package watcher

import (
	"context"
	"sync"
	"time"
)

// SyntheticSource emits events pushed by Emit. It stands in for the
// filesystem in tests and tools.
type SyntheticSource struct {
	events    chan ChangeEvent
	closeOnce sync.Once
}

// NewSyntheticSource creates a source buffering up to buffer events.
func NewSyntheticSource(buffer int) *SyntheticSource {
	return &SyntheticSource{events: make(chan ChangeEvent, buffer)}
}

// Start returns the event channel. It is closed by Close.
func (s *SyntheticSource) Start(context.Context) (<-chan ChangeEvent, error) {
	return s.events, nil
}

// Emit queues a modification of path.
func (s *SyntheticSource) Emit(path string) {
	s.Send(ChangeEvent{Type: EventTypeModified, Path: path, ModTime: time.Now()})
}

// Send queues ev.
func (s *SyntheticSource) Send(ev ChangeEvent) {
	s.events <- ev
}

// Close ends the event stream.
func (s *SyntheticSource) Close() error {
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}
