package watcher

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Classifier turns one window of changes into a decision.
type Classifier[D any] func(events []ChangeEvent) D

// Debouncer groups rapid file changes together. Every event restarts a
// single timer; when the window elapses quietly the pending events,
// de-duplicated by path, are classified once.
type Debouncer[D any] struct {
	window   time.Duration
	classify Classifier[D]
	output   chan D
	done     chan struct{}

	mutex   sync.Mutex
	timer   *time.Timer
	pending []ChangeEvent
	stopped bool
}

// NewDebouncer creates a debouncer with the given window.
func NewDebouncer[D any](window time.Duration, classify Classifier[D]) *Debouncer[D] {
	return &Debouncer[D]{
		window:   window,
		classify: classify,
		output:   make(chan D, 16),
		done:     make(chan struct{}),
	}
}

// Output delivers one decision per quiet window.
func (d *Debouncer[D]) Output() <-chan D {
	return d.output
}

// Add records an event and restarts the window.
func (d *Debouncer[D]) Add(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// Run feeds events from in until ctx ends or in is closed, then stops.
func (d *Debouncer[D]) Run(ctx context.Context, in <-chan ChangeEvent) {
	defer d.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			d.Add(ev)
		}
	}
}

// Stop discards pending events. No decision is delivered afterwards.
func (d *Debouncer[D]) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
	close(d.done)
}

func (d *Debouncer[D]) flush() {
	d.mutex.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mutex.Unlock()
		return
	}
	events := Coalesce(d.pending)
	d.pending = nil
	d.mutex.Unlock()

	decision := d.classify(events)
	select {
	case d.output <- decision:
	case <-d.done:
	}
}

// Coalesce keeps the last event per path, ordered by path.
func Coalesce(events []ChangeEvent) []ChangeEvent {
	byPath := make(map[string]ChangeEvent, len(events))
	for _, ev := range events {
		byPath[ev.Path] = ev
	}
	out := make([]ChangeEvent, 0, len(byPath))
	for _, ev := range byPath {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
