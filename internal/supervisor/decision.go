package supervisor

import (
	"strings"

	"github.com/conneroisu/isle/internal/watcher"
)

// Action is what one debounce window of changes calls for.
type Action int

const (
	// ActionReload pushes a reload without touching the server.
	ActionReload Action = iota
	// ActionStyles regenerates style output, then reloads.
	ActionStyles
	// ActionRestart replaces the server process, then reloads.
	ActionRestart
)

func (a Action) String() string {
	switch a {
	case ActionReload:
		return "reload"
	case ActionStyles:
		return "styles"
	case ActionRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// Decision is the outcome of classifying a window of changes.
type Decision struct {
	Action Action
	Paths  []string
}

// Classify returns a classifier that picks the strongest action any path in
// the window calls for. Paths matching restartPatterns restart the server;
// style sources regenerate styles; everything else reloads.
func Classify(restartPatterns []string) watcher.Classifier[Decision] {
	return func(events []watcher.ChangeEvent) Decision {
		d := Decision{Action: ActionReload, Paths: make([]string, 0, len(events))}
		for _, ev := range events {
			d.Paths = append(d.Paths, ev.Path)
			switch {
			case watcher.Matches(restartPatterns, ev.Path):
				d.Action = ActionRestart
			case strings.HasSuffix(ev.Path, ".css") && d.Action < ActionStyles:
				d.Action = ActionStyles
			}
		}
		return d
	}
}
