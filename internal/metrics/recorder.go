// Package metrics records build and dev-loop observations. Components depend
// on the Recorder interface; NoopRecorder is used when nothing is configured.
package metrics

import "time"

// ResultLabel enumerates per-unit result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines observability hooks for the site pipeline.
type Recorder interface {
	ObserveStyleCompile(d time.Duration, files int)
	IncStyleResult(result ResultLabel)
	ObserveIslandBundle(island, target string, d time.Duration, result ResultLabel)
	IncPageRender(kind string, result ResultLabel)
	ObserveBuildDuration(d time.Duration, outcome ResultLabel)
	IncReloadBroadcast(delivered int)
	IncRestart(result ResultLabel)
	SetReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStyleCompile(time.Duration, int)                           {}
func (NoopRecorder) IncStyleResult(ResultLabel)                                       {}
func (NoopRecorder) ObserveIslandBundle(string, string, time.Duration, ResultLabel) {}
func (NoopRecorder) IncPageRender(string, ResultLabel)                                {}
func (NoopRecorder) ObserveBuildDuration(time.Duration, ResultLabel)                 {}
func (NoopRecorder) IncReloadBroadcast(int)                                           {}
func (NoopRecorder) IncRestart(ResultLabel)                                           {}
func (NoopRecorder) SetReloadClients(int)                                             {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
