// Package supervisor owns the dev loop: it keeps a server process running,
// watches the source tree and turns debounced changes into style
// regeneration, reloads or full restarts.
package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/isle/internal/errors"
	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/metrics"
	"github.com/conneroisu/isle/internal/watcher"
)

// State is the lifecycle state of the supervised server.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateRestarting
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

const (
	HealthPath = "/__health__"
	ReloadPath = "/__reload__"

	stopTimeout = 5 * time.Second
)

// Options tune the supervisor.
type Options struct {
	// BaseURL reaches the server over loopback.
	BaseURL         string
	Debounce        time.Duration
	HealthAttempts  int
	HealthInterval  time.Duration
	RestartPatterns []string
	// Regenerate rebuilds style output on a style change. Optional.
	Regenerate func(ctx context.Context) error
	Client     *http.Client
}

// Supervisor runs the server process and reacts to source changes.
type Supervisor struct {
	runner  ProcessRunner
	source  watcher.Source
	opts    Options
	client  *http.Client
	logger  logging.Logger
	metrics metrics.Recorder

	state      atomic.Int32
	restarting atomic.Bool

	mu   sync.Mutex
	proc Process
}

// New creates a supervisor. Nothing starts until Run.
func New(runner ProcessRunner, source watcher.Source, opts Options, logger logging.Logger, rec metrics.Recorder) *Supervisor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.HealthAttempts < 1 {
		opts.HealthAttempts = 1
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	return &Supervisor{
		runner:  runner,
		source:  source,
		opts:    opts,
		client:  client,
		logger:  logger.WithComponent("supervisor"),
		metrics: metrics.OrNoop(rec),
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(ctx context.Context, st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.logger.Debug(ctx, "Supervisor state changed", "from", prev.String(), "to", st.String())
	}
}

// Run starts the server, then handles debounced changes until ctx ends.
// The server is stopped before Run returns.
func (s *Supervisor) Run(ctx context.Context) error {
	s.setState(ctx, StateStarting)
	if err := s.start(ctx); err != nil {
		s.setState(ctx, StateStopped)
		return err
	}
	if err := s.WaitHealthy(ctx); err != nil {
		s.logger.Warn(ctx, err, "Server did not become healthy")
	}
	s.setState(ctx, StateRunning)
	defer s.shutdown(ctx)

	events, err := s.source.Start(ctx)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to start change source")
	}

	debouncer := watcher.NewDebouncer(s.opts.Debounce, Classify(s.opts.RestartPatterns))
	go debouncer.Run(ctx, events)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-debouncer.Output():
			if err := s.Handle(ctx, d); err != nil {
				s.logger.Warn(ctx, err, "Change handling failed", "action", d.Action.String())
			}
		}
	}
}

// Handle carries out one decision.
func (s *Supervisor) Handle(ctx context.Context, d Decision) error {
	s.logger.Info(ctx, "Source changed", "action", d.Action.String(), "files", len(d.Paths))
	switch d.Action {
	case ActionRestart:
		return s.Restart(ctx)
	case ActionStyles:
		if s.opts.Regenerate != nil {
			if err := s.opts.Regenerate(ctx); err != nil {
				s.logger.Warn(ctx, err, "Style regeneration failed")
			}
		}
		return s.Reload(ctx)
	default:
		return s.Reload(ctx)
	}
}

// Restart replaces the server process, waits for it to answer its health
// probe and then triggers a reload. The reload is sent even when the probe
// never succeeds. A restart requested while another is in flight is ignored.
func (s *Supervisor) Restart(ctx context.Context) error {
	if !s.restarting.CompareAndSwap(false, true) {
		s.logger.Debug(ctx, "Restart already in progress")
		s.metrics.IncRestart(metrics.ResultSkipped)
		return nil
	}
	defer s.restarting.Store(false)

	op := logging.StartOperation(s.logger, "restart server")
	s.setState(ctx, StateRestarting)
	defer s.setState(ctx, StateRunning)

	s.stop(ctx)
	if err := s.start(ctx); err != nil {
		s.metrics.IncRestart(metrics.ResultFailed)
		op.EndWithError(ctx, err)
		return err
	}
	if err := s.WaitHealthy(ctx); err != nil {
		// the browser still reloads so a recovered server is picked up
		s.logger.Warn(ctx, err, "Server unhealthy after restart, reloading degraded")
		s.metrics.IncRestart(metrics.ResultFailed)
		op.EndWithError(ctx, err)
		return s.Reload(ctx)
	}
	s.metrics.IncRestart(metrics.ResultSuccess)
	op.End(ctx)
	return s.Reload(ctx)
}

// WaitHealthy polls the health probe up to HealthAttempts times,
// HealthInterval apart.
func (s *Supervisor) WaitHealthy(ctx context.Context) error {
	url := s.opts.BaseURL + HealthPath
	var lastErr error
	for attempt := 1; attempt <= s.opts.HealthAttempts; attempt++ {
		lastErr = s.probe(ctx, url)
		if lastErr == nil {
			s.logger.Debug(ctx, "Server healthy", "attempts", attempt)
			return nil
		}
		if attempt == s.opts.HealthAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.opts.HealthInterval):
		}
	}
	return errors.WrapNetwork(lastErr, errors.ErrCodeHealthCheck, "server failed its health check").
		WithContext("attempts", s.opts.HealthAttempts).
		WithContext("url", url)
}

func (s *Supervisor) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe returned %d", resp.StatusCode)
	}
	return nil
}

// Reload asks the server to recompile styles and push a reload.
func (s *Supervisor) Reload(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.BaseURL+ReloadPath, nil)
	if err != nil {
		return errors.WrapNetwork(err, errors.ErrCodeReloadTrigger, "failed to build reload request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WrapNetwork(err, errors.ErrCodeReloadTrigger, "failed to trigger reload")
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.NewNetworkError(errors.ErrCodeReloadTrigger,
			fmt.Sprintf("reload trigger returned %d", resp.StatusCode), nil)
	}
	return nil
}

func (s *Supervisor) start(ctx context.Context) error {
	proc, err := s.runner.Start(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()
	return nil
}

func (s *Supervisor) stop(ctx context.Context) {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.mu.Unlock()
	if proc == nil {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := proc.Stop(stopCtx); err != nil {
		s.logger.Warn(ctx, err, "Server did not stop cleanly")
	}
}

func (s *Supervisor) shutdown(ctx context.Context) {
	s.stop(ctx)
	if err := s.source.Close(); err != nil {
		s.logger.Warn(ctx, err, "Failed to close change source")
	}
	s.setState(ctx, StateStopped)
}
