package supervisor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/conneroisu/isle/internal/errors"
)

// Process is a running server.
type Process interface {
	// Stop asks the process to exit and waits for it, killing it once ctx ends.
	Stop(ctx context.Context) error
	// Done is closed when the process has exited.
	Done() <-chan struct{}
}

// ProcessRunner starts server processes.
type ProcessRunner interface {
	Start(ctx context.Context) (Process, error)
}

// ExecRunner runs the server as a child process.
type ExecRunner struct {
	Path   string
	Args   []string
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner runs the current binary's serve command with extra args.
func NewExecRunner(args ...string) *ExecRunner {
	return &ExecRunner{
		Path:   os.Args[0],
		Args:   append([]string{"serve"}, args...),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (r *ExecRunner) Start(ctx context.Context) (Process, error) {
	cmd := exec.Command(r.Path, r.Args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "failed to start server process", err).
			WithContext("command", r.Path)
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
	once sync.Once
}

func (p *execProcess) Done() <-chan struct{} {
	return p.done
}

func (p *execProcess) Stop(ctx context.Context) error {
	p.once.Do(func() {
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		_ = p.cmd.Process.Kill()
		<-p.done
		return ctx.Err()
	}
}
