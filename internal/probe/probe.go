// Package probe executes a single container health check as a child process
// of the container runtime CLI (`docker exec ...`).
package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"healthwait"
	"healthwait/internal/logging"
)

// Prober runs container health checks.
type Prober struct {
	binary string
	shell  string
	log    *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithBinary sets the container runtime binary. Defaults to "docker"
// (found via PATH).
func WithBinary(path string) Option {
	return func(p *Prober) { p.binary = path }
}

// WithLogger sets the diagnostics logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Prober) { p.log = log }
}

// New creates a Prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		binary: "docker",
		shell:  "/bin/sh",
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe runs rec's configured health check once and reports the outcome.
//
// Containers without a configured check resolve to NoHealthCheck without
// spawning anything. Otherwise the check command runs inside the container,
// its stdout and stderr are drained line by line at debug level, and the
// exit code decides: zero is Healthy, anything else Unhealthy.
//
// If ctx is cancelled while the check runs, the subprocess is killed and
// waited for before the context error is returned; no outcome is reported.
func (p *Prober) Probe(ctx context.Context, rec healthwait.ContainerRecord) (healthwait.Outcome, error) {
	log := p.log.With("container", rec.Name, "id", rec.ShortID())

	if rec.Check == nil {
		log.Info("No health check.")
		return healthwait.NoHealthCheck, nil
	}

	argv, err := p.execArgs(rec)
	if err != nil {
		return 0, err
	}
	log.Info("Checking.")

	cmd := exec.Command(p.binary, argv...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("health check stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("health check stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start health check: %w", err)
	}

	// Each stream gets its own reader so a burst on one never stalls the
	// other. Wait must not run before both pipes are fully drained.
	var readers sync.WaitGroup
	readers.Add(2)
	go p.drain(log, "stdout", stdout, &readers)
	go p.drain(log, "stderr", stderr, &readers)

	done := make(chan error, 1)
	go func() {
		readers.Wait()
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		log.Warn("Cancelled, killing health check.")
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Debug("Kill health check.", "err", err)
		}
		// The check may have forked children that inherit the pipe write
		// ends and outlive the kill. Close the read ends so the drain
		// goroutines unblock now rather than when the orphans exit.
		_ = stdout.Close()
		_ = stderr.Close()
		<-done
		return 0, ctx.Err()
	case err := <-done:
		var exitErr *exec.ExitError
		switch {
		case err == nil:
			log.Info("Returncode 0 (healthy).")
			return healthwait.Healthy, nil
		case errors.As(err, &exitErr):
			log.Info("Non-zero returncode (unhealthy).", "returncode", exitErr.ExitCode())
			return healthwait.Unhealthy, nil
		default:
			return 0, fmt.Errorf("wait for health check: %w", err)
		}
	}
}

// execArgs maps the check spec onto runtime CLI arguments. The kind dispatch
// is exhaustive: unknown kinds are a distinct error, never a default branch.
func (p *Prober) execArgs(rec healthwait.ContainerRecord) ([]string, error) {
	switch rec.Check.Kind {
	case healthwait.CheckShell:
		if len(rec.Check.Command) == 0 {
			return nil, fmt.Errorf("container %s: shell health check has no command", rec.Name)
		}
		return []string{"exec", rec.ID, p.shell, "-c", rec.Check.Command[0]}, nil
	case healthwait.CheckExec:
		if len(rec.Check.Command) == 0 {
			return nil, fmt.Errorf("container %s: exec health check has no arguments", rec.Name)
		}
		return append([]string{"exec", rec.ID}, rec.Check.Command...), nil
	default:
		return nil, &healthwait.UnsupportedCheckKindError{Kind: string(rec.Check.Kind)}
	}
}

func (p *Prober) drain(log *slog.Logger, stream string, r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		log.Debug("Health check output.", "stream", stream, "line", sc.Text())
	}
	if err := sc.Err(); err != nil {
		log.Debug("Read health check output.", "stream", stream, "err", err)
	}
}
