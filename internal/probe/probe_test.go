package probe

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"healthwait"
	"healthwait/internal/logging"
)

// stubRuntime writes a shell script that mimics `docker exec <id> cmd...` by
// dropping the first two arguments and executing the rest on the host.
func stubRuntime(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker")
	script := "#!/bin/sh\nshift 2\nexec \"$@\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub runtime: %v", err)
	}
	return path
}

func shellCheck(cmd string) healthwait.ContainerRecord {
	return healthwait.ContainerRecord{
		ID:   "aaaa1111aaaa1111",
		Name: "web",
		Check: &healthwait.HealthCheck{
			Kind:    healthwait.CheckShell,
			Command: []string{cmd},
		},
	}
}

func TestProbeNoHealthCheck(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "spawned")
	path := filepath.Join(t.TempDir(), "docker")
	script := "#!/bin/sh\ntouch " + marker + "\nexit 0\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub runtime: %v", err)
	}

	p := New(WithBinary(path))
	out, err := p.Probe(t.Context(), healthwait.ContainerRecord{ID: "cccc", Name: "db"})
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if out != healthwait.NoHealthCheck {
		t.Fatalf("Probe() = %s, want no health check", out)
	}
	if _, err := os.Stat(marker); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("probe spawned a subprocess for a container without a health check")
	}
}

func TestProbeHealthy(t *testing.T) {
	p := New(WithBinary(stubRuntime(t)))
	out, err := p.Probe(t.Context(), shellCheck("exit 0"))
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if out != healthwait.Healthy {
		t.Fatalf("Probe() = %s, want healthy", out)
	}
}

func TestProbeUnhealthyExitCode(t *testing.T) {
	p := New(WithBinary(stubRuntime(t)))
	out, err := p.Probe(t.Context(), shellCheck("exit 3"))
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if out != healthwait.Unhealthy {
		t.Fatalf("Probe() = %s, want unhealthy", out)
	}
}

func TestProbeExecArgumentList(t *testing.T) {
	p := New(WithBinary(stubRuntime(t)))
	rec := healthwait.ContainerRecord{
		ID:   "bbbb2222",
		Name: "db",
		Check: &healthwait.HealthCheck{
			Kind:    healthwait.CheckExec,
			Command: []string{"/bin/sh", "-c", "exit 0"},
		},
	}
	out, err := p.Probe(t.Context(), rec)
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if out != healthwait.Healthy {
		t.Fatalf("Probe() = %s, want healthy", out)
	}
}

func TestProbeUnsupportedKind(t *testing.T) {
	// A nonexistent binary proves the dispatch rejects the kind before any
	// subprocess is spawned.
	p := New(WithBinary(filepath.Join(t.TempDir(), "missing")))
	rec := healthwait.ContainerRecord{
		ID:   "dddd",
		Name: "svc",
		Check: &healthwait.HealthCheck{
			Kind:    healthwait.CheckKind("HTTP"),
			Command: []string{"http://localhost/healthz"},
		},
	}
	_, err := p.Probe(t.Context(), rec)
	var kindErr *healthwait.UnsupportedCheckKindError
	if !errors.As(err, &kindErr) {
		t.Fatalf("Probe() error = %v, want *healthwait.UnsupportedCheckKindError", err)
	}
	if kindErr.Kind != "HTTP" {
		t.Fatalf("kindErr.Kind = %q, want HTTP", kindErr.Kind)
	}
}

func TestProbeDrainsBothStreams(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(&buf, logging.LevelDebug)
	if err != nil {
		t.Fatalf("logging.New() error: %v", err)
	}

	p := New(WithBinary(stubRuntime(t)), WithLogger(log))
	out, err := p.Probe(t.Context(), shellCheck("echo from-stdout; echo from-stderr >&2; exit 0"))
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if out != healthwait.Healthy {
		t.Fatalf("Probe() = %s, want healthy", out)
	}

	logged := buf.String()
	for _, want := range []string{"stream=stdout", "from-stdout", "stream=stderr", "from-stderr"} {
		if !strings.Contains(logged, want) {
			t.Fatalf("log output missing %q:\n%s", want, logged)
		}
	}
}

func TestProbeCancellationKillsSubprocess(t *testing.T) {
	p := New(WithBinary(stubRuntime(t)))
	ctx, cancel := context.WithCancel(t.Context())

	type reply struct {
		out healthwait.Outcome
		err error
	}
	done := make(chan reply, 1)
	start := time.Now()
	go func() {
		out, err := p.Probe(ctx, shellCheck("sleep 30"))
		done <- reply{out: out, err: err}
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case r := <-done:
		if !errors.Is(r.err, context.Canceled) {
			t.Fatalf("Probe() error = %v, want context.Canceled", r.err)
		}
		if r.out != 0 {
			t.Fatalf("Probe() outcome = %v, want none on cancellation", r.out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Probe() did not return after cancellation; subprocess not killed")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("cancellation took %v, subprocess was not killed promptly", elapsed)
	}
}

func TestProbeCancellationWithForkedChild(t *testing.T) {
	// A check command may leave behind a background child that inherits the
	// output pipes and survives the kill of its parent. Cancellation must
	// not wait for that orphan to exit.
	p := New(WithBinary(stubRuntime(t)))
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	start := time.Now()
	go func() {
		_, err := p.Probe(ctx, shellCheck("sleep 60 & sleep 30"))
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Probe() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Probe() blocked on the forked child's pipe handles after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("cancellation took %v, want prompt return despite orphaned child", elapsed)
	}
}

func TestProbeShellCheckWithoutCommand(t *testing.T) {
	p := New(WithBinary(stubRuntime(t)))
	rec := healthwait.ContainerRecord{
		ID:    "eeee",
		Name:  "svc",
		Check: &healthwait.HealthCheck{Kind: healthwait.CheckShell},
	}
	if _, err := p.Probe(t.Context(), rec); err == nil {
		t.Fatal("Probe() error = nil, want error for empty shell check")
	}
}
