// Package inspect fetches container metadata from the container runtime.
//
// The runtime is driven as an external command-line tool: one `docker
// inspect` invocation per call, covering the full identifier set, with the
// JSON response decoded through the Docker Engine API types.
package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"healthwait"
	"healthwait/internal/logging"
)

// Inspector resolves container identifiers to metadata records.
type Inspector struct {
	binary string
	log    *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithBinary sets the container runtime binary. Defaults to "docker"
// (found via PATH).
func WithBinary(path string) Option {
	return func(i *Inspector) { i.binary = path }
}

// WithLogger sets the diagnostics logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(i *Inspector) { i.log = log }
}

// New creates an Inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		binary: "docker",
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inspect invokes the runtime's inspection command once for the full
// identifier set and returns one record per container. Identifiers may be
// names or IDs (full or prefix). Every requested identifier must appear in
// the response; anything else is an *healthwait.InspectError.
func (i *Inspector) Inspect(ctx context.Context, ids []string) ([]healthwait.ContainerRecord, error) {
	if len(ids) == 0 {
		return nil, &healthwait.InspectError{Err: errors.New("no container identifiers given")}
	}

	cmd := exec.CommandContext(ctx, i.binary, append([]string{"inspect"}, ids...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	i.log.Debug("Inspecting containers.", "count", len(ids))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &healthwait.InspectError{Err: err}
	}

	var entries []container.InspectResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &entries); err != nil {
		return nil, &healthwait.InspectError{Err: fmt.Errorf("decode response: %w", err)}
	}

	records := make([]healthwait.ContainerRecord, 0, len(entries))
	for _, entry := range entries {
		rec, err := recordFromEntry(entry)
		if err != nil {
			return nil, &healthwait.InspectError{Err: err}
		}
		records = append(records, rec)
	}

	for _, id := range ids {
		if !anyMatches(records, id) {
			return nil, &healthwait.InspectError{
				Err: fmt.Errorf("container %q missing from inspect response", id),
			}
		}
	}
	return records, nil
}

func recordFromEntry(entry container.InspectResponse) (healthwait.ContainerRecord, error) {
	if entry.ContainerJSONBase == nil || entry.ID == "" {
		return healthwait.ContainerRecord{}, errors.New("response entry has no container ID")
	}
	rec := healthwait.ContainerRecord{
		ID:   entry.ID,
		Name: strings.TrimPrefix(entry.Name, "/"),
	}
	if entry.Config != nil {
		if hc := entry.Config.Healthcheck; hc != nil {
			rec.Check = healthwait.HealthCheckFromTest(hc.Test)
		}
		rec.Ports = portStrings(entry.Config.ExposedPorts)
	}
	return rec, nil
}

func portStrings(ports nat.PortSet) []string {
	if len(ports) == 0 {
		return nil
	}
	out := make([]string, 0, len(ports))
	for port := range ports {
		out = append(out, string(port))
	}
	sort.Strings(out)
	return out
}

// anyMatches reports whether id resolves to one of the records, by name,
// full ID, or ID prefix — the same forms `docker inspect` accepts.
func anyMatches(records []healthwait.ContainerRecord, id string) bool {
	name := strings.TrimPrefix(id, "/")
	for _, rec := range records {
		if rec.Name == name || strings.HasPrefix(rec.ID, id) {
			return true
		}
	}
	return false
}
