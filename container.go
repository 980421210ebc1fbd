package healthwait

// CheckKind tags how a container's health-check command is run, taken from
// the first token of the configured test vector.
type CheckKind string

const (
	// CheckShell runs the check's single command string through the
	// container's shell.
	CheckShell CheckKind = "CMD-SHELL"
	// CheckExec runs the check's remaining tokens as a literal argument
	// vector inside the container.
	CheckExec CheckKind = "CMD"
)

// HealthCheck is a container's configured health-check command.
type HealthCheck struct {
	Kind    CheckKind
	Command []string
}

// HealthCheckFromTest builds a HealthCheck from a Docker healthcheck test
// vector. Returns nil when the vector declares no check (empty, or the
// explicit "NONE" marker).
func HealthCheckFromTest(test []string) *HealthCheck {
	if len(test) == 0 || test[0] == "NONE" {
		return nil
	}
	return &HealthCheck{
		Kind:    CheckKind(test[0]),
		Command: append([]string(nil), test[1:]...),
	}
}

// ContainerRecord is an immutable per-poll snapshot of one container.
// Records are created by the inspector and re-used unchanged across probe
// cycles; runtime metadata does not change during a run.
type ContainerRecord struct {
	ID    string
	Name  string
	Check *HealthCheck // nil when no health check is configured

	// Ports lists the container's exposed ports ("8080/tcp"), informational.
	Ports []string
}

// ShortID returns the familiar 12-character form of the container ID.
func (r ContainerRecord) ShortID() string {
	if len(r.ID) > 12 {
		return r.ID[:12]
	}
	return r.ID
}
