package healthwait

// Outcome is the tri-state result of one health-check probe.
type Outcome uint8

const (
	Healthy       Outcome = iota + 1 // check command exited 0
	Unhealthy                        // check command exited non-zero
	NoHealthCheck                    // container has no health check configured
)

func (o Outcome) String() string {
	switch o {
	case Healthy:
		return "healthy"
	case Unhealthy:
		return "unhealthy"
	case NoHealthCheck:
		return "no health check"
	default:
		return "unknown"
	}
}

// Terminal reports whether the outcome resolves the container for the rest
// of the session. Only an unhealthy container is probed again.
func (o Outcome) Terminal() bool {
	return o == Healthy || o == NoHealthCheck
}

// ProbeResult pairs a container with the outcome of one probe execution.
type ProbeResult struct {
	Record  ContainerRecord
	Outcome Outcome
}
