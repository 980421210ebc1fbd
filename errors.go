package healthwait

import (
	"errors"
	"fmt"
)

// ErrTimeout reports that the configured deadline elapsed before every
// container became healthy. All subprocesses spawned during the run have
// exited by the time this is returned.
var ErrTimeout = errors.New("timed out waiting for containers to become healthy")

// InspectError reports that container inspection failed: the inspection
// subprocess exited non-zero, its output was not parseable, or a requested
// identifier was absent from the response. Always fatal for the run.
type InspectError struct {
	Err error
}

func (e *InspectError) Error() string {
	return "inspect containers: " + e.Err.Error()
}

func (e *InspectError) Unwrap() error { return e.Err }

// UnsupportedCheckKindError reports a health-check kind this tool cannot
// evaluate. A configuration error, never retried.
type UnsupportedCheckKindError struct {
	Kind string
}

func (e *UnsupportedCheckKindError) Error() string {
	return fmt.Sprintf("unsupported health check kind %q", e.Kind)
}
