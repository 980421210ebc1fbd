// Package scheduler drives a pool of concurrent health-check probes until
// every container resolves or an overall timeout fires.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"healthwait"
	"healthwait/internal/check"
	"healthwait/internal/logging"
)

// Prober runs one health check for one container.
type Prober interface {
	Probe(ctx context.Context, rec healthwait.ContainerRecord) (healthwait.Outcome, error)
}

// Scheduler polls containers until all are healthy (or have no check).
//
// Zero value is not usable; Prober must be set. Log defaults to discard.
type Scheduler struct {
	Prober Prober
	Log    *slog.Logger

	// OnResult, if set, is invoked from the control loop for every completed
	// probe. Callers use it to render progress; it must not block for long.
	OnResult func(healthwait.ProbeResult)
}

type probeReply struct {
	rec     healthwait.ContainerRecord
	outcome healthwait.Outcome
	err     error
}

// Run probes every record concurrently, re-issuing a probe each time a
// container reports unhealthy, until all containers resolve. A non-zero
// timeout bounds the whole session; on expiry every in-flight probe is
// cancelled and awaited (so its subprocess is gone) before
// healthwait.ErrTimeout is returned.
//
// A probe failing with an infrastructure error (such as an unsupported
// check kind) aborts the run the same way: cancel, drain, propagate.
// At most one probe is in flight per container at any time.
func (s *Scheduler) Run(ctx context.Context, records []healthwait.ContainerRecord, timeout time.Duration) error {
	check.Assert(s.Prober != nil, "scheduler: Prober must not be nil")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// All replies funnel into one channel consumed by this loop only; the
	// in-flight accounting below is single-threaded by construction.
	replies := make(chan probeReply)
	inflight := 0
	launch := func(rec healthwait.ContainerRecord) {
		inflight++
		go func() {
			out, err := s.Prober.Probe(ctx, rec)
			replies <- probeReply{rec: rec, outcome: out, err: err}
		}()
	}
	for _, rec := range records {
		launch(rec)
	}

	// The timer task never resolves normally: expiry is its only outcome.
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var (
		timedOut bool
		fatal    error
	)
	for inflight > 0 {
		select {
		case <-expired:
			timedOut = true
			expired = nil
			s.logger().Warn("Timeout exceeded, cancelling outstanding checks.", "outstanding", inflight)
			cancel()
		case reply := <-replies:
			inflight--
			if reply.err != nil {
				if errors.Is(reply.err, context.Canceled) || errors.Is(reply.err, context.DeadlineExceeded) {
					// A cancelled probe has already reaped its subprocess.
					continue
				}
				if fatal == nil {
					fatal = reply.err
				}
				cancel()
				continue
			}
			s.report(reply)
			if reply.outcome == healthwait.Unhealthy && !timedOut && fatal == nil {
				launch(reply.rec)
			}
		}
	}

	if fatal != nil {
		return fatal
	}
	if timedOut {
		return healthwait.ErrTimeout
	}
	return ctx.Err()
}

func (s *Scheduler) report(reply probeReply) {
	if s.OnResult != nil {
		s.OnResult(healthwait.ProbeResult{Record: reply.rec, Outcome: reply.outcome})
	}
	s.logger().Debug("Probe completed.", "container", reply.rec.Name, "outcome", reply.outcome.String())
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logging.Discard()
}
