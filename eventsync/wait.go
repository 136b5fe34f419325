package eventsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/probe/observability"
	"github.com/tailored-agentic-units/probe/pin"
)

// Wait blocks until cond holds or timeout elapses. A negative timeout
// (NoTimeout) waits indefinitely; a zero timeout checks the condition once.
// On timeout the returned error matches ErrTimeout.
func (s *Synchronizer) Wait(cond Condition, timeout time.Duration) error {
	pred, err := s.predicate(cond)
	if err != nil {
		return err
	}
	return s.waitTimeout(pred, timeout, false)
}

// WaitOnce is Wait followed by Reset, consuming a single trigger. The reset
// happens under the same lock that observed the condition, so a trigger
// arriving after the wait returns is not lost.
func (s *Synchronizer) WaitOnce(cond Condition, timeout time.Duration) error {
	pred, err := s.predicate(cond)
	if err != nil {
		return err
	}
	return s.waitTimeout(pred, timeout, true)
}

// WaitValue blocks until the last payload equals expected (see pin.Equal).
func (s *Synchronizer) WaitValue(expected any, timeout time.Duration) error {
	return s.waitTimeout(func(st State) bool {
		return pin.Equal(st.Payload, expected)
	}, timeout, false)
}

// WaitNotValue blocks until the last payload differs from expected.
func (s *Synchronizer) WaitNotValue(expected any, timeout time.Duration) error {
	return s.waitTimeout(func(st State) bool {
		return !pin.Equal(st.Payload, expected)
	}, timeout, false)
}

// WaitCondition blocks until pred returns true. pred is called without the
// synchronizer lock held, on every state change and once per duty cycle.
func (s *Synchronizer) WaitCondition(pred func(State) bool, timeout time.Duration) error {
	return s.waitTimeout(pred, timeout, false)
}

// WaitContext blocks until pred returns true or ctx is done. A context
// deadline is reported as ErrTimeout; cancellation returns ctx.Err().
func (s *Synchronizer) WaitContext(ctx context.Context, pred func(State) bool) error {
	return s.wait(ctx, pred, false)
}

func (s *Synchronizer) predicate(cond Condition) (func(State) bool, error) {
	switch cond {
	case Lock:
		return func(st State) bool { return st.Armed }, nil
	case Unlock:
		return func(st State) bool { return !st.Armed }, nil
	case Toggle:
		initial := s.IsLocked()
		return func(st State) bool { return st.Armed != initial }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCondition, cond)
	}
}

func (s *Synchronizer) waitTimeout(pred func(State) bool, timeout time.Duration, consume bool) error {
	ctx := context.Background()
	if timeout >= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.wait(ctx, pred, consume)
}

func (s *Synchronizer) wait(ctx context.Context, pred func(State) bool, consume bool) error {
	ticker := time.NewTicker(s.dutyCycle)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		st, changed := s.state, s.changed
		s.mu.Unlock()

		if pred(st) {
			if consume && !s.consume(pred) {
				continue
			}
			return nil
		}

		select {
		case <-changed:
		case <-ticker.C:
		case <-ctx.Done():
			if s.holds(pred, consume) {
				return nil
			}
			return s.waitErr(ctx)
		}
	}
}

// holds takes a final look at the state once ctx is done, so a condition
// that became true together with the deadline is not reported as a
// timeout.
func (s *Synchronizer) holds(pred func(State) bool, consume bool) bool {
	if consume {
		return s.consume(pred)
	}
	return pred(s.State())
}

// consume re-checks pred under the lock and resets the synchronizer when
// it still holds. It reports false if the state moved on since the
// unlocked check, in which case the caller re-evaluates.
func (s *Synchronizer) consume(pred func(State) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !pred(s.state) {
		return false
	}
	s.resetLocked()
	return true
}

func (s *Synchronizer) waitErr(ctx context.Context) error {
	err := ctx.Err()
	if !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("wait on %s canceled: %w", s.name, err)
	}

	observability.Emit(context.Background(), s.observer, EventTimedOut, observability.LevelInfo, "eventsync.Wait", map[string]any{
		"event": s.name,
	})
	return fmt.Errorf("%w: %s", ErrTimeout, s.name)
}
