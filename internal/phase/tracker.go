package phase

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// TransitionFunc is called once per observed phase change.
type TransitionFunc func(from, to string)

// Tracker remembers the last observed phase of one instance.
// A Tracker is not safe for concurrent use.
type Tracker struct {
	last         string
	onTransition TransitionFunc
}

// NewTracker returns a Tracker starting at phase Unknown. onTransition may be nil.
func NewTracker(onTransition TransitionFunc) *Tracker {
	return &Tracker{
		last:         Unknown,
		onTransition: onTransition,
	}
}

// Last returns the last observed phase.
func (t *Tracker) Last() string {
	return t.last
}

// Observe applies one event. done is true when the event decided the outcome;
// err is set for stream failures, which are always final.
func (t *Tracker) Observe(ctx context.Context, ev Event) (outcome Outcome, done bool, err error) {
	logger := log.FromContext(ctx)

	switch e := ev.(type) {
	case Updated:
		current, ok := Of(e.Object)
		if !ok {
			logger.V(1).Info("instance has no status")
			return 0, false, nil
		}
		logger.V(1).Info("instance has phase", "phase", current)
		if current == t.last {
			return 0, false, nil
		}

		previous := t.last
		t.last = current
		logger.Info("instance has transitioned", "from", previous, "to", current)
		if t.onTransition != nil {
			t.onTransition(previous, current)
		}

		switch current {
		case Succeeded:
			return OutcomeSucceeded, true, nil
		case Failed:
			return OutcomeFailed, true, nil
		}
		return 0, false, nil

	case Removed:
		return OutcomeDeleted, true, nil

	case StreamEnded:
		return OutcomeInterrupted, true, nil

	case StreamError:
		return 0, true, fmt.Errorf("watch failed: %w", e.Err)

	default:
		return 0, true, fmt.Errorf("unexpected watch event %T", ev)
	}
}

// Run consumes events until one of them decides the outcome. A closed channel
// counts as [StreamEnded]; so does cancellation of ctx.
//
// Run stops reading as soon as the outcome is known.
func (t *Tracker) Run(ctx context.Context, events <-chan Event) (Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return OutcomeInterrupted, nil
		case ev, ok := <-events:
			if !ok {
				ev = StreamEnded{}
			}
			outcome, done, err := t.Observe(ctx, ev)
			if err != nil {
				return 0, err
			}
			if done {
				return outcome, nil
			}
		}
	}
}
