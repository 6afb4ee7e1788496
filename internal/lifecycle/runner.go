package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubevirt-actions-runner/internal/metrics"
	"github.com/imamik/kubevirt-actions-runner/internal/phase"
	"github.com/imamik/kubevirt-actions-runner/internal/runnerinfo"
	"github.com/imamik/kubevirt-actions-runner/internal/vmi"
)

// Options describes the instance a Runner manages.
type Options struct {
	// Name of the instance to create.
	Name string

	// Template is the name of the VirtualMachine the instance is built from.
	Template string

	// Info is the bootstrap payload handed to the guest.
	Info runnerinfo.Info
}

// Runner runs a single instance through its lifecycle.
type Runner struct {
	client InstanceClient
	opts   Options

	notifySignal func(c chan<- os.Signal, sig ...os.Signal)
	stopSignal   func(c chan<- os.Signal)

	state      State
	stateStart time.Time
}

// New creates a Runner.
func New(client InstanceClient, opts Options) *Runner {
	return &Runner{
		client:       client,
		opts:         opts,
		notifySignal: signal.Notify,
		stopSignal:   signal.Stop,
		state:        StateInit,
	}
}

// State returns the state the Runner is in.
func (r *Runner) State() State {
	return r.state
}

// Run creates the instance, waits for it to terminate and deletes it.
//
// An instance of the same name left over from an earlier run is deleted
// first. SIGTERM and SIGINT stop the watch early; the instance is still
// deleted in that case. A run whose outcome is not Succeeded returns the
// outcome together with an *AbnormalOutcomeError. Any API failure aborts the
// run immediately.
func (r *Runner) Run(ctx context.Context) (phase.Outcome, error) {
	logger := log.FromContext(ctx).WithValues("name", r.opts.Name)
	ctx = log.IntoContext(ctx, logger)
	r.stateStart = time.Now()

	r.enter(logger, StatePreexistingCheck)
	existing, err := r.client.Get(ctx, r.opts.Name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		logger.Info("instance already exists (were we killed?), deleting")
		if err := r.client.DeleteAndWait(ctx, r.opts.Name); err != nil {
			return 0, fmt.Errorf("failed to delete existing instance: %w", err)
		}
	}

	r.enter(logger, StateCreating)

	// Registered before the create so a signal arriving meanwhile is not
	// lost; it wins the race as soon as watching starts.
	sigterm := make(chan os.Signal, 1)
	sigint := make(chan os.Signal, 1)
	r.notifySignal(sigterm, syscall.SIGTERM)
	r.notifySignal(sigint, os.Interrupt)
	defer r.stopSignal(sigterm)
	defer r.stopSignal(sigint)

	instance, err := r.compose(ctx)
	if err != nil {
		return 0, err
	}
	logger.Info("creating instance", "template", r.opts.Template)
	if _, err := r.client.Create(ctx, instance); err != nil {
		return 0, err
	}

	r.enter(logger, StateWatching)
	outcome, err := r.watch(ctx, sigterm, sigint)
	if err != nil {
		return 0, fmt.Errorf("failed to watch instance: %w", err)
	}

	if outcome != phase.OutcomeDeleted {
		r.enter(logger, StateCleanup)
		logger.Info("deleting instance")
		if err := r.client.DeleteAndWait(ctx, r.opts.Name); err != nil {
			return outcome, fmt.Errorf("failed to delete instance: %w", err)
		}
	}

	r.enter(logger, StateDone)
	metrics.RecordOutcome(outcome.String())
	logger.Info("run finished", "outcome", outcome.String())

	if outcome.Abnormal() {
		return outcome, &AbnormalOutcomeError{Outcome: outcome}
	}
	return outcome, nil
}

// Render returns the instance Run would create, without touching any
// instance.
func (r *Runner) Render(ctx context.Context) (*unstructured.Unstructured, error) {
	return r.compose(ctx)
}

func (r *Runner) compose(ctx context.Context) (*unstructured.Unstructured, error) {
	template, err := r.client.Template(ctx, r.opts.Template)
	if err != nil {
		return nil, err
	}
	return vmi.Compose(template, r.client.InstanceKind(), r.opts.Name, r.opts.Info)
}

type watchResult struct {
	outcome phase.Outcome
	err     error
}

// watch races the termination signals against the instance reaching a final
// state. The watch is cancelled once either side wins.
func (r *Runner) watch(ctx context.Context, sigterm, sigint <-chan os.Signal) (phase.Outcome, error) {
	logger := log.FromContext(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := r.client.Watch(watchCtx, r.opts.Name)
	if err != nil {
		return 0, err
	}

	tracker := phase.NewTracker(func(_, to string) {
		metrics.RecordPhaseTransition(to)
	})
	results := make(chan watchResult, 1)
	go func() {
		outcome, err := tracker.Run(watchCtx, events)
		results <- watchResult{outcome: outcome, err: err}
	}()

	select {
	case <-sigterm:
		logger.Info("got SIGTERM")
		return phase.OutcomeInterrupted, nil
	case <-sigint:
		logger.Info("got SIGINT")
		return phase.OutcomeInterrupted, nil
	case res := <-results:
		if res.err != nil {
			return 0, res.err
		}
		switch res.outcome {
		case phase.OutcomeSucceeded, phase.OutcomeFailed:
			logger.Info("instance has terminated", "phase", tracker.Last())
		case phase.OutcomeDeleted:
			logger.Info("instance was deleted by something else")
		case phase.OutcomeInterrupted:
			logger.Info("the watch ended prematurely")
		}
		return res.outcome, nil
	}
}

// enter moves the Runner to the next state, recording how long the previous
// one took.
func (r *Runner) enter(logger logr.Logger, next State) {
	now := time.Now()
	elapsed := now.Sub(r.stateStart)
	metrics.RecordStateDuration(string(r.state), elapsed)

	logger.V(1).Info("state transition",
		"from", r.state,
		"to", next,
		"elapsed", elapsed,
	)

	r.state = next
	r.stateStart = now
}
