// Package metrics defines the Prometheus collectors of the runner launcher.
//
// Collectors are registered with controller-runtime's registry so they are
// exposed by the controller-runtime metrics server when one is started.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/log"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
)

const namespace = "kvrunner"

var (
	// Run metrics
	runOutcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "outcome_total",
			Help:      "Total number of runs by outcome",
		},
		[]string{"outcome"},
	)

	stateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "state_duration_seconds",
			Help:      "Time spent in each lifecycle state in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10), // 100ms to ~7h
		},
		[]string{"state"},
	)

	// Instance metrics
	phaseTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "instance",
			Name:      "phase_transitions_total",
			Help:      "Total number of observed instance phase transitions by target phase",
		},
		[]string{"phase"},
	)

	// Kubernetes API metrics
	apiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kubevirt",
			Name:      "api_calls_total",
			Help:      "Total number of KubeVirt API calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	apiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kubevirt",
			Name:      "api_latency_seconds",
			Help:      "Latency of KubeVirt API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"operation"},
	)
)

func init() {
	ctrlmetrics.Registry.MustRegister(
		runOutcomeTotal,
		stateDuration,
		phaseTransitionsTotal,
		apiCallsTotal,
		apiLatency,
	)
}

// RecordOutcome records the terminal outcome of a run.
func RecordOutcome(outcome string) {
	runOutcomeTotal.WithLabelValues(outcome).Inc()
}

// RecordStateDuration records how long the run stayed in a lifecycle state.
func RecordStateDuration(state string, d time.Duration) {
	stateDuration.WithLabelValues(state).Observe(d.Seconds())
}

// RecordPhaseTransition records an observed instance phase change.
func RecordPhaseTransition(phase string) {
	phaseTransitionsTotal.WithLabelValues(phase).Inc()
}

// RecordAPICall records a KubeVirt API call.
func RecordAPICall(operation string, err error, latency time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	apiCallsTotal.WithLabelValues(operation, result).Inc()
	apiLatency.WithLabelValues(operation).Observe(latency.Seconds())
}

// Serve starts the controller-runtime metrics server in the background. It
// stops when ctx is done. An empty bindAddress disables serving.
func Serve(ctx context.Context, bindAddress string, restConfig *rest.Config, httpClient *http.Client) error {
	if bindAddress == "" {
		return nil
	}

	srv, err := metricsserver.NewServer(metricsserver.Options{BindAddress: bindAddress}, restConfig, httpClient)
	if err != nil {
		return err
	}

	go func() {
		if err := srv.Start(ctx); err != nil {
			log.FromContext(ctx).Error(err, "metrics server stopped")
		}
	}()
	return nil
}
