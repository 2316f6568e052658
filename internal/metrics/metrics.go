package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/reconciler"
)

const namespace = "cement"

// Recorder collects request and reconcile metrics for one process. It
// satisfies the gateway request recorder and the engine observer.
type Recorder struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reconciles      *prometheus.CounterVec
}

var _ reconciler.Observer = (*Recorder)(nil)

func New() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total Foreman API requests.",
			},
			[]string{"method", "purpose", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Foreman API request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "purpose"},
		),
		reconciles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "total",
				Help:      "Reconciles by entity kind, action and result.",
			},
			[]string{"kind", "action", "changed", "dry_run", "result"},
		),
	}
	recorder.registry.MustRegister(recorder.requests, recorder.requestDuration, recorder.reconciles)
	return recorder
}

func (r *Recorder) ObserveRequest(method string, purpose string, statusCode int, duration time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, purpose, strconv.Itoa(statusCode)).Inc()
	r.requestDuration.WithLabelValues(method, purpose).Observe(duration.Seconds())
}

func (r *Recorder) ObserveReconcile(kind string, outcome reconciler.Outcome, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		if category, ok := faults.CategoryOf(err); ok {
			result = string(category)
		}
	}
	action := string(outcome.Action)
	if action == "" {
		action = string(reconciler.ActionNone)
	}
	r.reconciles.WithLabelValues(
		kind,
		action,
		strconv.FormatBool(outcome.Changed),
		strconv.FormatBool(outcome.DryRun),
		result,
	).Inc()
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile dumps the current metrics in the node-exporter textfile
// format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return faults.NewTypedError(faults.InternalError, "failed to write metrics file", err)
	}
	return nil
}
