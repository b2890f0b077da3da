package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachd_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachd_turns_total",
			Help: "Total number of user turns handled by the orchestration loop.",
		},
		[]string{"outcome"},
	)

	LoopIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coachd_loop_iterations",
			Help:    "Number of loop iterations taken per user turn.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 25},
		},
	)

	FunctionCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachd_function_calls_total",
			Help: "Total number of registry function executions.",
		},
		[]string{"function", "status"},
	)

	RemindersScheduledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachd_reminders_scheduled_total",
			Help: "Total number of scheduled messages created by the reminder scheduler.",
		},
		[]string{"kind"},
	)

	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachd_dispatches_total",
			Help: "Total number of scheduled message dispatch attempts by the sweeper.",
		},
		[]string{"status"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachd_provider_requests_total",
			Help: "Total number of completion requests per provider backend.",
		},
		[]string{"backend", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TurnsTotal,
		LoopIterations,
		FunctionCallsTotal,
		RemindersScheduledTotal,
		DispatchesTotal,
		ProviderRequestsTotal,
	)
}
