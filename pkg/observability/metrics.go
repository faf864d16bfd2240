// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the modelgate gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and model.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "model"},
	)

	// RequestDuration records HTTP request duration in seconds by method and model.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelgate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "model"},
	)

	// StreamingConnections tracks the number of active streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modelgate_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// InferenceTotal counts inference calls by provider, model, and outcome.
	InferenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_inference_total",
			Help: "Inference calls",
		},
		[]string{"provider", "model", "status"},
	)

	// InferenceLatency records end-to-end inference latency in seconds.
	InferenceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelgate_inference_latency_seconds",
			Help:    "Inference latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// InferenceRetriesTotal counts retry attempts after transient provider failures.
	InferenceRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_inference_retries_total",
			Help: "Inference retry attempts",
		},
		[]string{"provider", "model"},
	)

	// ActivationsTotal counts registry activation and deactivation events.
	ActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_activations_total",
			Help: "Model activation events",
		},
		[]string{"model", "action"},
	)

	// ActivatedModels tracks how many catalog models are currently activated.
	ActivatedModels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modelgate_activated_models",
			Help: "Currently activated models",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		InferenceTotal,
		InferenceLatency,
		InferenceRetriesTotal,
		ActivationsTotal,
		ActivatedModels,
	)
}
