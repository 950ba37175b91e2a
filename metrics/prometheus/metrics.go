// Package prometheus provides Prometheus metrics for the gateway.
package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pai"

var (
	// requestDuration is a histogram of HTTP request handling duration in seconds.
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request handling duration in seconds",
			Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"route"},
	)

	// requestsTotal is a counter of HTTP requests by route and status code.
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	// speakDuration is a histogram of speech synthesis and playback duration.
	speakDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speak_duration_seconds",
			Help:      "Duration of speech synthesis and playback in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// speaksTotal is a counter of speech requests by provider and outcome.
	speaksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speaks_total",
			Help:      "Total number of speech requests",
		},
		[]string{"provider", "status"}, // status: success, error
	)

	// providerAvailable is a gauge of voice provider availability.
	providerAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voice_provider_available",
			Help:      "Whether a voice provider is available (1) or not (0)",
		},
		[]string{"provider"},
	)

	// activeProvider is a gauge marking the currently active voice provider.
	activeProvider = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voice_provider_active",
			Help:      "Set to 1 for the active voice provider",
		},
		[]string{"provider"},
	)

	// chatDuration is a histogram of chat round-trip duration.
	chatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_request_duration_seconds",
			Help:      "Duration of chat model round-trips in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	// chatRequestsTotal is a counter of chat requests by outcome.
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Total number of chat requests",
		},
		[]string{"status"}, // status: success, error
	)

	// chatTokensTotal is a counter of tokens consumed by chat requests.
	chatTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_tokens_total",
			Help:      "Total tokens consumed by chat requests",
		},
		[]string{"model", "type"}, // type: input, output
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		requestDuration,
		requestsTotal,
		speakDuration,
		speaksTotal,
		providerAvailable,
		activeProvider,
		chatDuration,
		chatRequestsTotal,
		chatTokensTotal,
	}
)

// RecordRequest records a handled HTTP request.
func RecordRequest(route string, code int, durationSeconds float64) {
	requestDuration.WithLabelValues(route).Observe(durationSeconds)
	requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// RecordSpeak records a speech request.
func RecordSpeak(provider, status string, durationSeconds float64) {
	speakDuration.WithLabelValues(provider).Observe(durationSeconds)
	speaksTotal.WithLabelValues(provider, status).Inc()
}

// SetProviderAvailable records whether a voice provider is available.
func SetProviderAvailable(provider string, available bool) {
	value := 0.0
	if available {
		value = 1.0
	}
	providerAvailable.WithLabelValues(provider).Set(value)
}

// SetActiveProvider marks the active voice provider, clearing any previous one.
// An empty name clears the gauge entirely.
func SetActiveProvider(provider string) {
	activeProvider.Reset()
	if provider != "" {
		activeProvider.WithLabelValues(provider).Set(1)
	}
}

// RecordChat records a chat round-trip.
func RecordChat(status string, durationSeconds float64) {
	chatDuration.WithLabelValues(status).Observe(durationSeconds)
	chatRequestsTotal.WithLabelValues(status).Inc()
}

// RecordChatTokens records token consumption from a chat reply.
func RecordChatTokens(model string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		chatTokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		chatTokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}
