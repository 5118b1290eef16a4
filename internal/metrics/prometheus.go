package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_demos_backend_requests_total",
			Help: "Backend calls by outcome",
		},
		[]string{"backend", "endpoint", "outcome"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_demos_backend_request_duration_seconds",
			Help:    "Backend call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"backend", "endpoint"},
	)

	BusinessErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_demos_business_errors_total",
			Help: "Business errors reported by backends in 309 responses",
		},
		[]string{"backend"},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_demos_uploads_total",
			Help: "Files uploaded through the gateway",
		},
		[]string{"workflow"},
	)

	ChatTurnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_demos_chat_turns_total",
			Help: "Chat turns relayed to the RAG backend",
		},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_demos_sessions_active",
			Help: "Sessions held in memory",
		},
	)
)

func Init() {
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(BusinessErrorsTotal)
	prometheus.MustRegister(UploadsTotal)
	prometheus.MustRegister(ChatTurnsTotal)
	prometheus.MustRegister(SessionsActive)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
