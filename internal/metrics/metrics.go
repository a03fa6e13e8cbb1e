// Package metrics exposes pipeline and HTTP metrics in Prometheus format.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"jobtalk/internal/domain"
)

type Metrics struct {
	StageDuration  *prometheus.HistogramVec
	StageFailures  *prometheus.CounterVec
	Intakes        *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	SessionsActive prometheus.Gauge
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to serve them from promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobtalk_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
			},
			[]string{"stage", "outcome"},
		),
		StageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobtalk_stage_failures_total",
				Help: "Total number of failed pipeline stages by cause",
			},
			[]string{"stage", "cause"},
		),
		Intakes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobtalk_intakes_total",
				Help: "Total number of intake runs by outcome",
			},
			[]string{"outcome"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobtalk_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "jobtalk_http_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"route"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobtalk_sessions_active",
				Help: "Number of intake sessions held in memory",
			},
		),
	}
}

func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	m.StageDuration.WithLabelValues(stage, outcome(err)).Observe(elapsed.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage, cause(err)).Inc()
	}
}

func (m *Metrics) ObserveIntake(err error) {
	m.Intakes.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) SetSessions(n int) {
	m.SessionsActive.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func cause(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyTranscription):
		return "empty"
	case errors.Is(err, domain.ErrMalformedResult):
		return "malformed"
	case domain.IsValidation(err):
		return "validation"
	default:
		return "service"
	}
}
