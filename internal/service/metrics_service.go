package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService registers and increments the decision-engine counters.
type MetricsService struct {
	registry             *prometheus.Registry
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	votesTotal           *prometheus.CounterVec
	decisionsTotal       *prometheus.CounterVec
	investmentsTotal     prometheus.Counter
	notificationFailures prometheus.Counter
}

// NewMetricsService registers the collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	s := &MetricsService{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		votesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "votes_total",
			Help: "Officer votes recorded, by decision.",
		}, []string{"decision"}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decisions_total",
			Help: "Terminal proposal decisions, by outcome.",
		}, []string{"outcome"}),
		investmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "investments_total",
			Help: "Investments placed on approved proposals.",
		}),
		notificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Outcome notifications that failed to send.",
		}),
	}
	s.registry.MustRegister(s.httpRequests, s.httpDuration, s.votesTotal, s.decisionsTotal, s.investmentsTotal, s.notificationFailures)
	return s
}

// Handler returns the Prometheus scrape handler.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	s.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (s *MetricsService) IncVote(decision string) {
	s.votesTotal.WithLabelValues(decision).Inc()
}

func (s *MetricsService) IncDecision(outcome string) {
	s.decisionsTotal.WithLabelValues(outcome).Inc()
}

func (s *MetricsService) IncInvestment() {
	s.investmentsTotal.Inc()
}

func (s *MetricsService) IncNotificationFailure() {
	s.notificationFailures.Inc()
}
