package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Auth
	AuthDecisions  *prometheus.CounterVec
	AccountEvents  *prometheus.CounterVec
	HashingSeconds *prometheus.HistogramVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rolegate",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rolegate",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "rolegate",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rolegate",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rolegate",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		AuthDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rolegate",
				Subsystem: "auth",
				Name:      "decisions_total",
				Help:      "Protected route decisions by route and outcome.",
			},
			[]string{"route", "outcome"}, // outcome=authorized|unauthorized|forbidden
		),
		AccountEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rolegate",
				Subsystem: "auth",
				Name:      "account_events_total",
				Help:      "Register and login attempts by result.",
			},
			[]string{"op", "result"},
		),
		HashingSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rolegate",
				Subsystem: "auth",
				Name:      "password_hashing_seconds",
				Help:      "Time spent hashing or verifying passwords, including queueing for a slot.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"op"}, // op=hash|verify
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal, p.AuthDecisions, p.AccountEvents, p.HashingSeconds)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

func (p *Prom) ObserveAuthDecision(route, outcome string) {
	if p == nil {
		return
	}
	p.AuthDecisions.WithLabelValues(route, outcome).Inc()
}

func (p *Prom) ObserveAccountEvent(op, result string) {
	if p == nil {
		return
	}
	p.AccountEvents.WithLabelValues(op, result).Inc()
}

func (p *Prom) ObserveHashing(op string, d time.Duration) {
	if p == nil {
		return
	}
	p.HashingSeconds.WithLabelValues(op).Observe(d.Seconds())
}
