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
	// store
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// payments
	PaymentIntents     *prometheus.CounterVec
	MembershipUpgrades *prometheus.CounterVec
	UpgradeDuration    *prometheus.HistogramVec
	UpgradesInFlight   prometheus.Gauge
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "discoveria",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "discoveria",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "discoveria",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "discoveria",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "Store operation latency (logical op, not raw query)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "discoveria",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "Store errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		PaymentIntents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "discoveria",
				Subsystem: "payments",
				Name:      "intents_total",
				Help:      "Payment intents requested from the processor by result.",
			},
			[]string{"result"}, // result=ok|error
		),
		MembershipUpgrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "discoveria",
				Subsystem: "payments",
				Name:      "membership_upgrades_total",
				Help:      "Membership upgrades by source and result.",
			},
			[]string{"source", "result"}, // source=inline|reconciler result=applied|retry|failed
		),
		UpgradeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "discoveria",
				Subsystem: "payments",
				Name:      "membership_upgrade_duration_seconds",
				Help:      "Reconciler upgrade duration by result",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"result"},
		),
		UpgradesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "discoveria",
				Subsystem: "payments",
				Name:      "membership_upgrades_in_flight",
				Help:      "Current number of upgrades being applied by the reconciler (per process)",
			},
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal,
		p.PaymentIntents, p.MembershipUpgrades, p.UpgradeDuration, p.UpgradesInFlight)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
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

// the helpers below tolerate a nil *Prom so callers need no guard

func (p *Prom) IncPaymentIntent(result string) {
	if p == nil {
		return
	}
	p.PaymentIntents.WithLabelValues(result).Inc()
}

func (p *Prom) IncMembershipUpgrade(source, result string) {
	if p == nil {
		return
	}
	p.MembershipUpgrades.WithLabelValues(source, result).Inc()
}
