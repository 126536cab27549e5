package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicdesk/clinicdesk/internal/wizard"
)

// WizardMetrics exposes counters/histograms for wizard sessions. It implements
// wizard.Observer.
type WizardMetrics struct {
	stepsTotal    *prometheus.CounterVec
	commitsTotal  *prometheus.CounterVec
	commitLatency *prometheus.HistogramVec
	reg           prometheus.Registerer
}

func NewWizardMetrics(reg prometheus.Registerer) *WizardMetrics {
	m := &WizardMetrics{
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "wizard",
			Name:      "steps_advanced_total",
			Help:      "Total wizard steps submitted",
		}, []string{"wizard", "step"}),
		commitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "wizard",
			Name:      "commits_total",
			Help:      "Total wizard commits by outcome",
		}, []string{"wizard", "state"}),
		commitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicdesk",
			Subsystem: "wizard",
			Name:      "commit_latency_seconds",
			Help:      "Latency of wizard commit calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"wizard"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m.reg = reg
	reg.MustRegister(m.stepsTotal, m.commitsTotal, m.commitLatency)
	return m
}

func (m *WizardMetrics) StepAdvanced(wizardName string, key wizard.StepKey) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(wizardName, string(key)).Inc()
}

func (m *WizardMetrics) CommitFinished(wizardName string, state wizard.SubmissionState, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commitsTotal.WithLabelValues(wizardName, string(state)).Inc()
	m.commitLatency.WithLabelValues(wizardName).Observe(elapsed.Seconds())
}

// TrackOpenSessions publishes the number of open sessions of a wizard as a gauge.
func (m *WizardMetrics) TrackOpenSessions(wizardName string, count func() int) {
	if m == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "clinicdesk",
		Subsystem:   "wizard",
		Name:        "open_sessions",
		Help:        "Open wizard sessions",
		ConstLabels: prometheus.Labels{"wizard": wizardName},
	}, func() float64 { return float64(count()) }))
}

// HTTPMetrics exposes request counters and latency for the echo server.
type HTTPMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicdesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency)
	return m
}

// Middleware records every request under its route pattern.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.requestLatency.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
