// Package metrics exposes Prometheus counters for lead capture and logins.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leaddesk"

// Login outcomes.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid_credentials"
	LoginLocked      = "locked"
	LoginDisabled    = "disabled"
	LoginRateLimited = "rate_limited"
	LoginError       = "error"
)

// Lead submission outcomes.
const (
	SubmissionAccepted    = "accepted"
	SubmissionInvalid     = "invalid"
	SubmissionRateLimited = "rate_limited"
	SubmissionError       = "error"
)

var (
	LeadSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead submissions by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "login_attempts_total",
			Help:      "Staff login attempts by outcome",
		},
		[]string{"outcome"},
	)

	AccountLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "lockouts_total",
			Help:      "Accounts locked after repeated failed logins",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)
)

func RecordSubmission(source string, outcome string) {
	LeadSubmissions.WithLabelValues(source, outcome).Inc()
}

func RecordLogin(outcome string) {
	LoginAttempts.WithLabelValues(outcome).Inc()
}

// RecordLockout counts an account going from unlocked to locked.
func RecordLockout() {
	AccountLockouts.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Middleware records request durations. The route label is the routes pattern that matches the request, so path
// parameters do not blow up label cardinality.
func Middleware(routes *http.ServeMux, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		_, route := routes.Handler(r)
		if route == "" {
			route = "unmatched"
		}

		next.ServeHTTP(rec, r)

		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
