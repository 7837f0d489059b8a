package obs

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

var (
	clientInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "xydo_client_in_flight_requests",
		Help: "In-flight outgoing API requests.",
	})

	clientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xydo_client_requests_total",
			Help: "Outgoing API requests by status code and method.",
		},
		[]string{"code", "method"},
	)

	clientRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xydo_client_request_duration_seconds",
			Help:    "Outgoing API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"code", "method"},
	)

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "xydo_http_in_flight_requests",
		Help: "In-flight HTTP requests served.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xydo_http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xydo_http_request_duration_seconds",
			Help:    "Served HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	initOnce sync.Once
)

// Init registers all metrics with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			clientInFlight, clientRequestsTotal, clientRequestDuration,
			httpInFlight, httpRequestsTotal, httpRequestDuration,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// InstrumentTransport wraps an outgoing transport with client metrics.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(clientInFlight,
		promhttp.InstrumentRoundTripperCounter(clientRequestsTotal,
			promhttp.InstrumentRoundTripperDuration(clientRequestDuration, next)))
}

// Instrument measures rate, latency and concurrency of served requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// CanonicalPath collapses resource ids so metric labels stay bounded:
// /api/teams/abc becomes /api/teams/:id and /api/messages/abc/like becomes /api/messages/:id/like.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || !collection[parts[1]] {
		return p
	}
	switch len(parts) {
	case 3:
		parts[2] = ":id"
	case 4:
		if parts[1] != "messages" || !messageActions[parts[3]] {
			return p
		}
		parts[2] = ":id"
	default:
		return p
	}
	return "/" + strings.Join(parts, "/")
}

var collection = map[string]bool{
	"users": true, "teams": true, "content": true, "videos": true, "messages": true,
}

var messageActions = map[string]bool{"reply": true, "like": true, "pin": true}

// WriteText dumps every gathered metric family in the text exposition format.
func WriteText(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
