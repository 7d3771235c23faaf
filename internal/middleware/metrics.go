package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of an item mutation.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by route template and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests, by route template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	itemMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_item_mutations_total",
			Help: "Create, update and delete requests on items, by route name and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// Metrics records request counts and latencies labelled by route
// template. Requests to named mutating routes also count toward
// inventory_item_mutations_total. It must run inside the router so the
// matched route is known.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			path, operation := routeLabels(r)
			annotate(r, func(info *requestInfo) { info.route = path })

			next.ServeHTTP(rw, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())

			if operation != "" && mutatingMethods[r.Method] {
				itemMutationsTotal.WithLabelValues(operation, mutationOutcome(rw.statusCode)).Inc()
			}
		})
	}
}

// routeLabels returns the path template and name of the matched route.
// Without a match the raw path is used and the name is empty.
func routeLabels(r *http.Request) (path, name string) {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path, ""
	}
	path, err := route.GetPathTemplate()
	if err != nil {
		path = r.URL.Path
	}
	return path, route.GetName()
}

func mutationOutcome(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return OutcomeError
	case status >= http.StatusBadRequest:
		return OutcomeRejected
	default:
		return OutcomeSuccess
	}
}
