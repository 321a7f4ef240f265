package mid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ardanlabs/lattice/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lattice",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of API requests by method and status code.",
	}, []string{"method", "code"})

	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lattice",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Count of API requests that failed with a server error.",
	})

	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lattice",
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Count of recovered handler panics.",
	})
)

// Metrics updates program counters.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler. Errors runs inside so the status code
			// is already set.
			err := handler(ctx, w, r)

			code := 0
			if v, verr := web.GetValues(ctx); verr == nil {
				code = v.StatusCode
			}
			if err != nil || code >= http.StatusInternalServerError {
				errorsTotal.Inc()
			}
			requestsTotal.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
