package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/lattice/foundation/web"
	"go.uber.org/ratelimit"
)

// Throttle spaces requests so no more than perSecond reach the handler each
// second. Callers over the rate wait their turn. A rate of zero disables it.
func Throttle(perSecond int) web.Middleware {
	if perSecond <= 0 {
		return func(handler web.Handler) web.Handler {
			return handler
		}
	}

	rl := ratelimit.New(perSecond)

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			rl.Take()
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
