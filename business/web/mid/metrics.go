package mid

import (
	"context"
	"net/http"
	"runtime"

	"github.com/ardanlabs/votechain/business/web/metrics"
	"github.com/ardanlabs/votechain/foundation/web"
)

// Metrics updates program counters.
func Metrics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			ctx = metrics.Set(ctx)

			err := handler(ctx, w, r)

			n := metrics.AddRequests(ctx)

			if n%100 == 0 {
				metrics.AddGoroutines(ctx, int64(runtime.NumGoroutine()))
			}

			if err != nil {
				metrics.AddErrors(ctx)
			}

			return err
		}

		return h
	}

	return m
}
