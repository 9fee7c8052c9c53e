package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/votechain/foundation/web"
)

// Cors sets the response headers that let a browser page served from the
// specified origin read the API. Only simple GET and POST requests are made
// across origins, so no preflight route is registered. An empty origin
// leaves the headers off.
func Cors(origin string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			}

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
