package middleware

import (
	"net/http"
)

// Middleware wraps an http.Handler. The server applies one chain in front
// of the gin engine, so it covers every route.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware. The first one is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
