package utils

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// ApplyMiddleware wraps h so that the first middleware listed is outermost
// and sees the request first.
func ApplyMiddleware(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		h = middlewares[i](h)
	}
	return h
}
