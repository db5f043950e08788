package middlewares

import (
	"net/http"

	"github.com/go-chi/cors"
)

// Cors allows credentialed requests from the configured client origins.
func Cors(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Policy", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", "X-Response-Time"},
		AllowCredentials: true,
		MaxAge:           3600,
	})
}
