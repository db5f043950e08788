package middlewares

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/5w1tchy/book-reviews/internal/api/apperr"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				rid := GetRequestID(r)
				if rid == "" {
					rid = "unknown"
				}

				log.Printf("[PANIC] RequestID=%s URL=%s %s: %v\n%s",
					rid, r.Method, r.URL.Path, err, debug.Stack())

				apperr.WriteStatus(w, r, http.StatusInternalServerError, "Internal Server Error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
