// Package handlers holds endpoints that belong to no resource.
package handlers

import (
	"net/http"

	"github.com/5w1tchy/book-reviews/internal/api/httpx"
)

const Version = "1.0.0"

// Root handles GET / with a service banner.
func Root(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Book Review Platform API",
		"version": Version,
		"status":  "active",
	})
}
