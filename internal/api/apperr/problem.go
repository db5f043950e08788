// Package apperr writes RFC7807 problem responses.
package apperr

import (
	"encoding/json"
	"net/http"

	"github.com/5w1tchy/book-reviews/internal/models"
)

type Problem struct {
	Type        string              `json:"type,omitempty"`   // RFC7807 type URI
	Title       string              `json:"title"`            // short summary
	Status      int                 `json:"status"`           // HTTP status code
	Detail      string              `json:"detail,omitempty"` // human details
	Instance    string              `json:"instance,omitempty"`
	RequestID   string              `json:"request_id,omitempty"`
	FieldErrors []models.FieldError `json:"field_errors,omitempty"`
	Retryable   bool                `json:"retryable,omitempty"`
}

func Write(w http.ResponseWriter, r *http.Request, p Problem) {
	if p.Status == 0 {
		p.Status = http.StatusInternalServerError
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	if p.Instance == "" && r != nil {
		p.Instance = r.URL.Path
	}
	if p.RequestID == "" && r != nil {
		// set on the request by the RequestID middleware
		p.RequestID = r.Header.Get("X-Request-ID")
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteStatus writes a problem with just status, title and detail.
func WriteStatus(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	Write(w, r, Problem{Status: status, Title: title, Detail: detail})
}
