// Package httpx holds the success envelope and JSON body decoding.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/5w1tchy/book-reviews/internal/models"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "data": data})
}

func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, map[string]any{"status": "success", "data": data})
}

func OKNoData(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "message": message})
}

// Message writes data together with a human-readable message.
func Message(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, map[string]any{"status": "success", "message": message, "data": data})
}

// List writes a collection with its length plus any paging fields in extra.
func List[T any](w http.ResponseWriter, items []T, extra map[string]any) {
	body := map[string]any{"status": "success", "count": len(items), "data": items}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// DecodeJSON reads one JSON value from r's body into v. Unknown fields are
// ignored. Malformed input comes back as a validation error on "body".
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return models.Invalid("body", "too_large", "request body too large")
		case errors.Is(err, io.EOF):
			return models.Invalid("body", "required", "request body is empty")
		default:
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				return models.Invalid(typeErr.Field, "type", "must be a "+typeErr.Type.String())
			}
			return models.Invalid("body", "json", "invalid JSON")
		}
	}
	return nil
}
