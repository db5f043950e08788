package apperr

import (
	"errors"
	"log"
	"net/http"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/store/dbx"
)

// FromError maps the domain error taxonomy onto a Problem. Errors outside
// the taxonomy are classified first, so a raw pg error still gets its status.
func FromError(err error) Problem {
	err = dbx.MapPGError(err, "request")

	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		return Problem{
			Status:      http.StatusBadRequest,
			Title:       "Validation failed",
			FieldErrors: ve.Fields,
		}
	case errors.Is(err, models.ErrNotFound):
		return Problem{Status: http.StatusNotFound, Title: "Not Found", Detail: err.Error()}
	case errors.Is(err, models.ErrForbidden):
		return Problem{Status: http.StatusForbidden, Title: "Forbidden", Detail: err.Error()}
	case errors.Is(err, models.ErrConflict):
		return Problem{Status: http.StatusConflict, Title: "Conflict", Detail: err.Error()}
	default:
		// storage and unknown errors; keep internals out of the response
		return Problem{Status: http.StatusInternalServerError, Title: "Internal Server Error"}
	}
}

// Handle writes err as a problem. 5xx causes are logged with the request id.
func Handle(w http.ResponseWriter, r *http.Request, err error) {
	p := FromError(err)
	if p.Status >= http.StatusInternalServerError {
		log.Printf("[error] %s %s rid=%s: %v", r.Method, r.URL.Path, r.Header.Get("X-Request-ID"), err)
	}
	Write(w, r, p)
}
