// Package books serves the book catalogue endpoints.
package books

import (
	"net/http"

	"github.com/5w1tchy/book-reviews/internal/api/apperr"
	"github.com/5w1tchy/book-reviews/internal/api/httpx"
	"github.com/5w1tchy/book-reviews/internal/api/middlewares"
	"github.com/5w1tchy/book-reviews/internal/models"
	svcbooks "github.com/5w1tchy/book-reviews/internal/service/books"
	"github.com/5w1tchy/book-reviews/internal/validate"
)

// Paging defaults for GET /api/books.
const (
	defaultLimit = 5
	maxLimit     = 100
)

type Handler struct {
	svc *svcbooks.Service
}

func New(svc *svcbooks.Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /api/books?search&genre&sort&page&limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := validate.ClampPage(q.Get("page"), q.Get("limit"), defaultLimit, maxLimit)

	res, err := h.svc.List(r.Context(), models.BookQuery{
		Search:   validate.SanitizeString(q.Get("search")),
		Genre:    validate.SanitizeString(q.Get("genre")),
		Sort:     validate.ParseSort(q.Get("sort")),
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.List(w, res.Items, map[string]any{
		"total": res.Total,
		"page":  res.Page,
		"pages": res.Pages,
	})
}

// Get handles GET /api/books/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.OK(w, d)
}

// Create handles POST /api/books.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := middlewares.UserIDFrom(r.Context())

	var in models.BookInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	b, err := h.svc.Create(r.Context(), uid, in)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.Message(w, http.StatusCreated, "Book created successfully", b)
}

// Update handles PUT /api/books/{id}. Absent fields keep their value.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := middlewares.UserIDFrom(r.Context())

	var patch models.BookPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	b, err := h.svc.Update(r.Context(), uid, r.PathValue("id"), patch)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Book updated successfully", b)
}

// Delete handles DELETE /api/books/{id}, removing the book's reviews too.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := middlewares.UserIDFrom(r.Context())

	if err := h.svc.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Book and associated reviews deleted successfully", struct{}{})
}

// Mine handles GET /api/books/my/books.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	uid, _ := middlewares.UserIDFrom(r.Context())

	list, err := h.svc.ListMine(r.Context(), uid)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.List(w, list, nil)
}
