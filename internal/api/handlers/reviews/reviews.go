// Package reviews serves the review endpoints.
package reviews

import (
	"net/http"

	"github.com/5w1tchy/book-reviews/internal/api/apperr"
	"github.com/5w1tchy/book-reviews/internal/api/httpx"
	"github.com/5w1tchy/book-reviews/internal/api/middlewares"
	"github.com/5w1tchy/book-reviews/internal/models"
	svcreviews "github.com/5w1tchy/book-reviews/internal/service/reviews"
)

type Handler struct {
	svc *svcreviews.Service
}

func New(svc *svcreviews.Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	BookID string `json:"bookId"`
	models.ReviewInput
}

// Create handles POST /api/reviews.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := middlewares.UserIDFrom(r.Context())

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	if req.BookID == "" {
		apperr.Handle(w, r, models.Invalid("bookId", "required", "is required"))
		return
	}
	rev, err := h.svc.Create(r.Context(), uid, req.BookID, req.ReviewInput)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.Message(w, http.StatusCreated, "Review created successfully", rev)
}

// Update handles PUT /api/reviews/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := middlewares.UserIDFrom(r.Context())

	var patch models.ReviewPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	rev, err := h.svc.Update(r.Context(), uid, r.PathValue("id"), patch)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Review updated successfully", rev)
}

// Delete handles DELETE /api/reviews/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := middlewares.UserIDFrom(r.Context())

	if err := h.svc.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Review deleted successfully", struct{}{})
}

// ByBook handles GET /api/reviews/book/{bookId}.
func (h *Handler) ByBook(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListByBook(r.Context(), r.PathValue("bookId"))
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.List(w, list, nil)
}

// Mine handles GET /api/reviews/my/reviews.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	uid, _ := middlewares.UserIDFrom(r.Context())

	list, err := h.svc.ListByUser(r.Context(), uid)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.List(w, list, nil)
}
