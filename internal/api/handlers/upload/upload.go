// Package upload accepts review and cover images and stores them in the
// media bucket.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/5w1tchy/book-reviews/internal/api/apperr"
	"github.com/5w1tchy/book-reviews/internal/api/httpx"
	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/gabriel-vasile/mimetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MaxFiles is the most images accepted by one multi-upload.
const MaxFiles = models.MaxReviewImages

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectStore is where uploaded bytes end up.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type Handler struct {
	store    ObjectStore
	folder   string
	maxBytes int64
}

// New returns a Handler. A nil store makes every upload answer 503.
func New(store ObjectStore, folder string, maxBytes int64) *Handler {
	return &Handler{store: store, folder: strings.Trim(folder, "/"), maxBytes: maxBytes}
}

// Single handles POST /api/upload with one multipart "image" part.
func (h *Handler) Single(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	if err := h.parse(r); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	fh := firstFile(r.MultipartForm, "image")
	if fh == nil {
		apperr.Handle(w, r, models.Invalid("image", "required", "Please upload an image"))
		return
	}

	body, ct, ext, err := h.read(fh, "image")
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	img, err := h.put(r.Context(), body, ct, ext)
	if err != nil {
		log.Printf("[upload] put failed: %v", err)
		badGateway(w, r)
		return
	}
	httpx.Message(w, http.StatusOK, "Image uploaded successfully", img)
}

// Multiple handles POST /api/upload/multiple with up to MaxFiles "images" parts.
// Either every image is stored or none is.
func (h *Handler) Multiple(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	if err := h.parse(r); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["images"]
	}
	switch {
	case len(files) == 0:
		apperr.Handle(w, r, models.Invalid("images", "required", "Please upload at least one image"))
		return
	case len(files) > MaxFiles:
		apperr.Handle(w, r, models.Invalid("images", "max", fmt.Sprintf("at most %d images per upload", MaxFiles)))
		return
	}

	type blob struct {
		body    []byte
		ct, ext string
	}
	blobs := make([]blob, 0, len(files))
	for i, fh := range files {
		body, ct, ext, err := h.read(fh, fmt.Sprintf("images[%d]", i))
		if err != nil {
			apperr.Handle(w, r, err)
			return
		}
		blobs = append(blobs, blob{body, ct, ext})
	}

	out := make([]Image, 0, len(blobs))
	for _, b := range blobs {
		img, err := h.put(r.Context(), b.body, b.ct, b.ext)
		if err != nil {
			log.Printf("[upload] put failed after %d of %d: %v", len(out), len(blobs), err)
			for _, done := range out {
				if derr := h.store.Delete(context.WithoutCancel(r.Context()), done.PublicID); derr != nil {
					log.Printf("[upload] cleanup %s: %v", done.PublicID, derr)
				}
			}
			badGateway(w, r)
			return
		}
		out = append(out, img)
	}
	httpx.Message(w, http.StatusOK, "Images uploaded successfully", out)
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.store == nil {
		apperr.WriteStatus(w, r, http.StatusServiceUnavailable, "Service Unavailable", "media storage is not configured")
		return false
	}
	return true
}

func (h *Handler) parse(r *http.Request) error {
	// whole form must fit in memory: MaxFiles images plus form overhead
	if err := r.ParseMultipartForm(h.maxBytes*MaxFiles + 1<<20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return models.Invalid("body", "too_large", "request body too large")
		}
		return models.Invalid("body", "multipart", "expected multipart/form-data")
	}
	return nil
}

// read loads one part and sniffs its real content type.
func (h *Handler) read(fh *multipart.FileHeader, field string) ([]byte, string, string, error) {
	if fh.Size > h.maxBytes {
		return nil, "", "", models.Invalid(field, "too_large", fmt.Sprintf("file exceeds %d bytes", h.maxBytes))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", "", fmt.Errorf("open part: %w", err)
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("read part: %w", err)
	}
	if int64(len(body)) > h.maxBytes {
		return nil, "", "", models.Invalid(field, "too_large", fmt.Sprintf("file exceeds %d bytes", h.maxBytes))
	}

	mt := mimetype.Detect(body)
	for ct, ext := range allowed {
		if mt.Is(ct) {
			return body, ct, ext, nil
		}
	}
	return nil, "", "", models.Invalid(field, "type", "only jpeg, png, webp and gif images are allowed")
}

func (h *Handler) put(ctx context.Context, body []byte, ct, ext string) (Image, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Image{}, err
	}
	key := id + ext
	if h.folder != "" {
		key = h.folder + "/" + key
	}
	url, err := h.store.Put(ctx, key, ct, bytes.NewReader(body))
	if err != nil {
		return Image{}, err
	}
	return Image{URL: url, PublicID: key}, nil
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil || len(form.File[field]) == 0 {
		return nil
	}
	return form.File[field][0]
}

func badGateway(w http.ResponseWriter, r *http.Request) {
	apperr.Write(w, r, apperr.Problem{
		Status:    http.StatusBadGateway,
		Detail:    "failed to upload image",
		Retryable: true,
	})
}
