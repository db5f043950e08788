// Package auth serves registration, login and token refresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/5w1tchy/book-reviews/internal/api/apperr"
	"github.com/5w1tchy/book-reviews/internal/api/httpx"
	"github.com/5w1tchy/book-reviews/internal/api/middlewares"
	"github.com/5w1tchy/book-reviews/internal/models"
	jwtutil "github.com/5w1tchy/book-reviews/internal/security/jwt"
	"github.com/5w1tchy/book-reviews/internal/security/password"
	"github.com/5w1tchy/book-reviews/internal/store"
	"github.com/5w1tchy/book-reviews/internal/validate"
)

type Handler struct {
	users      store.Users
	tokens     *jwtutil.Manager
	hasher     *password.Hasher
	refresh    RefreshStore
	refreshTTL time.Duration
	v          *validate.Validator
}

func New(users store.Users, tokens *jwtutil.Manager, hasher *password.Hasher, refresh RefreshStore, refreshTTL time.Duration, v *validate.Validator) *Handler {
	return &Handler{users: users, tokens: tokens, hasher: hasher, refresh: refresh, refreshTTL: refreshTTL, v: v}
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	apperr.WriteStatus(w, r, http.StatusUnauthorized, "Unauthorized", detail)
}

func (h *Handler) issue(ctx context.Context, userID string, tv int) (TokenPair, error) {
	access, _, err := h.tokens.SignAccess(userID, tv)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := h.refresh.Issue(ctx, userID, tv, h.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int(h.tokens.TTL().Seconds())}, nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	req.Name = validate.SanitizeString(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.v.Struct(&req); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	pwd, warn, err := password.Check(req.Password, req.Name, req.Email)
	if err != nil {
		apperr.Handle(w, r, models.Invalid("password", "min", err.Error()))
		return
	}

	hash, err := h.hasher.Hash(pwd)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	u := models.User{Name: req.Name, Email: req.Email, PasswordHash: hash}
	if err := h.users.CreateUser(r.Context(), &u); err != nil {
		if errors.Is(err, models.ErrConflict) {
			err = fmt.Errorf("email already registered: %w", models.ErrConflict)
		}
		apperr.Handle(w, r, err)
		return
	}

	pair, err := h.issue(r.Context(), u.ID, u.TokenVersion)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	log.Printf("[auth] registered user=%s", u.ID)
	httpx.Created(w, Session{User: u.Summary(), TokenPair: pair, PasswordWarning: warn})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	u, err := h.users.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			unauthorized(w, r, "invalid email or password")
			return
		}
		apperr.Handle(w, r, err)
		return
	}
	// passwords are stored trimmed, see password.Check
	req.Password = strings.TrimSpace(req.Password)
	ok, needsRehash, err := h.hasher.Verify(req.Password, u.PasswordHash)
	if err != nil || !ok {
		unauthorized(w, r, "invalid email or password")
		return
	}
	if needsRehash {
		if phc, err := h.hasher.Hash(req.Password); err == nil {
			if err := h.users.UpdateUserPasswordHash(r.Context(), u.ID, phc); err != nil {
				log.Printf("[auth] rehash user=%s: %v", u.ID, err)
			}
		}
	}

	pair, err := h.issue(r.Context(), u.ID, u.TokenVersion)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.OK(w, Session{User: u.Summary(), TokenPair: pair})
}

// Refresh rotates a refresh token. The old token is consumed even when the
// exchange fails afterwards.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		apperr.Handle(w, r, models.Invalid("refresh_token", "required", "is required"))
		return
	}
	ctx := r.Context()

	userID, tv, err := h.refresh.Consume(ctx, req.RefreshToken)
	if err != nil {
		if !errors.Is(err, ErrInvalidRefresh) {
			log.Printf("[auth] refresh lookup: %v", err)
		}
		unauthorized(w, r, "invalid refresh token")
		return
	}
	current, err := h.users.TokenVersion(ctx, userID)
	if err != nil || current != tv {
		unauthorized(w, r, "token has been revoked")
		return
	}

	pair, err := h.issue(ctx, userID, current)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.OK(w, pair)
}

// Logout revokes one refresh token. Unknown tokens are not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	_ = httpx.DecodeJSON(r, &req)
	if req.RefreshToken != "" {
		if err := h.refresh.Revoke(r.Context(), req.RefreshToken); err != nil {
			log.Printf("[auth] revoke refresh: %v", err)
		}
	}
	httpx.OKNoData(w, "logged out")
}

// LogoutAll bumps the token version, invalidating every access and refresh
// token issued to the caller.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserIDFrom(r.Context())
	if !ok {
		unauthorized(w, r, "")
		return
	}
	if _, err := h.users.BumpTokenVersion(r.Context(), userID); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.OKNoData(w, "all sessions revoked")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserIDFrom(r.Context())
	if !ok {
		unauthorized(w, r, "")
		return
	}
	u, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.OK(w, u.Summary())
}

// ChangePassword requires the old password, stores the new hash and revokes
// all other sessions by bumping the token version.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserIDFrom(r.Context())
	if !ok {
		unauthorized(w, r, "")
		return
	}
	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apperr.Handle(w, r, err)
		return
	}
	ctx := r.Context()

	u, err := h.users.GetUser(ctx, userID)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	if ok, _, err := h.hasher.Verify(strings.TrimSpace(req.OldPassword), u.PasswordHash); err != nil || !ok {
		apperr.WriteStatus(w, r, http.StatusForbidden, "Forbidden", "invalid old password")
		return
	}
	np, warn, err := password.Check(req.NewPassword, u.Name, u.Email)
	if err != nil {
		apperr.Handle(w, r, models.Invalid("new_password", "min", err.Error()))
		return
	}
	phc, err := h.hasher.Hash(np)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}

	var tv int
	err = h.users.UpdateUserPasswordHash(ctx, userID, phc)
	if err == nil {
		tv, err = h.users.BumpTokenVersion(ctx, userID)
	}
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}

	pair, err := h.issue(ctx, userID, tv)
	if err != nil {
		apperr.Handle(w, r, err)
		return
	}
	httpx.OK(w, Session{User: u.Summary(), TokenPair: pair, PasswordWarning: warn})
}
