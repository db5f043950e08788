package router

import (
	"net/http"

	"github.com/5w1tchy/book-reviews/internal/api/apperr"
	"github.com/5w1tchy/book-reviews/internal/api/handlers"
	"github.com/5w1tchy/book-reviews/internal/api/handlers/books"
	"github.com/5w1tchy/book-reviews/internal/api/handlers/reviews"
	"github.com/5w1tchy/book-reviews/internal/api/handlers/upload"
	mw "github.com/5w1tchy/book-reviews/internal/api/middlewares"
	"github.com/5w1tchy/book-reviews/internal/auth"
	jwtutil "github.com/5w1tchy/book-reviews/internal/security/jwt"
)

// Deps is everything the routes need. LoginLimit may be nil.
type Deps struct {
	Auth       *auth.Handler
	Books      *books.Handler
	Reviews    *reviews.Handler
	Upload     *upload.Handler
	Tokens     *jwtutil.Manager
	Versions   mw.TokenVersions
	LoginLimit func(http.Handler) http.Handler
}

func Router(d Deps) http.Handler {
	mux := http.NewServeMux()

	private := func(h http.HandlerFunc) http.Handler {
		return mw.RequireAuth(d.Tokens, d.Versions, h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		if d.LoginLimit == nil {
			return h
		}
		return d.LoginLimit(h)
	}

	// Root
	mux.HandleFunc("GET /{$}", handlers.Root)

	// Auth
	mux.Handle("POST /api/auth/register", limited(d.Auth.Register))
	mux.Handle("POST /api/auth/login", limited(d.Auth.Login))
	mux.Handle("POST /api/auth/refresh", limited(d.Auth.Refresh))
	mux.HandleFunc("POST /api/auth/logout", d.Auth.Logout)
	mux.Handle("POST /api/auth/logout-all", private(d.Auth.LogoutAll))
	mux.Handle("POST /api/auth/change-password", private(d.Auth.ChangePassword))
	mux.Handle("GET /api/auth/me", private(d.Auth.Me))

	// Books
	mux.HandleFunc("GET /api/books", d.Books.List)
	mux.Handle("GET /api/books/my/books", private(d.Books.Mine))
	mux.HandleFunc("GET /api/books/{id}", d.Books.Get)
	mux.Handle("POST /api/books", private(d.Books.Create))
	mux.Handle("PUT /api/books/{id}", private(d.Books.Update))
	mux.Handle("DELETE /api/books/{id}", private(d.Books.Delete))

	// Reviews
	mux.Handle("POST /api/reviews", private(d.Reviews.Create))
	mux.Handle("PUT /api/reviews/{id}", private(d.Reviews.Update))
	mux.Handle("DELETE /api/reviews/{id}", private(d.Reviews.Delete))
	mux.HandleFunc("GET /api/reviews/book/{bookId}", d.Reviews.ByBook)
	mux.Handle("GET /api/reviews/my/reviews", private(d.Reviews.Mine))

	// Upload
	mux.Handle("POST /api/upload", private(d.Upload.Single))
	mux.Handle("POST /api/upload/multiple", private(d.Upload.Multiple))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteStatus(w, r, http.StatusNotFound, "Not Found", "route not found")
	})
	return mux
}
