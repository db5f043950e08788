package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mw "github.com/5w1tchy/book-reviews/internal/api/middlewares"
)

func TestLocalLimiter_BlocksAfterBurst(t *testing.T) {
	lim := mw.NewLocalLimiter(0.001, 2, mw.PerIPKey("rl"))
	wrapped := lim.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest("GET", "/api/books", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Error("Expected Retry-After on 429")
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// other clients keep their own bucket
	req := httptest.NewRequest("GET", "/api/books", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client got %d", rec.Code)
	}
}

func TestLocalLimiter_PrefersForwardedFor(t *testing.T) {
	lim := mw.NewLocalLimiter(0.001, 1, mw.PerIPKey("rl"))

	if ok, _ := lim.Allow("rl:203.0.113.9"); !ok {
		t.Fatal("first call must pass")
	}
	wrapped := lim.Middleware(okHandler())
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected forwarded client to share bucket, got %d", rec.Code)
	}
}

func TestLoginRateLimit_LocalFallback(t *testing.T) {
	wrapped := mw.LoginRateLimit(nil, 3, time.Hour)(okHandler())

	var last int
	for range 4 {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("fourth attempt got %d, want 429", last)
	}
}
