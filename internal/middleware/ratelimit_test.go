package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(t *testing.T, perSec float64, burst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:            rate.Limit(perSec),
		Burst:           burst,
		CleanupInterval: time.Minute,
	}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	t.Cleanup(rl.Stop)
	return rl
}

func userRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_AllowsRequestsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 5)
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, userRequest("user-1"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	rl := newTestRateLimiter(t, 0.5, 1)
	handler := rl.Middleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), userRequest("user-1"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, userRequest("user-1"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want %q", got, "2")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != "RATE_LIMITED" || body.Category != "system" {
		t.Errorf("body = %+v", body)
	}
}

func TestRateLimitMiddleware_IsolatesUsers(t *testing.T) {
	rl := newTestRateLimiter(t, 0.1, 1)
	handler := rl.Middleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), userRequest("user-a"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, userRequest("user-b"))
	if w.Code != http.StatusOK {
		t.Errorf("user-a の制限が user-b に影響している: status = %d", w.Code)
	}
	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount = %d, want 2", rl.LimiterCount())
	}
}

func TestRateLimitMiddleware_UnauthenticatedUsesRemoteIP(t *testing.T) {
	rl := newTestRateLimiter(t, 0.1, 1)
	handler := rl.Middleware()(okHandler())

	first := userRequest("")
	first.RemoteAddr = "192.0.2.1:1111"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	samePort := userRequest("")
	samePort.RemoteAddr = "192.0.2.1:2222"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, samePort)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("同一IPはポートが違っても同じ制限を受けるべき: status = %d", w.Code)
	}

	other := userRequest("")
	other.RemoteAddr = "192.0.2.2:1111"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Errorf("別IPは制限されないべき: status = %d", w.Code)
	}
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	now := time.Now()
	rl.allow("user:idle", now.Add(-time.Hour))
	rl.allow("user:active", now)

	rl.cleanup(now)

	if rl.LimiterCount() != 1 {
		t.Errorf("LimiterCount = %d, want 1", rl.LimiterCount())
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	rl.Stop()
	rl.Stop()
}

func TestNewRateLimiterConfig(t *testing.T) {
	cfg := NewRateLimiterConfig(120)
	if cfg.Rate != 2.0 {
		t.Errorf("Rate = %f, want 2.0", cfg.Rate)
	}
	if cfg.Burst != 120 {
		t.Errorf("Burst = %d, want 120", cfg.Burst)
	}

	if def := NewRateLimiterConfig(0); def.Burst != 120 {
		t.Errorf("0指定時はデフォルトになるべき: Burst = %d", def.Burst)
	}
}
