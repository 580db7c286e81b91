package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		wantStatus     int
		wantNextCalled bool
	}{
		{"GETはハンドラーに渡す", http.MethodGet, http.StatusOK, true},
		{"PUTはハンドラーに渡す", http.MethodPut, http.StatusOK, true},
		{"プリフライトは204で終端する", http.MethodOptions, http.StatusNoContent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := NewCORSMiddleware("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/reminders", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantNextCalled {
				t.Errorf("next called = %v, want %v", called, tt.wantNextCalled)
			}

			hdr := w.Header()
			if got := hdr.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
				t.Errorf("Access-Control-Allow-Origin = %q", got)
			}
			if got := hdr.Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Authorization") {
				t.Errorf("Access-Control-Allow-Headers = %q, want Authorization", got)
			}
			if got := hdr.Get("Access-Control-Allow-Methods"); !strings.Contains(got, tt.method) {
				t.Errorf("Access-Control-Allow-Methods = %q, want %s", got, tt.method)
			}
			if got := hdr.Get("Access-Control-Expose-Headers"); got != "Retry-After" {
				t.Errorf("Access-Control-Expose-Headers = %q, want Retry-After", got)
			}
			if got := hdr.Get("Access-Control-Max-Age"); got != "86400" {
				t.Errorf("Access-Control-Max-Age = %q, want 86400", got)
			}
			if got := hdr.Get("Vary"); got != "Origin" {
				t.Errorf("Vary = %q, want Origin", got)
			}
			// Cookieは使わないため資格情報は許可しない
			if got := hdr.Get("Access-Control-Allow-Credentials"); got != "" {
				t.Errorf("Access-Control-Allow-Credentials = %q, want empty", got)
			}
		})
	}
}
