package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/moodmate/internal/model"
)

type mockValidator struct {
	validateFn func(ctx context.Context, token string) (*model.User, error)
}

func (m *mockValidator) ValidateToken(ctx context.Context, token string) (*model.User, error) {
	return m.validateFn(ctx, token)
}

func validatorFor(token, userID string) *mockValidator {
	return &mockValidator{
		validateFn: func(ctx context.Context, got string) (*model.User, error) {
			if got == token {
				return &model.User{ID: userID}, nil
			}
			return nil, model.ErrInvalidToken
		},
	}
}

func serveAuth(t *testing.T, v TokenValidator, authHeader string) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	var gotUser, gotToken string
	handler := NewAuthMiddleware(v, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserIDFromContext(r.Context())
		gotToken, _ = TokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, gotUser, gotToken
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body.Code
}

func TestAuthMiddleware_ValidToken_InjectsUserIDAndToken(t *testing.T) {
	w, userID, token := serveAuth(t, validatorFor("tok-1", "user-123"), "Bearer tok-1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if userID != "user-123" {
		t.Errorf("userID = %q, want %q", userID, "user-123")
	}
	if token != "tok-1" {
		t.Errorf("token = %q, want %q", token, "tok-1")
	}
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	w, userID, _ := serveAuth(t, validatorFor("tok-1", "user-123"), "bearer tok-1")
	if w.Code != http.StatusOK || userID != "user-123" {
		t.Errorf("status = %d, userID = %q", w.Code, userID)
	}
}

func TestAuthMiddleware_MissingOrMalformedHeader_Returns401(t *testing.T) {
	for _, header := range []string{"", "tok-1", "Basic dXNlcjpwYXNz", "Bearer "} {
		t.Run(header, func(t *testing.T) {
			called := false
			v := &mockValidator{validateFn: func(ctx context.Context, token string) (*model.User, error) {
				called = true
				return nil, nil
			}}
			w, _, _ := serveAuth(t, v, header)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if code := decodeErrorCode(t, w); code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", code, model.ErrCodeUnauthorized)
			}
			if called {
				t.Error("トークンが無い場合は検証を呼ぶべきではない")
			}
		})
	}
}

func TestAuthMiddleware_AuthErrors_Return401WithCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{model.ErrInvalidToken, model.ErrCodeInvalidToken},
		{model.ErrSessionExpired, model.ErrCodeSessionExpired},
		{model.ErrSessionNotFound, model.ErrCodeSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			v := &mockValidator{validateFn: func(ctx context.Context, token string) (*model.User, error) {
				return nil, tt.err
			}}
			w, userID, _ := serveAuth(t, v, "Bearer tok")

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if code := decodeErrorCode(t, w); code != tt.code {
				t.Errorf("code = %q, want %q", code, tt.code)
			}
			if userID != "" {
				t.Error("認証失敗時に後続ハンドラーが呼ばれてはならない")
			}
		})
	}
}

func TestAuthMiddleware_StoreFailure_Returns500(t *testing.T) {
	v := &mockValidator{validateFn: func(ctx context.Context, token string) (*model.User, error) {
		return nil, errors.New("connection refused")
	}}
	w, _, _ := serveAuth(t, v, "Bearer tok")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestAuthMiddleware_NilUser_Returns401(t *testing.T) {
	v := &mockValidator{validateFn: func(ctx context.Context, token string) (*model.User, error) {
		return nil, nil
	}}
	w, _, _ := serveAuth(t, v, "Bearer tok")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); !errors.Is(err, ErrNoUserID) {
		t.Errorf("err = %v, want ErrNoUserID", err)
	}
	if _, err := TokenFromContext(context.Background()); err == nil {
		t.Error("expected error for missing token")
	}
}
