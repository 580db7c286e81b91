package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", 7*24*time.Hour)

	token, expiresAt, err := issuer.Issue("u-1", "a@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if d := time.Until(expiresAt); d < 7*24*time.Hour-time.Minute || d > 7*24*time.Hour {
		t.Errorf("有効期限が7日後になっていない: %v", expiresAt)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != "u-1" || claims.Email != "a@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenIssuer_TokensAreUnique(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	fixed := time.Now()
	issuer.now = func() time.Time { return fixed }

	a, _, _ := issuer.Issue("u-1", "a@example.com")
	b, _, _ := issuer.Issue("u-1", "a@example.com")
	if a == b {
		t.Error("同一時刻に発行したトークンが重複している")
	}
}

func TestTokenIssuer_ExpiredTokenRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	issued := time.Now()
	issuer.now = func() time.Time { return issued }

	token, _, err := issuer.Issue("u-1", "a@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	issuer.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := issuer.Parse(token); err == nil {
		t.Error("期限切れトークンは拒否されるべき")
	}
}

func TestTokenIssuer_WrongSecretRejected(t *testing.T) {
	token, _, _ := NewTokenIssuer("secret-a", time.Hour).Issue("u-1", "a@example.com")

	if _, err := NewTokenIssuer("secret-b", time.Hour).Parse(token); err == nil {
		t.Error("異なる鍵で署名されたトークンは拒否されるべき")
	}
}

func TestTokenIssuer_NoneAlgorithmRejected(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u-1",
	})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}

	if _, err := NewTokenIssuer("secret", time.Hour).Parse(signed); err == nil {
		t.Error("alg=none のトークンは拒否されるべき")
	}
}

func TestTokenIssuer_GarbageRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	for _, s := range []string{"", "abc", strings.Repeat("x.", 3)} {
		if _, err := issuer.Parse(s); err == nil {
			t.Errorf("Parse(%q) はエラーになるべき", s)
		}
	}
}
