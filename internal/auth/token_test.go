package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	lex_errors "lex-intake/pkg/errors"
)

func signedToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestVerifier_Parse(t *testing.T) {
	v := NewVerifier("secret")

	t.Run("valid token", func(t *testing.T) {
		token := signedToken(t, "secret", jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		claims, err := v.Parse(token)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if claims.Subject != "user-1" {
			t.Fatalf("subject = %q", claims.Subject)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signedToken(t, "other-secret", jwt.RegisteredClaims{Subject: "user-1"})
		if _, err := v.Parse(token); !errors.Is(err, lex_errors.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token := signedToken(t, "secret", jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})
		if _, err := v.Parse(token); !errors.Is(err, lex_errors.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := v.Parse("not-a-jwt"); !errors.Is(err, lex_errors.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestContextProvider(t *testing.T) {
	t.Run("forwards the stored token", func(t *testing.T) {
		ctx := WithToken(context.Background(), "portal-token", "user-1")
		token, err := (ContextProvider{}).Token(ctx)
		if err != nil || token != "portal-token" {
			t.Fatalf("token = %q, err = %v", token, err)
		}
		subject, ok := SubjectFromContext(ctx)
		if !ok || subject != "user-1" {
			t.Fatalf("subject = %q, ok = %v", subject, ok)
		}
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		_, err := (ContextProvider{}).Token(context.Background())
		if !errors.Is(err, lex_errors.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
