package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	lex_errors "lex-intake/pkg/errors"
)

// TokenProvider supplies the bearer credential attached to backend calls.
// It is injected explicitly wherever a backend client needs it, so tests can
// substitute a fake without touching shared state.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticProvider returns a fixed token. Useful for service credentials
// and tests.
type StaticProvider string

func (p StaticProvider) Token(context.Context) (string, error) {
	return string(p), nil
}

type ctxKey string

const tokenKey ctxKey = "portal_token"
const subjectKey ctxKey = "portal_subject"

// WithToken stores the caller's portal token in the context.
func WithToken(ctx context.Context, token, subject string) context.Context {
	ctx = context.WithValue(ctx, tokenKey, token)
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext returns the authenticated portal user, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok
}

// ContextProvider forwards the portal token of the calling user, so backend
// calls are made on the caller's behalf.
type ContextProvider struct{}

func (ContextProvider) Token(ctx context.Context) (string, error) {
	token, ok := ctx.Value(tokenKey).(string)
	if !ok || token == "" {
		return "", lex_errors.ErrUnauthorized
	}
	return token, nil
}

// PortalClaims are the claims the external auth service issues.
type PortalClaims struct {
	jwt.RegisteredClaims
}

// Verifier validates portal-issued access tokens. Issuance belongs to the
// external auth service; this side only checks signature and expiry.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Parse(tokenString string) (*PortalClaims, error) {
	claims := &PortalClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, lex_errors.ErrUnauthorized
	}
	return claims, nil
}
