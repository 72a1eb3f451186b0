package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type subjectKey struct{}

// Authenticator verifies HS256 bearer tokens. A nil Authenticator accepts
// every request without a subject.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator returns an Authenticator for secret, or nil when secret
// is empty.
func NewAuthenticator(secret string) *Authenticator {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &Authenticator{secret: []byte(secret)}
}

// Subject verifies tokenString and returns its user id, taken from the sub
// claim or, failing that, the userId claim.
func (a *Authenticator) Subject(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid bearer token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errInvalidClaims
	}
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		sub, _ = claims["userId"].(string)
	}
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return "", errMissingSubject
	}
	return sub, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// token subject in the request context.
func (a *Authenticator) Middleware(next http.HandlerFunc) http.HandlerFunc {
	if a == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.authenticate"
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
			return
		}
		sub, err := a.Subject(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", WrapKind(op, ErrUnauthorized, err))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, sub)))
	}
}

// SubjectFromContext returns the authenticated user id, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey{}).(string)
	return sub, ok && sub != ""
}

// resolveUser reconciles a requested user id with the authenticated subject.
// Without authentication the requested id is used as is.
func resolveUser(ctx context.Context, op, requested string) (string, error) {
	sub, ok := SubjectFromContext(ctx)
	if !ok {
		return requested, nil
	}
	if requested != "" && requested != sub {
		return "", NewKind(op, ErrForbidden)
	}
	return sub, nil
}
