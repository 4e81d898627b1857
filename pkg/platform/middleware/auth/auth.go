// Package auth validates collaborator-issued service tokens.
//
// Caller authentication lives in an external identity system; this
// middleware only verifies the HS256 token that system issues to calling
// services and records the asserted caller in the request context. There
// is no user/session management here.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"scorewise/pkg/requestcontext"
)

// ServiceClaims are the claims expected on a service token.
type ServiceClaims struct {
	jwt.RegisteredClaims
}

// Validator verifies service tokens against a shared signing key.
type Validator struct {
	signingKey []byte
}

// NewValidator constructs a validator for HS256 service tokens.
func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a service token, returning the caller
// identity from the subject claim.
func (v *Validator) ValidateToken(tokenString string) (string, error) {
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse service token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("service token missing subject")
	}
	return claims.Subject, nil
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireServiceToken guards a route group behind bearer service tokens.
func RequireServiceToken(validator *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			caller, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid service token",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				}
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid service token")
				return
			}

			ctx := requestcontext.WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
