package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/raterudder/gridbalancer/pkg/log"
)

type contextKey string

const emailContextKey contextKey = "email"

// authMiddleware guards state-changing endpoints. The request must carry a
// Google ID token as a bearer token and, when admin emails are configured,
// the token email must be one of them.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.bypassAuth {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Ctx(ctx).WarnContext(ctx, "no auth header found")
			writeJSONError(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header")
			writeJSONError(w, "invalid auth header", http.StatusUnauthorized)
			return
		}

		email, err := s.authenticateToken(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}
		ctx = log.WithAttrs(ctx, slog.String("email", email))

		if !s.isAdmin(email) {
			log.Ctx(ctx).WarnContext(ctx, "email is not an admin")
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx = context.WithValue(ctx, emailContextKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) isAdmin(email string) bool {
	if len(s.adminEmails) == 0 {
		return true
	}
	if email == "" {
		return false
	}
	for _, admin := range s.adminEmails {
		if subtle.ConstantTimeCompare([]byte(email), []byte(admin)) == 1 {
			return true
		}
	}
	return false
}

func (s *Server) authenticateToken(ctx context.Context, token string) (string, error) {
	if s.oidcVerifier == nil {
		return "", errors.New("no token verifier configured")
	}
	idToken, err := s.oidcVerifier(ctx, token)
	if err != nil {
		return "", fmt.Errorf("google verifier failed: %w", err)
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("failed to parse token claims: %w", err)
	}
	return claims.Email, nil
}
