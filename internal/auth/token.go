// Package auth guards the operator API with a static bearer token.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/milsim-hq/rosterd/internal/platform/httpx"
)

// TokenGuard validates Authorization headers against a bcrypt hash of the
// expected token. An empty hash disables the check, which is only meant for
// local development.
type TokenGuard struct {
	hash   string
	logger *slog.Logger
}

// NewTokenGuard constructs a TokenGuard. hash is the bcrypt hash of the
// shared API token, not the token itself.
func NewTokenGuard(hash string, logger *slog.Logger) *TokenGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenGuard{hash: hash, logger: logger}
}

// Enabled reports whether the guard actually enforces authentication.
func (g *TokenGuard) Enabled() bool {
	return g != nil && g.hash != ""
}

// Middleware rejects requests without a matching bearer token.
func (g *TokenGuard) Middleware(next http.Handler) http.Handler {
	if !g.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(g.hash), []byte(token)); err != nil {
			g.logger.Warn("rejected api token", slog.String("path", r.URL.Path))
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
