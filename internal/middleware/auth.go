package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/handler"
	"github.com/larder/larder/internal/model"
)

const (
	msgMissingAuth  = "Missing Authorization header"
	msgInvalidToken = "Token has expired or is invalid"
)

// TokenVerifier checks a bearer token's signature and expiry.
type TokenVerifier interface {
	Verify(token string) (*model.AuthContext, error)
}

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger      *slog.Logger
	Verifier    TokenVerifier
	Revocations RevocationChecker
}

// Auth returns a middleware that authenticates requests by bearer token and
// injects the auth context. A revocation lookup that fails rejects the
// request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeAuthError(w, msgMissingAuth)
				return
			}

			authCtx, err := cfg.Verifier.Verify(token)
			if err != nil {
				reason := "invalid_token"
				if errors.Is(err, auth.ErrTokenExpired) {
					reason = "expired_token"
				}
				logAuthFailure(cfg.Logger, r, reason)
				writeAuthError(w, msgInvalidToken)
				return
			}

			revoked, err := cfg.Revocations.IsTokenRevoked(r.Context(), authCtx.TokenID)
			if err != nil {
				cfg.Logger.Error("revocation check failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, msgInvalidToken)
				return
			}
			if revoked {
				logAuthFailure(cfg.Logger, r, "revoked_token")
				writeAuthError(w, msgInvalidToken)
				return
			}

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken reads "Authorization: Bearer <token>". The scheme is
// matched case-insensitively.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, auth.TokenType) {
		return ""
	}
	return strings.TrimSpace(token)
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", auth.TokenType)
	handler.WriteError(w, http.StatusUnauthorized, handler.CodeUnauthorized, message)
}
