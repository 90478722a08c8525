package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lostfound-api/internal/domain"
	jwtinfra "github.com/lostfound-api/internal/infrastructure/jwt"
)

type contextKey string

const callerKey contextKey = "caller"

// tokenQueryParam carries the credential for clients that cannot set headers,
// such as a browser EventSource.
const tokenQueryParam = "token"

type tokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

type userLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Auth resolves the caller from the bearer credential and the stored user
// record, and injects it into the request context. Any failure ends the
// request with 401.
func Auth(verifier tokenVerifier, users userLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := resolveCaller(r.Context(), verifier, users, credential(r))
			if err != nil {
				writeUnauthenticated(w, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get(tokenQueryParam)
}

func resolveCaller(ctx context.Context, verifier tokenVerifier, users userLookup, raw string) (domain.Caller, error) {
	if raw == "" {
		return domain.Caller{}, errors.New("missing credential, please log in")
	}
	claims, err := verifier.Verify(raw)
	if err != nil {
		return domain.Caller{}, errors.New("invalid or expired token, please log in again")
	}
	u, err := users.Get(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("caller lookup failed", "user_id", claims.UserID, "err", err)
		}
		return domain.Caller{}, errors.New("user does not exist, please log in again")
	}
	if !u.Enabled() {
		return domain.Caller{}, errors.New("account is disabled")
	}
	return domain.Caller{
		UserID:        u.UserID,
		Role:          u.Role,
		AccountStatus: u.AccountStatus,
		SessionID:     claims.SessionID,
	}, nil
}

// WithCaller stores a resolved caller in ctx.
func WithCaller(ctx context.Context, c domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext extracts the caller injected by Auth.
func CallerFromContext(ctx context.Context) (domain.Caller, bool) {
	c, ok := ctx.Value(callerKey).(domain.Caller)
	return c, ok
}
