package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	h "eventcheckin/internal/delivery/http/helpers"
	"eventcheckin/internal/domain"
)

type contextKey string

const sessionKey contextKey = "session"

// SetSession returns a context with the session claims set. Used by auth middleware.
func SetSession(ctx context.Context, claims *domain.SessionClaims) context.Context {
	return context.WithValue(ctx, sessionKey, claims)
}

// SessionFromContext returns the authenticated session claims from the context, if present.
func SessionFromContext(ctx context.Context) (*domain.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionKey).(*domain.SessionClaims)
	return claims, ok && claims != nil
}

// MemberIDFromContext returns the authenticated member ID from the context, if present.
func MemberIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := SessionFromContext(ctx)
	if !ok {
		return "", false
	}
	return claims.MemberID, true
}

// RequireAuth returns a wrapper that validates the Bearer session token and sets
// the session claims in the request context. If the token is missing or invalid,
// it responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(r.Context(), "token verification failed", "path", r.URL.Path, "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			r = r.WithContext(SetSession(r.Context(), claims))
			next(w, r)
		}
	}
}

// RequireAdmin returns a wrapper that allows only admins through. The role is
// read fresh from the member store on every request, so a role change takes
// effect without waiting for the session token to expire.
func RequireAdmin(members domain.MemberRepository, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			memberID, ok := MemberIDFromContext(r.Context())
			if !ok {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
				return
			}
			member, err := members.Get(r.Context(), memberID)
			if err != nil {
				if errors.Is(err, domain.ErrMemberNotFound) {
					h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unknown member")
					return
				}
				logger.ErrorContext(r.Context(), "admin check failed", "member_id", memberID, "err", err)
				h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, "failed to verify role")
				return
			}
			if member.Role != domain.RoleAdmin {
				h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "admin role required")
				return
			}
			next(w, r)
		}
	}
}
