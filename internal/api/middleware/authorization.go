package middleware

import (
	"context"
	"net/http"
	"strings"

	"studio-backend/internal/apperror"
	"studio-backend/internal/identity"
	"studio-backend/internal/logger"
	"studio-backend/internal/permission"

	"go.uber.org/zap"
)

// Authenticator resolves a bearer token into a session.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*identity.Session, error)
}

func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate requires a valid access token and stores the resolved session
// in the request context.
func Authenticate(auth Authenticator) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteError(w, apperror.Unauthorized("missing bearer token"))
				return
			}

			sess, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := identity.WithSession(r.Context(), sess)
			log := logger.FromContext(ctx).With(
				zap.String("user_id", sess.UserID),
				zap.String("tenant_id", sess.TenantID),
				zap.String("role", string(sess.Role())),
			)
			if sess.ImpersonatedBy != "" {
				log = log.With(zap.String("impersonated_by", sess.ImpersonatedBy))
			}
			next(w, r.WithContext(logger.WithContext(ctx, log)))
		}
	}
}

// RequireTenant admits only sessions bound to a tenant membership. It must
// run after Authenticate.
func RequireTenant() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := identity.FromContext(r.Context())
			if !ok || !sess.HasTenant() {
				WriteError(w, apperror.Unauthorized("tenant session required"))
				return
			}
			next(w, r)
		}
	}
}

// RequirePlatform admits only super-admin platform sessions.
func RequirePlatform() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := identity.FromContext(r.Context())
			if !ok {
				WriteError(w, apperror.Unauthorized("authentication required"))
				return
			}
			if !sess.IsPlatform() || !sess.SuperAdmin {
				WriteError(w, apperror.PermissionDenied("platform administrator session required"))
				return
			}
			next(w, r)
		}
	}
}

// RequireCapability rejects the request before the handler when the session
// lacks capability. Services check again at their own entry points.
func RequireCapability(capability permission.Capability) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := identity.FromContext(r.Context())
			if !ok {
				WriteError(w, apperror.Unauthorized("authentication required"))
				return
			}
			if err := permission.Require(sess, capability); err != nil {
				WriteError(w, err)
				return
			}
			next(w, r)
		}
	}
}
