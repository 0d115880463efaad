package endpoints

import (
	"context"
	"net/http"

	"studio-backend/internal/apperror"
	"studio-backend/internal/audit"
	"studio-backend/internal/identity"
	"studio-backend/internal/websocket"
)

type FeedEndpoints interface {
	AuditFeed(http.ResponseWriter, *http.Request) error
}

// SessionResolver is the part of the session service the feed needs.
type SessionResolver interface {
	Authenticate(ctx context.Context, accessToken string) (*identity.Session, error)
}

type feedEndpoints struct {
	sessions SessionResolver
	handler  *websocket.Handler
}

func NewFeedEndpoints(sessions SessionResolver, handler *websocket.Handler) FeedEndpoints {
	return &feedEndpoints{sessions: sessions, handler: handler}
}

// AuditFeed upgrades a platform admin's connection and streams impersonation
// events as they are recorded.
func (h *feedEndpoints) AuditFeed(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleAuditFeed,
	})
}

func (h *feedEndpoints) handleAuditFeed(w http.ResponseWriter, r *http.Request) error {
	token := ExtractToken(r)
	if token == "" {
		return apperror.Unauthorized("missing token")
	}
	sess, err := h.sessions.Authenticate(r.Context(), token)
	if err != nil {
		return err
	}
	if !sess.IsPlatform() || !sess.SuperAdmin {
		return apperror.PermissionDenied("platform administrator session required")
	}

	return h.handler.Join(w, r, audit.ImpersonationChannel, sess.UserID)
}
