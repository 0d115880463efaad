package identity

import (
	"context"
	"time"
)

// PlatformDiscriminator selects the super-admin login instead of a membership.
const PlatformDiscriminator = "platform"

// Session is the resolved identity of a request. A tenant session is bound to
// exactly one membership; a platform session has no tenant.
type Session struct {
	UserID         string
	Email          string
	MembershipID   string
	TenantID       string
	Principal      Principal
	Permissions    map[string]bool
	SuperAdmin     bool
	ImpersonatedBy string
	ExpiresAt      time.Time
}

func (s *Session) Role() Role {
	if s == nil || s.Principal == nil {
		return ""
	}
	return s.Principal.Role()
}

func (s *Session) IsPlatform() bool {
	if s == nil {
		return false
	}
	_, ok := s.Principal.(PlatformAdmin)
	return ok
}

// HasTenant reports whether the session is bound to a tenant membership.
func (s *Session) HasTenant() bool {
	return s != nil && s.TenantID != "" && s.MembershipID != "" && s.Principal != nil && !s.IsPlatform()
}

// ClientID returns the linked client record for client sessions.
func (s *Session) ClientID() string {
	if s == nil {
		return ""
	}
	if c, ok := s.Principal.(Client); ok {
		return c.ClientID
	}
	return ""
}

// AgentID returns the linked agent record for agent sessions.
func (s *Session) AgentID() string {
	if s == nil {
		return ""
	}
	if a, ok := s.Principal.(Agent); ok {
		return a.AgentID
	}
	return ""
}

type contextKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
