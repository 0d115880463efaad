package session

import (
	"context"

	"studio-backend/internal/identity"
	internaljwt "studio-backend/internal/jwt"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
)

// TokenIssuer is the part of *jwt.Issuer the resolver needs.
type TokenIssuer interface {
	CreateTokenWithRefresh(ctx context.Context, s *identity.Session) (internaljwt.TokenResponse, error)
	ParseToken(token string) (*identity.Session, error)
	ConsumeRefresh(ctx context.Context, refreshToken string) (internaljwt.RefreshGrant, error)
	RevokeRefresh(ctx context.Context, refreshToken string) error
}

type LookupParams struct {
	Email string `validate:"required,email,max=254"`
}

// RequestCodeParams names the login target. MembershipID is either a
// membership id or identity.PlatformDiscriminator.
type RequestCodeParams struct {
	Email        string `validate:"required,email,max=254"`
	MembershipID string `validate:"required,max=64"`
}

type RedeemParams struct {
	Email        string `validate:"required,email,max=254"`
	MembershipID string `validate:"required,max=64"`
	Code         string
}

// Workspace is one entry of the picker shown before a code is requested.
type Workspace struct {
	MembershipID string
	TenantID     string
	TenantName   string
	TenantSlug   string
	Role         identity.Role
	Status       string
}

type Result struct {
	Session *identity.Session
	Tenant  *model.TenantItem
	Tokens  internaljwt.TokenResponse
}

type Profile struct {
	Session      *identity.Session
	Tenant       *model.TenantItem
	Capabilities []permission.Capability
}
