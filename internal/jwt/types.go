package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt"
)

type Role int

const (
	// RoleUser signs tenant sessions.
	RoleUser Role = iota
	// RolePlatform signs super-admin sessions with a separate secret.
	RolePlatform
)

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// SessionClaims is the access token payload. It encodes exactly one
// membership, or none for platform sessions.
type SessionClaims struct {
	UserID         string   `json:"userId"`
	Email          string   `json:"email"`
	MembershipID   string   `json:"membershipId,omitempty"`
	TenantID       string   `json:"tenantId,omitempty"`
	Role           string   `json:"role"`
	ClientID       string   `json:"clientId,omitempty"`
	AgentID        string   `json:"agentId,omitempty"`
	Permissions    []string `json:"perms,omitempty"`
	SuperAdmin     bool     `json:"superAdmin,omitempty"`
	ImpersonatedBy string   `json:"imp,omitempty"`
	jwt.StandardClaims
}

// RefreshGrant is what a refresh token remembers. The membership is looked up
// again before a new access token is minted.
type RefreshGrant struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	MembershipID   string `json:"membershipId,omitempty"`
	TenantID       string `json:"tenantId,omitempty"`
	Platform       bool   `json:"platform,omitempty"`
	ImpersonatedBy string `json:"imp,omitempty"`
}
