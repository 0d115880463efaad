package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"studio-backend/internal/identity"
	"studio-backend/utils"

	"github.com/go-redis/redis/v8"
)

func refreshKey(raw string) string {
	return "refresh:" + raw
}

// CreateTokenWithRefresh signs an access token and stores a refresh token
// that can later be exchanged once.
func (i *Issuer) CreateTokenWithRefresh(ctx context.Context, s *identity.Session) (TokenResponse, error) {
	accessToken, expiresAt, err := i.CreateToken(s)
	if err != nil {
		return TokenResponse{}, err
	}

	raw, err := utils.CreateToken()
	if err != nil {
		return TokenResponse{}, err
	}
	role := roleForSession(s)

	grant := RefreshGrant{
		UserID:         s.UserID,
		Email:          s.Email,
		MembershipID:   s.MembershipID,
		TenantID:       s.TenantID,
		Platform:       s.IsPlatform(),
		ImpersonatedBy: s.ImpersonatedBy,
	}
	payload, err := json.Marshal(grant)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := i.redis.Set(ctx, refreshKey(raw), payload, i.refreshTTL).Err(); err != nil {
		return TokenResponse{}, fmt.Errorf("store refresh token: %w", err)
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: appendRoleChar(raw, role),
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}

// ConsumeRefresh exchanges a refresh token for the grant it stored. The
// token is deleted in the same command, so it works once.
func (i *Issuer) ConsumeRefresh(ctx context.Context, refreshToken string) (RefreshGrant, error) {
	raw, role, err := splitRoleChar(refreshToken)
	if err != nil {
		return RefreshGrant{}, ErrInvalidRefreshToken
	}

	val, err := i.redis.GetDel(ctx, refreshKey(raw)).Result()
	if errors.Is(err, redis.Nil) {
		return RefreshGrant{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return RefreshGrant{}, fmt.Errorf("load refresh token: %w", err)
	}

	var grant RefreshGrant
	if err := json.Unmarshal([]byte(val), &grant); err != nil {
		return RefreshGrant{}, ErrInvalidRefreshToken
	}
	if grant.Platform != (role == RolePlatform) {
		return RefreshGrant{}, ErrInvalidRefreshToken
	}
	return grant, nil
}

func (i *Issuer) RevokeRefresh(ctx context.Context, refreshToken string) error {
	raw, _, err := splitRoleChar(refreshToken)
	if err != nil {
		return nil
	}
	if err := i.redis.Del(ctx, refreshKey(raw)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
