package jwt

import (
	"fmt"
	"sort"
	"time"

	"studio-backend/internal/env"
	"studio-backend/internal/identity"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt"
)

// Issuer signs access tokens and keeps refresh tokens in Redis. It is built
// once in main and shared by the HTTP handlers.
type Issuer struct {
	secrets    map[Role]string
	redis      *redis.Client
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(cfg env.AuthConfig, client *redis.Client) *Issuer {
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 24 * 30 * time.Hour
	}

	return &Issuer{
		secrets: map[Role]string{
			RoleUser:     cfg.UserSecret,
			RolePlatform: cfg.AdminSecret,
		},
		redis:      client,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func appendRoleChar(token string, role Role) string {
	switch role {
	case RoleUser:
		return token + "1"
	case RolePlatform:
		return token + "2"
	}
	return token
}

func roleFromChar(c byte) (Role, bool) {
	switch c {
	case '1':
		return RoleUser, true
	case '2':
		return RolePlatform, true
	}
	return 0, false
}

func splitRoleChar(token string) (string, Role, error) {
	if len(token) < 2 {
		return "", 0, ErrInvalidToken
	}
	role, ok := roleFromChar(token[len(token)-1])
	if !ok {
		return "", 0, ErrInvalidToken
	}
	return token[:len(token)-1], role, nil
}

func roleForSession(s *identity.Session) Role {
	if s.IsPlatform() {
		return RolePlatform
	}
	return RoleUser
}

func (i *Issuer) secret(role Role) ([]byte, error) {
	secret := i.secrets[role]
	if secret == "" {
		return nil, fmt.Errorf("no signing secret for role %d", role)
	}
	return []byte(secret), nil
}

// CreateToken signs an access token for s and returns it with its expiry.
func (i *Issuer) CreateToken(s *identity.Session) (string, time.Time, error) {
	if s == nil || s.Principal == nil {
		return "", time.Time{}, fmt.Errorf("create token: empty session")
	}
	role := roleForSession(s)
	secret, err := i.secret(role)
	if err != nil {
		return "", time.Time{}, err
	}

	now := i.now()
	expiresAt := now.Add(i.accessTTL)

	claims := SessionClaims{
		UserID:         s.UserID,
		Email:          s.Email,
		MembershipID:   s.MembershipID,
		TenantID:       s.TenantID,
		Role:           string(s.Role()),
		ClientID:       s.ClientID(),
		AgentID:        s.AgentID(),
		Permissions:    flagNames(s.Permissions),
		SuperAdmin:     s.SuperAdmin,
		ImpersonatedBy: s.ImpersonatedBy,
		StandardClaims: jwt.StandardClaims{
			Subject:   s.UserID,
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return appendRoleChar(signed, role), expiresAt, nil
}

// ParseToken verifies an access token and rebuilds the session it encodes.
func (i *Issuer) ParseToken(tokenString string) (*identity.Session, error) {
	raw, role, err := splitRoleChar(tokenString)
	if err != nil {
		return nil, err
	}
	secret, err := i.secret(role)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims SessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	principal, err := identity.NewPrincipal(identity.Role(claims.Role), claims.ClientID, claims.AgentID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	// A platform role is only honoured under the platform secret and the
	// reverse.
	if _, isPlatform := principal.(identity.PlatformAdmin); isPlatform != (role == RolePlatform) {
		return nil, ErrInvalidToken
	}

	perms := make(map[string]bool, len(claims.Permissions))
	for _, p := range claims.Permissions {
		perms[p] = true
	}

	return &identity.Session{
		UserID:         claims.UserID,
		Email:          claims.Email,
		MembershipID:   claims.MembershipID,
		TenantID:       claims.TenantID,
		Principal:      principal,
		Permissions:    perms,
		SuperAdmin:     claims.SuperAdmin,
		ImpersonatedBy: claims.ImpersonatedBy,
		ExpiresAt:      time.Unix(claims.ExpiresAt, 0).UTC(),
	}, nil
}

func flagNames(flags map[string]bool) []string {
	var out []string
	for name, on := range flags {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
