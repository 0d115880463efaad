// Package session resolves one-time codes into sessions bound to exactly one
// membership, and re-resolves them on refresh.
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/directory"
	"studio-backend/internal/identity"
	"studio-backend/internal/logger"
	"studio-backend/internal/mailer"
	"studio-backend/internal/metrics"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/validation"
	"studio-backend/internal/verification"

	"go.uber.org/zap"
)

type Service struct {
	repo     directory.Repository
	codes    verification.Store
	tokens   TokenIssuer
	mail     mailer.Sender
	loginTTL time.Duration
	now      func() time.Time
}

type Dependencies struct {
	Repo     directory.Repository
	Codes    verification.Store
	Tokens   TokenIssuer
	Mail     mailer.Sender
	LoginTTL time.Duration
	Now      func() time.Time
}

func New(deps Dependencies) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ttl := deps.LoginTTL
	if ttl <= 0 {
		ttl = verification.LoginTTL
	}
	mail := deps.Mail
	if mail == nil {
		mail = mailer.LogSender{}
	}

	return &Service{
		repo:     deps.Repo,
		codes:    deps.Codes,
		tokens:   deps.Tokens,
		mail:     mail,
		loginTTL: ttl,
		now:      now,
	}
}

// LookupTenants lists the workspaces an email can sign in to. Disabled
// memberships and closed workspaces are left out.
func (s *Service) LookupTenants(ctx context.Context, params LookupParams) ([]Workspace, error) {
	params.Email = normalizeEmail(params.Email)
	if err := validation.Struct(params); err != nil {
		return nil, err
	}

	memberships, err := s.repo.ListMembershipsByEmail(ctx, params.Email)
	if err != nil {
		return nil, apperror.Internal("failed to look up workspaces", err)
	}

	workspaces := make([]Workspace, 0, len(memberships))
	for _, m := range memberships {
		if m.Status == model.MembershipStatusDisabled {
			continue
		}
		tenant, err := s.activeTenant(ctx, m.TenantID)
		if err != nil {
			if apperror.Is(err, apperror.CodeNotFound) {
				continue
			}
			return nil, err
		}
		workspaces = append(workspaces, Workspace{
			MembershipID: m.MembershipID,
			TenantID:     tenant.TenantID,
			TenantName:   tenant.Name,
			TenantSlug:   tenant.Slug,
			Role:         identity.Role(m.Role),
			Status:       m.Status,
		})
	}
	sort.Slice(workspaces, func(i, j int) bool { return workspaces[i].TenantName < workspaces[j].TenantName })

	user, err := s.repo.GetUserByEmail(ctx, params.Email)
	switch {
	case err == nil && user.SuperAdmin:
		workspaces = append(workspaces, Workspace{
			MembershipID: identity.PlatformDiscriminator,
			TenantName:   "Platform administration",
			Role:         identity.RolePlatform,
			Status:       model.MembershipStatusActive,
		})
	case err != nil && !errors.Is(err, directory.ErrNotFound):
		return nil, apperror.Internal("failed to look up user", err)
	}

	return workspaces, nil
}

// RequestCode sends a login code for the named membership. It succeeds
// without sending anything when the target does not exist, cannot log in or
// was asked for a code moments ago, so callers cannot probe for accounts.
func (s *Service) RequestCode(ctx context.Context, params RequestCodeParams) error {
	params.Email = normalizeEmail(params.Email)
	params.MembershipID = strings.TrimSpace(params.MembershipID)
	if err := validation.Struct(params); err != nil {
		return err
	}
	log := logger.FromContext(ctx).With(
		zap.String("email", params.Email),
		zap.String("membership_id", params.MembershipID),
	)

	workspaceName, ok, err := s.loginTarget(ctx, params.Email, params.MembershipID)
	if err != nil {
		return err
	}
	if !ok {
		log.Info("login code not sent: no eligible target")
		return nil
	}

	identifier := verification.Identifier(params.Email, params.MembershipID)
	allowed, err := s.codes.Throttle(ctx, identifier, verification.ResendWindow)
	if err != nil {
		return apperror.Internal("failed to request code", err)
	}
	if !allowed {
		log.Info("login code not sent: throttled")
		return nil
	}

	code, err := verification.GenerateCode()
	if err != nil {
		return apperror.Internal("failed to request code", err)
	}
	issuedAt := s.now()
	grant := verification.Grant{
		Purpose:   verification.PurposeLogin,
		Actor:     params.Email,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.loginTTL),
	}
	if err := s.codes.Issue(ctx, identifier, code, grant); err != nil {
		return apperror.Internal("failed to request code", err)
	}

	if err := s.mail.Send(ctx, mailer.LoginCode(params.Email, workspaceName, code, s.loginTTL)); err != nil {
		_ = s.codes.Revoke(ctx, identifier)
		return apperror.Internal("failed to send code", err)
	}

	metrics.RecordCodeIssued(verification.PurposeLogin)
	log.Info("login code issued", zap.Time("expires_at", grant.ExpiresAt))
	return nil
}

// loginTarget reports whether email may receive a code for discriminator and
// the workspace name to show in the mail.
func (s *Service) loginTarget(ctx context.Context, email, discriminator string) (string, bool, error) {
	if discriminator == identity.PlatformDiscriminator {
		user, err := s.repo.GetUserByEmail(ctx, email)
		if errors.Is(err, directory.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, apperror.Internal("failed to request code", err)
		}
		return "Platform administration", user.SuperAdmin, nil
	}

	m, err := s.repo.GetMembership(ctx, discriminator)
	if errors.Is(err, directory.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperror.Internal("failed to request code", err)
	}
	if m.Email != email || m.Status == model.MembershipStatusDisabled {
		return "", false, nil
	}

	tenant, err := s.activeTenant(ctx, m.TenantID)
	if apperror.Is(err, apperror.CodeNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tenant.Name, true, nil
}

// RedeemCode consumes a code and issues a session for the membership it was
// minted for. Every failure looks the same to the caller.
func (s *Service) RedeemCode(ctx context.Context, params RedeemParams) (Result, error) {
	params.Email = normalizeEmail(params.Email)
	params.MembershipID = strings.TrimSpace(params.MembershipID)
	params.Code = strings.TrimSpace(params.Code)
	if err := validation.Struct(params); err != nil {
		return Result{}, err
	}
	log := logger.FromContext(ctx).With(
		zap.String("email", params.Email),
		zap.String("membership_id", params.MembershipID),
	)

	if params.Code == "" {
		metrics.RecordRedemption("rejected")
		return Result{}, apperror.InvalidOrExpiredCode(nil)
	}

	identifier := verification.Identifier(params.Email, params.MembershipID)
	grant, err := s.codes.Redeem(ctx, identifier, params.Code)
	if err != nil {
		if errors.Is(err, verification.ErrInvalidCode) {
			metrics.RecordRedemption("rejected")
			log.Info("login code rejected")
			return Result{}, apperror.InvalidOrExpiredCode(err)
		}
		return Result{}, apperror.Internal("failed to verify code", err)
	}

	var result Result
	if params.MembershipID == identity.PlatformDiscriminator {
		result, err = s.platformSession(ctx, params.Email)
	} else {
		result, err = s.membershipSession(ctx, params.Email, params.MembershipID, true)
	}
	if err != nil {
		metrics.RecordRedemption("rejected")
		log.Warn("redeemed code did not resolve to a session", zap.Error(err))
		if apperror.Is(err, apperror.CodeInternal) {
			return Result{}, err
		}
		return Result{}, apperror.InvalidOrExpiredCode(err)
	}

	if grant.Purpose == verification.PurposeImpersonation {
		result.Session.ImpersonatedBy = grant.Actor
	}
	if err := s.issue(ctx, &result); err != nil {
		return Result{}, err
	}

	metrics.RecordRedemption("accepted")
	log.Info("session issued",
		zap.String("tenant_id", result.Session.TenantID),
		zap.String("role", string(result.Session.Role())),
		zap.String("impersonated_by", result.Session.ImpersonatedBy),
	)
	return result, nil
}

// Refresh exchanges a refresh token for a new token pair. The membership and
// tenant are read again, so a disabled membership or closed workspace stops
// refreshing immediately.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Result, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return Result{}, apperror.Unauthorized("refresh token is required")
	}

	grant, err := s.tokens.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		return Result{}, apperror.Wrap(apperror.CodeUnauthorized, "invalid refresh token", err)
	}

	var result Result
	if grant.Platform {
		result, err = s.platformSession(ctx, grant.Email)
	} else {
		result, err = s.membershipSession(ctx, grant.Email, grant.MembershipID, false)
	}
	if err != nil {
		if apperror.Is(err, apperror.CodeInternal) {
			return Result{}, err
		}
		return Result{}, apperror.Wrap(apperror.CodeUnauthorized, "session is no longer valid", err)
	}
	if result.Session.UserID != grant.UserID {
		return Result{}, apperror.Unauthorized("session is no longer valid")
	}

	result.Session.ImpersonatedBy = grant.ImpersonatedBy
	if err := s.issue(ctx, &result); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.RevokeRefresh(ctx, refreshToken); err != nil {
		return apperror.Internal("failed to log out", err)
	}
	return nil
}

// Authenticate verifies an access token and returns the session it encodes.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*identity.Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, apperror.Unauthorized("authorization token is required")
	}
	sess, err := s.tokens.ParseToken(accessToken)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeUnauthorized, "invalid or expired token", err)
	}
	return sess, nil
}

func (s *Service) Me(ctx context.Context, sess *identity.Session) (Profile, error) {
	if sess == nil || sess.Principal == nil {
		return Profile{}, apperror.Unauthorized("session required")
	}

	profile := Profile{Session: sess, Capabilities: permission.Effective(sess)}
	if sess.HasTenant() {
		tenant, err := s.activeTenant(ctx, sess.TenantID)
		if err != nil {
			if apperror.Is(err, apperror.CodeNotFound) {
				return Profile{}, apperror.Unauthorized("workspace is closed")
			}
			return Profile{}, err
		}
		profile.Tenant = &tenant
	}
	return profile, nil
}

func (s *Service) platformSession(ctx context.Context, email string) (Result, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, directory.ErrNotFound) {
		return Result{}, apperror.Unauthorized("unknown user")
	}
	if err != nil {
		return Result{}, apperror.Internal("failed to load user", err)
	}
	if !user.SuperAdmin {
		return Result{}, apperror.PermissionDenied("not a platform administrator")
	}

	return Result{Session: &identity.Session{
		UserID:     user.UserID,
		Email:      user.Email,
		Principal:  identity.PlatformAdmin{},
		SuperAdmin: true,
	}}, nil
}

// membershipSession resolves a membership into a session. With activate set,
// an invited membership becomes active.
func (s *Service) membershipSession(ctx context.Context, email, membershipID string, activate bool) (Result, error) {
	m, err := s.repo.GetMembership(ctx, membershipID)
	if errors.Is(err, directory.ErrNotFound) {
		return Result{}, apperror.Unauthorized("membership not found")
	}
	if err != nil {
		return Result{}, apperror.Internal("failed to load membership", err)
	}
	if m.Email != email {
		return Result{}, apperror.Unauthorized("membership belongs to another email")
	}

	switch m.Status {
	case model.MembershipStatusActive:
	case model.MembershipStatusInvited:
		if !activate {
			return Result{}, apperror.Unauthorized("membership is not active")
		}
	default:
		return Result{}, apperror.Unauthorized("membership is disabled")
	}

	tenant, err := s.activeTenant(ctx, m.TenantID)
	if err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return Result{}, apperror.Unauthorized("workspace is closed")
		}
		return Result{}, err
	}

	user, err := s.repo.GetUser(ctx, m.UserID)
	if errors.Is(err, directory.ErrNotFound) {
		return Result{}, apperror.Unauthorized("unknown user")
	}
	if err != nil {
		return Result{}, apperror.Internal("failed to load user", err)
	}

	principal, err := identity.NewPrincipal(identity.Role(m.Role), m.ClientID, m.AgentID)
	if err != nil {
		return Result{}, apperror.Wrap(apperror.CodeUnauthorized, "membership is incomplete", err)
	}

	if m.Status == model.MembershipStatusInvited {
		m.Status = model.MembershipStatusActive
		m.UpdatedAt = s.now().UTC().Format(time.RFC3339)
		if err := s.repo.SaveMembership(ctx, m); err != nil {
			return Result{}, apperror.Internal("failed to activate membership", err)
		}
	}

	return Result{
		Session: &identity.Session{
			UserID:       user.UserID,
			Email:        user.Email,
			MembershipID: m.MembershipID,
			TenantID:     m.TenantID,
			Principal:    principal,
			Permissions:  permission.Sanitize(m.Permissions),
			SuperAdmin:   user.SuperAdmin,
		},
		Tenant: &tenant,
	}, nil
}

func (s *Service) issue(ctx context.Context, result *Result) error {
	tokens, err := s.tokens.CreateTokenWithRefresh(ctx, result.Session)
	if err != nil {
		return apperror.Internal("failed to issue tokens", err)
	}
	result.Tokens = tokens
	result.Session.ExpiresAt = time.Unix(tokens.ExpiresAt, 0).UTC()
	return nil
}

func (s *Service) activeTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if errors.Is(err, directory.ErrNotFound) || (err == nil && tenant.Deleted) {
		return model.TenantItem{}, apperror.NotFound("workspace not found")
	}
	if err != nil {
		return model.TenantItem{}, apperror.Internal("failed to load workspace", err)
	}
	return tenant, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
