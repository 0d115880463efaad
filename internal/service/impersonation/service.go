// Package impersonation lets a platform administrator obtain a short-lived
// login code for a tenant. It never issues a session itself: the code is
// redeemed through the normal session resolver.
package impersonation

import (
	"context"
	"errors"
	"strings"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/audit"
	"studio-backend/internal/directory"
	"studio-backend/internal/identity"
	"studio-backend/internal/logger"
	"studio-backend/internal/metrics"
	"studio-backend/internal/model"
	"studio-backend/internal/verification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 50

type Service struct {
	repo   directory.Repository
	codes  verification.Store
	sink   audit.Sink
	reader audit.Reader
	ttl    time.Duration
	now    func() time.Time
}

type Dependencies struct {
	Repo   directory.Repository
	Codes  verification.Store
	Sink   audit.Sink
	Reader audit.Reader
	Now    func() time.Time
}

func New(deps Dependencies) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   deps.Repo,
		codes:  deps.Codes,
		sink:   deps.Sink,
		reader: deps.Reader,
		ttl:    verification.ImpersonationTTL,
		now:    now,
	}
}

type Result struct {
	Code         string
	MembershipID string
	TenantID     string
	ExpiresAt    time.Time
}

// Impersonate mints a single-use code bound to the actor's admin membership
// in targetTenantID, creating or raising that membership as needed.
func (s *Service) Impersonate(ctx context.Context, actor *identity.Session, targetTenantID string) (Result, error) {
	targetTenantID = strings.TrimSpace(targetTenantID)
	if targetTenantID == "" {
		return Result{}, apperror.Validation("tenantId is required")
	}

	user, err := s.verifyActor(ctx, actor)
	if err != nil {
		return Result{}, err
	}

	tenant, err := s.repo.GetTenant(ctx, targetTenantID)
	if errors.Is(err, directory.ErrNotFound) || (err == nil && tenant.Deleted) {
		return Result{}, apperror.NotFound("workspace not found")
	}
	if err != nil {
		return Result{}, apperror.Internal("failed to load workspace", err)
	}

	membership, prior, err := s.ensureAdminMembership(ctx, user, tenant.TenantID)
	if err != nil {
		return Result{}, err
	}

	code, err := verification.GenerateCode()
	if err != nil {
		return Result{}, apperror.Internal("failed to mint code", err)
	}
	issuedAt := s.now()
	grant := verification.Grant{
		Purpose:   verification.PurposeImpersonation,
		Actor:     user.UserID,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.ttl),
	}
	identifier := verification.Identifier(user.Email, membership.MembershipID)
	if err := s.codes.Issue(ctx, identifier, code, grant); err != nil {
		return Result{}, apperror.Internal("failed to mint code", err)
	}

	event := audit.Event{
		ID:           uuid.NewString(),
		Kind:         audit.KindImpersonation,
		ActorUserID:  user.UserID,
		ActorEmail:   user.Email,
		TenantID:     tenant.TenantID,
		MembershipID: membership.MembershipID,
		CreatedAt:    issuedAt.UTC(),
		ExpiresAt:    grant.ExpiresAt.UTC(),
	}
	if prior != nil {
		event.PriorRole = prior.Role
		event.PriorStatus = prior.Status
	}
	if err := s.sink.Record(ctx, event); err != nil {
		_ = s.codes.Revoke(ctx, identifier)
		return Result{}, apperror.Internal("failed to record impersonation", err)
	}

	metrics.RecordImpersonation()
	logger.FromContext(ctx).Info("impersonation code issued",
		zap.String("actor_user_id", user.UserID),
		zap.String("tenant_id", tenant.TenantID),
		zap.String("membership_id", membership.MembershipID),
		zap.String("event_id", event.ID),
	)

	return Result{
		Code:         code,
		MembershipID: membership.MembershipID,
		TenantID:     tenant.TenantID,
		ExpiresAt:    grant.ExpiresAt,
	}, nil
}

// History lists recent impersonations, newest first.
func (s *Service) History(ctx context.Context, actor *identity.Session, limit int) ([]audit.Event, error) {
	if _, err := s.verifyActor(ctx, actor); err != nil {
		return nil, err
	}
	if s.reader == nil {
		return nil, apperror.Internal("audit log not configured", nil)
	}
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	events, err := s.reader.Recent(ctx, audit.KindImpersonation, limit)
	if err != nil {
		return nil, apperror.Internal("failed to load audit log", err)
	}
	return events, nil
}

// verifyActor checks the session flag and the stored user record.
func (s *Service) verifyActor(ctx context.Context, actor *identity.Session) (model.UserItem, error) {
	if actor == nil || actor.Principal == nil {
		return model.UserItem{}, apperror.Unauthorized("session required")
	}
	if !actor.IsPlatform() || !actor.SuperAdmin {
		return model.UserItem{}, apperror.PermissionDenied("platform administrator required")
	}

	user, err := s.repo.GetUserByEmail(ctx, actor.Email)
	if errors.Is(err, directory.ErrNotFound) {
		return model.UserItem{}, apperror.PermissionDenied("platform administrator required")
	}
	if err != nil {
		return model.UserItem{}, apperror.Internal("failed to load user", err)
	}
	if !user.SuperAdmin || user.UserID != actor.UserID {
		return model.UserItem{}, apperror.PermissionDenied("platform administrator required")
	}
	return user, nil
}

// ensureAdminMembership returns the actor's active admin membership in the
// tenant. When an existing membership had to be changed, the row as it was
// before is returned too so the audit event can carry it.
func (s *Service) ensureAdminMembership(ctx context.Context, user model.UserItem, tenantID string) (model.MembershipItem, *model.MembershipItem, error) {
	now := s.now().UTC().Format(time.RFC3339)

	existing, err := s.repo.GetMembershipForUser(ctx, tenantID, user.UserID)
	if errors.Is(err, directory.ErrNotFound) {
		created := model.MembershipItem{
			PK:           model.TenantScopedPK(tenantID, user.UserID),
			TenantID:     tenantID,
			UserID:       user.UserID,
			MembershipID: uuid.NewString(),
			Email:        user.Email,
			Role:         string(identity.RoleAdmin),
			Status:       model.MembershipStatusActive,
			InvitedBy:    identity.PlatformDiscriminator,
			CreatedAt:    now,
		}
		err = s.repo.CreateMembership(ctx, created)
		if err == nil {
			return created, nil, nil
		}
		if !errors.Is(err, directory.ErrConflict) {
			return model.MembershipItem{}, nil, apperror.Internal("failed to create membership", err)
		}
		// Lost a race with a concurrent request; use the row it wrote.
		existing, err = s.repo.GetMembershipForUser(ctx, tenantID, user.UserID)
	}
	if err != nil {
		return model.MembershipItem{}, nil, apperror.Internal("failed to load membership", err)
	}

	if existing.Role == string(identity.RoleAdmin) && existing.Status == model.MembershipStatusActive && existing.Email == user.Email {
		return existing, nil, nil
	}
	prior := existing
	existing.Role = string(identity.RoleAdmin)
	existing.Status = model.MembershipStatusActive
	existing.Email = user.Email
	existing.ClientID = ""
	existing.AgentID = ""
	existing.UpdatedAt = now
	if err := s.repo.SaveMembership(ctx, existing); err != nil {
		return model.MembershipItem{}, nil, apperror.Internal("failed to update membership", err)
	}
	return existing, &prior, nil
}
