package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/directory"
	"studio-backend/internal/identity"
	"studio-backend/internal/logger"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/validation"
	"studio-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	repo directory.Repository
	now  func() time.Time
}

func New(repo directory.Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

type SignupParams struct {
	Name       string `validate:"required,max=80"`
	Slug       string `validate:"omitempty,slug,max=48"`
	OwnerEmail string `validate:"required,email,max=254"`
	OwnerName  string `validate:"required,max=80"`
}

type SignupResult struct {
	Tenant     model.TenantItem
	Membership model.MembershipItem
}

// Signup creates a workspace with its owner as the first admin. The owner
// signs in afterwards by requesting a code for the returned membership.
func (s *Service) Signup(ctx context.Context, params SignupParams) (SignupResult, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.OwnerName = strings.TrimSpace(params.OwnerName)
	params.OwnerEmail = strings.ToLower(strings.TrimSpace(params.OwnerEmail))
	params.Slug = strings.TrimSpace(params.Slug)
	if params.Slug == "" {
		params.Slug = utils.Slugify(params.Name)
	}
	if err := validation.Struct(params); err != nil {
		return SignupResult{}, err
	}
	if params.Slug == "" {
		return SignupResult{}, apperror.Validation("slug is required")
	}

	now := s.now().UTC().Format(time.RFC3339)
	user, err := s.ensureUser(ctx, params.OwnerEmail, params.OwnerName, now)
	if err != nil {
		return SignupResult{}, err
	}

	tenant := model.TenantItem{
		TenantID:  uuid.NewString(),
		Slug:      params.Slug,
		Name:      params.Name,
		Branding:  defaultBranding(params.Name).toMap(),
		CreatedAt: now,
	}
	owner := model.MembershipItem{
		PK:           model.TenantScopedPK(tenant.TenantID, user.UserID),
		TenantID:     tenant.TenantID,
		UserID:       user.UserID,
		MembershipID: uuid.NewString(),
		Email:        user.Email,
		Role:         string(identity.RoleAdmin),
		Status:       model.MembershipStatusActive,
		CreatedAt:    now,
	}

	if err := s.repo.CreateTenant(ctx, tenant, owner); err != nil {
		if errors.Is(err, directory.ErrConflict) {
			return SignupResult{}, apperror.Conflict("workspace slug is already taken")
		}
		return SignupResult{}, apperror.Internal("failed to create workspace", err)
	}

	logger.FromContext(ctx).Info("workspace created",
		zap.String("tenant_id", tenant.TenantID),
		zap.String("slug", tenant.Slug),
		zap.String("owner_user_id", user.UserID),
	)
	return SignupResult{Tenant: tenant, Membership: owner}, nil
}

func (s *Service) ensureUser(ctx context.Context, email, name, now string) (model.UserItem, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, directory.ErrNotFound) {
		return model.UserItem{}, apperror.Internal("failed to load user", err)
	}

	user = model.UserItem{Email: email, UserID: uuid.NewString(), Name: name, CreatedAt: now}
	err = s.repo.CreateUser(ctx, user)
	if errors.Is(err, directory.ErrConflict) {
		user, err = s.repo.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return model.UserItem{}, apperror.Internal("failed to create user", err)
	}
	return user, nil
}

// Get returns the session's workspace.
func (s *Service) Get(ctx context.Context, sess *identity.Session) (model.TenantItem, error) {
	if !sess.HasTenant() {
		return model.TenantItem{}, apperror.Unauthorized("tenant session required")
	}
	tenant, err := s.repo.GetTenant(ctx, sess.TenantID)
	if errors.Is(err, directory.ErrNotFound) || (err == nil && tenant.Deleted) {
		return model.TenantItem{}, apperror.NotFound("workspace not found")
	}
	if err != nil {
		return model.TenantItem{}, apperror.Internal("failed to load workspace", err)
	}
	return tenant, nil
}

// Close soft-deletes the workspace. Its rows stay for historical references
// but nobody can sign in to it any more.
func (s *Service) Close(ctx context.Context, sess *identity.Session) error {
	if err := permission.Require(sess, permission.CloseWorkspace); err != nil {
		return err
	}
	if _, err := s.Get(ctx, sess); err != nil {
		return err
	}

	if err := s.repo.SoftDeleteTenant(ctx, sess.TenantID, s.now().UTC().Format(time.RFC3339)); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return apperror.NotFound("workspace not found")
		}
		return apperror.Internal("failed to close workspace", err)
	}

	logger.FromContext(ctx).Warn("workspace closed",
		zap.String("tenant_id", sess.TenantID),
		zap.String("user_id", sess.UserID),
		zap.String("impersonated_by", sess.ImpersonatedBy),
	)
	return nil
}
