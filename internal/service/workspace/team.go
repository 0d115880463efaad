package workspace

import (
	"context"
	"errors"
	"sort"
	"strings"

	"studio-backend/internal/apperror"
	"studio-backend/internal/directory"
	"studio-backend/internal/identity"
	"studio-backend/internal/logger"
	"studio-backend/internal/mailer"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/scope"
	"studio-backend/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InviteParams struct {
	TenantID    string
	Email       string          `validate:"required,email,max=254"`
	Name        string          `validate:"omitempty,max=80"`
	Role        string          `validate:"required,oneof=admin staff agent client editor"`
	Permissions map[string]bool
	ClientID    string `validate:"omitempty,max=64"`
	AgentID     string `validate:"omitempty,max=64"`
}

// MemberUpdate changes a membership. Empty fields and a nil permission map
// leave the stored value alone.
type MemberUpdate struct {
	TenantID    string
	Role        string `validate:"omitempty,oneof=admin staff agent client editor"`
	Status      string `validate:"omitempty,oneof=active disabled"`
	Permissions map[string]bool
	ClientID    string `validate:"omitempty,max=64"`
	AgentID     string `validate:"omitempty,max=64"`
}

func (s *Service) ListTeam(ctx context.Context, sess *identity.Session) ([]model.MembershipItem, error) {
	acc, err := s.openFor(ctx, sess, permission.ManageTeam, "")
	if err != nil {
		return nil, err
	}
	members, err := acc.Memberships().List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(members, func(i, j int) bool { return members[i].CreatedAt < members[j].CreatedAt })
	return members, nil
}

// Invite adds a membership in the invited state. The invitee activates it by
// signing in for the first time.
func (s *Service) Invite(ctx context.Context, sess *identity.Session, params InviteParams) (*model.MembershipItem, error) {
	params.TenantID = strings.TrimSpace(params.TenantID)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)
	params.Role = strings.ToLower(strings.TrimSpace(params.Role))

	acc, err := s.openFor(ctx, sess, permission.ManageTeam, params.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(params); err != nil {
		return nil, err
	}
	role := identity.Role(params.Role)
	if err := s.checkRoleGrant(sess, role); err != nil {
		return nil, err
	}
	clientID, agentID, err := s.roleLinks(ctx, acc, role, params.ClientID, params.AgentID)
	if err != nil {
		return nil, err
	}

	user, err := s.ensureUser(ctx, params.Email, params.Name)
	if err != nil {
		return nil, err
	}

	membership := &model.MembershipItem{
		UserID:       user.UserID,
		MembershipID: uuid.NewString(),
		Email:        user.Email,
		Role:         string(role),
		Permissions:  permission.Sanitize(params.Permissions),
		ClientID:     clientID,
		AgentID:      agentID,
		Status:       model.MembershipStatusInvited,
		InvitedBy:    sess.UserID,
		CreatedAt:    s.timestamp(),
	}
	if err := acc.Memberships().Create(ctx, membership); err != nil {
		if apperror.Is(err, apperror.CodeConflict) {
			return nil, apperror.Conflict("user is already a member of this workspace")
		}
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("member invited",
		zap.String("tenant_id", acc.TenantID()),
		zap.String("membership_id", membership.MembershipID),
		zap.String("role", membership.Role),
		zap.String("invited_by", sess.UserID),
	)
	if s.mail != nil {
		msg := mailer.Invite(membership.Email, s.tenantName(ctx, acc.TenantID()), sess.Email)
		if err := s.mail.Send(ctx, msg); err != nil {
			log.Warn("invite mail failed", zap.String("membership_id", membership.MembershipID), zap.Error(err))
		}
	}
	return membership, nil
}

func (s *Service) UpdateMember(ctx context.Context, sess *identity.Session, membershipID string, update MemberUpdate) (*model.MembershipItem, error) {
	update.TenantID = strings.TrimSpace(update.TenantID)
	update.Role = strings.ToLower(strings.TrimSpace(update.Role))
	update.Status = strings.ToLower(strings.TrimSpace(update.Status))

	acc, err := s.openFor(ctx, sess, permission.ManageTeam, update.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(update); err != nil {
		return nil, err
	}

	member, err := findMember(ctx, acc, membershipID)
	if err != nil {
		return nil, err
	}
	if member.MembershipID == sess.MembershipID && (update.Role != "" || update.Status != "") {
		return nil, apperror.Validation("you cannot change your own role or status")
	}
	if err := s.checkRoleGrant(sess, identity.Role(member.Role)); err != nil {
		return nil, err
	}

	role := identity.Role(member.Role)
	if update.Role != "" {
		role = identity.Role(update.Role)
		if err := s.checkRoleGrant(sess, role); err != nil {
			return nil, err
		}
	}
	clientID, agentID := member.ClientID, member.AgentID
	if update.ClientID != "" {
		clientID = update.ClientID
	}
	if update.AgentID != "" {
		agentID = update.AgentID
	}
	if clientID, agentID, err = s.roleLinks(ctx, acc, role, clientID, agentID); err != nil {
		return nil, err
	}

	member.Role = string(role)
	member.ClientID = clientID
	member.AgentID = agentID
	if update.Status != "" {
		if member.Status == model.MembershipStatusInvited && update.Status == model.MembershipStatusActive {
			return nil, apperror.Validation("invited members activate by signing in")
		}
		member.Status = update.Status
	}
	if update.Permissions != nil {
		member.Permissions = permission.Sanitize(update.Permissions)
	}
	member.UpdatedAt = s.timestamp()

	if err := acc.Memberships().Update(ctx, member); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("member updated",
		zap.String("tenant_id", acc.TenantID()),
		zap.String("membership_id", member.MembershipID),
		zap.String("role", member.Role),
		zap.String("status", member.Status),
		zap.String("updated_by", sess.UserID),
	)
	return member, nil
}

func (s *Service) RemoveMember(ctx context.Context, sess *identity.Session, membershipID string) error {
	acc, err := s.openFor(ctx, sess, permission.ManageTeam, "")
	if err != nil {
		return err
	}
	if membershipID == sess.MembershipID {
		return apperror.Validation("you cannot remove yourself")
	}

	member, err := findMember(ctx, acc, membershipID)
	if err != nil {
		return err
	}
	if err := s.checkRoleGrant(sess, identity.Role(member.Role)); err != nil {
		return err
	}
	if err := acc.Memberships().Delete(ctx, member.UserID); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("member removed",
		zap.String("tenant_id", acc.TenantID()),
		zap.String("membership_id", membershipID),
		zap.String("removed_by", sess.UserID),
	)
	return nil
}

// checkRoleGrant allows only tenant admins to create, change or remove admins.
func (s *Service) checkRoleGrant(sess *identity.Session, role identity.Role) error {
	if role != identity.RoleAdmin {
		return nil
	}
	if _, ok := sess.Principal.(identity.TenantAdmin); !ok {
		return apperror.PermissionDenied("only workspace admins can manage admins")
	}
	return nil
}

// roleLinks returns the record links a membership of role must carry. Client
// and agent memberships point at an existing record; other roles carry none.
func (s *Service) roleLinks(ctx context.Context, acc *scope.Accessor, role identity.Role, clientID, agentID string) (string, string, error) {
	switch role {
	case identity.RoleClient:
		if clientID == "" {
			return "", "", apperror.Validation("clientId is required for client members")
		}
		if _, err := s.ensureClient(ctx, acc, clientID); err != nil {
			return "", "", err
		}
		return clientID, "", nil
	case identity.RoleAgent:
		if agentID == "" {
			return "", "", apperror.Validation("agentId is required for agent members")
		}
		if err := s.ensureAgent(ctx, acc, agentID); err != nil {
			return "", "", err
		}
		return "", agentID, nil
	default:
		return "", "", nil
	}
}

func (s *Service) ensureUser(ctx context.Context, email, name string) (model.UserItem, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !notFound(err) {
		return model.UserItem{}, apperror.Internal("failed to load user", err)
	}

	user = model.UserItem{Email: email, UserID: uuid.NewString(), Name: name, CreatedAt: s.timestamp()}
	err = s.repo.CreateUser(ctx, user)
	if errors.Is(err, directory.ErrConflict) {
		user, err = s.repo.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return model.UserItem{}, apperror.Internal("failed to create user", err)
	}
	return user, nil
}

func findMember(ctx context.Context, acc *scope.Accessor, membershipID string) (*model.MembershipItem, error) {
	if membershipID == "" {
		return nil, apperror.Validation("membership id is required")
	}
	found, err := acc.Memberships().Filter(ctx, func(m model.MembershipItem) bool {
		return m.MembershipID == membershipID
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, apperror.NotFound("membership not found")
	}
	return &found[0], nil
}
