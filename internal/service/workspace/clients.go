package workspace

import (
	"context"
	"sort"
	"strings"

	"studio-backend/internal/apperror"
	"studio-backend/internal/identity"
	"studio-backend/internal/logger"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ClientInput struct {
	TenantID string
	Name     string `validate:"required,max=120"`
	Email    string `validate:"omitempty,email,max=254"`
	Phone    string `validate:"omitempty,max=32"`
	Company  string `validate:"omitempty,max=120"`
	AgentID  string `validate:"omitempty,max=64"`
	Notes    string `validate:"omitempty,max=2000"`
}

func (in *ClientInput) normalize() {
	in.TenantID = strings.TrimSpace(in.TenantID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Company = strings.TrimSpace(in.Company)
	in.AgentID = strings.TrimSpace(in.AgentID)
	in.Notes = strings.TrimSpace(in.Notes)
}

func (s *Service) ListClients(ctx context.Context, sess *identity.Session) ([]model.ClientItem, error) {
	vis, err := visibilityFor(sess)
	if err != nil {
		return nil, err
	}
	acc, err := s.open(sess)
	if err != nil {
		return nil, err
	}

	clients, err := acc.Clients().Filter(ctx, func(c model.ClientItem) bool {
		return vis.allows(c.ClientID, c.AgentID)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(clients, func(i, j int) bool {
		return strings.ToLower(clients[i].Name) < strings.ToLower(clients[j].Name)
	})
	return clients, nil
}

// GetClient hides rows the caller may not see behind NotFound.
func (s *Service) GetClient(ctx context.Context, sess *identity.Session, clientID string) (*model.ClientItem, error) {
	vis, err := visibilityFor(sess)
	if err != nil {
		return nil, err
	}
	acc, err := s.open(sess)
	if err != nil {
		return nil, err
	}

	client, err := acc.Clients().Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !vis.allows(client.ClientID, client.AgentID) {
		return nil, apperror.NotFound("client not found")
	}
	return client, nil
}

func (s *Service) CreateClient(ctx context.Context, sess *identity.Session, input ClientInput) (*model.ClientItem, error) {
	input.normalize()
	acc, vis, err := s.openVisible(ctx, sess, permission.ManageClients, input.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	// A client principal without view_all_clients could never see what it made.
	if vis.clientID != "" {
		return nil, permission.Require(sess, permission.ViewAllClients)
	}
	if input.AgentID, err = vis.agentFor(input.AgentID, ""); err != nil {
		return nil, err
	}
	if err := s.ensureAgent(ctx, acc, input.AgentID); err != nil {
		return nil, err
	}

	client := &model.ClientItem{
		ClientID:  uuid.NewString(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Company:   input.Company,
		AgentID:   input.AgentID,
		Notes:     input.Notes,
		CreatedAt: s.timestamp(),
	}
	if err := acc.Clients().Create(ctx, client); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("client created",
		zap.String("tenant_id", acc.TenantID()),
		zap.String("client_id", client.ClientID),
	)
	return client, nil
}

func (s *Service) UpdateClient(ctx context.Context, sess *identity.Session, clientID string, input ClientInput) (*model.ClientItem, error) {
	input.normalize()
	acc, vis, err := s.openVisible(ctx, sess, permission.ManageClients, input.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	client, err := acc.Clients().Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !vis.allows(client.ClientID, client.AgentID) {
		return nil, apperror.NotFound("client not found")
	}
	if input.AgentID, err = vis.agentFor(input.AgentID, client.AgentID); err != nil {
		return nil, err
	}
	if err := s.ensureAgent(ctx, acc, input.AgentID); err != nil {
		return nil, err
	}

	client.Name = input.Name
	client.Email = input.Email
	client.Phone = input.Phone
	client.Company = input.Company
	client.AgentID = input.AgentID
	client.Notes = input.Notes
	client.UpdatedAt = s.timestamp()
	if err := acc.Clients().Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// DeleteClient refuses while bookings still reference the client.
func (s *Service) DeleteClient(ctx context.Context, sess *identity.Session, clientID string) error {
	acc, vis, err := s.openVisible(ctx, sess, permission.ManageClients, "")
	if err != nil {
		return err
	}

	client, err := acc.Clients().Get(ctx, clientID)
	if err != nil {
		return err
	}
	if !vis.allows(client.ClientID, client.AgentID) {
		return apperror.NotFound("client not found")
	}

	bookings, err := acc.Bookings().Filter(ctx, func(b model.BookingItem) bool { return b.ClientID == clientID })
	if err != nil {
		return err
	}
	if len(bookings) > 0 {
		return apperror.Conflict("client still has bookings")
	}
	if err := acc.Clients().Delete(ctx, clientID); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("client deleted",
		zap.String("tenant_id", acc.TenantID()),
		zap.String("client_id", clientID),
		zap.String("user_id", sess.UserID),
	)
	return nil
}
