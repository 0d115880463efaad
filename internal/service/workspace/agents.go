package workspace

import (
	"context"
	"sort"
	"strings"

	"studio-backend/internal/apperror"
	"studio-backend/internal/identity"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/validation"

	"github.com/google/uuid"
)

type AgentInput struct {
	TenantID  string
	Name      string `validate:"required,max=120"`
	Email     string `validate:"omitempty,email,max=254"`
	Phone     string `validate:"omitempty,max=32"`
	Brokerage string `validate:"omitempty,max=120"`
}

// ListAgents returns the roster to anyone who can see every client. An agent
// sees only its own record.
func (s *Service) ListAgents(ctx context.Context, sess *identity.Session) ([]model.AgentItem, error) {
	vis, err := visibilityFor(sess)
	if err != nil {
		return nil, err
	}
	if !vis.all && vis.agentID == "" {
		return nil, apperror.PermissionDenied("missing capability: " + string(permission.ViewAllClients))
	}
	acc, err := s.open(sess)
	if err != nil {
		return nil, err
	}

	agents, err := acc.Agents().Filter(ctx, func(a model.AgentItem) bool {
		return vis.all || a.AgentID == vis.agentID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(agents, func(i, j int) bool {
		return strings.ToLower(agents[i].Name) < strings.ToLower(agents[j].Name)
	})
	return agents, nil
}

func (s *Service) CreateAgent(ctx context.Context, sess *identity.Session, input AgentInput) (*model.AgentItem, error) {
	input.TenantID = strings.TrimSpace(input.TenantID)
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	input.Brokerage = strings.TrimSpace(input.Brokerage)

	acc, err := s.openFor(ctx, sess, permission.ManageClients, input.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	agent := &model.AgentItem{
		AgentID:   uuid.NewString(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Brokerage: input.Brokerage,
		CreatedAt: s.timestamp(),
	}
	if err := acc.Agents().Create(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}
