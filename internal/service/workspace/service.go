// Package workspace holds the tenant data operations: clients, agents,
// bookings and the team roster. Every call opens a scope.Accessor from the
// caller's session and consults the permission gate before mutating.
package workspace

import (
	"context"
	"errors"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/directory"
	"studio-backend/internal/identity"
	"studio-backend/internal/mailer"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/scope"
)

type Service struct {
	store scope.Store
	repo  directory.Repository
	mail  mailer.Sender
	now   func() time.Time
}

type Dependencies struct {
	Store scope.Store
	Repo  directory.Repository
	Mail  mailer.Sender
	Now   func() time.Time
}

func New(deps Dependencies) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: deps.Store, repo: deps.Repo, mail: deps.Mail, now: now}
}

func (s *Service) open(sess *identity.Session) (*scope.Accessor, error) {
	return scope.New(s.store, sess)
}

// openFor opens an accessor after checking the capability and the tenant id
// the caller claimed in its payload, if any.
func (s *Service) openFor(ctx context.Context, sess *identity.Session, c permission.Capability, claimedTenant string) (*scope.Accessor, error) {
	if err := permission.Require(sess, c); err != nil {
		return nil, err
	}
	acc, err := s.open(sess)
	if err != nil {
		return nil, err
	}
	if err := acc.Guard(ctx, claimedTenant); err != nil {
		return nil, err
	}
	return acc, nil
}

// openVisible is openFor plus the caller's read visibility. Mutations use it so
// a row the caller cannot read is also a row it cannot change.
func (s *Service) openVisible(ctx context.Context, sess *identity.Session, c permission.Capability, claimedTenant string) (*scope.Accessor, visibility, error) {
	acc, err := s.openFor(ctx, sess, c, claimedTenant)
	if err != nil {
		return nil, visibility{}, err
	}
	vis, err := visibilityFor(sess)
	if err != nil {
		return nil, visibility{}, err
	}
	return acc, vis, nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Service) tenantName(ctx context.Context, tenantID string) string {
	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return ""
	}
	return tenant.Name
}

// visibility describes which client-linked rows a session may read.
type visibility struct {
	all      bool
	clientID string
	agentID  string
}

func (v visibility) allows(clientID, agentID string) bool {
	switch {
	case v.all:
		return true
	case v.clientID != "":
		return clientID == v.clientID
	case v.agentID != "":
		return agentID == v.agentID
	default:
		return false
	}
}

// agentFor resolves the agent link a restricted caller may write. Callers that
// see every client keep what they asked for. An agent may only link clients to
// itself, and a client principal cannot change links at all.
func (v visibility) agentFor(requested, current string) (string, error) {
	switch {
	case v.all:
		return requested, nil
	case v.agentID != "":
		if requested != "" && requested != v.agentID {
			return "", apperror.PermissionDenied("missing capability: " + string(permission.ViewAllClients))
		}
		return v.agentID, nil
	default:
		if requested != "" && requested != current {
			return "", apperror.PermissionDenied("missing capability: " + string(permission.ViewAllClients))
		}
		return current, nil
	}
}

func visibilityFor(sess *identity.Session) (visibility, error) {
	if !sess.HasTenant() {
		return visibility{}, apperror.Unauthorized("tenant session required")
	}
	if permission.CanPerform(sess, permission.ViewAllClients) {
		return visibility{all: true}, nil
	}
	switch p := sess.Principal.(type) {
	case identity.Client:
		return visibility{clientID: p.ClientID}, nil
	case identity.Agent:
		return visibility{agentID: p.AgentID}, nil
	default:
		return visibility{}, permission.Require(sess, permission.ViewAllClients)
	}
}

func (s *Service) ensureAgent(ctx context.Context, acc *scope.Accessor, agentID string) error {
	if agentID == "" {
		return nil
	}
	if _, err := acc.Agents().Get(ctx, agentID); err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return apperror.Validation("agentId does not name an agent of this workspace")
		}
		return err
	}
	return nil
}

func (s *Service) ensureClient(ctx context.Context, acc *scope.Accessor, clientID string) (*model.ClientItem, error) {
	client, err := acc.Clients().Get(ctx, clientID)
	if err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return nil, apperror.Validation("clientId does not name a client of this workspace")
		}
		return nil, err
	}
	return client, nil
}

// ensureVisibleClient is ensureClient for callers that must also be able to see
// the client; hidden clients look the same as missing ones.
func (s *Service) ensureVisibleClient(ctx context.Context, acc *scope.Accessor, vis visibility, clientID string) (*model.ClientItem, error) {
	client, err := s.ensureClient(ctx, acc, clientID)
	if err != nil {
		return nil, err
	}
	if !vis.allows(client.ClientID, client.AgentID) {
		return nil, apperror.Validation("clientId does not name a client of this workspace")
	}
	return client, nil
}

func notFound(err error) bool {
	return errors.Is(err, directory.ErrNotFound)
}
