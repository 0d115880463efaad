package tenant

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/directory"
	"studio-backend/internal/identity"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/validation"
)

const (
	ProviderDropbox     = "dropbox"
	ProviderGoogleDrive = "google_drive"
)

var supportedProviders = map[string]bool{
	ProviderDropbox:     true,
	ProviderGoogleDrive: true,
}

type IntegrationInput struct {
	AccountID    string `validate:"omitempty,max=128"`
	AccessToken  string `validate:"required,max=4096"`
	RefreshToken string `validate:"omitempty,max=4096"`
}

// IntegrationStatus is what callers may see of a stored credential. Tokens
// never leave the service.
type IntegrationStatus struct {
	Provider    string
	Connected   bool
	AccountID   string
	ConnectedAt string
}

func IntegrationStatuses(tenant model.TenantItem) []IntegrationStatus {
	providers := make([]string, 0, len(supportedProviders))
	for p := range supportedProviders {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	out := make([]IntegrationStatus, 0, len(providers))
	for _, p := range providers {
		status := IntegrationStatus{Provider: p}
		if cred, ok := tenant.Integrations[p]; ok && cred.AccessToken != "" {
			status.Connected = true
			status.AccountID = cred.AccountID
			status.ConnectedAt = cred.ConnectedAt
		}
		out = append(out, status)
	}
	return out
}

func (s *Service) UpdateIntegration(ctx context.Context, sess *identity.Session, provider string, input IntegrationInput) (IntegrationStatus, error) {
	if err := permission.Require(sess, permission.ManageIntegrations); err != nil {
		return IntegrationStatus{}, err
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !supportedProviders[provider] {
		return IntegrationStatus{}, apperror.Validation("unsupported provider: " + provider)
	}
	input.AccountID = strings.TrimSpace(input.AccountID)
	input.AccessToken = strings.TrimSpace(input.AccessToken)
	input.RefreshToken = strings.TrimSpace(input.RefreshToken)
	if err := validation.Struct(input); err != nil {
		return IntegrationStatus{}, err
	}

	cred := model.IntegrationCredential{
		Provider:     provider,
		AccountID:    input.AccountID,
		AccessToken:  input.AccessToken,
		RefreshToken: input.RefreshToken,
		ConnectedAt:  s.now().UTC().Format(time.RFC3339),
	}
	updated, err := s.repo.PutIntegration(ctx, sess.TenantID, cred)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return IntegrationStatus{}, apperror.NotFound("workspace not found")
		}
		return IntegrationStatus{}, apperror.Internal("failed to store integration", err)
	}

	for _, status := range IntegrationStatuses(updated) {
		if status.Provider == provider {
			return status, nil
		}
	}
	return IntegrationStatus{}, apperror.Internal("integration missing after update", nil)
}
