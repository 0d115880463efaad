package tenant

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"studio-backend/internal/apperror"
	"studio-backend/internal/directory"
	"studio-backend/internal/identity"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/validation"
)

const (
	DefaultPrimaryColor = "#1F2937"
	DefaultAccentColor  = "#F59E0B"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Branding struct {
	DisplayName  string
	PrimaryColor string
	AccentColor  string
	LogoURL      string
}

type BrandingInput struct {
	DisplayName  string `validate:"omitempty,max=80"`
	PrimaryColor string
	AccentColor  string
	LogoURL      string `validate:"omitempty,url,max=512"`
}

func defaultBranding(name string) Branding {
	return Branding{
		DisplayName:  name,
		PrimaryColor: DefaultPrimaryColor,
		AccentColor:  DefaultAccentColor,
	}
}

func BrandingFromTenant(tenant model.TenantItem) Branding {
	result := defaultBranding(tenant.Name)
	if tenant.Branding == nil {
		return result
	}
	if val := strings.TrimSpace(tenant.Branding["displayName"]); val != "" {
		result.DisplayName = val
	}
	if val := strings.TrimSpace(tenant.Branding["primaryColor"]); val != "" {
		result.PrimaryColor = val
	}
	if val := strings.TrimSpace(tenant.Branding["accentColor"]); val != "" {
		result.AccentColor = val
	}
	result.LogoURL = strings.TrimSpace(tenant.Branding["logoUrl"])
	return result
}

func (b Branding) toMap() map[string]string {
	out := map[string]string{
		"displayName":  b.DisplayName,
		"primaryColor": b.PrimaryColor,
		"accentColor":  b.AccentColor,
	}
	if b.LogoURL != "" {
		out["logoUrl"] = b.LogoURL
	}
	return out
}

func normalizeColor(field, value, fallback string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	if !hexColorPattern.MatchString(trimmed) {
		return "", apperror.Validation(field + " must be a valid hex color (e.g. #1F2937)")
	}
	return strings.ToUpper(trimmed), nil
}

func normalizeBranding(tenantName string, input BrandingInput) (Branding, error) {
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.LogoURL = strings.TrimSpace(input.LogoURL)
	if err := validation.Struct(input); err != nil {
		return Branding{}, err
	}

	result := defaultBranding(tenantName)
	if input.DisplayName != "" {
		result.DisplayName = input.DisplayName
	}
	var err error
	if result.PrimaryColor, err = normalizeColor("primaryColor", input.PrimaryColor, DefaultPrimaryColor); err != nil {
		return Branding{}, err
	}
	if result.AccentColor, err = normalizeColor("accentColor", input.AccentColor, DefaultAccentColor); err != nil {
		return Branding{}, err
	}
	result.LogoURL = input.LogoURL
	return result, nil
}

func (s *Service) UpdateBranding(ctx context.Context, sess *identity.Session, input BrandingInput) (Branding, error) {
	if err := permission.Require(sess, permission.ManageSettings); err != nil {
		return Branding{}, err
	}
	tenant, err := s.Get(ctx, sess)
	if err != nil {
		return Branding{}, err
	}

	branding, err := normalizeBranding(tenant.Name, input)
	if err != nil {
		return Branding{}, err
	}

	updated, err := s.repo.UpdateBranding(ctx, sess.TenantID, branding.toMap())
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Branding{}, apperror.NotFound("workspace not found")
		}
		return Branding{}, apperror.Internal("failed to update branding", err)
	}
	return BrandingFromTenant(updated), nil
}
