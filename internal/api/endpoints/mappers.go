package endpoints

import (
	"time"

	"studio-backend/internal/audit"
	"studio-backend/internal/dto"
	"studio-backend/internal/identity"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/service/session"
	tenantservice "studio-backend/internal/service/tenant"
)

func toSessionResponse(s *identity.Session) dto.SessionResponse {
	caps := permission.Effective(s)
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, string(c))
	}
	var expires int64
	if !s.ExpiresAt.IsZero() {
		expires = s.ExpiresAt.Unix()
	}
	return dto.SessionResponse{
		UserID:         s.UserID,
		Email:          s.Email,
		MembershipID:   s.MembershipID,
		TenantID:       s.TenantID,
		Role:           string(s.Role()),
		ClientID:       s.ClientID(),
		AgentID:        s.AgentID(),
		Capabilities:   names,
		SuperAdmin:     s.SuperAdmin,
		ImpersonatedBy: s.ImpersonatedBy,
		ExpiresAt:      expires,
	}
}

func toBrandingResponse(b tenantservice.Branding) dto.BrandingResponse {
	return dto.BrandingResponse{
		DisplayName:  b.DisplayName,
		PrimaryColor: b.PrimaryColor,
		AccentColor:  b.AccentColor,
		LogoURL:      b.LogoURL,
	}
}

func toIntegrationResponse(s tenantservice.IntegrationStatus) dto.IntegrationResponse {
	return dto.IntegrationResponse{
		Provider:    s.Provider,
		Connected:   s.Connected,
		AccountID:   s.AccountID,
		ConnectedAt: s.ConnectedAt,
	}
}

// toTenantResponse never includes integration credentials. Statuses are only
// listed when withIntegrations is set.
func toTenantResponse(t model.TenantItem, withIntegrations bool) dto.TenantResponse {
	resp := dto.TenantResponse{
		TenantID:  t.TenantID,
		Slug:      t.Slug,
		Name:      t.Name,
		Branding:  toBrandingResponse(tenantservice.BrandingFromTenant(t)),
		CreatedAt: t.CreatedAt,
	}
	if withIntegrations {
		for _, s := range tenantservice.IntegrationStatuses(t) {
			resp.Integrations = append(resp.Integrations, toIntegrationResponse(s))
		}
	}
	return resp
}

func toAuthResponse(result session.Result) dto.AuthResponse {
	resp := dto.AuthResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresAt:    result.Tokens.ExpiresAt,
		Session:      toSessionResponse(result.Session),
	}
	if result.Tenant != nil {
		tenant := toTenantResponse(*result.Tenant, false)
		resp.Tenant = &tenant
	}
	return resp
}

func toClientResponse(c model.ClientItem) dto.ClientResponse {
	return dto.ClientResponse{
		ClientID:  c.ClientID,
		TenantID:  c.TenantID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		AgentID:   c.AgentID,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toAgentResponse(a model.AgentItem) dto.AgentResponse {
	return dto.AgentResponse{
		AgentID:   a.AgentID,
		TenantID:  a.TenantID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Brokerage: a.Brokerage,
		CreatedAt: a.CreatedAt,
	}
}

func toBookingResponse(b model.BookingItem) dto.BookingResponse {
	return dto.BookingResponse{
		BookingID: b.BookingID,
		TenantID:  b.TenantID,
		ClientID:  b.ClientID,
		AgentID:   b.AgentID,
		Address:   b.Address,
		Services:  b.Services,
		StartsAt:  b.StartsAt,
		EndsAt:    b.EndsAt,
		Status:    b.Status,
		Notes:     b.Notes,
		CreatedAt: b.CreatedAt,
	}
}

func toMemberResponse(m model.MembershipItem) dto.MemberResponse {
	return dto.MemberResponse{
		MembershipID: m.MembershipID,
		UserID:       m.UserID,
		TenantID:     m.TenantID,
		Email:        m.Email,
		Role:         m.Role,
		Permissions:  m.Permissions,
		ClientID:     m.ClientID,
		AgentID:      m.AgentID,
		Status:       m.Status,
		InvitedBy:    m.InvitedBy,
		CreatedAt:    m.CreatedAt,
	}
}

func toAuditEventResponse(e audit.Event) dto.AuditEventResponse {
	resp := dto.AuditEventResponse{
		ID:           e.ID,
		Kind:         e.Kind,
		ActorUserID:  e.ActorUserID,
		ActorEmail:   e.ActorEmail,
		TenantID:     e.TenantID,
		MembershipID: e.MembershipID,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !e.ExpiresAt.IsZero() {
		resp.ExpiresAt = e.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}
