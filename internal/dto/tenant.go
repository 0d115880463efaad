package dto

type SignupRequest struct {
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
	Email     string `json:"email"`
	OwnerName string `json:"ownerName"`
}

type SignupResponse struct {
	Tenant       TenantResponse `json:"tenant"`
	MembershipID string         `json:"membershipId"`
}

type BrandingResponse struct {
	DisplayName  string `json:"displayName"`
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
	LogoURL      string `json:"logoUrl,omitempty"`
}

type IntegrationResponse struct {
	Provider    string `json:"provider"`
	Connected   bool   `json:"connected"`
	AccountID   string `json:"accountId,omitempty"`
	ConnectedAt string `json:"connectedAt,omitempty"`
}

type TenantResponse struct {
	TenantID     string                `json:"tenantId"`
	Slug         string                `json:"slug"`
	Name         string                `json:"name"`
	Branding     BrandingResponse      `json:"branding"`
	Integrations []IntegrationResponse `json:"integrations,omitempty"`
	CreatedAt    string                `json:"createdAt"`
}

type UpdateBrandingRequest struct {
	DisplayName  string `json:"displayName"`
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
	LogoURL      string `json:"logoUrl"`
}

type UpdateIntegrationRequest struct {
	AccountID    string `json:"accountId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ImpersonationRequest struct {
	TenantID string `json:"tenantId"`
}

type ImpersonationResponse struct {
	Code         string `json:"code"`
	MembershipID string `json:"membershipId"`
	TenantID     string `json:"tenantId"`
	ExpiresAt    string `json:"expiresAt"`
}

type AuditEventResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	ActorUserID  string `json:"actorUserId"`
	ActorEmail   string `json:"actorEmail"`
	TenantID     string `json:"tenantId"`
	MembershipID string `json:"membershipId"`
	CreatedAt    string `json:"createdAt"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
}

type AuditListResponse struct {
	Events []AuditEventResponse `json:"events"`
}
