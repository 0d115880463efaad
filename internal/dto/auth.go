package dto

type WorkspaceLookupRequest struct {
	Email string `json:"email"`
}

type WorkspaceOption struct {
	MembershipID string `json:"membershipId"`
	TenantID     string `json:"tenantId,omitempty"`
	TenantName   string `json:"tenantName"`
	TenantSlug   string `json:"tenantSlug,omitempty"`
	Role         string `json:"role"`
	Status       string `json:"status,omitempty"`
}

type WorkspaceLookupResponse struct {
	Workspaces []WorkspaceOption `json:"workspaces"`
}

type RequestCodeRequest struct {
	Email        string `json:"email"`
	MembershipID string `json:"membershipId"`
}

type RedeemCodeRequest struct {
	Email        string `json:"email"`
	MembershipID string `json:"membershipId"`
	Code         string `json:"code"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type SessionResponse struct {
	UserID         string   `json:"userId"`
	Email          string   `json:"email"`
	MembershipID   string   `json:"membershipId,omitempty"`
	TenantID       string   `json:"tenantId,omitempty"`
	Role           string   `json:"role"`
	ClientID       string   `json:"clientId,omitempty"`
	AgentID        string   `json:"agentId,omitempty"`
	Capabilities   []string `json:"capabilities"`
	SuperAdmin     bool     `json:"superAdmin"`
	ImpersonatedBy string   `json:"impersonatedBy,omitempty"`
	ExpiresAt      int64    `json:"expiresAt"`
}

type AuthResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	ExpiresAt    int64           `json:"expiresAt"`
	Session      SessionResponse `json:"session"`
	Tenant       *TenantResponse `json:"tenant,omitempty"`
}

type MeResponse struct {
	Session SessionResponse `json:"session"`
	Tenant  *TenantResponse `json:"tenant,omitempty"`
}
