package dto

// Write requests may carry the tenant they believe they target. A value other
// than the session tenant is rejected.

type ClientRequest struct {
	TenantID string `json:"tenantId,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
	AgentID  string `json:"agentId,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type ClientResponse struct {
	ClientID  string `json:"clientId"`
	TenantID  string `json:"tenantId"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	AgentID   string `json:"agentId,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type ClientListResponse struct {
	Clients []ClientResponse `json:"clients"`
}

type AgentRequest struct {
	TenantID  string `json:"tenantId,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Brokerage string `json:"brokerage,omitempty"`
}

type AgentResponse struct {
	AgentID   string `json:"agentId"`
	TenantID  string `json:"tenantId"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Brokerage string `json:"brokerage,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type AgentListResponse struct {
	Agents []AgentResponse `json:"agents"`
}

type BookingRequest struct {
	TenantID string   `json:"tenantId,omitempty"`
	ClientID string   `json:"clientId"`
	Address  string   `json:"address"`
	Services []string `json:"services,omitempty"`
	StartsAt string   `json:"startsAt"`
	EndsAt   string   `json:"endsAt"`
	Notes    string   `json:"notes,omitempty"`
}

type BookingResponse struct {
	BookingID string   `json:"bookingId"`
	TenantID  string   `json:"tenantId"`
	ClientID  string   `json:"clientId"`
	AgentID   string   `json:"agentId,omitempty"`
	Address   string   `json:"address"`
	Services  []string `json:"services,omitempty"`
	StartsAt  string   `json:"startsAt"`
	EndsAt    string   `json:"endsAt"`
	Status    string   `json:"status"`
	Notes     string   `json:"notes,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

type InviteRequest struct {
	TenantID    string          `json:"tenantId,omitempty"`
	Email       string          `json:"email"`
	Name        string          `json:"name,omitempty"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions,omitempty"`
	ClientID    string          `json:"clientId,omitempty"`
	AgentID     string          `json:"agentId,omitempty"`
}

type UpdateMemberRequest struct {
	TenantID    string          `json:"tenantId,omitempty"`
	Role        string          `json:"role,omitempty"`
	Status      string          `json:"status,omitempty"`
	Permissions map[string]bool `json:"permissions,omitempty"`
	ClientID    string          `json:"clientId,omitempty"`
	AgentID     string          `json:"agentId,omitempty"`
}

type MemberResponse struct {
	MembershipID string          `json:"membershipId"`
	UserID       string          `json:"userId"`
	TenantID     string          `json:"tenantId"`
	Email        string          `json:"email"`
	Role         string          `json:"role"`
	Permissions  map[string]bool `json:"permissions,omitempty"`
	ClientID     string          `json:"clientId,omitempty"`
	AgentID      string          `json:"agentId,omitempty"`
	Status       string          `json:"status"`
	InvitedBy    string          `json:"invitedBy,omitempty"`
	CreatedAt    string          `json:"createdAt"`
}

type TeamResponse struct {
	Members []MemberResponse `json:"members"`
}
