package model

import "fmt"

const (
	TenantsTable     = "Tenants"
	TenantSlugsTable = "TenantSlugs"
	UsersTable       = "Users"
	MembershipsTable = "Memberships"
	ClientsTable     = "Clients"
	AgentsTable      = "Agents"
	BookingsTable    = "Bookings"
	AuditLogTable    = "AuditLog"
)

const (
	IndexByTenant       = "byTenant"
	IndexByEmail        = "byEmail"
	IndexByUserID       = "byUserId"
	IndexByMembershipID = "byMembershipId"
	IndexByKind         = "byKind"
)

const (
	MembershipStatusInvited  = "invited"
	MembershipStatusActive   = "active"
	MembershipStatusDisabled = "disabled"
)

type IntegrationCredential struct {
	Provider     string `dynamodbav:"provider"`
	AccountID    string `dynamodbav:"accountId,omitempty"`
	AccessToken  string `dynamodbav:"accessToken"`
	RefreshToken string `dynamodbav:"refreshToken,omitempty"`
	ConnectedAt  string `dynamodbav:"connectedAt"`
}

type TenantItem struct {
	TenantID     string                           `dynamodbav:"tenantId"`
	Slug         string                           `dynamodbav:"slug"`
	Name         string                           `dynamodbav:"name"`
	Branding     map[string]string                `dynamodbav:"branding,omitempty"`
	Integrations map[string]IntegrationCredential `dynamodbav:"integrations,omitempty"`
	Deleted      bool                             `dynamodbav:"deleted"`
	DeletedAt    string                           `dynamodbav:"deletedAt,omitempty"`
	CreatedAt    string                           `dynamodbav:"createdAt"`
}

// TenantSlugItem claims a slug; written in the same transaction as the tenant.
type TenantSlugItem struct {
	Slug      string `dynamodbav:"slug"`
	TenantID  string `dynamodbav:"tenantId"`
	CreatedAt string `dynamodbav:"createdAt"`
}

type UserItem struct {
	Email      string `dynamodbav:"email"`
	UserID     string `dynamodbav:"userId"`
	Name       string `dynamodbav:"name"`
	SuperAdmin bool   `dynamodbav:"isSuperAdmin"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

// MembershipItem is keyed by tenant and user so a user holds at most one
// membership per tenant.
type MembershipItem struct {
	PK           string          `dynamodbav:"pk"`
	TenantID     string          `dynamodbav:"tenantId"`
	UserID       string          `dynamodbav:"userId"`
	MembershipID string          `dynamodbav:"membershipId"`
	Email        string          `dynamodbav:"email"`
	Role         string          `dynamodbav:"role"`
	Permissions  map[string]bool `dynamodbav:"permissions,omitempty"`
	ClientID     string          `dynamodbav:"clientId,omitempty"`
	AgentID      string          `dynamodbav:"agentId,omitempty"`
	Status       string          `dynamodbav:"status"`
	InvitedBy    string          `dynamodbav:"invitedBy,omitempty"`
	CreatedAt    string          `dynamodbav:"createdAt"`
	UpdatedAt    string          `dynamodbav:"updatedAt,omitempty"`
}

type ClientItem struct {
	PK        string `dynamodbav:"pk"`
	TenantID  string `dynamodbav:"tenantId"`
	ClientID  string `dynamodbav:"clientId"`
	Name      string `dynamodbav:"name"`
	Email     string `dynamodbav:"email,omitempty"`
	Phone     string `dynamodbav:"phone,omitempty"`
	Company   string `dynamodbav:"company,omitempty"`
	AgentID   string `dynamodbav:"agentId,omitempty"`
	Notes     string `dynamodbav:"notes,omitempty"`
	CreatedAt string `dynamodbav:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt,omitempty"`
}

type AgentItem struct {
	PK        string `dynamodbav:"pk"`
	TenantID  string `dynamodbav:"tenantId"`
	AgentID   string `dynamodbav:"agentId"`
	Name      string `dynamodbav:"name"`
	Email     string `dynamodbav:"email,omitempty"`
	Phone     string `dynamodbav:"phone,omitempty"`
	Brokerage string `dynamodbav:"brokerage,omitempty"`
	CreatedAt string `dynamodbav:"createdAt"`
}

type BookingItem struct {
	PK        string   `dynamodbav:"pk"`
	TenantID  string   `dynamodbav:"tenantId"`
	BookingID string   `dynamodbav:"bookingId"`
	ClientID  string   `dynamodbav:"clientId"`
	AgentID   string   `dynamodbav:"agentId,omitempty"`
	Address   string   `dynamodbav:"address"`
	Services  []string `dynamodbav:"services,omitempty"`
	StartsAt  string   `dynamodbav:"startsAt"`
	EndsAt    string   `dynamodbav:"endsAt"`
	Status    string   `dynamodbav:"status"`
	Notes     string   `dynamodbav:"notes,omitempty"`
	CreatedAt string   `dynamodbav:"createdAt"`
}

type AuditEventItem struct {
	EventID      string `dynamodbav:"eventId"`
	Kind         string `dynamodbav:"kind"`
	ActorUserID  string `dynamodbav:"actorUserId"`
	ActorEmail   string `dynamodbav:"actorEmail"`
	TenantID     string `dynamodbav:"tenantId"`
	MembershipID string `dynamodbav:"membershipId"`
	CreatedAt    string `dynamodbav:"createdAt"`
	ExpiresAt    string `dynamodbav:"expiresAt,omitempty"`
	PriorRole    string `dynamodbav:"priorRole,omitempty"`
	PriorStatus  string `dynamodbav:"priorStatus,omitempty"`
}

func TenantScopedPK(tenantID, entityID string) string {
	return fmt.Sprintf("%s#%s", tenantID, entityID)
}

func (m MembershipItem) Scope() string { return m.TenantID }
func (m MembershipItem) Key() string   { return m.UserID }
func (m *MembershipItem) BindTenant(tenantID string) {
	m.TenantID = tenantID
	m.PK = TenantScopedPK(tenantID, m.UserID)
}

func (c ClientItem) Scope() string { return c.TenantID }
func (c ClientItem) Key() string   { return c.ClientID }
func (c *ClientItem) BindTenant(tenantID string) {
	c.TenantID = tenantID
	c.PK = TenantScopedPK(tenantID, c.ClientID)
}

func (a AgentItem) Scope() string { return a.TenantID }
func (a AgentItem) Key() string   { return a.AgentID }
func (a *AgentItem) BindTenant(tenantID string) {
	a.TenantID = tenantID
	a.PK = TenantScopedPK(tenantID, a.AgentID)
}

func (b BookingItem) Scope() string { return b.TenantID }
func (b BookingItem) Key() string   { return b.BookingID }
func (b *BookingItem) BindTenant(tenantID string) {
	b.TenantID = tenantID
	b.PK = TenantScopedPK(tenantID, b.BookingID)
}
