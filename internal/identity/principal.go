package identity

import "fmt"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
	RoleEditor Role = "editor"
	// RolePlatform is never stored on a membership; it marks super-admin sessions.
	RolePlatform Role = "platform"
)

// MembershipRoles lists the roles a membership may carry.
var MembershipRoles = []Role{RoleAdmin, RoleStaff, RoleAgent, RoleClient, RoleEditor}

func (r Role) Valid() bool {
	for _, known := range MembershipRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Principal is the closed set of things a session can act as. Only the
// variants in this file implement it.
type Principal interface {
	Role() Role
	principal()
}

type TenantAdmin struct{}

type Staff struct{}

type Editor struct{}

type Agent struct {
	AgentID string
}

type Client struct {
	ClientID string
}

type PlatformAdmin struct{}

func (TenantAdmin) Role() Role   { return RoleAdmin }
func (Staff) Role() Role         { return RoleStaff }
func (Editor) Role() Role        { return RoleEditor }
func (Agent) Role() Role         { return RoleAgent }
func (Client) Role() Role        { return RoleClient }
func (PlatformAdmin) Role() Role { return RolePlatform }

func (TenantAdmin) principal()   {}
func (Staff) principal()         {}
func (Editor) principal()        {}
func (Agent) principal()         {}
func (Client) principal()        {}
func (PlatformAdmin) principal() {}

// NewPrincipal builds the variant for a stored membership role. Agent and
// client memberships must name the record they represent.
func NewPrincipal(role Role, clientID, agentID string) (Principal, error) {
	switch role {
	case RoleAdmin:
		return TenantAdmin{}, nil
	case RoleStaff:
		return Staff{}, nil
	case RoleEditor:
		return Editor{}, nil
	case RoleAgent:
		if agentID == "" {
			return nil, fmt.Errorf("identity: agent membership without agent id")
		}
		return Agent{AgentID: agentID}, nil
	case RoleClient:
		if clientID == "" {
			return nil, fmt.Errorf("identity: client membership without client id")
		}
		return Client{ClientID: clientID}, nil
	case RolePlatform:
		return PlatformAdmin{}, nil
	default:
		return nil, fmt.Errorf("identity: unknown role %q", role)
	}
}
