// Package permission is the single capability check consulted before any
// tenant mutation.
//
// Resolution order: a tenant admin holds every known capability; any other
// role holds exactly the capabilities flagged true on its membership. Flags
// only add. Unknown capability names are denied for every role, and sessions
// without a tenant (platform sessions included) hold nothing.
package permission

import (
	"sort"

	"studio-backend/internal/apperror"
	"studio-backend/internal/identity"
	"studio-backend/internal/metrics"
)

type Capability string

const (
	ManageTeam         Capability = "manage_team"
	ManageClients      Capability = "manage_clients"
	ViewAllClients     Capability = "view_all_clients"
	ManageBookings     Capability = "manage_bookings"
	ViewInvoices       Capability = "view_invoices"
	ManageInvoices     Capability = "manage_invoices"
	ManageGalleries    Capability = "manage_galleries"
	ManageSettings     Capability = "manage_settings"
	ManageIntegrations Capability = "manage_integrations"
	CloseWorkspace     Capability = "close_workspace"
)

var known = map[Capability]bool{
	ManageTeam:         true,
	ManageClients:      true,
	ViewAllClients:     true,
	ManageBookings:     true,
	ViewInvoices:       true,
	ManageInvoices:     true,
	ManageGalleries:    true,
	ManageSettings:     true,
	ManageIntegrations: true,
	CloseWorkspace:     true,
}

func IsKnown(c Capability) bool {
	return known[c]
}

// All returns the known capabilities in a stable order.
func All() []Capability {
	out := make([]Capability, 0, len(known))
	for c := range known {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func CanPerform(s *identity.Session, c Capability) bool {
	if !known[c] || !s.HasTenant() {
		return false
	}

	switch s.Principal.(type) {
	case identity.TenantAdmin:
		return true
	case identity.Staff, identity.Editor, identity.Agent, identity.Client:
		return s.Permissions[string(c)]
	default:
		return false
	}
}

func Require(s *identity.Session, c Capability) error {
	if !s.HasTenant() {
		return apperror.Unauthorized("tenant session required")
	}
	if !CanPerform(s, c) {
		metrics.RecordPermissionDenied(string(c))
		return apperror.PermissionDenied("missing capability: " + string(c))
	}
	return nil
}

// Sanitize drops unknown capability names and false flags from a requested
// permission set before it is stored.
func Sanitize(flags map[string]bool) map[string]bool {
	out := make(map[string]bool, len(flags))
	for name, on := range flags {
		if on && known[Capability(name)] {
			out[name] = true
		}
	}
	return out
}

// Effective lists the capabilities the session holds, for display.
func Effective(s *identity.Session) []Capability {
	var out []Capability
	for _, c := range All() {
		if CanPerform(s, c) {
			out = append(out, c)
		}
	}
	return out
}
