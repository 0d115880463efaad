package workspace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/directory"
	"studio-backend/internal/identity"
	"studio-backend/internal/mailer"
	"studio-backend/internal/model"
	"studio-backend/internal/scope"
)

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

type capturedMail struct {
	mu   sync.Mutex
	msgs []mailer.Message
	err  error
}

func (c *capturedMail) Send(ctx context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

type fixture struct {
	svc   *Service
	repo  *directory.MemoryRepository
	store *scope.MemoryStore
	mail  *capturedMail
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := scope.NewMemoryStore()
	repo := directory.NewMemoryRepository(store)
	mail := &capturedMail{}

	ctx := context.Background()
	for _, tenantID := range []string{"tenant-a", "tenant-b"} {
		owner := model.MembershipItem{
			TenantID:     tenantID,
			UserID:       "owner-" + tenantID,
			MembershipID: "m-owner-" + tenantID,
			Email:        "owner@" + tenantID + ".test",
			Role:         string(identity.RoleAdmin),
			Status:       model.MembershipStatusActive,
			CreatedAt:    "2024-01-01T00:00:00Z",
		}
		tenant := model.TenantItem{TenantID: tenantID, Slug: tenantID, Name: "Studio " + tenantID}
		if err := repo.CreateTenant(ctx, tenant, owner); err != nil {
			t.Fatalf("seed tenant: %v", err)
		}
	}

	svc := New(Dependencies{Store: store, Repo: repo, Mail: mail, Now: fixedNow})
	return &fixture{svc: svc, repo: repo, store: store, mail: mail}
}

func admin(tenantID string) *identity.Session {
	return &identity.Session{
		UserID:       "owner-" + tenantID,
		Email:        "owner@" + tenantID + ".test",
		MembershipID: "m-owner-" + tenantID,
		TenantID:     tenantID,
		Principal:    identity.TenantAdmin{},
	}
}

func member(tenantID string, p identity.Principal, flags ...string) *identity.Session {
	perms := make(map[string]bool, len(flags))
	for _, f := range flags {
		perms[f] = true
	}
	return &identity.Session{
		UserID:       "user-" + string(p.Role()),
		MembershipID: "m-" + string(p.Role()),
		TenantID:     tenantID,
		Principal:    p,
		Permissions:  perms,
	}
}

func (f *fixture) seedClients(t *testing.T) (agent *model.AgentItem, linked, other *model.ClientItem) {
	t.Helper()
	ctx := context.Background()
	sess := admin("tenant-a")

	agent, err := f.svc.CreateAgent(ctx, sess, AgentInput{Name: "Avery Agent", Email: "avery@realty.test"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	linked, err = f.svc.CreateClient(ctx, sess, ClientInput{Name: "Blake", AgentID: agent.AgentID})
	if err != nil {
		t.Fatalf("create linked client: %v", err)
	}
	other, err = f.svc.CreateClient(ctx, sess, ClientInput{Name: "Casey"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return agent, linked, other
}

func TestClientVisibilityFollowsPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent, linked, other := f.seedClients(t)

	all, err := f.svc.ListClients(ctx, admin("tenant-a"))
	if err != nil || len(all) != 2 || all[0].Name != "Blake" {
		t.Fatalf("admin should see both clients, got %v (%v)", all, err)
	}

	asAgent, err := f.svc.ListClients(ctx, member("tenant-a", identity.Agent{AgentID: agent.AgentID}))
	if err != nil || len(asAgent) != 1 || asAgent[0].ClientID != linked.ClientID {
		t.Fatalf("agent should see only linked clients, got %v (%v)", asAgent, err)
	}

	client := member("tenant-a", identity.Client{ClientID: other.ClientID})
	asClient, err := f.svc.ListClients(ctx, client)
	if err != nil || len(asClient) != 1 || asClient[0].ClientID != other.ClientID {
		t.Fatalf("client should see itself, got %v (%v)", asClient, err)
	}
	if _, err := f.svc.GetClient(ctx, client, linked.ClientID); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("client should not see another client, got %v", err)
	}

	if _, err := f.svc.ListClients(ctx, member("tenant-a", identity.Staff{})); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("staff without flags should be denied, got %v", err)
	}
	staff, err := f.svc.ListClients(ctx, member("tenant-a", identity.Staff{}, "view_all_clients"))
	if err != nil || len(staff) != 2 {
		t.Fatalf("flagged staff should see all, got %v (%v)", staff, err)
	}
}

func TestClientsAreInvisibleAcrossTenants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, linked, _ := f.seedClients(t)

	list, err := f.svc.ListClients(ctx, admin("tenant-b"))
	if err != nil || len(list) != 0 {
		t.Fatalf("tenant-b should see no clients, got %v (%v)", list, err)
	}
	if _, err := f.svc.GetClient(ctx, admin("tenant-b"), linked.ClientID); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
	if err := f.svc.DeleteClient(ctx, admin("tenant-b"), linked.ClientID); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("expected not found on cross-tenant delete, got %v", err)
	}
	if _, err := f.svc.GetClient(ctx, admin("tenant-a"), linked.ClientID); err != nil {
		t.Fatalf("client should survive: %v", err)
	}
}

func TestPayloadTenantMustMatchSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateClient(ctx, admin("tenant-a"), ClientInput{TenantID: "tenant-b", Name: "Intruder"})
	if !apperror.Is(err, apperror.CodeTenantMismatch) {
		t.Fatalf("expected tenant mismatch, got %v", err)
	}
	if rows := f.store.Items(model.ClientsTable); len(rows) != 0 {
		t.Fatalf("nothing should be written, got %d rows", len(rows))
	}

	if _, err := f.svc.CreateClient(ctx, admin("tenant-a"), ClientInput{TenantID: "tenant-a", Name: "Own"}); err != nil {
		t.Fatalf("own tenant id should pass: %v", err)
	}
}

func TestClientMutationsNeedCapability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, linked, _ := f.seedClients(t)

	editor := member("tenant-a", identity.Editor{})
	if _, err := f.svc.CreateClient(ctx, editor, ClientInput{Name: "X"}); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}

	if _, err := f.svc.UpdateClient(ctx, member("tenant-a", identity.Staff{}, "manage_clients"), linked.ClientID, ClientInput{Name: "Blind"}); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("staff that cannot see clients should not edit them, got %v", err)
	}

	staff := member("tenant-a", identity.Staff{}, "manage_clients", "view_all_clients")
	updated, err := f.svc.UpdateClient(ctx, staff, linked.ClientID, ClientInput{Name: "Blake Updated", Email: "BLAKE@x.test"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "blake@x.test" || updated.AgentID != "" || updated.UpdatedAt == "" {
		t.Fatalf("unexpected update %#v", updated)
	}

	if _, err := f.svc.CreateClient(ctx, staff, ClientInput{Name: "Y", AgentID: "ghost"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("unknown agent should be rejected, got %v", err)
	}
	if _, err := f.svc.CreateClient(ctx, staff, ClientInput{Name: "Z", Email: "nope"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("bad email should be rejected, got %v", err)
	}
}

func TestRestrictedMutationsStayWithinVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent, linked, other := f.seedClients(t)
	agentSess := member("tenant-a", identity.Agent{AgentID: agent.AgentID}, "manage_clients", "manage_bookings")

	if _, err := f.svc.UpdateClient(ctx, agentSess, other.ClientID, ClientInput{Name: "Renamed", AgentID: agent.AgentID}); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("hidden client should not be updatable, got %v", err)
	}
	if err := f.svc.DeleteClient(ctx, agentSess, other.ClientID); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("hidden client should not be deletable, got %v", err)
	}
	got, err := f.svc.GetClient(ctx, admin("tenant-a"), other.ClientID)
	if err != nil || got.Name != "Casey" || got.AgentID != "" {
		t.Fatalf("hidden client should be untouched, got %#v (%v)", got, err)
	}

	window := BookingInput{Address: "3 Bay Rd", StartsAt: "2024-03-01T10:00:00Z", EndsAt: "2024-03-01T11:00:00Z"}
	hidden := window
	hidden.ClientID = other.ClientID
	if _, err := f.svc.CreateBooking(ctx, agentSess, hidden); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("hidden client should not be bookable, got %v", err)
	}
	adminBooking, err := f.svc.CreateBooking(ctx, admin("tenant-a"), hidden)
	if err != nil {
		t.Fatalf("admin booking: %v", err)
	}
	if err := f.svc.DeleteBooking(ctx, agentSess, adminBooking.BookingID); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("hidden booking should not be deletable, got %v", err)
	}

	own := window
	own.ClientID = linked.ClientID
	booking, err := f.svc.CreateBooking(ctx, agentSess, own)
	if err != nil {
		t.Fatalf("agent should book its own client: %v", err)
	}
	if err := f.svc.DeleteBooking(ctx, agentSess, booking.BookingID); err != nil {
		t.Fatalf("agent should delete its own booking: %v", err)
	}

	if _, err := f.svc.UpdateClient(ctx, agentSess, linked.ClientID, ClientInput{Name: "Blake", AgentID: "someone-else"}); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("agent should not hand a client to another agent, got %v", err)
	}
	kept, err := f.svc.UpdateClient(ctx, agentSess, linked.ClientID, ClientInput{Name: "Blake B"})
	if err != nil || kept.AgentID != agent.AgentID {
		t.Fatalf("agent link should survive an edit, got %#v (%v)", kept, err)
	}
	created, err := f.svc.CreateClient(ctx, agentSess, ClientInput{Name: "Drew"})
	if err != nil || created.AgentID != agent.AgentID {
		t.Fatalf("agent-created client should be linked to the agent, got %#v (%v)", created, err)
	}

	clientSess := member("tenant-a", identity.Client{ClientID: linked.ClientID}, "manage_clients")
	if _, err := f.svc.CreateClient(ctx, clientSess, ClientInput{Name: "Eli"}); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("client principal should not create other clients, got %v", err)
	}
}

func TestBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent, linked, other := f.seedClients(t)
	sess := admin("tenant-a")

	booking, err := f.svc.CreateBooking(ctx, sess, BookingInput{
		ClientID: linked.ClientID,
		Address:  "1 Lake Rd",
		Services: []string{"photos", "drone"},
		StartsAt: "2024-02-01T10:00:00+02:00",
		EndsAt:   "2024-02-01T11:00:00+02:00",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if booking.AgentID != agent.AgentID || booking.Status != BookingStatusScheduled || booking.StartsAt != "2024-02-01T08:00:00Z" {
		t.Fatalf("unexpected booking %#v", booking)
	}

	if _, err := f.svc.CreateBooking(ctx, sess, BookingInput{ClientID: other.ClientID, Address: "2 Hill St", StartsAt: "2024-02-01T10:00:00Z", EndsAt: "2024-02-01T09:00:00Z"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("end before start should fail, got %v", err)
	}
	if _, err := f.svc.CreateBooking(ctx, admin("tenant-b"), BookingInput{ClientID: linked.ClientID, Address: "x", StartsAt: "2024-02-01T10:00:00Z", EndsAt: "2024-02-01T11:00:00Z"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("foreign client should not be bookable, got %v", err)
	}

	asAgent, err := f.svc.ListBookings(ctx, member("tenant-a", identity.Agent{AgentID: agent.AgentID}))
	if err != nil || len(asAgent) != 1 {
		t.Fatalf("agent should see its client's booking, got %v (%v)", asAgent, err)
	}
	asOther, err := f.svc.ListBookings(ctx, member("tenant-a", identity.Client{ClientID: other.ClientID}))
	if err != nil || len(asOther) != 0 {
		t.Fatalf("other client should see nothing, got %v (%v)", asOther, err)
	}

	if err := f.svc.DeleteClient(ctx, sess, linked.ClientID); !apperror.Is(err, apperror.CodeConflict) {
		t.Fatalf("client with bookings should not be deleted, got %v", err)
	}
	if err := f.svc.DeleteBooking(ctx, sess, booking.BookingID); err != nil {
		t.Fatalf("delete booking: %v", err)
	}
	if err := f.svc.DeleteClient(ctx, sess, linked.ClientID); err != nil {
		t.Fatalf("delete client: %v", err)
	}
}

func TestListAgents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent, _, other := f.seedClients(t)

	self, err := f.svc.ListAgents(ctx, member("tenant-a", identity.Agent{AgentID: agent.AgentID}))
	if err != nil || len(self) != 1 {
		t.Fatalf("agent should see itself, got %v (%v)", self, err)
	}
	if _, err := f.svc.ListAgents(ctx, member("tenant-a", identity.Client{ClientID: other.ClientID})); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("client should not list agents, got %v", err)
	}
}

func TestInviteCreatesInvitedMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, linked, _ := f.seedClients(t)

	m, err := f.svc.Invite(ctx, admin("tenant-a"), InviteParams{
		Email:       " Blake@Client.test ",
		Role:        "client",
		ClientID:    linked.ClientID,
		Permissions: map[string]bool{"view_invoices": true, "launch_rockets": true},
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if m.Status != model.MembershipStatusInvited || m.TenantID != "tenant-a" || m.ClientID != linked.ClientID {
		t.Fatalf("unexpected membership %#v", m)
	}
	if len(m.Permissions) != 1 || !m.Permissions["view_invoices"] {
		t.Fatalf("unknown flags should be dropped, got %v", m.Permissions)
	}

	stored, err := f.repo.GetMembership(ctx, m.MembershipID)
	if err != nil || stored.Email != "blake@client.test" {
		t.Fatalf("membership should be visible to login, got %#v (%v)", stored, err)
	}
	if len(f.mail.msgs) != 1 || f.mail.msgs[0].Template != mailer.TemplateInvite {
		t.Fatalf("expected one invite mail, got %v", f.mail.msgs)
	}

	_, err = f.svc.Invite(ctx, admin("tenant-a"), InviteParams{Email: "blake@client.test", Role: "staff"})
	if !apperror.Is(err, apperror.CodeConflict) {
		t.Fatalf("second invite should conflict, got %v", err)
	}

	if _, err := f.svc.Invite(ctx, admin("tenant-a"), InviteParams{Email: "c@x.test", Role: "client"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("client invite without record should fail, got %v", err)
	}
	if _, err := f.svc.Invite(ctx, admin("tenant-a"), InviteParams{Email: "c@x.test", Role: "owner"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("unknown role should fail, got %v", err)
	}
}

func TestInviteMailFailureStillCreatesMembership(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")

	m, err := f.svc.Invite(context.Background(), admin("tenant-a"), InviteParams{Email: "s@x.test", Role: "staff"})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := f.repo.GetMembership(context.Background(), m.MembershipID); err != nil {
		t.Fatalf("membership should exist: %v", err)
	}
}

func TestOnlyAdminsGrantAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := member("tenant-a", identity.Staff{}, "manage_team")

	if _, err := f.svc.Invite(ctx, manager, InviteParams{Email: "boss@x.test", Role: "admin"}); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("staff should not grant admin, got %v", err)
	}
	staff, err := f.svc.Invite(ctx, manager, InviteParams{Email: "s@x.test", Role: "staff"})
	if err != nil {
		t.Fatalf("staff invite: %v", err)
	}
	if _, err := f.svc.UpdateMember(ctx, manager, staff.MembershipID, MemberUpdate{Role: "admin"}); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("staff should not promote to admin, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, manager, "m-owner-tenant-a"); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("staff should not remove an admin, got %v", err)
	}

	promoted, err := f.svc.UpdateMember(ctx, admin("tenant-a"), staff.MembershipID, MemberUpdate{Role: "admin"})
	if err != nil || promoted.Role != "admin" {
		t.Fatalf("admin should promote, got %#v (%v)", promoted, err)
	}
}

func TestUpdateAndRemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := admin("tenant-a")

	staff, err := f.svc.Invite(ctx, sess, InviteParams{Email: "s@x.test", Role: "staff"})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	if _, err := f.svc.UpdateMember(ctx, sess, sess.MembershipID, MemberUpdate{Status: "disabled"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("self status change should fail, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, sess, sess.MembershipID); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("self removal should fail, got %v", err)
	}

	updated, err := f.svc.UpdateMember(ctx, sess, staff.MembershipID, MemberUpdate{
		Status:      "disabled",
		Permissions: map[string]bool{"manage_bookings": true},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.MembershipStatusDisabled || !updated.Permissions["manage_bookings"] {
		t.Fatalf("unexpected member %#v", updated)
	}

	if _, err := f.svc.UpdateMember(ctx, admin("tenant-b"), staff.MembershipID, MemberUpdate{Status: "active"}); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("other tenant should not find the member, got %v", err)
	}

	if err := f.svc.RemoveMember(ctx, sess, staff.MembershipID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := f.repo.GetMembership(ctx, staff.MembershipID); !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("membership should be gone, got %v", err)
	}

	team, err := f.svc.ListTeam(ctx, sess)
	if err != nil || len(team) != 1 {
		t.Fatalf("only the owner should remain, got %v (%v)", team, err)
	}
	if _, err := f.svc.ListTeam(ctx, member("tenant-a", identity.Client{ClientID: "c"})); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("client should not list team, got %v", err)
	}
}
