package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/directory"
	"studio-backend/internal/env"
	"studio-backend/internal/identity"
	internaljwt "studio-backend/internal/jwt"
	"studio-backend/internal/mailer"
	"studio-backend/internal/model"
	"studio-backend/internal/scope"
	"studio-backend/internal/verification"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
)

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type capturedMail struct {
	mu   sync.Mutex
	msgs []mailer.Message
}

func (c *capturedMail) Send(ctx context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *capturedMail) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *capturedMail) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		t.Fatal("no mail sent")
	}
	return c.msgs[len(c.msgs)-1].Data["code"]
}

type fixture struct {
	svc   *Service
	repo  *directory.MemoryRepository
	store *scope.MemoryStore
	mail  *capturedMail
	clock *clock
	mr    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := &clock{now: fixedNow()}
	store := scope.NewMemoryStore()
	repo := directory.NewMemoryRepository(store)
	mail := &capturedMail{}

	svc := New(Dependencies{
		Repo:   repo,
		Codes:  verification.NewRedisStore(client, c.Now).WithHashCost(bcrypt.MinCost),
		Tokens: internaljwt.NewIssuer(env.AuthConfig{UserSecret: "user-secret", AdminSecret: "admin-secret"}, client),
		Mail:   mail,
		Now:    c.Now,
	})

	return &fixture{svc: svc, repo: repo, store: store, mail: mail, clock: c, mr: mr}
}

func (f *fixture) addUser(t *testing.T, email, userID string, superAdmin bool) {
	t.Helper()
	err := f.repo.CreateUser(context.Background(), model.UserItem{Email: email, UserID: userID, Name: userID, SuperAdmin: superAdmin})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func (f *fixture) addTenant(t *testing.T, tenantID, name string, owner model.MembershipItem) {
	t.Helper()
	owner.TenantID = tenantID
	owner.Role = string(identity.RoleAdmin)
	owner.Status = model.MembershipStatusActive
	tenant := model.TenantItem{TenantID: tenantID, Slug: tenantID, Name: name}
	if err := f.repo.CreateTenant(context.Background(), tenant, owner); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
}

func (f *fixture) addMembership(t *testing.T, m model.MembershipItem) {
	t.Helper()
	if err := f.repo.CreateMembership(context.Background(), m); err != nil {
		t.Fatalf("create membership: %v", err)
	}
}

func (f *fixture) login(t *testing.T, email, membershipID string) Result {
	t.Helper()
	ctx := context.Background()
	if err := f.svc.RequestCode(ctx, RequestCodeParams{Email: email, MembershipID: membershipID}); err != nil {
		t.Fatalf("request code: %v", err)
	}
	res, err := f.svc.RedeemCode(ctx, RedeemParams{Email: email, MembershipID: membershipID, Code: f.mail.lastCode(t)})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	return res
}

// twoTenantFixture: a@x.com is admin of tenant A and client of tenant B.
func twoTenantFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.addUser(t, "a@x.com", "user-a", false)
	f.addUser(t, "owner@b.test", "user-b", false)
	f.addTenant(t, "tenant-a", "Alpha Studio", model.MembershipItem{UserID: "user-a", MembershipID: "m-a-admin", Email: "a@x.com"})
	f.addTenant(t, "tenant-b", "Bravo Media", model.MembershipItem{UserID: "user-b", MembershipID: "m-b-owner", Email: "owner@b.test"})
	f.addMembership(t, model.MembershipItem{
		TenantID:     "tenant-b",
		UserID:       "user-a",
		MembershipID: "m-b-client",
		Email:        "a@x.com",
		Role:         string(identity.RoleClient),
		ClientID:     "client-b1",
		Status:       model.MembershipStatusActive,
	})
	return f
}

func TestLookupTenantsListsEveryWorkspace(t *testing.T) {
	f := twoTenantFixture(t)

	workspaces, err := f.svc.LookupTenants(context.Background(), LookupParams{Email: " A@X.com "})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(workspaces) != 2 {
		t.Fatalf("expected 2 workspaces, got %d", len(workspaces))
	}
	if workspaces[0].TenantName != "Alpha Studio" || workspaces[0].Role != identity.RoleAdmin {
		t.Fatalf("unexpected first workspace %#v", workspaces[0])
	}
	if workspaces[1].MembershipID != "m-b-client" || workspaces[1].Role != identity.RoleClient {
		t.Fatalf("unexpected second workspace %#v", workspaces[1])
	}
}

func TestSelectingTenantBYieldsClientSessionThatCannotReadTenantA(t *testing.T) {
	f := twoTenantFixture(t)
	ctx := context.Background()

	admin := f.login(t, "a@x.com", "m-a-admin")
	adminScope, err := scope.New(f.store, admin.Session)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	if err := adminScope.Clients().Create(ctx, &model.ClientItem{ClientID: "client-a1", Name: "Alpha client"}); err != nil {
		t.Fatalf("seed client: %v", err)
	}

	res := f.login(t, "a@x.com", "m-b-client")
	if res.Session.TenantID != "tenant-b" || res.Session.Role() != identity.RoleClient {
		t.Fatalf("unexpected session %#v", res.Session)
	}
	if res.Session.ClientID() != "client-b1" {
		t.Fatalf("expected linked client, got %q", res.Session.ClientID())
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("expected tokens")
	}

	parsed, err := f.svc.Authenticate(ctx, res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	clientScope, err := scope.New(f.store, parsed)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	if _, err := clientScope.Clients().Get(ctx, "client-a1"); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("expected tenant A client to be invisible, got %v", err)
	}
	listed, err := clientScope.Clients().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no clients visible, got %d", len(listed))
	}
	if err := clientScope.Guard(ctx, "tenant-a"); !apperror.Is(err, apperror.CodeTenantMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestExpiredCodeIsRejected(t *testing.T) {
	f := twoTenantFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestCode(ctx, RequestCodeParams{Email: "a@x.com", MembershipID: "m-a-admin"}); err != nil {
		t.Fatalf("request: %v", err)
	}
	code := f.mail.lastCode(t)

	f.clock.Advance(11 * time.Minute)
	_, err := f.svc.RedeemCode(ctx, RedeemParams{Email: "a@x.com", MembershipID: "m-a-admin", Code: code})
	if !apperror.Is(err, apperror.CodeInvalidOrExpiredCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if err.Error() != apperror.InvalidCodeMessage {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCodeIsBoundToMembership(t *testing.T) {
	f := twoTenantFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestCode(ctx, RequestCodeParams{Email: "a@x.com", MembershipID: "m-a-admin"}); err != nil {
		t.Fatalf("request: %v", err)
	}
	code := f.mail.lastCode(t)

	_, err := f.svc.RedeemCode(ctx, RedeemParams{Email: "a@x.com", MembershipID: "m-b-client", Code: code})
	if !apperror.Is(err, apperror.CodeInvalidOrExpiredCode) {
		t.Fatalf("expected invalid code against other membership, got %v", err)
	}
}

func TestCodeCannotBeReplayed(t *testing.T) {
	f := twoTenantFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestCode(ctx, RequestCodeParams{Email: "a@x.com", MembershipID: "m-a-admin"}); err != nil {
		t.Fatalf("request: %v", err)
	}
	params := RedeemParams{Email: "a@x.com", MembershipID: "m-a-admin", Code: f.mail.lastCode(t)}

	if _, err := f.svc.RedeemCode(ctx, params); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := f.svc.RedeemCode(ctx, params); !apperror.Is(err, apperror.CodeInvalidOrExpiredCode) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestRequestCodeDoesNotRevealUnknownTargets(t *testing.T) {
	f := twoTenantFixture(t)
	ctx := context.Background()

	targets := []RequestCodeParams{
		{Email: "nobody@x.com", MembershipID: "m-a-admin"},
		{Email: "a@x.com", MembershipID: "missing"},
		{Email: "owner@b.test", MembershipID: "m-a-admin"},
		{Email: "a@x.com", MembershipID: identity.PlatformDiscriminator},
	}
	for _, p := range targets {
		if err := f.svc.RequestCode(ctx, p); err != nil {
			t.Fatalf("%#v: expected silent acknowledgement, got %v", p, err)
		}
	}
	if f.mail.count() != 0 {
		t.Fatalf("expected no mail, got %d", f.mail.count())
	}

	if err := f.svc.RequestCode(ctx, RequestCodeParams{Email: "not-an-email", MembershipID: "m"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequestCodeIsThrottled(t *testing.T) {
	f := twoTenantFixture(t)
	ctx := context.Background()
	params := RequestCodeParams{Email: "a@x.com", MembershipID: "m-a-admin"}

	for i := 0; i < 3; i++ {
		if err := f.svc.RequestCode(ctx, params); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if f.mail.count() != 1 {
		t.Fatalf("expected one mail inside the resend window, got %d", f.mail.count())
	}

	f.mr.FastForward(verification.ResendWindow + time.Second)
	if err := f.svc.RequestCode(ctx, params); err != nil {
		t.Fatalf("request after window: %v", err)
	}
	if f.mail.count() != 2 {
		t.Fatalf("expected a second mail, got %d", f.mail.count())
	}
}

func TestPlatformLogin(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "root@studio.test", "root", true)

	workspaces, err := f.svc.LookupTenants(context.Background(), LookupParams{Email: "root@studio.test"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(workspaces) != 1 || workspaces[0].MembershipID != identity.PlatformDiscriminator {
		t.Fatalf("expected platform entry, got %#v", workspaces)
	}

	res := f.login(t, "root@studio.test", identity.PlatformDiscriminator)
	if !res.Session.IsPlatform() || res.Session.HasTenant() || !res.Session.SuperAdmin {
		t.Fatalf("unexpected platform session %#v", res.Session)
	}
}

func TestInvitedMembershipActivatesOnFirstLogin(t *testing.T) {
	f := twoTenantFixture(t)
	f.addUser(t, "new@x.com", "user-new", false)
	f.addMembership(t, model.MembershipItem{
		TenantID:     "tenant-a",
		UserID:       "user-new",
		MembershipID: "m-a-new",
		Email:        "new@x.com",
		Role:         string(identity.RoleStaff),
		Permissions:  map[string]bool{"manage_bookings": true, "bogus": true},
		Status:       model.MembershipStatusInvited,
	})

	res := f.login(t, "new@x.com", "m-a-new")
	if res.Session.Role() != identity.RoleStaff {
		t.Fatalf("unexpected role %q", res.Session.Role())
	}
	if !res.Session.Permissions["manage_bookings"] || res.Session.Permissions["bogus"] {
		t.Fatalf("unexpected permissions %#v", res.Session.Permissions)
	}

	stored, err := f.repo.GetMembership(context.Background(), "m-a-new")
	if err != nil {
		t.Fatalf("get membership: %v", err)
	}
	if stored.Status != model.MembershipStatusActive {
		t.Fatalf("expected active membership, got %q", stored.Status)
	}
}

func TestDisabledMembershipCannotLogIn(t *testing.T) {
	f := twoTenantFixture(t)
	ctx := context.Background()

	m, err := f.repo.GetMembership(ctx, "m-b-client")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	m.Status = model.MembershipStatusDisabled
	if err := f.repo.SaveMembership(ctx, m); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := f.svc.RequestCode(ctx, RequestCodeParams{Email: "a@x.com", MembershipID: "m-b-client"}); err != nil {
		t.Fatalf("request: %v", err)
	}
	if f.mail.count() != 0 {
		t.Fatal("disabled membership should not receive a code")
	}

	workspaces, err := f.svc.LookupTenants(ctx, LookupParams{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(workspaces) != 1 || workspaces[0].TenantID != "tenant-a" {
		t.Fatalf("disabled membership should be hidden, got %#v", workspaces)
	}
}

func TestRefreshReResolvesMembership(t *testing.T) {
	f := twoTenantFixture(t)
	ctx := context.Background()

	res := f.login(t, "a@x.com", "m-b-client")

	refreshed, err := f.svc.Refresh(ctx, res.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.Session.TenantID != "tenant-b" || refreshed.Tokens.RefreshToken == res.Tokens.RefreshToken {
		t.Fatalf("unexpected refresh result %#v", refreshed)
	}
	if _, err := f.svc.Refresh(ctx, res.Tokens.RefreshToken); !apperror.Is(err, apperror.CodeUnauthorized) {
		t.Fatalf("expected rotated token to fail, got %v", err)
	}

	if err := f.repo.SoftDeleteTenant(ctx, "tenant-b", fixedNow().Format(time.RFC3339)); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, refreshed.Tokens.RefreshToken); !apperror.Is(err, apperror.CodeUnauthorized) {
		t.Fatalf("expected closed workspace to stop refresh, got %v", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := twoTenantFixture(t)
	ctx := context.Background()

	res := f.login(t, "a@x.com", "m-a-admin")
	if err := f.svc.Logout(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, res.Tokens.RefreshToken); !apperror.Is(err, apperror.CodeUnauthorized) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Authenticate(context.Background(), "garbage1"); !apperror.Is(err, apperror.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.svc.Authenticate(context.Background(), ""); !apperror.Is(err, apperror.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
