package impersonation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/audit"
	"studio-backend/internal/directory"
	"studio-backend/internal/env"
	"studio-backend/internal/identity"
	internaljwt "studio-backend/internal/jwt"
	"studio-backend/internal/model"
	"studio-backend/internal/scope"
	"studio-backend/internal/service/session"
	"studio-backend/internal/verification"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
)

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

type fixture struct {
	svc      *Service
	sessions *session.Service
	repo     *directory.MemoryRepository
	sink     *audit.MemorySink
	clock    *clock
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	repo := directory.NewMemoryRepository(scope.NewMemoryStore())
	codes := verification.NewRedisStore(client, c.Now).WithHashCost(bcrypt.MinCost)
	sink := &audit.MemorySink{}

	f := &fixture{
		svc: New(Dependencies{Repo: repo, Codes: codes, Sink: sink, Reader: sink, Now: c.Now}),
		sessions: session.New(session.Dependencies{
			Repo:   repo,
			Codes:  codes,
			Tokens: internaljwt.NewIssuer(env.AuthConfig{UserSecret: "user-secret", AdminSecret: "admin-secret"}, client),
			Now:    c.Now,
		}),
		repo:  repo,
		sink:  sink,
		clock: c,
		mr:    mr,
	}

	ctx := context.Background()
	for _, u := range []model.UserItem{
		{Email: "root@studio.test", UserID: "root", SuperAdmin: true},
		{Email: "owner@c.test", UserID: "owner-c"},
	} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	err := repo.CreateTenant(ctx,
		model.TenantItem{TenantID: "tenant-c", Slug: "charlie", Name: "Charlie Photo"},
		model.MembershipItem{TenantID: "tenant-c", UserID: "owner-c", MembershipID: "m-c-owner", Email: "owner@c.test", Role: "admin", Status: model.MembershipStatusActive},
	)
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return f
}

func platformSession() *identity.Session {
	return &identity.Session{UserID: "root", Email: "root@studio.test", Principal: identity.PlatformAdmin{}, SuperAdmin: true}
}

func TestImpersonationCodeRedeemsThroughSessionResolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Impersonate(ctx, platformSession(), "tenant-c")
	if err != nil {
		t.Fatalf("impersonate: %v", err)
	}
	if res.TenantID != "tenant-c" || res.MembershipID == "" || len(res.Code) != 6 {
		t.Fatalf("unexpected result %#v", res)
	}
	if !res.ExpiresAt.Equal(f.clock.Now().Add(60 * time.Second)) {
		t.Fatalf("expected 60 second expiry, got %v", res.ExpiresAt)
	}

	events := f.sink.Events()
	if len(events) != 1 || events[0].ActorUserID != "root" || events[0].TenantID != "tenant-c" || events[0].MembershipID != res.MembershipID {
		t.Fatalf("unexpected audit trail %#v", events)
	}

	_, err = f.sessions.RedeemCode(ctx, session.RedeemParams{Email: "root@studio.test", MembershipID: identity.PlatformDiscriminator, Code: res.Code})
	if !apperror.Is(err, apperror.CodeInvalidOrExpiredCode) {
		t.Fatalf("code must not redeem against the platform discriminator, got %v", err)
	}
	_, err = f.sessions.RedeemCode(ctx, session.RedeemParams{Email: "root@studio.test", MembershipID: "m-c-owner", Code: res.Code})
	if !apperror.Is(err, apperror.CodeInvalidOrExpiredCode) {
		t.Fatalf("code must not redeem against another membership, got %v", err)
	}

	redeemed, err := f.sessions.RedeemCode(ctx, session.RedeemParams{Email: "root@studio.test", MembershipID: res.MembershipID, Code: res.Code})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeemed.Session.TenantID != "tenant-c" || redeemed.Session.Role() != identity.RoleAdmin {
		t.Fatalf("unexpected session %#v", redeemed.Session)
	}
	if redeemed.Session.ImpersonatedBy != "root" {
		t.Fatalf("session should be attributable, got %q", redeemed.Session.ImpersonatedBy)
	}

	if _, err := f.sessions.RedeemCode(ctx, session.RedeemParams{Email: "root@studio.test", MembershipID: res.MembershipID, Code: res.Code}); !apperror.Is(err, apperror.CodeInvalidOrExpiredCode) {
		t.Fatalf("expected single use, got %v", err)
	}
}

func TestImpersonationCodeExpiresAfterSixtySeconds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Impersonate(ctx, platformSession(), "tenant-c")
	if err != nil {
		t.Fatalf("impersonate: %v", err)
	}

	f.clock.Advance(61 * time.Second)
	_, err = f.sessions.RedeemCode(ctx, session.RedeemParams{Email: "root@studio.test", MembershipID: res.MembershipID, Code: res.Code})
	if !apperror.Is(err, apperror.CodeInvalidOrExpiredCode) {
		t.Fatalf("expected expired code, got %v", err)
	}
}

func TestImpersonationRequiresPlatformAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tenantAdmin := &identity.Session{UserID: "owner-c", Email: "owner@c.test", TenantID: "tenant-c", MembershipID: "m-c-owner", Principal: identity.TenantAdmin{}}
	if _, err := f.svc.Impersonate(ctx, tenantAdmin, "tenant-c"); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}

	forged := &identity.Session{UserID: "owner-c", Email: "owner@c.test", Principal: identity.PlatformAdmin{}, SuperAdmin: true}
	if _, err := f.svc.Impersonate(ctx, forged, "tenant-c"); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("stored flag must be checked, got %v", err)
	}

	if _, err := f.svc.Impersonate(ctx, nil, "tenant-c"); !apperror.Is(err, apperror.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.svc.Impersonate(ctx, platformSession(), "missing"); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.sink.Events()) != 0 {
		t.Fatal("rejected requests must not be audited")
	}
}

func TestExistingMembershipIsRaisedToAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.repo.CreateMembership(ctx, model.MembershipItem{
		TenantID:     "tenant-c",
		UserID:       "root",
		MembershipID: "m-c-root",
		Email:        "root@studio.test",
		Role:         string(identity.RoleClient),
		ClientID:     "client-1",
		Status:       model.MembershipStatusDisabled,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := f.svc.Impersonate(ctx, platformSession(), "tenant-c")
	if err != nil {
		t.Fatalf("impersonate: %v", err)
	}
	if res.MembershipID != "m-c-root" {
		t.Fatalf("expected existing membership to be reused, got %q", res.MembershipID)
	}

	m, err := f.repo.GetMembership(ctx, "m-c-root")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Role != string(identity.RoleAdmin) || m.Status != model.MembershipStatusActive || m.ClientID != "" {
		t.Fatalf("membership not raised: %#v", m)
	}

	events := f.sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(events))
	}
	if events[0].PriorRole != string(identity.RoleClient) || events[0].PriorStatus != model.MembershipStatusDisabled {
		t.Fatalf("raise not recorded in audit event: %#v", events[0])
	}

	// Already an active admin now, so a second impersonation changes nothing.
	if _, err := f.svc.Impersonate(ctx, platformSession(), "tenant-c"); err != nil {
		t.Fatalf("second impersonate: %v", err)
	}
	if again := f.sink.Events(); len(again) != 2 || again[1].PriorRole != "" || again[1].PriorStatus != "" {
		t.Fatalf("unchanged membership should not record a prior role: %#v", again)
	}
}

func TestAuditFailureRevokesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sink.Err = errors.New("audit store down")
	if _, err := f.svc.Impersonate(ctx, platformSession(), "tenant-c"); !apperror.Is(err, apperror.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}

	m, err := f.repo.GetMembershipForUser(ctx, "tenant-c", "root")
	if err != nil {
		t.Fatalf("membership should exist: %v", err)
	}
	if f.mr.Exists("verify:" + verification.Identifier("root@studio.test", m.MembershipID)) {
		t.Fatal("code should be revoked when the audit write fails")
	}
	f.sink.Err = nil

	res, err := f.svc.Impersonate(ctx, platformSession(), "tenant-c")
	if err != nil {
		t.Fatalf("impersonate: %v", err)
	}
	if res.MembershipID != m.MembershipID {
		t.Fatalf("expected the same membership to be reused")
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Impersonate(ctx, platformSession(), "tenant-c"); err != nil {
			t.Fatalf("impersonate: %v", err)
		}
		f.clock.Advance(time.Minute)
	}

	events, err := f.svc.History(ctx, platformSession(), 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 2 || !events[0].CreatedAt.After(events[1].CreatedAt) {
		t.Fatalf("unexpected history %#v", events)
	}
}
