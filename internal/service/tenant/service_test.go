package tenant

import (
	"context"
	"testing"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/directory"
	"studio-backend/internal/identity"
	"studio-backend/internal/scope"
)

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func newTestService() (*Service, *directory.MemoryRepository) {
	repo := directory.NewMemoryRepository(scope.NewMemoryStore())
	return New(repo, fixedNow), repo
}

func signup(t *testing.T, svc *Service, name, email string) SignupResult {
	t.Helper()
	res, err := svc.Signup(context.Background(), SignupParams{Name: name, OwnerEmail: email, OwnerName: "Owner"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return res
}

func adminSession(res SignupResult) *identity.Session {
	return &identity.Session{
		UserID:       res.Membership.UserID,
		Email:        res.Membership.Email,
		MembershipID: res.Membership.MembershipID,
		TenantID:     res.Tenant.TenantID,
		Principal:    identity.TenantAdmin{},
	}
}

func TestSignupCreatesTenantAndOwner(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	res := signup(t, svc, "Lakeside Media", " Owner@Lakeside.test ")
	if res.Tenant.Slug != "lakeside-media" {
		t.Fatalf("unexpected slug %q", res.Tenant.Slug)
	}
	if res.Membership.Role != string(identity.RoleAdmin) || res.Membership.Email != "owner@lakeside.test" {
		t.Fatalf("unexpected owner membership %#v", res.Membership)
	}

	stored, err := repo.GetMembership(ctx, res.Membership.MembershipID)
	if err != nil {
		t.Fatalf("membership not stored: %v", err)
	}
	if stored.TenantID != res.Tenant.TenantID {
		t.Fatalf("membership bound to wrong tenant")
	}

	byslug, err := repo.GetTenantBySlug(ctx, "lakeside-media")
	if err != nil || byslug.TenantID != res.Tenant.TenantID {
		t.Fatalf("slug lookup failed: %v", err)
	}
}

func TestSignupReusesUserAndRejectsTakenSlug(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := signup(t, svc, "Lakeside Media", "owner@lakeside.test")
	second, err := svc.Signup(ctx, SignupParams{Name: "Second Studio", Slug: "second", OwnerEmail: "owner@lakeside.test", OwnerName: "Owner"})
	if err != nil {
		t.Fatalf("second signup: %v", err)
	}
	if second.Membership.UserID != first.Membership.UserID {
		t.Fatal("one email should map to one user across workspaces")
	}

	_, err = svc.Signup(ctx, SignupParams{Name: "Lakeside Media", OwnerEmail: "x@y.test", OwnerName: "X"})
	if !apperror.Is(err, apperror.CodeConflict) {
		t.Fatalf("expected slug conflict, got %v", err)
	}

	_, err = svc.Signup(ctx, SignupParams{Name: "Bad", Slug: "Not A Slug", OwnerEmail: "x@y.test", OwnerName: "X"})
	if !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateBranding(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	res := signup(t, svc, "Lakeside Media", "owner@lakeside.test")

	branding, err := svc.UpdateBranding(ctx, adminSession(res), BrandingInput{PrimaryColor: "#abc", LogoURL: "https://cdn.test/logo.png"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if branding.PrimaryColor != "#ABC" || branding.AccentColor != DefaultAccentColor || branding.DisplayName != "Lakeside Media" {
		t.Fatalf("unexpected branding %#v", branding)
	}

	if _, err := svc.UpdateBranding(ctx, adminSession(res), BrandingInput{AccentColor: "orange"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	staff := adminSession(res)
	staff.Principal = identity.Staff{}
	if _, err := svc.UpdateBranding(ctx, staff, BrandingInput{}); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestUpdateIntegrationHidesTokens(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	res := signup(t, svc, "Lakeside Media", "owner@lakeside.test")

	status, err := svc.UpdateIntegration(ctx, adminSession(res), "Dropbox", IntegrationInput{AccountID: "dbx-1", AccessToken: "secret"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !status.Connected || status.AccountID != "dbx-1" {
		t.Fatalf("unexpected status %#v", status)
	}

	tenant, err := repo.GetTenant(ctx, res.Tenant.TenantID)
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if tenant.Integrations[ProviderDropbox].AccessToken != "secret" {
		t.Fatal("token should be stored")
	}
	statuses := IntegrationStatuses(tenant)
	if len(statuses) != 2 || statuses[0].Provider != ProviderDropbox || statuses[1].Connected {
		t.Fatalf("unexpected statuses %#v", statuses)
	}

	if _, err := svc.UpdateIntegration(ctx, adminSession(res), "ftp", IntegrationInput{AccessToken: "x"}); !apperror.Is(err, apperror.CodeValidation) {
		t.Fatalf("expected unsupported provider, got %v", err)
	}
}

func TestCloseSoftDeletes(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	res := signup(t, svc, "Lakeside Media", "owner@lakeside.test")

	editor := adminSession(res)
	editor.Principal = identity.Editor{}
	if err := svc.Close(ctx, editor); !apperror.Is(err, apperror.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}

	if err := svc.Close(ctx, adminSession(res)); err != nil {
		t.Fatalf("close: %v", err)
	}
	tenant, err := repo.GetTenant(ctx, res.Tenant.TenantID)
	if err != nil {
		t.Fatalf("tenant row should remain: %v", err)
	}
	if !tenant.Deleted || tenant.DeletedAt == "" {
		t.Fatalf("expected soft delete, got %#v", tenant)
	}

	if _, err := svc.Get(ctx, adminSession(res)); !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("closed workspace should be hidden, got %v", err)
	}
}
