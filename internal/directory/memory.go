package directory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"studio-backend/internal/model"
	"studio-backend/internal/scope"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// MemoryRepository is an in-process Repository. Memberships live in the
// shared scope.MemoryStore so rows written through a tenant accessor are
// visible to login and the other way round.
type MemoryRepository struct {
	mu      sync.Mutex
	tenants map[string]model.TenantItem
	slugs   map[string]string
	users   map[string]model.UserItem
	store   *scope.MemoryStore
}

func NewMemoryRepository(store *scope.MemoryStore) *MemoryRepository {
	if store == nil {
		store = scope.NewMemoryStore()
	}
	return &MemoryRepository{
		tenants: make(map[string]model.TenantItem),
		slugs:   make(map[string]string),
		users:   make(map[string]model.UserItem),
		store:   store,
	}
}

func (r *MemoryRepository) CreateTenant(ctx context.Context, tenant model.TenantItem, owner model.MembershipItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.slugs[tenant.Slug]; taken {
		return ErrConflict
	}
	if _, exists := r.tenants[tenant.TenantID]; exists {
		return ErrConflict
	}
	if err := r.putMembership(ctx, owner, scope.Create); err != nil {
		return err
	}
	r.slugs[tenant.Slug] = tenant.TenantID
	r.tenants[tenant.TenantID] = tenant
	return nil
}

func (r *MemoryRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, nil
}

func (r *MemoryRepository) GetTenantBySlug(ctx context.Context, slug string) (model.TenantItem, error) {
	r.mu.Lock()
	tenantID, ok := r.slugs[slug]
	r.mu.Unlock()
	if !ok {
		return model.TenantItem{}, ErrNotFound
	}
	return r.GetTenant(ctx, tenantID)
}

func (r *MemoryRepository) UpdateBranding(ctx context.Context, tenantID string, branding map[string]string) (model.TenantItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.tenants[tenantID]
	if !ok || tenant.Deleted {
		return model.TenantItem{}, ErrNotFound
	}
	tenant.Branding = branding
	r.tenants[tenantID] = tenant
	return tenant, nil
}

func (r *MemoryRepository) PutIntegration(ctx context.Context, tenantID string, cred model.IntegrationCredential) (model.TenantItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.tenants[tenantID]
	if !ok || tenant.Deleted {
		return model.TenantItem{}, ErrNotFound
	}
	integrations := make(map[string]model.IntegrationCredential, len(tenant.Integrations)+1)
	for k, v := range tenant.Integrations {
		integrations[k] = v
	}
	integrations[cred.Provider] = cred
	tenant.Integrations = integrations
	r.tenants[tenantID] = tenant
	return tenant, nil
}

func (r *MemoryRepository) SoftDeleteTenant(ctx context.Context, tenantID, deletedAt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.tenants[tenantID]
	if !ok {
		return ErrNotFound
	}
	tenant.Deleted = true
	tenant.DeletedAt = deletedAt
	r.tenants[tenantID] = tenant
	return nil
}

func (r *MemoryRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Email]; exists {
		return ErrConflict
	}
	r.users[user.Email] = user
	return nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (model.UserItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return model.UserItem{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepository) GetUser(ctx context.Context, userID string) (model.UserItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.UserID == userID {
			return user, nil
		}
	}
	return model.UserItem{}, ErrNotFound
}

func (r *MemoryRepository) SetSuperAdmin(ctx context.Context, email string, superAdmin bool) (model.UserItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return model.UserItem{}, ErrNotFound
	}
	user.SuperAdmin = superAdmin
	r.users[email] = user
	return user, nil
}

func (r *MemoryRepository) CreateMembership(ctx context.Context, membership model.MembershipItem) error {
	return r.putMembership(ctx, membership, scope.Create)
}

func (r *MemoryRepository) SaveMembership(ctx context.Context, membership model.MembershipItem) error {
	return r.putMembership(ctx, membership, scope.Replace)
}

func (r *MemoryRepository) putMembership(ctx context.Context, membership model.MembershipItem, mode scope.WriteMode) error {
	membership.PK = model.TenantScopedPK(membership.TenantID, membership.UserID)
	av, err := attributevalue.MarshalMap(membership)
	if err != nil {
		return err
	}

	err = r.store.Put(ctx, model.MembershipsTable, av, mode)
	switch {
	case errors.Is(err, scope.ErrExists):
		return ErrConflict
	case errors.Is(err, scope.ErrNotFound):
		return ErrNotFound
	}
	return err
}

func (r *MemoryRepository) memberships(match func(model.MembershipItem) bool) ([]model.MembershipItem, error) {
	var out []model.MembershipItem
	for _, item := range r.store.Items(model.MembershipsTable) {
		var m model.MembershipItem
		if err := attributevalue.UnmarshalMap(item, &m); err != nil {
			return nil, err
		}
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (r *MemoryRepository) GetMembership(ctx context.Context, membershipID string) (model.MembershipItem, error) {
	found, err := r.memberships(func(m model.MembershipItem) bool { return m.MembershipID == membershipID })
	if err != nil {
		return model.MembershipItem{}, err
	}
	if len(found) == 0 {
		return model.MembershipItem{}, ErrNotFound
	}
	return found[0], nil
}

func (r *MemoryRepository) GetMembershipForUser(ctx context.Context, tenantID, userID string) (model.MembershipItem, error) {
	found, err := r.memberships(func(m model.MembershipItem) bool { return m.TenantID == tenantID && m.UserID == userID })
	if err != nil {
		return model.MembershipItem{}, err
	}
	if len(found) == 0 {
		return model.MembershipItem{}, ErrNotFound
	}
	return found[0], nil
}

func (r *MemoryRepository) ListMembershipsByEmail(ctx context.Context, email string) ([]model.MembershipItem, error) {
	return r.memberships(func(m model.MembershipItem) bool { return m.Email == email })
}
