// Package directory stores the records that exist before a tenant session
// does: users, tenants and the memberships joining them. Login and signup read
// it; tenant-owned rows go through package scope instead.
package directory

import (
	"context"
	"errors"
	"fmt"

	"studio-backend/internal/database"
	"studio-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound = errors.New("directory: not found")
	ErrConflict = errors.New("directory: already exists")
)

type Repository interface {
	// CreateTenant writes the tenant, its slug claim and the owner membership
	// together. A taken slug or id is ErrConflict.
	CreateTenant(ctx context.Context, tenant model.TenantItem, owner model.MembershipItem) error
	GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error)
	GetTenantBySlug(ctx context.Context, slug string) (model.TenantItem, error)
	UpdateBranding(ctx context.Context, tenantID string, branding map[string]string) (model.TenantItem, error)
	PutIntegration(ctx context.Context, tenantID string, cred model.IntegrationCredential) (model.TenantItem, error)
	SoftDeleteTenant(ctx context.Context, tenantID, deletedAt string) error

	CreateUser(ctx context.Context, user model.UserItem) error
	GetUserByEmail(ctx context.Context, email string) (model.UserItem, error)
	GetUser(ctx context.Context, userID string) (model.UserItem, error)
	SetSuperAdmin(ctx context.Context, email string, superAdmin bool) (model.UserItem, error)

	CreateMembership(ctx context.Context, membership model.MembershipItem) error
	SaveMembership(ctx context.Context, membership model.MembershipItem) error
	GetMembership(ctx context.Context, membershipID string) (model.MembershipItem, error)
	GetMembershipForUser(ctx context.Context, tenantID, userID string) (model.MembershipItem, error)
	ListMembershipsByEmail(ctx context.Context, email string) ([]model.MembershipItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateTenant(ctx context.Context, tenant model.TenantItem, owner model.MembershipItem) error {
	err := r.db.Client.TransactPutItems(ctx, []database.TransactPut{
		{Table: model.TenantSlugsTable, Item: model.TenantSlugItem{Slug: tenant.Slug, TenantID: tenant.TenantID, CreatedAt: tenant.CreatedAt}, MustNotExist: "slug"},
		{Table: model.TenantsTable, Item: tenant, MustNotExist: "tenantId"},
		{Table: model.MembershipsTable, Item: owner, MustNotExist: "pk"},
	})
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	var tenant model.TenantItem
	err := r.db.Client.GetItem(ctx, model.TenantsTable, database.StringKey("tenantId", tenantID), &tenant)
	if err != nil {
		return model.TenantItem{}, notFound(err)
	}
	return tenant, nil
}

func (r *DynamoRepository) GetTenantBySlug(ctx context.Context, slug string) (model.TenantItem, error) {
	var claim model.TenantSlugItem
	if err := r.db.Client.GetItem(ctx, model.TenantSlugsTable, database.StringKey("slug", slug), &claim); err != nil {
		return model.TenantItem{}, notFound(err)
	}
	return r.GetTenant(ctx, claim.TenantID)
}

func (r *DynamoRepository) UpdateBranding(ctx context.Context, tenantID string, branding map[string]string) (model.TenantItem, error) {
	value, err := attributevalue.Marshal(branding)
	if err != nil {
		return model.TenantItem{}, fmt.Errorf("marshal branding: %w", err)
	}

	var updated model.TenantItem
	err = r.db.Client.UpdateItem(
		ctx,
		model.TenantsTable,
		database.StringKey("tenantId", tenantID),
		"SET branding = :branding",
		aws.String("attribute_exists(tenantId) AND deleted = :false"),
		map[string]types.AttributeValue{
			":branding": value,
			":false":    &types.AttributeValueMemberBOOL{Value: false},
		},
		nil,
		&updated,
	)
	if err != nil {
		return model.TenantItem{}, notFound(err)
	}
	return updated, nil
}

// PutIntegration replaces the credential for cred.Provider in place, so
// concurrent updates for different providers do not overwrite each other.
// The map is created first because a nested SET needs its parent to exist.
func (r *DynamoRepository) PutIntegration(ctx context.Context, tenantID string, cred model.IntegrationCredential) (model.TenantItem, error) {
	value, err := attributevalue.Marshal(cred)
	if err != nil {
		return model.TenantItem{}, fmt.Errorf("marshal integration: %w", err)
	}
	live := aws.String("attribute_exists(tenantId) AND deleted = :false")
	notDeleted := &types.AttributeValueMemberBOOL{Value: false}

	err = r.db.Client.UpdateItem(
		ctx,
		model.TenantsTable,
		database.StringKey("tenantId", tenantID),
		"SET integrations = if_not_exists(integrations, :empty)",
		live,
		map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
			":false": notDeleted,
		},
		nil,
		nil,
	)
	if err != nil {
		return model.TenantItem{}, notFound(err)
	}

	var updated model.TenantItem
	err = r.db.Client.UpdateItem(
		ctx,
		model.TenantsTable,
		database.StringKey("tenantId", tenantID),
		"SET integrations.#p = :cred",
		live,
		map[string]types.AttributeValue{
			":cred":  value,
			":false": notDeleted,
		},
		map[string]string{"#p": cred.Provider},
		&updated,
	)
	if err != nil {
		return model.TenantItem{}, notFound(err)
	}
	return updated, nil
}

func (r *DynamoRepository) SoftDeleteTenant(ctx context.Context, tenantID, deletedAt string) error {
	err := r.db.Client.UpdateItem(
		ctx,
		model.TenantsTable,
		database.StringKey("tenantId", tenantID),
		"SET deleted = :true, deletedAt = :deletedAt",
		aws.String("attribute_exists(tenantId)"),
		map[string]types.AttributeValue{
			":true":      &types.AttributeValueMemberBOOL{Value: true},
			":deletedAt": database.AttrString(deletedAt),
		},
		nil,
		nil,
	)
	return notFound(err)
}

func (r *DynamoRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	err := r.db.Client.PutItemIfNotExists(ctx, model.UsersTable, user, "email")
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) GetUserByEmail(ctx context.Context, email string) (model.UserItem, error) {
	var user model.UserItem
	if err := r.db.Client.GetItem(ctx, model.UsersTable, database.StringKey("email", email), &user); err != nil {
		return model.UserItem{}, notFound(err)
	}
	return user, nil
}

func (r *DynamoRepository) GetUser(ctx context.Context, userID string) (model.UserItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		model.UsersTable,
		aws.String(model.IndexByUserID),
		"userId = :userId",
		map[string]types.AttributeValue{":userId": database.AttrString(userID)},
		nil,
		nil,
	)
	if err != nil {
		return model.UserItem{}, err
	}
	users, err := database.UnmarshalItems[model.UserItem](items)
	if err != nil {
		return model.UserItem{}, err
	}
	if len(users) == 0 {
		return model.UserItem{}, ErrNotFound
	}
	return users[0], nil
}

func (r *DynamoRepository) SetSuperAdmin(ctx context.Context, email string, superAdmin bool) (model.UserItem, error) {
	var updated model.UserItem
	err := r.db.Client.UpdateItem(
		ctx,
		model.UsersTable,
		database.StringKey("email", email),
		"SET isSuperAdmin = :flag",
		aws.String("attribute_exists(email)"),
		map[string]types.AttributeValue{
			":flag": &types.AttributeValueMemberBOOL{Value: superAdmin},
		},
		nil,
		&updated,
	)
	if err != nil {
		return model.UserItem{}, notFound(err)
	}
	return updated, nil
}

func (r *DynamoRepository) CreateMembership(ctx context.Context, membership model.MembershipItem) error {
	err := r.db.Client.PutItemIfNotExists(ctx, model.MembershipsTable, membership, "pk")
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) SaveMembership(ctx context.Context, membership model.MembershipItem) error {
	return notFound(r.db.Client.PutItemIfExists(ctx, model.MembershipsTable, membership, "pk"))
}

func (r *DynamoRepository) GetMembership(ctx context.Context, membershipID string) (model.MembershipItem, error) {
	memberships, err := r.queryMemberships(ctx, model.IndexByMembershipID, "membershipId", membershipID)
	if err != nil {
		return model.MembershipItem{}, err
	}
	if len(memberships) == 0 {
		return model.MembershipItem{}, ErrNotFound
	}
	return memberships[0], nil
}

func (r *DynamoRepository) GetMembershipForUser(ctx context.Context, tenantID, userID string) (model.MembershipItem, error) {
	var membership model.MembershipItem
	err := r.db.Client.GetItem(ctx, model.MembershipsTable, database.StringKey("pk", model.TenantScopedPK(tenantID, userID)), &membership)
	if err != nil {
		return model.MembershipItem{}, notFound(err)
	}
	return membership, nil
}

func (r *DynamoRepository) ListMembershipsByEmail(ctx context.Context, email string) ([]model.MembershipItem, error) {
	return r.queryMemberships(ctx, model.IndexByEmail, "email", email)
}

func (r *DynamoRepository) queryMemberships(ctx context.Context, index, attr, value string) ([]model.MembershipItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		model.MembershipsTable,
		aws.String(index),
		"#attr = :value",
		map[string]types.AttributeValue{":value": database.AttrString(value)},
		map[string]string{"#attr": attr},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalItems[model.MembershipItem](items)
}

// notFound maps the storage-level missing and condition errors onto
// ErrNotFound and passes everything else through.
func notFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, database.ErrItemNotFound) || errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}
