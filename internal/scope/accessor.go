// Package scope hands request code a persistence handle that can only see the
// active session's tenant. Keys are always built from the session tenant and
// list queries always filter on it, so a caller cannot forget the filter.
package scope

import (
	"context"
	"errors"
	"fmt"

	"studio-backend/internal/apperror"
	"studio-backend/internal/identity"
	"studio-backend/internal/logger"
	"studio-backend/internal/metrics"
	"studio-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"
)

// Accessor is built once per request from the resolved session.
type Accessor struct {
	store    Store
	session  *identity.Session
	tenantID string
}

func New(store Store, session *identity.Session) (*Accessor, error) {
	if store == nil {
		return nil, apperror.Internal("tenant store not configured", nil)
	}
	if !session.HasTenant() {
		return nil, apperror.Unauthorized("tenant session required")
	}
	return &Accessor{store: store, session: session, tenantID: session.TenantID}, nil
}

func (a *Accessor) TenantID() string {
	return a.tenantID
}

func (a *Accessor) Session() *identity.Session {
	return a.session
}

// Guard rejects a tenant id taken from untrusted input when it names any
// tenant other than the session's. An empty id means none was supplied.
func (a *Accessor) Guard(ctx context.Context, tenantID string) error {
	if tenantID == "" || tenantID == a.tenantID {
		return nil
	}
	return a.mismatch(ctx, tenantID)
}

func (a *Accessor) mismatch(ctx context.Context, foreign string) error {
	metrics.RecordTenantMismatch()
	logger.FromContext(ctx).Warn("tenant mismatch",
		zap.String("session_tenant", a.tenantID),
		zap.String("requested_tenant", foreign),
		zap.String("membership_id", a.session.MembershipID),
	)
	return apperror.TenantMismatch("resource belongs to another workspace")
}

func (a *Accessor) Clients() *Collection[model.ClientItem, *model.ClientItem] {
	return newCollection[model.ClientItem](a, model.ClientsTable, "client")
}

func (a *Accessor) Agents() *Collection[model.AgentItem, *model.AgentItem] {
	return newCollection[model.AgentItem](a, model.AgentsTable, "agent")
}

func (a *Accessor) Bookings() *Collection[model.BookingItem, *model.BookingItem] {
	return newCollection[model.BookingItem](a, model.BookingsTable, "booking")
}

// Memberships are keyed by user id within the tenant.
func (a *Accessor) Memberships() *Collection[model.MembershipItem, *model.MembershipItem] {
	return newCollection[model.MembershipItem](a, model.MembershipsTable, "membership")
}

// Record is a tenant-owned row. P is the pointer form that can be bound to a
// tenant before it is written.
type Record[T any] interface {
	*T
	Scope() string
	Key() string
	BindTenant(tenantID string)
}

type Collection[T any, P Record[T]] struct {
	accessor *Accessor
	table    string
	name     string
}

func newCollection[T any, P Record[T]](a *Accessor, table, name string) *Collection[T, P] {
	return &Collection[T, P]{accessor: a, table: table, name: name}
}

func (c *Collection[T, P]) pk(id string) string {
	return model.TenantScopedPK(c.accessor.tenantID, id)
}

func (c *Collection[T, P]) Get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, apperror.Validation(c.name + " id is required")
	}

	raw, err := c.accessor.store.Get(ctx, c.table, c.pk(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotFound(c.name + " not found")
		}
		return nil, apperror.Internal("failed to load "+c.name, err)
	}

	out := new(T)
	if err := attributevalue.UnmarshalMap(raw, out); err != nil {
		return nil, apperror.Internal("failed to decode "+c.name, err)
	}
	if scope := P(out).Scope(); scope != c.accessor.tenantID {
		return nil, c.accessor.mismatch(ctx, scope)
	}
	return out, nil
}

// List returns every row of the session tenant.
func (c *Collection[T, P]) List(ctx context.Context) ([]T, error) {
	raw, err := c.accessor.store.QueryByTenant(ctx, c.table, c.accessor.tenantID)
	if err != nil {
		return nil, apperror.Internal("failed to list "+c.name+"s", err)
	}

	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, apperror.Internal("failed to decode "+c.name, err)
		}
		if scope := P(&v).Scope(); scope != c.accessor.tenantID {
			return nil, c.accessor.mismatch(ctx, scope)
		}
		out = append(out, v)
	}
	return out, nil
}

// Filter lists the session tenant's rows that keep returns true for.
func (c *Collection[T, P]) Filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, v := range all {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *Collection[T, P]) Create(ctx context.Context, item *T) error {
	return c.write(ctx, item, Create)
}

// Update replaces an existing row of the session tenant.
func (c *Collection[T, P]) Update(ctx context.Context, item *T) error {
	return c.write(ctx, item, Replace)
}

func (c *Collection[T, P]) write(ctx context.Context, item *T, mode WriteMode) error {
	p := P(item)
	if scope := p.Scope(); scope != "" && scope != c.accessor.tenantID {
		return c.accessor.mismatch(ctx, scope)
	}
	if p.Key() == "" {
		return apperror.Validation(c.name + " id is required")
	}
	p.BindTenant(c.accessor.tenantID)

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperror.Internal("failed to encode "+c.name, err)
	}

	err = c.accessor.store.Put(ctx, c.table, av, mode)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrExists):
		return apperror.Conflict(c.name + " already exists")
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound(c.name + " not found")
	default:
		return apperror.Internal(fmt.Sprintf("failed to save %s", c.name), err)
	}
}

// Delete removes a row of the session tenant. Missing rows are NotFound.
func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	if _, err := c.Get(ctx, id); err != nil {
		return err
	}
	if err := c.accessor.store.Delete(ctx, c.table, c.pk(id)); err != nil {
		return apperror.Internal("failed to delete "+c.name, err)
	}
	return nil
}
