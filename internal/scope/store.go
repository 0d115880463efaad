package scope

import (
	"context"
	"errors"
	"sync"

	"studio-backend/internal/database"
	"studio-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound = errors.New("scope store: not found")
	ErrExists   = errors.New("scope store: already exists")
)

type WriteMode int

const (
	// Create fails with ErrExists when the key is taken.
	Create WriteMode = iota
	// Replace fails with ErrNotFound when the key is absent.
	Replace
)

// Store is the raw persistence of tenant-owned rows. Every table it serves is
// keyed by "pk" and indexed on "tenantId". Only the Accessor should call it.
type Store interface {
	Get(ctx context.Context, table, pk string) (map[string]types.AttributeValue, error)
	QueryByTenant(ctx context.Context, table, tenantID string) ([]map[string]types.AttributeValue, error)
	Put(ctx context.Context, table string, item map[string]types.AttributeValue, mode WriteMode) error
	Delete(ctx context.Context, table, pk string) error
}

type DynamoStore struct {
	db *database.Database
}

func NewDynamoStore(db *database.Database) *DynamoStore {
	return &DynamoStore{db: db}
}

func (s *DynamoStore) Get(ctx context.Context, table, pk string) (map[string]types.AttributeValue, error) {
	item, err := s.db.Client.GetAttributes(ctx, table, database.StringKey("pk", pk))
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *DynamoStore) QueryByTenant(ctx context.Context, table, tenantID string) ([]map[string]types.AttributeValue, error) {
	return s.db.Client.QueryAll(
		ctx,
		table,
		aws.String(model.IndexByTenant),
		"tenantId = :tenantId",
		map[string]types.AttributeValue{
			":tenantId": database.AttrString(tenantID),
		},
		nil,
		nil,
	)
}

func (s *DynamoStore) Put(ctx context.Context, table string, item map[string]types.AttributeValue, mode WriteMode) error {
	condition := "attribute_not_exists(pk)"
	if mode == Replace {
		condition = "attribute_exists(pk)"
	}

	err := s.db.Client.PutAttributes(ctx, table, item, aws.String(condition), nil)
	if errors.Is(err, database.ErrConditionFailed) {
		if mode == Replace {
			return ErrNotFound
		}
		return ErrExists
	}
	return err
}

func (s *DynamoStore) Delete(ctx context.Context, table, pk string) error {
	return s.db.Client.DeleteItem(ctx, table, database.StringKey("pk", pk))
}

// MemoryStore keeps rows in process. It backs tests and local runs without
// DynamoDB.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[string]map[string]types.AttributeValue)}
}

func (s *MemoryStore) Get(ctx context.Context, table, pk string) (map[string]types.AttributeValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.tables[table][pk]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(item), nil
}

func (s *MemoryStore) QueryByTenant(ctx context.Context, table, tenantID string) ([]map[string]types.AttributeValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []map[string]types.AttributeValue
	for _, item := range s.tables[table] {
		if stringAttr(item, "tenantId") == tenantID {
			out = append(out, copyItem(item))
		}
	}
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, table string, item map[string]types.AttributeValue, mode WriteMode) error {
	pk := stringAttr(item, "pk")
	if pk == "" {
		return errors.New("scope store: item without pk")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string]map[string]types.AttributeValue)
		s.tables[table] = rows
	}

	_, exists := rows[pk]
	switch {
	case mode == Create && exists:
		return ErrExists
	case mode == Replace && !exists:
		return ErrNotFound
	}
	rows[pk] = copyItem(item)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, table, pk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables[table], pk)
	return nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// Items returns every row of table regardless of tenant. Only in-process
// repositories that share this store use it.
func (s *MemoryStore) Items(table string) []map[string]types.AttributeValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]types.AttributeValue, 0, len(s.tables[table]))
	for _, item := range s.tables[table] {
		out = append(out, copyItem(item))
	}
	return out
}
