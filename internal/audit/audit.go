// Package audit records who impersonated whom, and when.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"studio-backend/internal/database"
	"studio-backend/internal/logger"
	"studio-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	KindImpersonation = "impersonation"

	// ImpersonationChannel is the Redis channel the audit feed relays.
	ImpersonationChannel = "audit.impersonation"
)

type Event struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	ActorUserID  string    `json:"actorUserId"`
	ActorEmail   string    `json:"actorEmail"`
	TenantID     string    `json:"tenantId"`
	MembershipID string    `json:"membershipId"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
	// PriorRole and PriorStatus are set when the actor's existing membership
	// had to be raised to active admin for this event.
	PriorRole    string    `json:"priorRole,omitempty"`
	PriorStatus  string    `json:"priorStatus,omitempty"`
}

type Sink interface {
	Record(ctx context.Context, event Event) error
}

type Reader interface {
	// Recent returns up to limit events of kind, newest first.
	Recent(ctx context.Context, kind string, limit int) ([]Event, error)
}

type DynamoSink struct {
	db *database.Database
}

func NewDynamoSink(db *database.Database) *DynamoSink {
	return &DynamoSink{db: db}
}

func (s *DynamoSink) Record(ctx context.Context, event Event) error {
	item := model.AuditEventItem{
		EventID:      event.ID,
		Kind:         event.Kind,
		ActorUserID:  event.ActorUserID,
		ActorEmail:   event.ActorEmail,
		TenantID:     event.TenantID,
		MembershipID: event.MembershipID,
		CreatedAt:    event.CreatedAt.UTC().Format(time.RFC3339Nano),
		PriorRole:    event.PriorRole,
		PriorStatus:  event.PriorStatus,
	}
	if !event.ExpiresAt.IsZero() {
		item.ExpiresAt = event.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return s.db.Client.PutItemIfNotExists(ctx, model.AuditLogTable, item, "eventId")
}

func (s *DynamoSink) Recent(ctx context.Context, kind string, limit int) ([]Event, error) {
	items, err := s.db.Client.QueryPage(
		ctx,
		model.AuditLogTable,
		aws.String(model.IndexByKind),
		"kind = :kind",
		map[string]types.AttributeValue{":kind": database.AttrString(kind)},
		nil,
		int32(limit),
		false,
	)
	if err != nil {
		return nil, err
	}

	rows, err := database.UnmarshalItems[model.AuditEventItem](items)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, fromItem(row))
	}
	return events, nil
}

func fromItem(row model.AuditEventItem) Event {
	created, _ := time.Parse(time.RFC3339Nano, row.CreatedAt)
	var expires time.Time
	if row.ExpiresAt != "" {
		expires, _ = time.Parse(time.RFC3339Nano, row.ExpiresAt)
	}
	return Event{
		ID:           row.EventID,
		Kind:         row.Kind,
		ActorUserID:  row.ActorUserID,
		ActorEmail:   row.ActorEmail,
		TenantID:     row.TenantID,
		MembershipID: row.MembershipID,
		CreatedAt:    created,
		ExpiresAt:    expires,
		PriorRole:    row.PriorRole,
		PriorStatus:  row.PriorStatus,
	}
}

// RedisPublisher pushes events to subscribers of the audit feed.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: ImpersonationChannel}
}

func (p *RedisPublisher) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit publish: marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, string(payload)).Err(); err != nil {
		return fmt.Errorf("audit publish: redis publish: %w", err)
	}
	return nil
}

// Fanout records to a durable primary sink and then notifies the rest. Only a
// primary failure is returned; notification failures are logged.
type Fanout struct {
	Primary Sink
	Notify  []Sink
}

func (f Fanout) Record(ctx context.Context, event Event) error {
	if err := f.Primary.Record(ctx, event); err != nil {
		return err
	}
	for _, n := range f.Notify {
		if err := n.Record(ctx, event); err != nil {
			logger.FromContext(ctx).Warn("audit notify failed",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// MemorySink keeps events in process.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (s *MemorySink) Record(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *MemorySink) Recent(ctx context.Context, kind string, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
