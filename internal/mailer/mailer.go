// Package mailer hands outgoing mail to whatever delivers it. Rendering and
// delivery belong to the notification worker; this side only queues jobs.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"studio-backend/internal/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	TransportLog   = "log"
	TransportQueue = "queue"

	// OutboundQueue is the Redis list the notification worker pops from.
	OutboundQueue = "mail:outbound"

	TemplateLoginCode = "login_code"
	TemplateInvite    = "team_invite"
)

type Message struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Subject  string            `json:"subject"`
	Data     map[string]string `json:"data,omitempty"`
	QueuedAt time.Time         `json:"queuedAt"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func NewSender(transport string, client *redis.Client) (Sender, error) {
	switch transport {
	case "", TransportLog:
		return LogSender{}, nil
	case TransportQueue:
		if client == nil {
			return nil, fmt.Errorf("mailer: queue transport needs redis")
		}
		return NewQueueSender(client), nil
	default:
		return nil, fmt.Errorf("mailer: unknown transport %q", transport)
	}
}

// LogSender writes messages to the request logger. Development only.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	logger.FromContext(ctx).Info("mail not delivered (log transport)",
		zap.String("to", msg.To),
		zap.String("template", msg.Template),
		zap.Any("data", msg.Data),
	)
	return nil
}

type QueueSender struct {
	client *redis.Client
	queue  string
	now    func() time.Time
}

func NewQueueSender(client *redis.Client) *QueueSender {
	return &QueueSender{client: client, queue: OutboundQueue, now: time.Now}
}

func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = s.now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mailer: encode: %w", err)
	}
	if err := s.client.RPush(ctx, s.queue, payload).Err(); err != nil {
		return fmt.Errorf("mailer: enqueue: %w", err)
	}
	return nil
}

func LoginCode(to, workspace, code string, ttl time.Duration) Message {
	return Message{
		To:       to,
		Template: TemplateLoginCode,
		Subject:  "Your sign-in code",
		Data: map[string]string{
			"code":      code,
			"workspace": workspace,
			"expiresIn": ttl.String(),
		},
	}
}

func Invite(to, workspace, invitedBy string) Message {
	return Message{
		To:       to,
		Template: TemplateInvite,
		Subject:  "You have been invited to " + workspace,
		Data: map[string]string{
			"workspace": workspace,
			"invitedBy": invitedBy,
		},
	}
}
