package verification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCode = errors.New("verification: invalid or expired code")

type Store interface {
	// Issue stores code for identifier, replacing any earlier code in the
	// same atomic step.
	Issue(ctx context.Context, identifier, code string, grant Grant) error
	// Redeem consumes the code. Of two concurrent redemptions at most one
	// succeeds.
	Redeem(ctx context.Context, identifier, code string) (Grant, error)
	Revoke(ctx context.Context, identifier string) error
	// Throttle reports whether a new code may be sent for identifier now.
	Throttle(ctx context.Context, identifier string, window time.Duration) (bool, error)
}

type RedisStore struct {
	client *redis.Client
	now    func() time.Time
	cost   int
}

func NewRedisStore(client *redis.Client, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{
		client: client,
		now:    now,
		cost:   bcrypt.DefaultCost,
	}
}

// WithHashCost sets the bcrypt cost used for new codes.
func (s *RedisStore) WithHashCost(cost int) *RedisStore {
	s.cost = cost
	return s
}

func codeKey(identifier string) string {
	return "verify:" + identifier
}

func throttleKey(identifier string) string {
	return "verify:throttle:" + identifier
}

func (s *RedisStore) Issue(ctx context.Context, identifier, code string, grant Grant) error {
	ttl := grant.ExpiresAt.Sub(grant.IssuedAt)
	if ttl <= 0 {
		return fmt.Errorf("verification: non-positive ttl for %s", grant.Purpose)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return fmt.Errorf("verification: hash code: %w", err)
	}

	key := codeKey(identifier)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]interface{}{
			"hash":      string(hash),
			"purpose":   grant.Purpose,
			"actor":     grant.Actor,
			"issuedAt":  grant.IssuedAt.UTC().Format(time.RFC3339Nano),
			"expiresAt": grant.ExpiresAt.UTC().Format(time.RFC3339Nano),
			"attempts":  0,
		})
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("verification: store code: %w", err)
	}
	return nil
}

func (s *RedisStore) Redeem(ctx context.Context, identifier, code string) (Grant, error) {
	key := codeKey(identifier)
	var grant Grant

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return ErrInvalidCode
		}

		rec, err := decodeRecord(fields)
		if err != nil {
			return err
		}

		if !s.now().Before(rec.grant.ExpiresAt) {
			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			}); err != nil && !errors.Is(err, redis.TxFailedErr) {
				return err
			}
			return ErrInvalidCode
		}

		if bcrypt.CompareHashAndPassword([]byte(rec.hash), []byte(code)) != nil {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if rec.attempts+1 >= MaxAttempts {
					pipe.Del(ctx, key)
				} else {
					pipe.HIncrBy(ctx, key, "attempts", 1)
				}
				return nil
			})
			if err != nil && !errors.Is(err, redis.TxFailedErr) {
				return err
			}
			return ErrInvalidCode
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if errors.Is(err, redis.TxFailedErr) {
			return ErrInvalidCode
		}
		if err != nil {
			return err
		}

		grant = rec.grant
		return nil
	}, key)

	if errors.Is(err, ErrInvalidCode) || errors.Is(err, redis.TxFailedErr) {
		return Grant{}, ErrInvalidCode
	}
	if err != nil {
		return Grant{}, fmt.Errorf("verification: redeem: %w", err)
	}
	return grant, nil
}

func (s *RedisStore) Revoke(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, codeKey(identifier)).Err(); err != nil {
		return fmt.Errorf("verification: revoke: %w", err)
	}
	return nil
}

func (s *RedisStore) Throttle(ctx context.Context, identifier string, window time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, throttleKey(identifier), 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("verification: throttle: %w", err)
	}
	return ok, nil
}

type record struct {
	hash     string
	attempts int
	grant    Grant
}

func decodeRecord(fields map[string]string) (record, error) {
	issuedAt, err := time.Parse(time.RFC3339Nano, fields["issuedAt"])
	if err != nil {
		return record{}, fmt.Errorf("parse issuedAt: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expiresAt"])
	if err != nil {
		return record{}, fmt.Errorf("parse expiresAt: %w", err)
	}
	attempts, _ := strconv.Atoi(fields["attempts"])

	return record{
		hash:     fields["hash"],
		attempts: attempts,
		grant: Grant{
			Purpose:   fields["purpose"],
			Actor:     fields["actor"],
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}, nil
}
