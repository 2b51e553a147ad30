package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/domain/payment"
)

// RedisStore keeps the pending record in a single key, the same slot a
// browser client would use in its local storage. The TTL bounds how stale a
// record the recovery pass will ever see.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient dials redis with bounded connect retries.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})

	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 5
	}
	delay := cfg.ConnectRetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	for i := 0; i < retries; i++ {
		if err := client.Ping(ctx).Err(); err != nil {
			if i == retries-1 {
				client.Close()
				return nil, fmt.Errorf("connect to redis after %d retries: %w", retries, err)
			}
			time.Sleep(time.Duration(i+1) * delay)
			continue
		}
		break
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, tx *payment.PendingTransaction) error {
	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal pending record: %w", err)
	}
	if err := s.client.Set(ctx, payment.StorageKey, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save pending record: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*payment.PendingTransaction, error) {
	raw, err := s.client.Get(ctx, payment.StorageKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending record: %w", err)
	}

	var tx payment.PendingTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		// A corrupt record cannot be reconciled; drop it rather than
		// wedge every future load.
		s.client.Del(ctx, payment.StorageKey)
		return nil, nil
	}
	return &tx, nil
}

func (s *RedisStore) Clear(ctx context.Context, orderID string) error {
	current, err := s.Load(ctx)
	if err != nil || current == nil {
		return err
	}
	if current.OrderID != orderID {
		return nil
	}
	if err := s.client.Del(ctx, payment.StorageKey).Err(); err != nil {
		return fmt.Errorf("clear pending record: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]payment.PendingTransaction, error) {
	tx, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}
	return []payment.PendingTransaction{*tx}, nil
}
