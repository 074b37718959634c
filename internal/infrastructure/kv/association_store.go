package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devilmonastery/bnetsso/internal/pkg/metrics"
)

// AssociationKey is the hash holding externalId -> accountId fields
const AssociationKey = "battlenetId:uid"

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// Config holds the Redis connection settings
type Config struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// AssociationStore implements repositories.AssociationStore on a single
// Redis hash. Each operation is one HSET, HGET or HDEL.
type AssociationStore struct {
	client redis.UniversalClient
	key    string
}

// NewAssociationStore connects to Redis and verifies the connection
func NewAssociationStore(ctx context.Context, cfg Config) (*AssociationStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client redis.UniversalClient, keyPrefix string) *AssociationStore {
	return &AssociationStore{client: client, key: keyPrefix + AssociationKey}
}

// Put sets the hash field for externalID
func (s *AssociationStore) Put(ctx context.Context, externalID, userID string) error {
	start := time.Now()
	err := s.client.HSet(ctx, s.key, externalID, userID).Err()
	metrics.RecordDBOperation("redis_association", "put", time.Since(start), 1, err)
	if err != nil {
		return fmt.Errorf("failed to put association: %w", err)
	}
	return nil
}

// Get reads the hash field for externalID
func (s *AssociationStore) Get(ctx context.Context, externalID string) (string, bool, error) {
	start := time.Now()
	userID, err := s.client.HGet(ctx, s.key, externalID).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordDBOperation("redis_association", "get", time.Since(start), 0, nil)
		return "", false, nil
	}
	metrics.RecordDBOperation("redis_association", "get", time.Since(start), 1, err)
	if err != nil {
		return "", false, fmt.Errorf("failed to get association: %w", err)
	}
	return userID, true, nil
}

// Delete removes the hash field for externalID
func (s *AssociationStore) Delete(ctx context.Context, externalID string) error {
	start := time.Now()
	n, err := s.client.HDel(ctx, s.key, externalID).Result()
	metrics.RecordDBOperation("redis_association", "delete", time.Since(start), n, err)
	if err != nil {
		return fmt.Errorf("failed to delete association: %w", err)
	}
	return nil
}

// HealthCheck pings Redis
func (s *AssociationStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (s *AssociationStore) Close() error {
	return s.client.Close()
}
