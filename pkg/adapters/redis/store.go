package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/policy"
	backend "github.com/redis/go-redis/v9"
)

// Default key prefixes.
const (
	PolicyPrefix   = "keel:policy:"
	WorkflowPrefix = "keel:workflow:"
)

// farFuture scores index entries that never expire (2100-01-01).
const farFuture = 4102444800

// Store implements ports.Store using Redis. Documents are stored as JSON under
// prefix+key, and a sorted set at prefix+"index" lists them.
type Store[T any] struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type config struct {
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*config)

// WithTTL sets the expiration for documents.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient[T any](client *backend.Client, defaultPrefix string, opts ...Option) *Store[T] {
	cfg := config{prefix: defaultPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store[T]{
		client: client,
		prefix: cfg.prefix,
		ttl:    cfg.ttl,
	}
}

// NewPolicyStore creates a ports.PolicyStore on client.
func NewPolicyStore(client *backend.Client, opts ...Option) *Store[policy.Policy] {
	return NewFromClient[policy.Policy](client, PolicyPrefix, opts...)
}

// NewWorkflowStore creates a ports.WorkflowStore on client.
func NewWorkflowStore(client *backend.Client, opts ...Option) *Store[domain.StateMachineSpec] {
	return NewFromClient[domain.StateMachineSpec](client, WorkflowPrefix, opts...)
}

// NewClient connects to a Redis server.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

func (s *Store[T]) key(k string) string {
	return s.prefix + k
}

func (s *Store[T]) indexKey() string {
	return s.prefix + "index"
}

// Save persists v to Redis.
func (s *Store[T]) Save(ctx context.Context, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(key), data, s.ttl)

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: key,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a document from Redis.
func (s *Store[T]) Load(ctx context.Context, key string) (T, error) {
	var v T
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return v, domain.ErrNotFound
		}
		return v, fmt.Errorf("failed to get from redis: %w", err)
	}

	if err := json.Unmarshal([]byte(val), &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return v, nil
}

// Delete removes a document and its index entry.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(key))
	pipe.ZRem(ctx, s.indexKey(), key)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns stored keys, pruning index entries whose TTL has passed.
func (s *Store[T]) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired keys: %w", err)
	}

	keys, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the redis client.
func (s *Store[T]) Close() error {
	return s.client.Close()
}
