package paylink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"invoicedesk/pkg/models"
)

// Store remembers links already created per invoice number so repeated runs
// in one session reuse them instead of creating duplicates. It is best
// effort: nothing guarantees a link is never created twice.
type Store interface {
	Get(ctx context.Context, invoiceNo string) (*models.PaymentLink, error)
	Put(ctx context.Context, invoiceNo string, link *models.PaymentLink) error
}

// MemoryStore keeps links for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[string]models.PaymentLink
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[string]models.PaymentLink)}
}

// Get returns the stored link or nil.
func (s *MemoryStore) Get(_ context.Context, invoiceNo string) (*models.PaymentLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[invoiceNo]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

// Put stores a copy of link.
func (s *MemoryStore) Put(_ context.Context, invoiceNo string, link *models.PaymentLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[invoiceNo] = *link
	return nil
}

// RedisStore shares links between runs through Redis. Entries expire when
// the link does.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, prefix: "paylink:", now: time.Now}, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get returns the stored link or nil.
func (s *RedisStore) Get(ctx context.Context, invoiceNo string) (*models.PaymentLink, error) {
	raw, err := s.client.Get(ctx, s.prefix+invoiceNo).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read link for %s: %w", invoiceNo, err)
	}

	var link models.PaymentLink
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("failed to decode link for %s: %w", invoiceNo, err)
	}
	return &link, nil
}

// Put stores link until its expiry.
func (s *RedisStore) Put(ctx context.Context, invoiceNo string, link *models.PaymentLink) error {
	raw, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to encode link for %s: %w", invoiceNo, err)
	}

	var ttl time.Duration
	if link.ExpireBy > 0 {
		ttl = time.Unix(link.ExpireBy, 0).Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}
	if err := s.client.Set(ctx, s.prefix+invoiceNo, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store link for %s: %w", invoiceNo, err)
	}
	return nil
}
