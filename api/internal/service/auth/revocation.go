package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token identifiers until the token would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
	// Consume atomically revokes tokenID and reports whether this call was
	// the one that did so. Expired tokens cannot be consumed.
	Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
}

// MemoryDenylist is a process-local Denylist.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist returns an empty in-memory denylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke stores tokenID until expiresAt. Already-expired tokens are ignored.
func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if !expiresAt.After(now) {
		return nil
	}
	d.entries[tokenID] = expiresAt
	d.pruneLocked(now)
	return nil
}

// Revoked reports whether tokenID is currently revoked.
func (d *MemoryDenylist) Revoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	expiresAt, ok := d.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(d.now()) {
		delete(d.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// Consume revokes tokenID unless it is already revoked, under one lock.
func (d *MemoryDenylist) Consume(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if !expiresAt.After(now) {
		return false, nil
	}
	if current, ok := d.entries[tokenID]; ok && current.After(now) {
		return false, nil
	}
	d.entries[tokenID] = expiresAt
	d.pruneLocked(now)
	return true, nil
}

// Len returns the number of tracked identifiers.
func (d *MemoryDenylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *MemoryDenylist) pruneLocked(now time.Time) {
	for id, expiresAt := range d.entries {
		if !expiresAt.After(now) {
			delete(d.entries, id)
		}
	}
}

// RedisDenylist shares revocations across API replicas.
type RedisDenylist struct {
	client *redis.Client
	prefix string
}

// NewRedisDenylist returns a denylist storing keys under prefix.
func NewRedisDenylist(client *redis.Client, prefix string) *RedisDenylist {
	if prefix == "" {
		prefix = "denylist:"
	}
	return &RedisDenylist{client: client, prefix: prefix}
}

// Revoke writes tokenID with a TTL equal to the token's remaining life.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.prefix+tokenID, "1", ttl).Err()
}

// Revoked reports whether tokenID has a live denylist key.
func (d *RedisDenylist) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Consume claims tokenID with SET NX so only one replica can spend it.
func (d *RedisDenylist) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return false, nil
	}
	return d.client.SetNX(ctx, d.prefix+tokenID, "1", ttl).Result()
}
