// Package cache decorates a repository.UserRepository with a Redis
// read-through cache for single-user lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/user-service/internal/model"
	"github.com/sakif/user-service/internal/repository"
)

const (
	defaultTTL       = 5 * time.Minute
	defaultNamespace = "users"
)

var (
	_ repository.UserRepository = (*CachingUserRepository)(nil)
	_ repository.UncachedReader = (*CachingUserRepository)(nil)
)

// CachingUserRepository caches GetByID results in Redis and forwards every
// other call to the wrapped repository. A nil Redis client turns it into a
// plain pass-through.
type CachingUserRepository struct {
	inner     repository.UserRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// cachedUser is the value stored under a user key. It carries the password
// hash, which model.User drops from JSON, so a cache hit is a complete
// record. Writes still read through GetByIDUncached.
type cachedUser struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toCached(u *model.User) cachedUser {
	return cachedUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c cachedUser) user() *model.User {
	return &model.User{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// NewCachingUserRepository wraps inner with Redis caching.
// If ttl is 0 or negative, it defaults to 5 minutes. If namespace is empty, it uses "users".
func NewCachingUserRepository(rdb *redis.Client, ttl time.Duration, inner repository.UserRepository, namespace string) *CachingUserRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CachingUserRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (c *CachingUserRepository) Create(ctx context.Context, user *model.User) error {
	return c.inner.Create(ctx, user)
}

// GetByID checks Redis first and falls back to the inner repository,
// storing what it found. Cache failures never fail the lookup.
func (c *CachingUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if c.rdb == nil {
		return c.inner.GetByID(ctx, id)
	}

	key := c.key(id)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var cu cachedUser
		if err := json.Unmarshal(b, &cu); err == nil {
			return cu.user(), nil
		}
		// Corrupted entry.
		_ = c.rdb.Del(ctx, key).Err()
	}

	u, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(toCached(u)); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return u, nil
}

// GetByIDUncached skips Redis entirely. The service reads through it before
// an Update, since Update writes every column of the row it is given.
func (c *CachingUserRepository) GetByIDUncached(ctx context.Context, id int64) (*model.User, error) {
	return c.inner.GetByID(ctx, id)
}

func (c *CachingUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return c.inner.GetByEmail(ctx, email)
}

func (c *CachingUserRepository) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	return c.inner.List(ctx, opts)
}

// Update writes through and drops the cached copy on both sides of the
// write, so a read that raced the first Del cannot outlive the second.
func (c *CachingUserRepository) Update(ctx context.Context, user *model.User) error {
	c.invalidate(ctx, user.ID)
	if err := c.inner.Update(ctx, user); err != nil {
		return err
	}
	c.invalidate(ctx, user.ID)
	return nil
}

// Delete removes the user and its cached copy.
func (c *CachingUserRepository) Delete(ctx context.Context, id int64) error {
	c.invalidate(ctx, id)
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// Ping checks the inner repository and, when configured, Redis.
func (c *CachingUserRepository) Ping(ctx context.Context) error {
	if err := c.inner.Ping(ctx); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	return nil
}

// invalidate is best effort: a stale entry expires after ttl anyway.
func (c *CachingUserRepository) invalidate(ctx context.Context, id int64) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, c.key(id)).Err()
}

func (c *CachingUserRepository) key(id int64) string {
	return fmt.Sprintf("%s:%d", c.namespace, id)
}
