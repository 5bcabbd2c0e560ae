package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// UserLookup is the read side of the user repository.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// UserCache is a read-through Redis cache in front of user lookups. History
// rendering resolves the same handful of accounts over and over; a nil client
// turns the cache into a pass-through.
type UserCache struct {
	next   UserLookup
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// cachedUser omits credentials.
type cachedUser struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Roles     []domain.Role `json:"roles"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewUserCache wraps next.
func NewUserCache(next UserLookup, client *redis.Client, ttl time.Duration, logger *zap.Logger) *UserCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserCache{next: next, client: client, ttl: ttl, logger: logger}
}

func idKey(id string) string             { return "bugtracker:user:id:" + id }
func usernameKey(username string) string { return "bugtracker:user:username:" + username }

// GetByID returns the account with id.
func (c *UserCache) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return c.lookup(ctx, idKey(id), func() (*domain.User, error) {
		return c.next.GetByID(ctx, id)
	})
}

// GetByUsername returns the account named username.
func (c *UserCache) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return c.lookup(ctx, usernameKey(username), func() (*domain.User, error) {
		return c.next.GetByUsername(ctx, username)
	})
}

// Invalidate drops both cache keys of user.
func (c *UserCache) Invalidate(ctx context.Context, user *domain.User) {
	if c.client == nil || user == nil {
		return
	}
	if err := c.client.Del(ctx, idKey(user.ID), usernameKey(user.Username)).Err(); err != nil {
		c.logger.Warn("user cache invalidate failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (c *UserCache) lookup(ctx context.Context, key string, load func() (*domain.User, error)) (*domain.User, error) {
	if c.client == nil {
		return load()
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if err := json.Unmarshal(raw, &cu); err == nil {
			return cu.user(), nil
		}
		c.logger.Warn("discarding malformed user cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("user cache read failed", zap.String("key", key), zap.Error(err))
	}

	user, err := load()
	if err != nil {
		return nil, err
	}
	c.store(ctx, user)
	return user, nil
}

func (c *UserCache) store(ctx context.Context, user *domain.User) {
	payload, err := json.Marshal(newCachedUser(user))
	if err != nil {
		return
	}
	pipe := c.client.Pipeline()
	pipe.Set(ctx, idKey(user.ID), payload, c.ttl)
	pipe.Set(ctx, usernameKey(user.Username), payload, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("user cache write failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func newCachedUser(u *domain.User) cachedUser {
	return cachedUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (cu cachedUser) user() *domain.User {
	return &domain.User{
		ID:        cu.ID,
		Username:  cu.Username,
		Email:     cu.Email,
		Roles:     cu.Roles,
		CreatedAt: cu.CreatedAt,
		UpdatedAt: cu.UpdatedAt,
	}
}
