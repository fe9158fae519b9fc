// Package cache keeps short-lived copies of password-stripped user
// projections in Redis so the access guard does not hit the store on every
// request.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-guard/internal/domain/entity"
	"github.com/oksasatya/go-auth-guard/pkg/helpers"
)

// versionTTL outlives any in-flight store read by a wide margin.
const versionTTL = 24 * time.Hour

var errStaleVersion = errors.New("user cache version moved")

func userKey(id string) string {
	return "user:public:" + id
}

func versionKey(id string) string {
	return "user:public:ver:" + id
}

// UserCache never stores password hashes: only entity.PublicUser values.
// Fills are conditional on a per-user version that Invalidate bumps, so a
// read that started before an invalidation cannot repopulate the entry.
type UserCache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *logrus.Logger
}

func NewUserCache(rdb redis.UniversalClient, ttl time.Duration, logger *logrus.Logger) *UserCache {
	return &UserCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get is fail-open: redis errors are logged and reported as a miss.
func (c *UserCache) Get(ctx context.Context, id string) (*entity.PublicUser, bool) {
	var u entity.PublicUser
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, userKey(id), &u)
	if err != nil {
		c.warn(err, id, "user cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &u, true
}

// Version returns the current invalidation version for id. ok is false when
// redis cannot be read, in which case the caller must not fill.
func (c *UserCache) Version(ctx context.Context, id string) (int64, bool) {
	v, err := c.rdb.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.warn(err, id, "user cache version read failed")
		return 0, false
	}
	return v, true
}

// SetIfVersion stores u only while the version is still the one read before
// loading u from the store.
func (c *UserCache) SetIfVersion(ctx context.Context, u entity.PublicUser, version int64) {
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, versionKey(u.ID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return helpers.RedisSetJSON(ctx, pipe, userKey(u.ID), u, c.ttl)
		})
		return err
	}, versionKey(u.ID))

	switch {
	case err == nil:
	case errors.Is(err, errStaleVersion), errors.Is(err, redis.TxFailedErr):
		if c.logger != nil {
			c.logger.WithField("user_id", u.ID).Debug("user cache fill skipped: invalidated")
		}
	default:
		c.warn(err, u.ID, "user cache write failed")
	}
}

// Invalidate bumps the version and drops the entry in one transaction.
func (c *UserCache) Invalidate(ctx context.Context, id string) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(id))
		pipe.Expire(ctx, versionKey(id), versionTTL)
		return helpers.RedisDel(ctx, pipe, userKey(id))
	})
	if err != nil {
		c.warn(err, id, "user cache invalidate failed")
	}
}

func (c *UserCache) warn(err error, id, msg string) {
	if c.logger != nil {
		c.logger.WithError(err).WithField("user_id", id).Warn(msg)
	}
}
