package principals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "principals:version"
	// BumpChannel carries cache version bumps between processes.
	BumpChannel = "principals.bump"
)

// Cache stores principal records in Redis under a global version so that a
// single bump invalidates every snapshot.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, logger: slog.Default()}
}

// WithLogger sets the logger used to report Redis failures that Fetch rides out.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	if c != nil && logger != nil {
		c.logger = logger
	}
	return c
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Cache) key(ctx context.Context, id int64) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("principals:%d:%d", id, ver), nil
}

// Fetch returns the cached record for id or populates it using load. Redis
// failures are logged and bypassed so that a cache outage degrades to direct
// loads instead of failing them.
func (c *Cache) Fetch(ctx context.Context, id int64, load func(context.Context) (Record, error)) (Record, error) {
	if load == nil {
		return Record{}, errors.New("principals: loader required")
	}
	if c == nil || c.client == nil {
		return load(ctx)
	}
	key, err := c.key(ctx, id)
	if err != nil {
		c.logger.Warn("principal cache unavailable", slog.Int64("user_id", id), slog.Any("error", err))
		return load(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec Record
		if err := json.Unmarshal(payload, &rec); err == nil {
			return rec, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("principal cache read", slog.Int64("user_id", id), slog.Any("error", err))
		return load(ctx)
	}

	rec, err := load(ctx)
	if err != nil {
		return Record{}, err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("principal cache write", slog.Int64("user_id", id), slog.Any("error", err))
	}
	return rec, nil
}

// Forget drops the current snapshot of a single principal.
func (c *Cache) Forget(ctx context.Context, id int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.key(ctx, id)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, key).Err()
}

// Invalidate forgets a single principal, or every principal when id is zero.
func (c *Cache) Invalidate(ctx context.Context, id int64) error {
	if id == 0 {
		_, err := c.Bump(ctx)
		return err
	}
	return c.Forget(ctx, id)
}

// Bump invalidates every snapshot by incrementing the version and publishing it.
func (c *Cache) Bump(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	if _, err := c.Version(ctx); err != nil {
		return 0, err
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return 0, err
	}
	return ver, c.client.Publish(ctx, BumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other processes until
// ctx ends. onBump, when set, is called with each received version.
func (c *Cache) ListenForInvalidation(ctx context.Context, onBump func(int64)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				if onBump != nil {
					onBump(ver)
				}
			}
		}
	}()
	return nil
}
