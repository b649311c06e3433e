package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"cyberrange-server/internal/shared/redis"
)

const cacheTTL = 10 * time.Minute

// CachedSource is a read-through Redis cache in front of another Source.
// Catalogs change only via migrations, so a short TTL is plenty. With
// Redis disabled (nil client) every read falls through to the inner
// source.
type CachedSource struct {
	inner  Source
	redis  *redis.Client
	logger *slog.Logger
}

func NewCachedSource(inner Source, redisClient *redis.Client) *CachedSource {
	return &CachedSource{
		inner:  inner,
		redis:  redisClient,
		logger: slog.With("component", "catalog_cache"),
	}
}

func (c *CachedSource) Controls(ctx context.Context) (map[string]Control, error) {
	var controls map[string]Control
	if c.fetch(ctx, "catalog:controls", &controls) {
		return controls, nil
	}

	controls, err := c.inner.Controls(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "catalog:controls", controls)
	return controls, nil
}

func (c *CachedSource) Threats(ctx context.Context) (map[string]Threat, error) {
	var threats map[string]Threat
	if c.fetch(ctx, "catalog:threats", &threats) {
		return threats, nil
	}

	threats, err := c.inner.Threats(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "catalog:threats", threats)
	return threats, nil
}

func (c *CachedSource) Situations(ctx context.Context) (map[string]Situation, error) {
	var situations map[string]Situation
	if c.fetch(ctx, "catalog:situations", &situations) {
		return situations, nil
	}

	situations, err := c.inner.Situations(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "catalog:situations", situations)
	return situations, nil
}

func (c *CachedSource) Projects(ctx context.Context) (map[string]Project, error) {
	var projects map[string]Project
	if c.fetch(ctx, "catalog:projects", &projects) {
		return projects, nil
	}

	projects, err := c.inner.Projects(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "catalog:projects", projects)
	return projects, nil
}

// fetch reports whether the key was found and decoded. Cache errors are
// logged and treated as misses.
func (c *CachedSource) fetch(ctx context.Context, key string, dest interface{}) bool {
	if c.redis == nil {
		return false
	}

	payload, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		c.logger.Warn("Failed to decode cached catalog, falling back to store", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CachedSource) store(ctx context.Context, key string, value interface{}) {
	if c.redis == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode catalog for caching", "key", key, "error", err)
		return
	}

	if err := c.redis.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
		c.logger.Warn("Failed to cache catalog", "key", key, "error", err)
	}
}
