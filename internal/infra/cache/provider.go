// Package cache keeps resolved profiles for the lifetime of their session.
package cache

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"lexcourt/internal/domain/service"
)

// ProfileCacheParams selects the cache backend. Redis is used when a client
// was provided.
type ProfileCacheParams struct {
	fx.In

	Redis  *redis.Client `optional:"true"`
	Logger *slog.Logger
}

// NewProfileCache returns the redis cache when redis is available and the
// in-memory cache otherwise.
func NewProfileCache(params ProfileCacheParams) service.ProfileCache {
	if params.Redis != nil {
		params.Logger.Info("Caching profiles in redis")

		return NewRedisProfileCache(params.Redis)
	}

	params.Logger.Info("Caching profiles in memory")

	return NewMemoryProfileCache()
}
