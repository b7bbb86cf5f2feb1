package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"lexcourt/config"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/errors"
)

const (
	profileKeyPrefix = "lexcourt:profile:"
	pingTimeout      = 5 * time.Second
)

func profileKey(sessionID uuid.UUID) string {
	return profileKeyPrefix + sessionID.String()
}

// RedisParams holds dependencies for the redis client, injected by Fx.
type RedisParams struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewRedisClient connects to redis and closes the client when the application stops.
func NewRedisClient(params RedisParams) (*redis.Client, error) {
	cfg := params.Config.Redis
	if cfg == nil || cfg.Addr == "" {
		return nil, errors.New("redis is not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	params.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()

			if err := client.Ping(ctx).Err(); err != nil {
				return errors.Wrap(err, "redis ping")
			}
			params.Logger.Info("Connected to redis", slog.String("addr", cfg.Addr))

			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return client, nil
}

// redisProfileCache stores profiles as JSON under a per-session key.
type redisProfileCache struct {
	rc *redis.Client
}

// NewRedisProfileCache returns a ProfileCache backed by rc.
func NewRedisProfileCache(rc *redis.Client) service.ProfileCache {
	return &redisProfileCache{rc: rc}
}

func (c *redisProfileCache) Get(ctx context.Context, sessionID uuid.UUID) (*entity.Profile, bool, error) {
	result, err := c.rc.Get(ctx, profileKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get cached profile")
	}

	var profile entity.Profile
	if err := json.Unmarshal([]byte(result), &profile); err != nil {
		return nil, false, errors.Wrap(err, "failed to unmarshal cached profile")
	}

	return &profile, true, nil
}

func (c *redisProfileCache) Set(ctx context.Context, sessionID uuid.UUID, profile *entity.Profile, ttl time.Duration) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, "failed to marshal profile")
	}

	if err := c.rc.Set(ctx, profileKey(sessionID), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to cache profile")
	}

	return nil
}

func (c *redisProfileCache) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if err := c.rc.Del(ctx, profileKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete cached profile")
	}

	return nil
}
