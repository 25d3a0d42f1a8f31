package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

const settingsKeyPrefix = "org:settings:"

// GetSettings returns cached tenant settings, or nil on a cache miss.
func (r *Redis) GetSettings(ctx context.Context, orgID string) (*domain.OrganizationSettings, error) {
	if r == nil || r.Client == nil {
		return nil, nil
	}
	raw, err := r.Client.Get(ctx, settingsKeyPrefix+orgID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var settings domain.OrganizationSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SetSettings stores tenant settings with a TTL.
func (r *Redis) SetSettings(ctx context.Context, orgID string, settings domain.OrganizationSettings, ttl time.Duration) error {
	if r == nil || r.Client == nil {
		return nil
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, settingsKeyPrefix+orgID, raw, ttl).Err()
}

// InvalidateSettings drops a tenant's cached settings.
func (r *Redis) InvalidateSettings(ctx context.Context, orgID string) error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Del(ctx, settingsKeyPrefix+orgID).Err()
}
