package app

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/harmonia-web/portal/internal/auth"
	"github.com/harmonia-web/portal/internal/inactivity"
	"github.com/harmonia-web/portal/internal/menu"
	"github.com/harmonia-web/portal/internal/shared"
	"github.com/harmonia-web/portal/internal/storage"
)

// NewEngineFactory builds engines whose session storage lives in Redis under
// a namespace derived from the browser id. Without a Redis client sessions
// are kept in process memory.
func NewEngineFactory(cfg *Config, api auth.API, client *redis.Client, logger *slog.Logger) shared.EngineFactory {
	secret := []byte(cfg.SessionSecret)
	return func(browserID string) (*shared.Engine, error) {
		var store storage.Store
		if client != nil {
			namespace, err := storage.Namespace(secret, browserID)
			if err != nil {
				return nil, err
			}
			store = storage.NewRedisStore(client, namespace, cfg.SessionTTL)
		} else {
			store = storage.NewMemoryStore()
		}
		return shared.NewEngine(browserID, shared.EngineOptions{
			API:     api,
			Storage: store,
			Inactivity: inactivity.Config{
				Timeout: cfg.IdleTimeout,
				Warning: cfg.IdleWarning,
			},
			Revalidate: cfg.SessionRevalidate,
			Logger:     logger,
		}), nil
	}
}

// NewBroadcaster selects the menu invalidation transport.
func NewBroadcaster(cfg *Config, client *redis.Client, logger *slog.Logger) (menu.Broadcaster, error) {
	switch cfg.MenuBroadcast {
	case BroadcastRedis:
		if client == nil {
			return nil, fmt.Errorf("app: %s broadcast needs a redis client", BroadcastRedis)
		}
		return menu.NewRedisBroadcaster(client, logger), nil
	case BroadcastFile:
		b, err := menu.NewFileBroadcaster(cfg.MenuSentinelDir, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return menu.NopBroadcaster{}, nil
	}
}
