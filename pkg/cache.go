package pkg

import (
	"fmt"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/config"
	"go.uber.org/zap"
)

// NewZapLogger builds the logger used by the cache layer
func NewZapLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Environment == "development" || cfg.Environment == "dev" {
		zcfg = zap.NewDevelopmentConfig()
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return logger, nil
}

// NewLocalCache opens the local durable progress cache selected by LOCAL_CACHE.
func NewLocalCache(cfg *config.Config, logger *zap.Logger) (cache.CacheService, error) {
	switch cfg.LocalCache {
	case config.LocalCacheRedis:
		client, err := NewRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisCache(client, logger), nil
	default:
		return cache.NewSQLiteCache(cfg.LocalCachePath, logger)
	}
}
