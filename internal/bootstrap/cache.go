package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/aqeluk/THYNKAPI/internal/cache"
	"github.com/aqeluk/THYNKAPI/internal/config"
	"github.com/aqeluk/THYNKAPI/internal/core"
	"github.com/aqeluk/THYNKAPI/internal/metrics"
	"github.com/aqeluk/THYNKAPI/internal/models"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return recorder
}

// initializeIdentityCache initializes the identity cache (always enabled, defaults to memory)
func initializeIdentityCache(
	ctx context.Context,
	cfg *config.Config,
) (core.Cache[models.Identity], func() error, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.CacheInitTimeout)
	defer cancel()

	switch cfg.IdentityCacheType {
	case config.IdentityCacheTypeRedisAside:
		c, err := cache.NewRueidisAsideCache[models.Identity](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			cfg.IdentityCacheKeyPrefix,
			cfg.IdentityCacheClientTTL,
			cfg.IdentityCacheSizePerConn,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis-aside identity cache: %w", err)
		}
		log.Printf(
			"Identity cache: redis-aside (addr=%s, db=%d, client_ttl=%s, cache_size_per_conn=%dMB)",
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.IdentityCacheClientTTL,
			cfg.IdentityCacheSizePerConn,
		)
		return c, c.Close, nil

	case config.IdentityCacheTypeRedis:
		c, err := cache.NewRueidisCache[models.Identity](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			cfg.IdentityCacheKeyPrefix,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis identity cache: %w", err)
		}
		log.Printf("Identity cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, c.Close, nil

	default: // memory
		c := cache.NewMemoryCache[models.Identity]()
		log.Println("Identity cache: memory (single instance only)")
		return c, c.Close, nil
	}
}
