package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/cli"
	"horse.fit/webnovels/internal/config"
	"horse.fit/webnovels/internal/db"
	"horse.fit/webnovels/internal/langdetect"
	"horse.fit/webnovels/internal/logging"
	"horse.fit/webnovels/internal/translation"
)

// loadRuntime loads the .env file, the config and the logger shared by every command.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func connectPool(cfg *config.Config, logger zerolog.Logger, timeout time.Duration) (*db.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}

// newTranslationService builds the configured provider and the cache service.
// The returned close func releases the redis connection when one was opened.
func newTranslationService(
	ctx context.Context,
	cfg *config.Config,
	pool *db.Pool,
	logger zerolog.Logger,
) (*translation.Service, func(), error) {
	provider, err := translation.NewProviderFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build translation provider: %w", err)
	}

	closeFn := func() {}
	var locker translation.KeyLocker = translation.NewLocalLocker()
	if cfg.RedisURL != "" {
		redisLocker, err := translation.NewRedisLockerFromURL(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable; using in-process translation locks")
		} else {
			locker = redisLocker
			closeFn = func() {
				if err := redisLocker.Close(); err != nil {
					logger.Warn().Err(err).Msg("close redis locker failed")
				}
			}
		}
	}

	svc := translation.NewService(pool, provider, translation.ServiceOptions{
		Locker:         locker,
		DetectLanguage: langdetect.DetectISO6391,
		Logger:         logger,
	})
	logger.Info().Str("provider", svc.ProviderName()).Msg("translation provider ready")
	return svc, closeFn, nil
}
