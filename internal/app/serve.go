package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/achievements"
	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/cli"
	"horse.fit/webnovels/internal/comments"
	"horse.fit/webnovels/internal/config"
	"horse.fit/webnovels/internal/db"
	"horse.fit/webnovels/internal/httpapi"
	"horse.fit/webnovels/internal/library"
	"horse.fit/webnovels/internal/moderation"
	"horse.fit/webnovels/internal/notifications"
	"horse.fit/webnovels/internal/novels"
	"horse.fit/webnovels/internal/ratings"
	"horse.fit/webnovels/internal/uploads"
	"horse.fit/webnovels/internal/users"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}

	pool, err := connectPool(cfg, logger, 30*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	if err := ensureDefaultAdmin(ctx, pool, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("ensure default admin failed")
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}

	translator, closeTranslator, err := newTranslationService(ctx, cfg, pool, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer closeTranslator()

	services := buildServices(cfg, pool, tokens, logger)
	services.Translation = translator

	srv := httpapi.NewServer(tokens, services, logger, httpapi.Options{
		Host:               *host,
		Port:               *port,
		ReadTimeout:        *readTimeout,
		WriteTimeout:       *writeTimeout,
		ShutdownTimeout:    *shutdownTimeout,
		CORSAllowedOrigins: cfg.CORSAllowedOriginsList(),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}

// buildServices wires every domain service except translation onto the shared pool.
func buildServices(cfg *config.Config, pool *db.Pool, tokens *auth.TokenIssuer, logger zerolog.Logger) httpapi.Services {
	notifier := notifications.NewService(pool, logger)
	achievementSvc := achievements.NewService(pool, notifier, logger)

	services := httpapi.Services{
		Users:         users.NewService(pool, tokens, logger),
		Novels:        novels.NewService(pool, notifier, logger),
		Comments:      comments.NewService(pool, notifier, logger),
		Library:       library.NewService(pool, achievementSvc, logger),
		Ratings:       ratings.NewService(pool, logger),
		Achievements:  achievementSvc,
		Notifications: notifier,
		Reports:       moderation.NewService(pool, notifier, logger),
	}

	if cfg.UploadsEnabled() {
		services.Uploads = uploads.NewUploader(uploads.NewS3Client(cfg), cfg.UploadBucket, cfg.UploadPublicBaseURL, logger)
	} else {
		logger.Info().Msg("uploads disabled; UPLOAD_BUCKET is not set")
	}
	return services
}
