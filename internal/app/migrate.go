package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/webnovels/internal/cli"
)

// runMigrate connects, which applies the schema, and then re-runs the
// migration steps so the command reports their outcome on its own.
func runMigrate(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Migration timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migrate failed: %v\n", err)
		return 1
	}

	pool, err := connectPool(cfg, logger, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migrate failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := pool.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "Migrate failed: %v\n", err)
		return 1
	}

	logger.Info().Msg("schema migrated")
	fmt.Println("ok: schema is up to date")
	return 0
}
