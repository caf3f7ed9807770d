package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/config"
	"horse.fit/webnovels/internal/db"
)

type adminStore interface {
	CountUsers(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, params db.CreateUserParams) (*db.UserRecord, error)
}

// ensureDefaultAdmin creates the configured admin account when the users table is empty.
func ensureDefaultAdmin(ctx context.Context, store adminStore, cfg *config.Config, logger zerolog.Logger) error {
	if store == nil || cfg == nil {
		return fmt.Errorf("ensure default admin: missing dependencies")
	}

	password := strings.TrimSpace(cfg.DefaultAdminPassword)
	if password == "" {
		return nil
	}

	userCount, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if userCount > 0 {
		return nil
	}

	email := auth.NormalizeEmail(cfg.DefaultAdminEmail)
	if !auth.ValidEmail(email) {
		return fmt.Errorf("default admin email %q is invalid", cfg.DefaultAdminEmail)
	}
	if len(password) < auth.MinPasswordLength {
		return fmt.Errorf("default admin password must be at least %d characters", auth.MinPasswordLength)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}

	user, err := store.CreateUser(ctx, db.CreateUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  "Admin",
		Role:         auth.RoleAdmin,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil
		}
		return err
	}

	logger.Warn().
		Str("email", user.Email).
		Str("user_id", user.ID).
		Msg("created default admin user")
	return nil
}
