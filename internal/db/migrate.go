package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed sql/pre_automigrate.sql
var preAutoMigrateSQL string

//go:embed sql/post_automigrate.sql
var postAutoMigrateSQL string

type migrationStep struct {
	name string
	run  func(ctx context.Context) error
}

// autoMigrate creates the schema, lets gorm shape the tables, then adds the
// constraints gorm cannot express and seeds the achievement catalog.
func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	steps := []migrationStep{
		{
			name: "pre-auto-migrate",
			run: func(ctx context.Context) error {
				return executeMigrationSQL(ctx, p, "pre-auto-migrate", preAutoMigrateSQL)
			},
		},
		{
			name: "gorm-auto-migrate",
			run: func(ctx context.Context) error {
				if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
					return fmt.Errorf("gorm auto-migrate models: %w", err)
				}
				return nil
			},
		},
		{
			name: "post-auto-migrate",
			run: func(ctx context.Context) error {
				return executeMigrationSQL(ctx, p, "post-auto-migrate", postAutoMigrateSQL)
			},
		},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("migration step %s: %w", step.name, err)
		}
	}
	return nil
}

func executeMigrationSQL(ctx context.Context, p *Pool, label, sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return nil
	}
	if err := p.gdb.WithContext(ctx).Exec(trimmed).Error; err != nil {
		return fmt.Errorf("execute %s SQL: %w", label, err)
	}
	return nil
}
