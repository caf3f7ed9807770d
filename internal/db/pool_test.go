package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockPool(t *testing.T) (*Pool, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	pool, err := NewPoolFromGORM(gdb)
	if err != nil {
		t.Fatalf("wrap gorm: %v", err)
	}
	return pool, mock
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	wrapped := errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation must not count as unique violation")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Fatalf("plain error must not count as unique violation")
	}
}

func TestRequireAffected(t *testing.T) {
	t.Parallel()

	if err := requireAffected(CommandTag{rowsAffected: 0}, nil); !IsNoRows(err) {
		t.Fatalf("expected ErrNoRows for zero rows, got %v", err)
	}
	if err := requireAffected(CommandTag{rowsAffected: 1}, nil); err != nil {
		t.Fatalf("unexpected error for one row: %v", err)
	}
	boom := errors.New("boom")
	if err := requireAffected(CommandTag{}, boom); !errors.Is(err, boom) {
		t.Fatalf("expected passthrough error, got %v", err)
	}
}

func TestResolveGormLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level string
		env   string
		want  logger.LogLevel
	}{
		{level: "debug", want: logger.Info},
		{level: "", want: logger.Warn},
		{level: "error", want: logger.Error},
		{level: "silent", want: logger.Silent},
		{level: "verbose", env: "local", want: logger.Warn},
		{level: "verbose", env: "production", want: logger.Error},
	}
	for _, tc := range cases {
		if got := resolveGormLogLevel(tc.level, tc.env); got != tc.want {
			t.Fatalf("resolveGormLogLevel(%q, %q) = %v, want %v", tc.level, tc.env, got, tc.want)
		}
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	pool, mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := pool.WithTx(context.Background(), func(Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
