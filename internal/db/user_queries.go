package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UserRecord is a user row including the password hash. The hash never leaves the process.
type UserRecord struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	DisplayName  string          `json:"display_name"`
	AvatarURL    *string         `json:"avatar_url,omitempty"`
	Bio          *string         `json:"bio,omitempty"`
	Preferences  json.RawMessage `json:"preferences"`
	Role         string          `json:"role"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// UserSummary is the identity projection embedded in reports and comments.
type UserSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// CreateUserParams describes a new account.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Role         string
}

// UpdateProfileParams carries optional profile changes; nil fields are left untouched.
type UpdateProfileParams struct {
	DisplayName *string
	AvatarURL   *string
	Bio         *string
	Preferences json.RawMessage
}

const userColumns = `
	id::text,
	email,
	password_hash,
	display_name,
	avatar_url,
	bio,
	preferences,
	role,
	created_at,
	updated_at
`

func scanUser(row interface{ Scan(dest ...any) error }) (*UserRecord, error) {
	var (
		rec   UserRecord
		prefs []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.PasswordHash,
		&rec.DisplayName,
		&rec.AvatarURL,
		&rec.Bio,
		&prefs,
		&rec.Role,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Preferences = normalizeJSONObject(prefs)
	return &rec, nil
}

func (p *Pool) CountUsers(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM webnovels.users`

	var count int64
	if err := p.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (p *Pool) CreateUser(ctx context.Context, params CreateUserParams) (*UserRecord, error) {
	q := `
INSERT INTO webnovels.users (
	email,
	password_hash,
	display_name,
	role,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, now(), now())
RETURNING` + userColumns

	role := strings.TrimSpace(params.Role)
	if role == "" {
		role = "user"
	}
	rec, err := scanUser(p.QueryRow(ctx, q,
		normalizeEmail(params.Email),
		strings.TrimSpace(params.PasswordHash),
		strings.TrimSpace(params.DisplayName),
		role,
	))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return rec, nil
}

func (p *Pool) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	q := `SELECT` + userColumns + `FROM webnovels.users WHERE email = $1 LIMIT 1`

	rec, err := scanUser(p.QueryRow(ctx, q, normalizeEmail(email)))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return rec, nil
}

func (p *Pool) GetUserByID(ctx context.Context, userID string) (*UserRecord, error) {
	q := `SELECT` + userColumns + `FROM webnovels.users WHERE id = $1::uuid LIMIT 1`

	rec, err := scanUser(p.QueryRow(ctx, q, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return rec, nil
}

func (p *Pool) UpdateUserProfile(ctx context.Context, userID string, params UpdateProfileParams) (*UserRecord, error) {
	q := `
UPDATE webnovels.users
SET
	display_name = COALESCE($2, display_name),
	avatar_url = COALESCE($3, avatar_url),
	bio = COALESCE($4, bio),
	preferences = COALESCE($5::jsonb, preferences),
	updated_at = now()
WHERE id = $1::uuid
RETURNING` + userColumns

	var prefs any
	if len(params.Preferences) > 0 {
		prefs = string(params.Preferences)
	}
	rec, err := scanUser(p.QueryRow(ctx, q, userID, params.DisplayName, params.AvatarURL, params.Bio, prefs))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("update user profile: %w", err)
	}
	return rec, nil
}

func (p *Pool) SetUserPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const q = `
UPDATE webnovels.users
SET
	password_hash = $2,
	updated_at = now()
WHERE id = $1::uuid
`

	if err := requireAffected(p.Exec(ctx, q, userID, strings.TrimSpace(passwordHash))); err != nil {
		if IsNoRows(err) {
			return ErrNoRows
		}
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeJSONObject(raw []byte) json.RawMessage {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(raw)
}
