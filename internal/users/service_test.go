package users

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/db"
)

const userID = "8d9e0f1a-2b3c-4d4e-8f6a-7b8c9d0e1f2a"

type fakeStore struct {
	users map[string]*db.UserRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*db.UserRecord{}}
}

func (s *fakeStore) CreateUser(_ context.Context, params db.CreateUserParams) (*db.UserRecord, error) {
	for _, u := range s.users {
		if u.Email == params.Email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	rec := &db.UserRecord{
		ID:           userID,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		DisplayName:  params.DisplayName,
		Role:         params.Role,
		Preferences:  json.RawMessage(`{}`),
	}
	s.users[rec.ID] = rec
	return rec, nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*db.UserRecord, error) {
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, db.ErrNoRows
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (*db.UserRecord, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, db.ErrNoRows
}

func (s *fakeStore) UpdateUserProfile(_ context.Context, id string, params db.UpdateProfileParams) (*db.UserRecord, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrNoRows
	}
	if params.DisplayName != nil {
		u.DisplayName = *params.DisplayName
	}
	if params.AvatarURL != nil {
		u.AvatarURL = params.AvatarURL
	}
	if params.Bio != nil {
		u.Bio = params.Bio
	}
	if params.Preferences != nil {
		u.Preferences = params.Preferences
	}
	copied := *u
	return &copied, nil
}

func (s *fakeStore) SetUserPasswordHash(_ context.Context, id, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return db.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	store := newFakeStore()
	return NewService(store, issuer, zerolog.Nop()), store
}

func TestRegisterLoginAndChangePassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterParams{Email: " Reader@Example.com ", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if session.Token == "" || session.User.Email != "reader@example.com" {
		t.Fatalf("unexpected session: %#v", session)
	}
	if session.User.DisplayName != "reader" {
		t.Fatalf("display name = %q, want local part", session.User.DisplayName)
	}

	if _, err := svc.Register(ctx, RegisterParams{Email: "reader@example.com", Password: "hunter22"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := svc.Login(ctx, "reader@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "READER@example.com", "hunter22"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.ChangePassword(ctx, userID, "nope-nope", "brand-new"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(ctx, userID, "hunter22", "brand-new"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.Login(ctx, "reader@example.com", "brand-new"); err != nil {
		t.Fatalf("Login() with new password error = %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), RegisterParams{Email: "not-an-email", Password: "hunter22"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterParams{Email: "a@b.io", Password: "123"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	store.users[userID] = &db.UserRecord{ID: userID, Email: "a@b.io", DisplayName: "A", Preferences: json.RawMessage(`{}`)}
	ctx := context.Background()

	longName := strings.Repeat("n", MaxDisplayNameLength+1)
	longBio := strings.Repeat("b", MaxBioLength+1)
	badURL := "ftp://cdn.example.com/a.png"
	cases := []struct {
		name   string
		params ProfileParams
		want   error
	}{
		{name: "long name", params: ProfileParams{DisplayName: &longName}, want: ErrDisplayName},
		{name: "long bio", params: ProfileParams{Bio: &longBio}, want: ErrBioTooLong},
		{name: "bad avatar", params: ProfileParams{AvatarURL: &badURL}, want: ErrInvalidAvatarURL},
		{name: "array prefs", params: ProfileParams{Preferences: json.RawMessage(`[1]`)}, want: ErrInvalidPreferences},
	}
	for _, tc := range cases {
		if _, err := svc.UpdateProfile(ctx, userID, tc.params); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	name := "  Night Reader "
	avatar := "https://cdn.example.com/a.png"
	user, err := svc.UpdateProfile(ctx, userID, ProfileParams{
		DisplayName: &name,
		AvatarURL:   &avatar,
		Preferences: json.RawMessage(`{"theme":"dark"}`),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if user.DisplayName != "Night Reader" || user.AvatarURL == nil || *user.AvatarURL != avatar {
		t.Fatalf("unexpected user: %#v", user)
	}
	if string(user.Preferences) != `{"theme":"dark"}` {
		t.Fatalf("preferences = %s", user.Preferences)
	}

	if _, err := svc.Profile(ctx, "11111111-1111-4111-8111-111111111111"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
