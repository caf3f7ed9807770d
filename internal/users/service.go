package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/db"
)

var (
	ErrInvalidEmail       = errors.New("email must be a valid address")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrDisplayName        = errors.New("displayName must be 1 to 60 characters")
	ErrBioTooLong         = errors.New("bio must be at most 300 characters")
	ErrInvalidAvatarURL   = errors.New("avatarUrl must be an http(s) URL")
	ErrInvalidPreferences = errors.New("preferences must be a JSON object")
)

const (
	MaxDisplayNameLength = 60
	MaxBioLength         = 300
)

type Store interface {
	CreateUser(ctx context.Context, params db.CreateUserParams) (*db.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*db.UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (*db.UserRecord, error)
	UpdateUserProfile(ctx context.Context, userID string, params db.UpdateProfileParams) (*db.UserRecord, error)
	SetUserPasswordHash(ctx context.Context, userID, passwordHash string) error
}

type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

// Session is the result of a successful register or login.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *db.UserRecord `json:"user"`
}

type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
}

type ProfileParams struct {
	DisplayName *string
	AvatarURL   *string
	Bio         *string
	Preferences json.RawMessage
}

type Service struct {
	store  Store
	tokens TokenIssuer
	log    zerolog.Logger
}

func NewService(store Store, tokens TokenIssuer, log zerolog.Logger) *Service {
	return &Service{store: store, tokens: tokens, log: log.With().Str("component", "users").Logger()}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*Session, error) {
	email := auth.NormalizeEmail(params.Email)
	if !auth.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if err := checkPassword(params.Password); err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		displayName = email[:strings.IndexByte(email, '@')]
	}
	if err := checkDisplayName(displayName); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.store.CreateUser(ctx, db.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         auth.RoleUser,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.GetUserByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

func (s *Service) Profile(ctx context.Context, userID string) (*db.UserRecord, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, params ProfileParams) (*db.UserRecord, error) {
	var update db.UpdateProfileParams
	if params.DisplayName != nil {
		name := strings.TrimSpace(*params.DisplayName)
		if err := checkDisplayName(name); err != nil {
			return nil, err
		}
		update.DisplayName = &name
	}
	if params.AvatarURL != nil {
		avatar := strings.TrimSpace(*params.AvatarURL)
		if avatar != "" && !validHTTPURL(avatar) {
			return nil, ErrInvalidAvatarURL
		}
		update.AvatarURL = &avatar
	}
	if params.Bio != nil {
		bio := strings.TrimSpace(*params.Bio)
		if utf8.RuneCountInString(bio) > MaxBioLength {
			return nil, ErrBioTooLong
		}
		update.Bio = &bio
	}
	if len(params.Preferences) > 0 {
		var prefs map[string]any
		if err := json.Unmarshal(params.Preferences, &prefs); err != nil || prefs == nil {
			return nil, ErrInvalidPreferences
		}
		update.Preferences = params.Preferences
	}

	user, err := s.store.UpdateUserProfile(ctx, userID, update)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := checkPassword(next); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.store.SetUserPasswordHash(ctx, userID, hash); err != nil {
		if db.IsNoRows(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("store password: %w", err)
	}
	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}

func (s *Service) session(user *db.UserRecord) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func checkPassword(raw string) error {
	if utf8.RuneCountInString(strings.TrimSpace(raw)) < auth.MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func checkDisplayName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxDisplayNameLength {
		return ErrDisplayName
	}
	return nil
}

func validHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
