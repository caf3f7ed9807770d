package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"

	"horse.fit/webnovels/internal/globaltime"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the bearer token claims. Subject carries the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be > 0")
	}
	return &TokenIssuer{secret: []byte(trimmed), ttl: ttl}, nil
}

func (i *TokenIssuer) Issue(userID, role string) (string, time.Time, error) {
	if i == nil {
		return "", time.Time{}, fmt.Errorf("token issuer is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}

	now := globaltime.UTC()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Role: NormalizeRole(role),
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (i *TokenIssuer) Parse(raw string) (Principal, error) {
	if i == nil {
		return Principal{}, fmt.Errorf("token issuer is nil")
	}
	token := strings.TrimSpace(raw)
	if token == "" {
		return Principal{}, ErrInvalidToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || parsed == nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}

	expiresAt := time.Unix(claims.ExpiresAt, 0).UTC()
	if !expiresAt.After(globaltime.UTC()) {
		return Principal{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, ErrInvalidToken
	}

	return Principal{
		UserID:    claims.Subject,
		Role:      NormalizeRole(claims.Role),
		ExpiresAt: expiresAt,
	}, nil
}

// NormalizeRole maps anything other than admin to the plain user role.
func NormalizeRole(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}
