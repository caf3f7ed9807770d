package auth

import (
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLength = 6
)

func HashPassword(password string) (string, error) {
	trimmed := strings.TrimSpace(password)
	if trimmed == "" {
		return "", fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(trimmed), DefaultBcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func VerifyPassword(password, hash string) bool {
	trimmedPassword := strings.TrimSpace(password)
	trimmedHash := strings.TrimSpace(hash)
	if trimmedPassword == "" || trimmedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(trimmedHash), []byte(trimmedPassword)) == nil
}

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidEmail reports whether raw is a bare address such as "reader@example.com".
func ValidEmail(raw string) bool {
	email := NormalizeEmail(raw)
	if email == "" {
		return false
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return parsed.Address == email && strings.Contains(email[strings.LastIndexByte(email, '@')+1:], ".")
}
