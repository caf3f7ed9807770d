package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/webnovels/internal/db"
	"horse.fit/webnovels/internal/users"
)

type userService interface {
	Register(ctx context.Context, params users.RegisterParams) (*users.Session, error)
	Login(ctx context.Context, email, password string) (*users.Session, error)
	Profile(ctx context.Context, userID string) (*db.UserRecord, error)
	UpdateProfile(ctx context.Context, userID string, params users.ProfileParams) (*db.UserRecord, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	DisplayName *string         `json:"displayName"`
	AvatarURL   *string         `json:"avatarUrl"`
	Bio         *string         `json:"bio"`
	Preferences json.RawMessage `json:"preferences"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	session, err := s.svc.Users.Register(requestContext(c), users.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return s.serviceError(c, err, "Failed to register")
	}
	return successWithStatus(c, http.StatusCreated, session)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	fieldErrors := map[string]string{}
	if strings.TrimSpace(req.Email) == "" {
		fieldErrors["email"] = "is required"
	}
	if req.Password == "" {
		fieldErrors["password"] = "is required"
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	session, err := s.svc.Users.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		return s.serviceError(c, err, "Failed to process login")
	}
	return success(c, session)
}

func (s *Server) handleMe(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	user, err := s.svc.Users.Profile(requestContext(c), principal.UserID)
	if err != nil {
		return s.serviceError(c, err, "Failed to load profile")
	}
	return success(c, user)
}

func (s *Server) handleUpdateMe(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req updateProfileRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	user, err := s.svc.Users.UpdateProfile(requestContext(c), principal.UserID, users.ProfileParams{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Bio:         req.Bio,
		Preferences: req.Preferences,
	})
	if err != nil {
		return s.serviceError(c, err, "Failed to update profile")
	}
	return success(c, user)
}

func (s *Server) handleChangePassword(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req changePasswordRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if req.CurrentPassword == "" {
		return failValidation(c, map[string]string{"currentPassword": "is required"})
	}

	if err := s.svc.Users.ChangePassword(requestContext(c), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return s.serviceError(c, err, "Failed to change password")
	}
	return success(c, map[string]any{"changed": true})
}
