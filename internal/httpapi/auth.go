package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/webnovels/internal/auth"
)

const principalKey = "auth.principal"

func (s *Server) requireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c == nil {
				return unauthorizedResponse(c)
			}

			raw, found := bearerToken(c)
			if !found {
				return unauthorizedResponse(c)
			}

			principal, err := s.tokens.Parse(raw)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					s.logger.Warn().Err(err).Msg("token parse failed")
				}
				return unauthorizedResponse(c)
			}

			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

// optionalAuth attaches the principal when a valid token is present and
// otherwise lets the request through anonymously.
func (s *Server) optionalAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, found := bearerToken(c); found {
				if principal, err := s.tokens.Parse(raw); err == nil {
					c.Set(principalKey, principal)
				}
			}
			return next(c)
		}
	}
}

// requireAdmin must run after requireAuth.
func (s *Server) requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := principalFromContext(c)
			if !ok {
				return unauthorizedResponse(c)
			}
			if !principal.IsAdmin() {
				return fail(c, http.StatusForbidden, "Admin access required", nil)
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorizedResponse(c echo.Context) error {
	if c == nil {
		return fmt.Errorf("authentication required")
	}
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}

func principalFromContext(c echo.Context) (auth.Principal, bool) {
	if c == nil {
		return auth.Principal{}, false
	}
	principal, ok := c.Get(principalKey).(auth.Principal)
	if !ok || principal.UserID == "" {
		return auth.Principal{}, false
	}
	return principal, true
}

// viewerID is the caller's user id, or "" for anonymous requests.
func viewerID(c echo.Context) string {
	principal, _ := principalFromContext(c)
	return principal.UserID
}

func requestContext(c echo.Context) context.Context {
	return c.Request().Context()
}
