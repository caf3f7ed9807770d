package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"horse.fit/webnovels/internal/auth"
	"horse.fit/webnovels/internal/globaltime"
	"horse.fit/webnovels/internal/metrics"
)

const maxJSONBodyBytes = 1 << 20

type Options struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
}

type tokenParser interface {
	Parse(raw string) (auth.Principal, error)
}

// Services are the domain services the routes delegate to. Uploads may be nil.
type Services struct {
	Users         userService
	Novels        novelService
	Comments      commentService
	Library       libraryService
	Ratings       ratingService
	Achievements  achievementService
	Notifications notificationService
	Translation   translationService
	Reports       reportService
	Uploads       uploadService
}

type Server struct {
	tokens tokenParser
	svc    Services
	logger zerolog.Logger
	opts   Options
}

func NewServer(tokens tokenParser, services Services, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		tokens: tokens,
		svc:    services,
		logger: logger.With().Str("component", "httpapi").Logger(),
		opts: Options{
			Host:               host,
			Port:               port,
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			ShutdownTimeout:    shutdownTimeout,
			CORSAllowedOrigins: origins,
			RateLimitPerSecond: opts.RateLimitPerSecond,
		},
	}
}

// Handler builds the echo instance with every middleware and route mounted.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", echo.HeaderAuthorization},
		MaxAge:       3600,
	}))
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api/v1")
	if s.opts.RateLimitPerSecond > 0 {
		store := middleware.NewRateLimiterMemoryStore(rate.Limit(s.opts.RateLimitPerSecond))
		api.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: store,
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return fail(c, http.StatusTooManyRequests, "Too many requests", nil)
			},
		}))
	}
	s.registerRoutes(api)
	return e
}

func (s *Server) registerRoutes(api *echo.Group) {
	user := s.requireAuth()
	optional := s.optionalAuth()
	admin := s.requireAdmin()

	api.GET("/health", s.handleHealth)

	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/users/me", s.handleMe, user)
	api.PATCH("/users/me", s.handleUpdateMe, user)
	api.POST("/users/me/password", s.handleChangePassword, user)

	api.GET("/novels", s.handleListNovels, optional)
	api.GET("/novels/search", s.handleSearchNovels, optional)
	api.GET("/novels/tags", s.handleNovelTags)
	api.GET("/novels/popular", s.handlePopularNovels, optional)
	api.GET("/novels/top-rated", s.handleTopRatedNovels, optional)
	api.GET("/novels/home", s.handleNovelHome, optional)
	api.GET("/novels/:id", s.handleNovelDetail, optional)
	api.POST("/novels", s.handleCreateNovel, user)
	api.PATCH("/novels/:id", s.handleUpdateNovel, user)
	api.DELETE("/novels/:id", s.handleDeleteNovel, user)
	api.POST("/novels/:id/views", s.handleRecordView, optional)
	api.GET("/novels/:id/chapters/:chapterId", s.handleChapterDetail, optional)
	api.POST("/novels/:id/chapters", s.handleAddChapter, user)
	api.PATCH("/novels/:id/chapters/:chapterId", s.handleUpdateChapter, user)
	api.DELETE("/novels/:id/chapters/:chapterId", s.handleDeleteChapter, user)

	api.GET("/comments/novel/:id", s.handleNovelComments)
	api.GET("/comments/chapter/:id", s.handleChapterComments)
	api.POST("/comments", s.handleCreateComment, user)
	api.DELETE("/comments/:id", s.handleDeleteComment, user)

	api.GET("/library", s.handleListLibrary, user)
	api.PUT("/library/:novelId", s.handleUpsertLibrary, user)
	api.DELETE("/library/:novelId", s.handleRemoveLibrary, user)

	api.PUT("/ratings/:novelId", s.handleRate, user)
	api.GET("/ratings/:novelId", s.handleAverageRating)
	api.GET("/ratings/:novelId/me", s.handleMyRating, user)

	api.GET("/achievements", s.handleListAchievements)
	api.GET("/achievements/me", s.handleMyAchievements, user)

	api.GET("/notifications", s.handleListNotifications, user)
	api.PATCH("/notifications/read-all", s.handleMarkAllNotificationsRead, user)
	api.PATCH("/notifications/:id/read", s.handleMarkNotificationRead, user)

	api.POST("/translate/text", s.handleTranslateText)
	api.POST("/translate/chapter", s.handleTranslateChapter)
	api.GET("/translate/chapter/:chapterId/languages", s.handleChapterLanguages)
	api.GET("/translate/providers", s.handleTranslateProviders)

	api.POST("/reports", s.handleCreateReport, user)
	api.GET("/reports/admin", s.handleListReports, user, admin)
	api.GET("/reports/admin/:id", s.handleReportDetail, user, admin)
	api.PATCH("/reports/admin/:id", s.handleProcessReport, user, admin)

	api.POST("/uploads", s.handleUpload, middleware.BodyLimit("6M"), user)
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.tokens == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("webnovels api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("webnovels api stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if status >= 500 {
			s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled api error")
			_ = internalError(c, "Internal server error")
			return
		}
		_ = fail(c, status, message, nil)
		return
	}

	_ = c.String(status, message)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "webnovels",
		"time":    globaltime.UTC(),
	})
}

func readBody(c echo.Context) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxJSONBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > maxJSONBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxJSONBodyBytes)
	}
	return raw, nil
}

func decodeJSONBody(c echo.Context, out any) error {
	raw, err := readBody(c)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return fmt.Errorf("request body is required")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func parseBoolQuery(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}
