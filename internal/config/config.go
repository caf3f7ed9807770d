package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"8"`

	JWTSecret            string  `envconfig:"JWT_SECRET" required:"true"`
	JWTTTLHours          int     `envconfig:"JWT_TTL_HOURS" default:"168"`
	DefaultAdminEmail    string  `envconfig:"DEFAULT_ADMIN_EMAIL" default:"admin@webnovels.local"`
	DefaultAdminPassword string  `envconfig:"DEFAULT_ADMIN_PASSWORD" default:""`
	CORSAllowedOrigins   string  `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
	RateLimitPerSecond   float64 `envconfig:"RATE_LIMIT_PER_SECOND" default:"20"`

	TranslatorProvider   string        `envconfig:"TRANSLATOR_PROVIDER" default:"libre"`
	LibreTranslateURL    string        `envconfig:"LIBRETRANSLATE_URL" default:"http://localhost:5000/translate"`
	LibreTranslateAPIKey string        `envconfig:"LIBRETRANSLATE_API_KEY" default:""`
	DeepLAPIKey          string        `envconfig:"DEEPL_API_KEY" default:""`
	DeepLAPIURL          string        `envconfig:"DEEPL_API_URL" default:"https://api-free.deepl.com/v2/translate"`
	OpenAIAPIKey         string        `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel          string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL        string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	TranslatorTimeout    time.Duration `envconfig:"TRANSLATOR_TIMEOUT" default:"30s"`
	TranslatorRateLimit  float64       `envconfig:"TRANSLATOR_RATE_LIMIT" default:"0"`
	RedisURL             string        `envconfig:"REDIS_URL" default:""`

	UploadBucket          string `envconfig:"UPLOAD_BUCKET" default:""`
	UploadEndpoint        string `envconfig:"UPLOAD_ENDPOINT" default:""`
	UploadRegion          string `envconfig:"UPLOAD_REGION" default:"auto"`
	UploadAccessKeyID     string `envconfig:"UPLOAD_ACCESS_KEY_ID" default:""`
	UploadSecretAccessKey string `envconfig:"UPLOAD_SECRET_ACCESS_KEY" default:""`
	UploadPublicBaseURL   string `envconfig:"UPLOAD_PUBLIC_BASE_URL" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if len(strings.TrimSpace(c.JWTSecret)) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.JWTTTLHours < 1 {
		return fmt.Errorf("JWT_TTL_HOURS must be >= 1")
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND must be >= 0")
	}
	if c.TranslatorTimeout <= 0 {
		return fmt.Errorf("TRANSLATOR_TIMEOUT must be > 0")
	}
	if c.TranslatorRateLimit < 0 {
		return fmt.Errorf("TRANSLATOR_RATE_LIMIT must be >= 0")
	}
	if c.UploadsEnabled() && strings.TrimSpace(c.UploadPublicBaseURL) == "" {
		return fmt.Errorf("UPLOAD_PUBLIC_BASE_URL is required when UPLOAD_BUCKET is set")
	}
	return nil
}

func (c *Config) JWTTTL() time.Duration {
	if c == nil || c.JWTTTLHours < 1 {
		return 168 * time.Hour
	}
	return time.Duration(c.JWTTTLHours) * time.Hour
}

// UploadsEnabled reports whether an object storage bucket is configured.
func (c *Config) UploadsEnabled() bool {
	return c != nil && strings.TrimSpace(c.UploadBucket) != ""
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
