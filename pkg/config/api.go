package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	JWTAccessSecret    string
	JWTRefreshSecret   string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	TokenRevocation    bool
	CookieSecure       bool
	CookieSameSite     string
	CookieDomain       string
	CORSOrigins        []string
	RateLimitPerMinute int
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	MaxBodyBytes       int64
	LogLevel           string
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	env := GetString("APP_ENV", "development")
	return APIConfig{
		Environment:        env,
		Addr:               GetString("API_ADDR", ":5000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://estate:estate@db:5432/estate?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", ""),
		JWTAccessSecret:    GetString("JWT_ACCESS_SECRET", ""),
		JWTRefreshSecret:   GetString("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:     time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTokenTTL:    time.Duration(GetInt("REFRESH_TOKEN_TTL_HOURS", 7*24)) * time.Hour,
		TokenRevocation:    GetBool("TOKEN_REVOCATION", true),
		CookieSecure:       GetBool("COOKIE_SECURE", env == "production"),
		CookieSameSite:     GetString("COOKIE_SAMESITE", "lax"),
		CookieDomain:       GetString("COOKIE_DOMAIN", ""),
		CORSOrigins:        GetList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitPerMinute: GetInt("RATE_LIMIT_PER_MINUTE", 100),
		RedisAddr:          GetString("REDIS_ADDR", ""),
		RedisPassword:      GetString("REDIS_PASSWORD", ""),
		RedisDB:            GetInt("REDIS_DB", 0),
		MaxBodyBytes:       int64(GetInt("MAX_BODY_BYTES", 1<<20)),
		LogLevel:           GetString("LOG_LEVEL", "info"),
	}
}

// Production reports whether the service runs with production defaults.
func (c APIConfig) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// SameSiteMode maps the configured SameSite policy to its net/http value.
func (c APIConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(strings.TrimSpace(c.CookieSameSite)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SecureCookies reports whether session cookies must carry the Secure attribute.
// Production and SameSite=None always require it.
func (c APIConfig) SecureCookies() bool {
	return c.CookieSecure || c.Production() || c.SameSiteMode() == http.SameSiteNoneMode
}

// Validate checks the settings the API cannot start without.
func (c APIConfig) Validate() error {
	if strings.TrimSpace(c.JWTAccessSecret) == "" || strings.TrimSpace(c.JWTRefreshSecret) == "" {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive (access=%s refresh=%s)", c.AccessTokenTTL, c.RefreshTokenTTL)
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL must be set")
	}
	return nil
}
