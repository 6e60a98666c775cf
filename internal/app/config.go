package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the GrowCoach backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Email       EmailConfig       `mapstructure:"email"`
	Uploads     UploadsConfig     `mapstructure:"uploads"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port          int        `mapstructure:"port"`
	LogLevel      string     `mapstructure:"log_level"`
	FrontendURL   string     `mapstructure:"frontend_url"`
	PublicBaseURL string     `mapstructure:"public_base_url"`
	CORS          CORSConfig `mapstructure:"cors"`
}

// CORSConfig lists the browser origins allowed to call the API. Empty means any.
type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	LogLevel string       `mapstructure:"log_level"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT           JWTSettings           `mapstructure:"jwt"`
	PasswordReset PasswordResetSettings `mapstructure:"password_reset"`
	OAuth         OAuthSettings         `mapstructure:"oauth"`
	Admin         AdminSettings         `mapstructure:"admin"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// PasswordResetSettings configures emailed reset codes.
type PasswordResetSettings struct {
	CodeLength int `mapstructure:"code_length"`
}

// OAuthSettings groups the external sign-in providers.
type OAuthSettings struct {
	Google GoogleOAuthSettings `mapstructure:"google"`
}

// GoogleOAuthSettings configures Google sign-in.
type GoogleOAuthSettings struct {
	Enabled      bool          `mapstructure:"enabled"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURL  string        `mapstructure:"redirect_url"`
	Issuer       string        `mapstructure:"issuer"`
	StateKey     string        `mapstructure:"state_key"`
	StateTTL     time.Duration `mapstructure:"state_ttl"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// AdminSettings describes the administrator seeded on start-up.
type AdminSettings struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	Provider string     `mapstructure:"provider"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
	SES      SESConfig  `mapstructure:"ses"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SESConfig configures delivery through Amazon SES.
type SESConfig struct {
	Region string `mapstructure:"region"`
	From   string `mapstructure:"from"`
}

// UploadsConfig locates the upload directory.
type UploadsConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// RateLimitConfig holds the per-client request budgets of the auth endpoints.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Window   time.Duration `mapstructure:"window"`
	Login    int           `mapstructure:"login"`
	Register int           `mapstructure:"register"`
	Forgot   int           `mapstructure:"forgot_password"`
	Reset    int           `mapstructure:"reset_password"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MaintenanceConfig schedules the background purge jobs.
type MaintenanceConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ResetCodeSchedule string `mapstructure:"reset_code_schedule"`
	TokenSchedule     string `mapstructure:"token_schedule"`
	CacheSchedule     string `mapstructure:"cache_schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible
// defaults. Values from .env files are loaded into the environment first.
func LoadConfig(paths ...string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("GROWCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// loadDotEnv reads .env without overriding variables already set. A missing
// file is not an error.
func loadDotEnv() {
	_ = godotenv.Load()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.frontend_url", "http://localhost:3000")
	v.SetDefault("server.public_base_url", "")
	v.SetDefault("server.cors.origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/growcoach.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.log_level", "warn")
	for _, vendor := range []string{"postgres", "mysql"} {
		v.SetDefault("database."+vendor+".enabled", false)
		v.SetDefault("database."+vendor+".host", "")
		v.SetDefault("database."+vendor+".port", 0)
		v.SetDefault("database."+vendor+".database", "")
		v.SetDefault("database."+vendor+".username", "")
		v.SetDefault("database."+vendor+".password", "")
	}

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	// Every key needs a default so AutomaticEnv can override it on Unmarshal.
	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "growcoach")
	v.SetDefault("auth.jwt.access_token_ttl", "1h")
	v.SetDefault("auth.password_reset.code_length", 6)
	v.SetDefault("auth.oauth.google.enabled", false)
	v.SetDefault("auth.oauth.google.client_id", "")
	v.SetDefault("auth.oauth.google.client_secret", "")
	v.SetDefault("auth.oauth.google.redirect_url", "")
	v.SetDefault("auth.oauth.google.state_key", "")
	v.SetDefault("auth.oauth.google.issuer", "https://accounts.google.com")
	v.SetDefault("auth.oauth.google.state_ttl", "10m")
	v.SetDefault("auth.oauth.google.timeout", "10s")
	v.SetDefault("auth.admin.email", "")
	v.SetDefault("auth.admin.password", "")

	v.SetDefault("email.provider", "none")
	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from", "")
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.ses.region", "")
	v.SetDefault("email.ses.from", "")

	v.SetDefault("uploads.dir", "./uploads")
	v.SetDefault("uploads.max_bytes", 16<<20)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.login", 10)
	v.SetDefault("rate_limit.register", 5)
	v.SetDefault("rate_limit.forgot_password", 3)
	v.SetDefault("rate_limit.reset_password", 5)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.health_check.timeout", "3s")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.reset_code_schedule", "@hourly")
	v.SetDefault("maintenance.token_schedule", "@hourly")
	v.SetDefault("maintenance.cache_schedule", "*/15 * * * *")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
