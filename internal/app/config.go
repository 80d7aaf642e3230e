package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/signup/internal/registration"
)

// Config represents the runtime configuration for the signup service.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	Email        EmailConfig        `mapstructure:"email"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Maintenance  MaintenanceConfig  `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
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
	Enabled bool `mapstructure:"enabled"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP                SMTPConfig `mapstructure:"smtp"`
	SenderAddress       string     `mapstructure:"sender_address"`
	SenderName          string     `mapstructure:"sender_name"`
	ConfirmationAddress string     `mapstructure:"confirmation_address"`
	ConfirmationName    string     `mapstructure:"confirmation_name"`
	SubjectActivation   string     `mapstructure:"subject_activation"`
	SubjectConfirmation string     `mapstructure:"subject_confirmation"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RegistrationConfig tunes the double opt-in flow.
type RegistrationConfig struct {
	ActivationTokenTimeout   time.Duration   `mapstructure:"activation_token_timeout"`
	ConfirmationTokenTimeout time.Duration   `mapstructure:"confirmation_token_timeout"`
	TokenLength              int             `mapstructure:"token_length"`
	PasswordMinLength        int             `mapstructure:"password_min_length"`
	PublicBaseURL            string          `mapstructure:"public_base_url"`
	RateLimit                RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds registration submissions per client.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// MaintenanceConfig schedules background housekeeping.
type MaintenanceConfig struct {
	FlowCleanup FlowCleanupConfig `mapstructure:"flow_cleanup"`
}

// FlowCleanupConfig controls the purge of registration flows whose tokens have all expired.
type FlowCleanupConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SIGNUP")
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

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Registration.ActivationTokenTimeout <= 0 {
		return errors.New("config: registration.activation_token_timeout must be positive")
	}
	if c.Registration.ConfirmationTokenTimeout <= 0 {
		return errors.New("config: registration.confirmation_token_timeout must be positive")
	}
	if c.Registration.TokenLength <= 0 {
		return errors.New("config: registration.token_length must be positive")
	}
	if strings.TrimSpace(c.Email.SenderAddress) == "" {
		return errors.New("config: email.sender_address is required")
	}
	if strings.TrimSpace(c.Email.ConfirmationAddress) == "" {
		return errors.New("config: email.confirmation_address is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/signup.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.sender_address", "no-reply@localhost")
	v.SetDefault("email.sender_name", "Signup")
	v.SetDefault("email.confirmation_address", "registrations@localhost")
	v.SetDefault("email.confirmation_name", "Registrations")
	v.SetDefault("email.subject_activation", "New registration awaiting activation")
	v.SetDefault("email.subject_confirmation", "Please confirm your registration")

	v.SetDefault("registration.activation_token_timeout", "1 day")
	v.SetDefault("registration.confirmation_token_timeout", "1 day")
	v.SetDefault("registration.token_length", registration.DefaultTokenLength)
	v.SetDefault("registration.password_min_length", 8)
	v.SetDefault("registration.public_base_url", "")
	v.SetDefault("registration.rate_limit.requests", 20)
	v.SetDefault("registration.rate_limit.window", "1m")

	v.SetDefault("maintenance.flow_cleanup.enabled", false)
	v.SetDefault("maintenance.flow_cleanup.schedule", "@daily")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// stringToDurationHookFunc accepts Go durations ("90s") as well as human timeouts ("1 day", "2 weeks").
func stringToDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return time.Duration(0), nil
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d, nil
		}
		return registration.ParseTimeout(raw)
	}
}
