// Package config provides configuration management for Sigil.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/prn-tf/sigil/internal/domain"
)

// BuildAdminPassword is an admin secret injected at build time with
// -ldflags "-X github.com/prn-tf/sigil/internal/config.BuildAdminPassword=...".
// Process environment and config file values take precedence over it.
var BuildAdminPassword = ""

// AdminPasswordEnv is the environment variable holding the admin secret.
const AdminPasswordEnv = "ADMIN_PASSWORD"

// Server modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	R2      R2Config      `mapstructure:"r2"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the server runs in production mode.
func (c ServerConfig) IsProduction() bool {
	return c.Mode == ModeProduction
}

// AuthConfig holds admin authentication settings.
type AuthConfig struct {
	// AdminPassword is the shared admin secret. It doubles as the HMAC key
	// for session tokens. Empty means "not configured".
	AdminPassword string `mapstructure:"admin_password"`

	// LoginRate is the sustained number of login attempts allowed per client IP per second.
	LoginRate float64 `mapstructure:"login_rate"`

	// LoginBurst is the number of login attempts a client may make in a burst.
	LoginBurst int `mapstructure:"login_burst"`
}

// R2Config holds the S3-compatible object store settings.
type R2Config struct {
	AccountID       string `mapstructure:"account_id"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// ForcePathStyle puts the bucket in the URL path instead of the host name.
	ForcePathStyle bool `mapstructure:"force_path_style"`

	// DiagnosticPrefix is the key prefix used by the storage health check.
	DiagnosticPrefix string `mapstructure:"diagnostic_prefix"`
}

// Validate reports the required R2 values that are empty.
// It returns a *domain.ConfigError, or nil when the store can be used.
func (c R2Config) Validate() error {
	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"r2.account_id", c.AccountID},
		{"r2.bucket", c.Bucket},
		{"r2.endpoint", c.Endpoint},
		{"r2.access_key_id", c.AccessKeyID},
		{"r2.secret_access_key", c.SecretAccessKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return domain.NewConfigError("r2", missing...)
	}
	return nil
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if the metrics listener is started.
	Enabled bool `mapstructure:"enabled"`

	// Port is the port for the metrics HTTP server.
	Port int `mapstructure:"port"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with SIGIL_ and use _ as separator;
// the unprefixed ADMIN_PASSWORD and R2_* names are honoured as well.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/sigil")
	}

	// Config file is optional - environment variables can be used instead.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Auth.AdminPassword = ResolveAdminPassword(os.Getenv(AdminPasswordEnv), cfg.Auth.AdminPassword, BuildAdminPassword)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ResolveAdminPassword picks the admin secret from its possible sources.
// The process environment wins, then the configured value, then the
// build-time value. Empty strings count as absent.
func ResolveAdminPassword(env, configured, build string) string {
	for _, candidate := range []string{env, configured, build} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// bindEnv binds the unprefixed environment names used by deployments.
// The unprefixed name is checked first, then the SIGIL_-prefixed one.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"auth.admin_password":  AdminPasswordEnv,
		"r2.account_id":        "R2_ACCOUNT_ID",
		"r2.bucket":            "R2_BUCKET",
		"r2.endpoint":          "R2_ENDPOINT",
		"r2.access_key_id":     "R2_ACCESS_KEY_ID",
		"r2.secret_access_key": "R2_SECRET_ACCESS_KEY",
		"r2.force_path_style":  "R2_FORCE_PATH_STYLE",
	}
	for key, env := range bindings {
		prefixed := "SIGIL_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env, prefixed); err != nil {
			return fmt.Errorf("error binding %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", ModeDevelopment)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	// Auth defaults
	v.SetDefault("auth.admin_password", "")
	v.SetDefault("auth.login_rate", 0.2)
	v.SetDefault("auth.login_burst", 5)

	// R2 defaults
	v.SetDefault("r2.account_id", "")
	v.SetDefault("r2.bucket", "")
	v.SetDefault("r2.endpoint", "")
	v.SetDefault("r2.access_key_id", "")
	v.SetDefault("r2.secret_access_key", "")
	v.SetDefault("r2.force_path_style", false)
	v.SetDefault("r2.diagnostic_prefix", "diag/")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the configuration for valid ranges.
// Missing secrets are not an error here; features that need them report
// domain.ErrNotConfigured when used.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Server.Mode != ModeDevelopment && c.Server.Mode != ModeProduction {
		return fmt.Errorf("server.mode must be 'development' or 'production'")
	}

	if c.Auth.LoginRate <= 0 {
		return fmt.Errorf("auth.login_rate must be positive")
	}
	if c.Auth.LoginBurst < 1 {
		return fmt.Errorf("auth.login_burst must be at least 1")
	}

	if c.R2.DiagnosticPrefix == "" {
		return fmt.Errorf("r2.diagnostic_prefix is required")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
