// Package config loads the site configuration from defaults, an optional
// YAML file and SITE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: server.port → SITE_SERVER_PORT.
const EnvPrefix = "SITE"

// Config is the full site configuration.
type Config struct {
	Server     ServerConfig    `mapstructure:"server"`
	Log        LogConfig       `mapstructure:"log"`
	AdminEmail string          `mapstructure:"admin_email"`
	JWT        JWTConfig       `mapstructure:"jwt"`
	Password   PasswordConfig  `mapstructure:"password"`
	Google     GoogleConfig    `mapstructure:"google"`
	Messaging  MessagingConfig `mapstructure:"messaging"`
	Inference  InferenceConfig `mapstructure:"inference"`
	Store      StoreConfig     `mapstructure:"store"`
	Assets     AssetsConfig    `mapstructure:"assets"`
	Search     SearchConfig    `mapstructure:"search"`
	Redis      RedisConfig     `mapstructure:"redis"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RateLimit is requests per minute per client on the form endpoints.
	RateLimit int `mapstructure:"rate_limit"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GoogleConfig holds the OAuth client id accepted for Google sign-in.
type GoogleConfig struct {
	ClientID string `mapstructure:"client_id"`
}

// MessagingConfig selects and configures transactional email delivery.
type MessagingConfig struct {
	// Mode is local, relay or direct.
	Mode       string        `mapstructure:"mode"`
	RelayURL   string        `mapstructure:"relay_url"`
	LocalDelay time.Duration `mapstructure:"local_delay"`
	// Provider is resend or smtp; used by direct mode and the send endpoint.
	Provider     string `mapstructure:"provider"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     string `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	PortalURL    string `mapstructure:"portal_url"`
	// FailOpen reports form success even when a confirmation fails.
	FailOpen bool `mapstructure:"fail_open"`
}

// InferenceConfig configures the classification model.
type InferenceConfig struct {
	// Provider is gemini or vertex. Empty disables classification.
	Provider      string `mapstructure:"provider"`
	APIKey        string `mapstructure:"api_key"`
	ProjectID     string `mapstructure:"project_id"`
	Location      string `mapstructure:"location"`
	LiteModel     string `mapstructure:"lite_model"`
	StandardModel string `mapstructure:"standard_model"`
}

// Enabled reports whether a provider is configured.
func (c InferenceConfig) Enabled() bool {
	return c.Provider != ""
}

// StoreConfig selects the document store.
type StoreConfig struct {
	// Backend is memory, firestore or postgres.
	Backend     string `mapstructure:"backend"`
	ProjectID   string `mapstructure:"project_id"`
	DatabaseURL string `mapstructure:"database_url"`
	SeedFile    string `mapstructure:"seed_file"`
}

// AssetsConfig selects the upload store.
type AssetsConfig struct {
	// Backend is memory, gcs or s3.
	Backend     string `mapstructure:"backend"`
	Bucket      string `mapstructure:"bucket"`
	BaseURL     string `mapstructure:"base_url"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3UseSSL    bool   `mapstructure:"s3_use_ssl"`
}

// SearchConfig points at a Meilisearch server. Empty URL uses the
// in-process index only.
type SearchConfig struct {
	MeiliURL    string `mapstructure:"meili_url"`
	MeiliAPIKey string `mapstructure:"meili_api_key"`
}

// RedisConfig points at the pending-action store. Empty URL keeps pending
// actions in memory.
type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	PendingTTL time.Duration `mapstructure:"pending_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("admin_email", "admin@anandpandey.in")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("password.bcrypt_cost", 12)
	v.SetDefault("password.pepper", "")
	v.SetDefault("google.client_id", "")

	v.SetDefault("messaging.mode", "local")
	v.SetDefault("messaging.relay_url", "")
	v.SetDefault("messaging.local_delay", 800*time.Millisecond)
	v.SetDefault("messaging.provider", "resend")
	v.SetDefault("messaging.resend_api_key", "")
	v.SetDefault("messaging.from", "onboarding@resend.dev")
	v.SetDefault("messaging.smtp_host", "")
	v.SetDefault("messaging.smtp_port", "587")
	v.SetDefault("messaging.smtp_username", "")
	v.SetDefault("messaging.smtp_password", "")
	v.SetDefault("messaging.portal_url", "https://www.thetaxjournal.in/dashboard")
	v.SetDefault("messaging.fail_open", true)

	v.SetDefault("inference.provider", "")
	v.SetDefault("inference.api_key", "")
	v.SetDefault("inference.project_id", "")
	v.SetDefault("inference.location", "us-central1")
	v.SetDefault("inference.lite_model", "gemini-2.5-flash-lite")
	v.SetDefault("inference.standard_model", "gemini-2.5-flash")

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.project_id", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.seed_file", "")

	v.SetDefault("assets.backend", "memory")
	v.SetDefault("assets.bucket", "")
	v.SetDefault("assets.base_url", "")
	v.SetDefault("assets.s3_endpoint", "")
	v.SetDefault("assets.s3_access_key", "")
	v.SetDefault("assets.s3_secret_key", "")
	v.SetDefault("assets.s3_use_ssl", true)

	v.SetDefault("search.meili_url", "")
	v.SetDefault("search.meili_api_key", "")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pending_ttl", 30*time.Minute)
}

// legacyEnv lists unprefixed variables the deployment already uses.
var legacyEnv = map[string]string{
	"jwt.secret":               "JWT_SECRET",
	"jwt.expiration_hours":     "JWT_EXPIRATION_HOURS",
	"password.bcrypt_cost":     "BCRYPT_COST",
	"password.pepper":          "PASSWORD_PEPPER",
	"messaging.resend_api_key": "RESEND_API_KEY",
	"inference.api_key":        "GEMINI_API_KEY",
	"admin_email":              "ADMIN_EMAIL",
	"store.database_url":       "DATABASE_URL",
	"redis.url":                "REDIS_URL",
	"server.port":              "PORT",
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("site")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	return v
}

// Load reads the configuration. An empty path looks for ./site.yaml and
// carries on without it; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, string, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, v.ConfigFileUsed(), nil
}

// Validate checks values that would otherwise fail late. The JWT secret is
// checked by RequireJWT since only the server needs it.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: server.port out of range: %d", c.Server.Port)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config error: log.format must be json or console, got %q", c.Log.Format)
	}
	switch c.Messaging.Mode {
	case "local", "direct":
	case "relay":
		if c.Messaging.RelayURL == "" {
			return fmt.Errorf("config error: messaging.relay_url is required in relay mode")
		}
	default:
		return fmt.Errorf("config error: unknown messaging.mode %q", c.Messaging.Mode)
	}
	switch c.Messaging.Provider {
	case "resend", "smtp":
	default:
		return fmt.Errorf("config error: unknown messaging.provider %q", c.Messaging.Provider)
	}
	switch c.Inference.Provider {
	case "", "gemini", "vertex":
	default:
		return fmt.Errorf("config error: unknown inference.provider %q", c.Inference.Provider)
	}
	switch c.Store.Backend {
	case "memory":
	case "firestore":
		if c.Store.ProjectID == "" {
			return fmt.Errorf("config error: store.project_id is required for firestore")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("config error: store.database_url is required for postgres")
		}
	default:
		return fmt.Errorf("config error: unknown store.backend %q", c.Store.Backend)
	}
	switch c.Assets.Backend {
	case "memory":
	case "gcs", "s3":
		if c.Assets.Bucket == "" {
			return fmt.Errorf("config error: assets.bucket is required for %s", c.Assets.Backend)
		}
	default:
		return fmt.Errorf("config error: unknown assets.backend %q", c.Assets.Backend)
	}
	if err := c.Password.normalize(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// RequireJWT validates the token settings.
func (c *Config) RequireJWT() error {
	return c.JWT.normalize()
}
