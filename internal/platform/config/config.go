// Package config loads the process configuration once at startup. Settings
// come from layered YAML files (base plus an environment overlay) with
// environment-variable overrides for deployment secrets.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Secret wraps a sensitive configuration value. Its string and JSON/YAML
// representations are redacted; callers must use Expose to read the value.
type Secret string

const redacted = "[REDACTED]"

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return redacted }

// Expose returns the wrapped value. The explicit call keeps accidental
// logging of credentials out of the codebase.
func (s Secret) Expose() string { return string(s) }

// MarshalJSON redacts the secret when config structs are serialized.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(redacted)), nil
}

// MarshalYAML redacts the secret when config structs are serialized.
func (s Secret) MarshalYAML() (any, error) {
	return redacted, nil
}

// Config is the full process configuration, loaded once and immutable after.
type Config struct {
	Application        ApplicationConfig        `yaml:"application"`
	Database           DatabaseConfig           `yaml:"database"`
	NotificationClient NotificationClientConfig `yaml:"notification_client"`
	Audit              AuditConfig              `yaml:"audit"`
}

// ApplicationConfig captures HTTP server level settings.
type ApplicationConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// BaseURL is the public address confirmation links are built against.
	BaseURL string `yaml:"base_url"`
}

// Addr returns the listen address for the HTTP server.
func (a ApplicationConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// DatabaseConfig captures PostgreSQL connection settings.
type DatabaseConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	Username              string `yaml:"username"`
	Password              Secret `yaml:"password"`
	Name                  string `yaml:"name"`
	RequireSSL            bool   `yaml:"require_ssl"`
	MaxOpenConns          int    `yaml:"max_open_conns"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
}

// DSN builds the connection string for the configured database.
func (d DatabaseConfig) DSN() string {
	sslMode := "prefer"
	if d.RequireSSL {
		sslMode = "require"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.Username, d.Password.Expose()),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if d.ConnectTimeoutSeconds > 0 {
		q.Set("connect_timeout", strconv.Itoa(d.ConnectTimeoutSeconds))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// NotificationClientConfig captures the outbound email API settings.
type NotificationClientConfig struct {
	BaseURL     string `yaml:"base_url"`
	SenderEmail string `yaml:"sender_email"`
	AuthToken   Secret `yaml:"auth_token"`
	TimeoutMS   int    `yaml:"timeout_ms"`
}

// Timeout returns the per-call timeout for notification requests.
func (n NotificationClientConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutMS) * time.Millisecond
}

// AuditConfig captures audit trail settings.
type AuditConfig struct {
	// BufferSize bounds the in-flight audit event channel.
	BufferSize int `yaml:"buffer_size"`
}

// Load reads base.yaml plus the APP_ENVIRONMENT overlay from dir, then applies
// environment-variable overrides. A .env file in the working directory is
// honored for local development.
func Load(dir string) (Config, error) {
	_ = godotenv.Load()

	environment := os.Getenv("APP_ENVIRONMENT")
	if environment == "" {
		environment = "local"
	}

	var cfg Config
	if err := mergeFile(&cfg, filepath.Join(dir, "base.yaml")); err != nil {
		return Config{}, err
	}
	if err := mergeFile(&cfg, filepath.Join(dir, environment+".yaml")); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides lets deployments keep secrets out of config files.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INKWELL_APPLICATION_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Application.Port = port
		}
	}
	if v := os.Getenv("INKWELL_APPLICATION_BASE_URL"); v != "" {
		cfg.Application.BaseURL = v
	}
	if v := os.Getenv("INKWELL_DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("INKWELL_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = Secret(v)
	}
	if v := os.Getenv("INKWELL_NOTIFICATION_AUTH_TOKEN"); v != "" {
		cfg.NotificationClient.AuthToken = Secret(v)
	}
}

func (c Config) validate() error {
	if c.Application.BaseURL == "" {
		return fmt.Errorf("config: application.base_url is required")
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("config: database.host and database.name are required")
	}
	if c.NotificationClient.BaseURL == "" {
		return fmt.Errorf("config: notification_client.base_url is required")
	}
	if c.NotificationClient.SenderEmail == "" {
		return fmt.Errorf("config: notification_client.sender_email is required")
	}
	if c.NotificationClient.TimeoutMS <= 0 {
		return fmt.Errorf("config: notification_client.timeout_ms must be positive")
	}
	return nil
}
