package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// WhitelistFile is the authoritative script file when no database is
	// configured, and the fallback source when one is.
	WhitelistFile    string `envconfig:"WL_FILE" default:"whitelist.sqf"`
	IdentifierLength int    `envconfig:"WL_STEAMID_LENGTH" default:"17"`
	// RoleSpec optionally replaces the built-in role set,
	// formatted as "CODE:Description,CODE:Description,...".
	RoleSpec string        `envconfig:"WL_ROLES"`
	CacheTTL time.Duration `envconfig:"WL_CACHE_TTL" default:"300s"`

	// PGDSN is optional; when empty rosterd runs file-only.
	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	// APITokenHash is the bcrypt hash of the operator API token.
	// Empty disables authentication (development only).
	APITokenHash string `envconfig:"API_TOKEN_HASH"`

	PanelURL      string        `envconfig:"PANEL_URL"`
	PanelToken    string        `envconfig:"PANEL_TOKEN"`
	PanelServerID string        `envconfig:"PANEL_SERVER_ID"`
	PanelTimeout  time.Duration `envconfig:"PANEL_TIMEOUT" default:"10s"`
	// PanelFilePath is the whitelist file's path on the remote game server.
	PanelFilePath string `envconfig:"PANEL_FILE_PATH" default:"whitelist.sqf"`

	SyncInterval time.Duration `envconfig:"WL_SYNC_INTERVAL" default:"5m"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.WhitelistFile == "" {
		return nil, errors.New("whitelist file path must be provided")
	}
	if cfg.PanelConfigured() && cfg.PanelServerID == "" {
		return nil, errors.New("panel server id must be provided when panel url is set")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// PanelConfigured reports whether the hosting panel bridge should be wired.
func (c *Config) PanelConfigured() bool {
	return c != nil && c.PanelURL != ""
}
