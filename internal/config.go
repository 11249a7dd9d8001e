package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/saga/internal/reader"
	"github.com/starford/saga/internal/validate/linkgraph"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Vault      VaultConfig       `yaml:"vault"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Reader     ReaderConfig      `yaml:"reader"`
	Auth       AuthConfig        `yaml:"auth"`
	Validators ValidatorsConfig  `yaml:"validators"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Reader.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the location and discovery patterns of the document vault.
type VaultConfig struct {
	Path    string   `yaml:"path"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the run-history database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ReaderConfig holds file-reading options.
type ReaderConfig struct {
	// SizeThreshold is the largest file size (bytes) read whole into memory;
	// larger files yield header data only. Zero means the built-in default.
	SizeThreshold int64 `yaml:"size_threshold"`
	DisableCache  bool  `yaml:"disable_cache"`
}

// Validate validates the reader configuration.
func (c *ReaderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SizeThreshold, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration for the HTTP surface.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ValidatorsConfig holds per-plugin enablement and options.
type ValidatorsConfig struct {
	Links      LinksConfig      `yaml:"links"`
	Characters CharactersConfig `yaml:"characters"`
}

// LinksConfig configures the link-graph validator.
type LinksConfig struct {
	Enabled          bool     `yaml:"enabled"`
	EntryPoints      []string `yaml:"entry_points"`
	CheckOrphans     bool     `yaml:"check_orphans"`
	ExternalPrefixes []string `yaml:"external_prefixes"`
}

// CharactersConfig configures the character-consistency validator.
type CharactersConfig struct {
	Enabled bool                `yaml:"enabled"`
	Aliases map[string][]string `yaml:"aliases"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:    "./vault",
			Include: []string{"**/*.md"},
		},
		SQLite: SQLiteConfig{
			Path: "./saga.db",
		},
		Reader: ReaderConfig{
			SizeThreshold: reader.DefaultSizeThreshold,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Validators: ValidatorsConfig{
			Links: LinksConfig{
				Enabled:      true,
				EntryPoints:  linkgraph.DefaultEntryPoints,
				CheckOrphans: true,
			},
			Characters: CharactersConfig{
				Enabled: true,
			},
		},
	}
}
