package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/journalsync/internal/session"
	"github.com/starford/journalsync/internal/storage"
	"github.com/starford/journalsync/internal/store"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Database DatabaseConfig    `yaml:"database"`
	Storage  StorageConfig     `yaml:"storage"`
	Sync     SyncConfig        `yaml:"sync"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration. A non-empty
// LogFile switches logging from stdout to a rotated file.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	LogFile  string     `yaml:"log_file"`
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

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DatabaseConfig selects the SQL driver and its DSN. For sqlite the DSN is
// a file path.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(store.DriverSQLite, store.DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

// StorageConfig selects where uploaded files live. PublicBaseURL prefixes
// object paths in returned URLs; only URLs under it are deleted from storage
// when an image block disappears.
type StorageConfig struct {
	Backend       string   `yaml:"backend"`
	PublicBaseURL string   `yaml:"public_base_url"`
	FS            FSConfig `yaml:"fs"`
	S3            S3Config `yaml:"s3"`
}

// FSConfig holds local-disk storage settings.
type FSConfig struct {
	Root string `yaml:"root"`
}

// S3Config holds S3-compatible bucket settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Options converts the config to storage options.
func (c *S3Config) Options(publicBase string) storage.S3Options {
	return storage.S3Options{
		Endpoint:   c.Endpoint,
		Bucket:     c.Bucket,
		AccessKey:  c.AccessKey,
		SecretKey:  c.SecretKey,
		Region:     c.Region,
		UseSSL:     c.UseSSL,
		PublicBase: publicBase,
	}
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(StorageFS, StorageS3)),
	); err != nil {
		return err
	}
	switch c.Backend {
	case StorageFS:
		if err := validation.Validate(c.PublicBaseURL, validation.Required); err != nil {
			return fmt.Errorf("storage: public_base_url: %w", err)
		}
		return validation.ValidateStruct(&c.FS,
			validation.Field(&c.FS.Root, validation.Required),
		)
	default:
		return validation.ValidateStruct(&c.S3,
			validation.Field(&c.S3.Endpoint, validation.Required),
			validation.Field(&c.S3.Bucket, validation.Required),
		)
	}
}

// SyncConfig tunes editing sessions and the save engine.
type SyncConfig struct {
	QuietPeriod    time.Duration `yaml:"quiet_period"`
	SerializeSaves bool          `yaml:"serialize_saves"`
	SaveTimeout    time.Duration `yaml:"save_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.QuietPeriod, validation.Min(10*time.Millisecond)),
		validation.Field(&c.SaveTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.ProbeTimeout, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			DSN:    "./journalsync.db",
		},
		Storage: StorageConfig{
			Backend:       StorageFS,
			PublicBaseURL: "http://localhost:8080/media",
			FS:            FSConfig{Root: "./media"},
		},
		Sync: SyncConfig{
			QuietPeriod:    session.DefaultQuietPeriod,
			SerializeSaves: true,
			SaveTimeout:    30 * time.Second,
			ProbeTimeout:   storage.DefaultProbeTimeout,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
