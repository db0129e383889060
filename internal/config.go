package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mdserve/internal/index"
	"github.com/starford/mdserve/internal/resolve"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// DefaultMaxFileSize is the largest file served or rendered (16 MiB).
const DefaultMaxFileSize = 16 << 20

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Serve ServeConfig       `yaml:"serve"`
	Index IndexConfig       `yaml:"index"`
	Watch WatchConfig       `yaml:"watch"`
	Auth  AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Serve.Validate(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
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
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ServeConfig describes what is served and how.
//
// Root may be empty, in which case it is derived from Entry at startup.
// Entry is a document or directory, absolute or relative to the working
// directory.
type ServeConfig struct {
	Root          string   `yaml:"root"`
	Entry         string   `yaml:"entry"`
	MaxFileSize   int64    `yaml:"max_file_size"`
	IndexNames    []string `yaml:"index_names"`
	ListingIgnore []string `yaml:"listing_ignore"`
	Workers       int64    `yaml:"workers"`
}

// Validate validates the serve configuration.
func (c *ServeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxFileSize, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.IndexNames, validation.Required, validation.Each(validation.Required, validation.By(plainName))),
		validation.Field(&c.ListingIgnore, validation.Each(validation.Required, validation.By(globPattern))),
		validation.Field(&c.Workers, validation.Required, validation.Min(int64(1)), validation.Max(int64(1024))),
	)
}

func plainName(value interface{}) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
		return errors.New("must be a plain file name")
	}
	return nil
}

func globPattern(value interface{}) error {
	s, _ := value.(string)
	if _, err := glob.Compile(s); err != nil {
		return fmt.Errorf("invalid glob: %w", err)
	}
	return nil
}

// IndexConfig holds the backlinks/search index configuration.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// WatchConfig controls the filesystem watcher and its change events.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
	// TreeThrottle is the minimum gap between tree.changed events.
	TreeThrottle time.Duration `yaml:"tree_throttle"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TreeThrottle, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration for the JSON API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
//
// Pages, assets and health checks are never guarded.
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
				Bind: "127.0.0.1",
				Port: 3000,
			},
		},
		Serve: ServeConfig{
			Entry:       "README.md",
			MaxFileSize: DefaultMaxFileSize,
			IndexNames:  append([]string(nil), resolve.DefaultIndexNames...),
			Workers:     32,
		},
		Index: IndexConfig{
			Enabled: true,
			Path:    index.MemoryDSN,
		},
		Watch: WatchConfig{
			Enabled:      true,
			TreeThrottle: 2 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
