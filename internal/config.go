package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/rulestore"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Content    ContentConfig     `yaml:"content"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Links      LinksConfig       `yaml:"links"`
	CMS        CMSConfig         `yaml:"cms"`
	Render     RenderConfig      `yaml:"render"`
	Revalidate RevalidateConfig  `yaml:"revalidate"`
	Metrics    MetricsConfig     `yaml:"metrics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Links.Validate(); err != nil {
		return err
	}
	if err := c.CMS.Validate(); err != nil {
		return err
	}
	if c.Links.Source == rulestore.SourceCMS && c.CMS.BaseURL == "" {
		return fmt.Errorf("links: source is %q but cms.base_url is empty", rulestore.SourceCMS)
	}
	return c.Metrics.Validate()
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

// ContentConfig holds the path to the post content directory.
type ContentConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

// LinksConfig controls where internal link rules come from and how they
// are applied.
type LinksConfig struct {
	// Source is "file" (YAML rule file) or "cms" (internal-links collection).
	Source string `yaml:"source"`
	File   string `yaml:"file"`
	// Site is the default site for posts that do not name one.
	Site string `yaml:"site"`
	// MaxTotalLinks caps injected links per page; 0 keeps the default (50).
	MaxTotalLinks int `yaml:"max_total_links"`
	// AvoidTags replaces the default list of elements never linked inside.
	AvoidTags []string      `yaml:"avoid_tags"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	if c.Source == "" {
		c.Source = rulestore.SourceFile
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.In(rulestore.SourceFile, rulestore.SourceCMS)),
		validation.Field(&c.MaxTotalLinks, validation.Min(0)),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("links: %w", err)
	}
	if c.Source == rulestore.SourceFile && c.File == "" {
		return fmt.Errorf("links: source is %q but file is empty", rulestore.SourceFile)
	}
	return nil
}

// CMSConfig holds the headless CMS connection settings.
type CMSConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// Validate validates the CMS configuration.
func (c *CMSConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.By(httpURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("cms: %w", err)
	}
	return nil
}

// Enabled reports whether a CMS is configured.
func (c *CMSConfig) Enabled() bool {
	return c.BaseURL != ""
}

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

// RenderConfig controls the final HTML.
type RenderConfig struct {
	// Sanitize runs rendered articles through an allow-list HTML policy.
	Sanitize bool `yaml:"sanitize"`
}

// RevalidateConfig holds the CMS webhook secret. An empty secret disables
// the revalidation endpoints.
type RevalidateConfig struct {
	Secret string `yaml:"secret"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the metrics configuration.
func (c *MetricsConfig) Validate() error {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Path, "/") || strings.HasPrefix(c.Path, "/api/") {
		return fmt.Errorf("metrics: path %q must be absolute and outside /api", c.Path)
	}
	return nil
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
		Content: ContentConfig{
			Path: "./content",
		},
		SQLite: SQLiteConfig{
			Path: "./folio.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Links: LinksConfig{
			Source:   rulestore.SourceFile,
			File:     "./config/links.yaml",
			CacheTTL: rulestore.DefaultTTL,
		},
		CMS: CMSConfig{
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
