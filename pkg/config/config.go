package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/lodestar-data/tableau-harvester/pkg/apperrors"
)

// Config holds all configuration for the harvester.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, token values, connected-app secrets) must only come
// from environment variables.
type Config struct {
	// ConnectURI is the Tableau Server / Tableau Online base URL.
	// Trailing slashes are trimmed at load time.
	ConnectURI string `yaml:"connect_uri" env:"TABLEAU_CONNECT_URI"`

	// Site is the Tableau site content URL ("" for the default site).
	Site string `yaml:"site" env:"TABLEAU_SITE" env-default:""`

	// Username/Password credentials. Checked first during resolution.
	Username string `yaml:"username" env:"TABLEAU_USERNAME" env-default:""`
	Password string `yaml:"-" env:"TABLEAU_PASSWORD"` // Secret - not in YAML

	// Personal access token credentials. Checked second.
	TokenName  string `yaml:"token_name" env:"TABLEAU_TOKEN_NAME" env-default:""`
	TokenValue string `yaml:"-" env:"TABLEAU_TOKEN_VALUE"` // Secret - not in YAML

	// Connected-app (JWT) credentials. Checked last. All four fields plus
	// Username must be set for this mechanism to be used.
	ConnectedApp ConnectedAppConfig `yaml:"connected_app"`

	// Projects restricts the workbook crawl to the named projects.
	// Comma-separated in the environment variable form.
	Projects []string `yaml:"projects" env:"TABLEAU_PROJECTS" env-default:"default"`

	// DefaultSchemaMap maps an upstream database name to the schema to
	// assume when the metadata API returns a table without one.
	DefaultSchemaMap map[string]string `yaml:"default_schema_map"`

	// PageSize is the number of workbooks requested per metadata API page.
	PageSize int `yaml:"page_size" env:"TABLEAU_PAGE_SIZE" env-default:"10"`

	// Env tags every produced identifier with a fabric (PROD, DEV, ...).
	Env string `yaml:"env" env:"HARVEST_ENV" env-default:"PROD"`

	// IngestTags controls whether Tableau tags are copied onto records.
	IngestTags bool `yaml:"ingest_tags" env:"INGEST_TAGS" env-default:"false"`

	// IngestOwner controls whether ownership records are produced.
	IngestOwner bool `yaml:"ingest_owner" env:"INGEST_OWNER" env-default:"false"`

	// Sink selects where output records go.
	Sink SinkConfig `yaml:"sink"`

	// Database holds optional run-history storage. Harvest runs are
	// recorded when Host is non-empty; otherwise history is disabled.
	Database DatabaseConfig `yaml:"database"`

	// LogEnv selects logger construction ("local" gets console output).
	LogEnv string `yaml:"log_env" env:"LOG_ENV" env-default:"production"`
}

// ConnectedAppConfig holds Tableau connected-app (JWT) credentials.
type ConnectedAppConfig struct {
	ClientID    string `yaml:"client_id" env:"TABLEAU_CA_CLIENT_ID" env-default:""`
	SecretID    string `yaml:"secret_id" env:"TABLEAU_CA_SECRET_ID" env-default:""`
	SecretValue string `yaml:"-" env:"TABLEAU_CA_SECRET_VALUE"` // Secret - not in YAML
}

// IsConfigured returns true if every connected-app field is present.
func (c *ConnectedAppConfig) IsConfigured() bool {
	return c.ClientID != "" && c.SecretID != "" && c.SecretValue != ""
}

// SinkConfig selects and configures the output sink.
type SinkConfig struct {
	// Type is "file" or "rest".
	Type string `yaml:"type" env:"SINK_TYPE" env-default:"file"`
	// Path is the JSONL output path for the file sink ("-" for stdout).
	Path string `yaml:"path" env:"SINK_PATH" env-default:"-"`
	// URL is the ingest endpoint for the rest sink.
	URL string `yaml:"url" env:"SINK_URL" env-default:""`
}

// DatabaseConfig holds PostgreSQL configuration for run history.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:""`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"harvester"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"tableau_harvester"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"5"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// Enabled reports whether run history should be stored.
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Load reads configuration from the given YAML file with environment
// variable overrides. A missing file is tolerated so the harvester can run
// from environment variables alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize trims trailing slashes and blank project entries.
func (c *Config) normalize() {
	c.ConnectURI = strings.TrimRight(c.ConnectURI, "/")

	projects := c.Projects[:0]
	for _, p := range c.Projects {
		if p = strings.TrimSpace(p); p != "" {
			projects = append(projects, p)
		}
	}
	c.Projects = projects
}

// Validate checks that a complete credential mechanism is configured.
// Resolution order: username/password, then personal access token, then
// connected app. Validation happens before any network call.
func (c *Config) Validate() error {
	if c.ConnectURI == "" {
		return fmt.Errorf("connect_uri must be set")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if !c.HasPasswordAuth() && !c.HasTokenAuth() && !c.HasConnectedAppAuth() {
		return apperrors.ErrMissingCredentials
	}
	return nil
}

// HasPasswordAuth reports whether username/password sign-in is configured.
func (c *Config) HasPasswordAuth() bool {
	return c.Username != "" && c.Password != ""
}

// HasTokenAuth reports whether personal access token sign-in is configured.
func (c *Config) HasTokenAuth() bool {
	return c.TokenName != "" && c.TokenValue != ""
}

// HasConnectedAppAuth reports whether connected-app sign-in is configured.
// Connected-app JWTs assert an identity, so a username is also required.
func (c *Config) HasConnectedAppAuth() bool {
	return c.ConnectedApp.IsConfigured() && c.Username != ""
}
