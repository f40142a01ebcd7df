// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/slothbot-dev/slothbot/internal/blob"
	"github.com/slothbot-dev/slothbot/internal/command"
	"github.com/slothbot-dev/slothbot/internal/store"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// EnvPrefix prefixes every environment override (SLOTHBOT_LINE_ENDPOINT).
const EnvPrefix = "SLOTHBOT"

// Config is the top-level slothbot configuration.
type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Blobs      BlobsConfig      `mapstructure:"blobs"`
	Line       LineConfig       `mapstructure:"line"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Workflow   WorkflowConfig   `mapstructure:"workflow"`
	Bot        BotConfig        `mapstructure:"bot"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// NetworkingConfig controls the HTTP listener.
type NetworkingConfig struct {
	Listen string `mapstructure:"listen"`
	// Port, when set (PORT in hosted deployments), listens on all
	// interfaces and overrides Listen.
	Port           int      `mapstructure:"port"`
	PublicBaseURL  string   `mapstructure:"public_base_url"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// BlobsConfig selects and configures the blob store.
type BlobsConfig struct {
	Backend string           `mapstructure:"backend"`
	Local   LocalBlobsConfig `mapstructure:"local"`
	GCS     GCSBlobsConfig   `mapstructure:"gcs"`
}

// LocalBlobsConfig configures the filesystem blob store.
type LocalBlobsConfig struct {
	Root string `mapstructure:"root"`
}

// GCSBlobsConfig configures the Google Cloud Storage blob store.
type GCSBlobsConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	Endpoint        string `mapstructure:"endpoint"`
}

// LineConfig holds LINE Messaging API credentials and endpoints.
type LineConfig struct {
	ChannelSecret      string  `mapstructure:"channel_secret"`
	ChannelAccessToken string  `mapstructure:"channel_access_token"`
	Endpoint           string  `mapstructure:"endpoint"`
	DataEndpoint       string  `mapstructure:"data_endpoint"`
	RateLimitRPS       float64 `mapstructure:"rate_limit_rps"`
}

// IngestConfig tunes image ingestion.
type IngestConfig struct {
	MaxBytes      int64  `mapstructure:"max_bytes"`
	StagingPrefix string `mapstructure:"staging_prefix"`
}

// WorkflowConfig tunes the command interpreter.
type WorkflowConfig struct {
	DonePolicy       string             `mapstructure:"done_policy"`
	ListCategory     string             `mapstructure:"list_category"`
	SearchLimit      int                `mapstructure:"search_limit"`
	Categories       []command.Category `mapstructure:"categories"`
	StrictCategories bool               `mapstructure:"strict_categories"`
}

// BotConfig tunes event dispatch.
type BotConfig struct {
	EventTimeout time.Duration `mapstructure:"event_timeout"`
}

// LoggingConfig selects the log handler.
type LoggingConfig struct {
	Format string `mapstructure:"format"`
}

// DefaultDataDir returns ~/.slothbot, or .slothbot when the home directory
// cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".slothbot"
	}
	return filepath.Join(home, ".slothbot")
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("networking.listen", "127.0.0.1:18790")
	v.SetDefault("networking.port", 0)
	v.SetDefault("networking.public_base_url", "http://127.0.0.1:18790")
	v.SetDefault("networking.cors_origins", []string{})
	v.SetDefault("networking.rate_limit_rps", 20.0)
	v.SetDefault("networking.rate_limit_burst", 40)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("blobs.backend", "local")
	v.SetDefault("blobs.local.root", "")
	v.SetDefault("blobs.gcs.bucket", "")
	v.SetDefault("blobs.gcs.credentials_json", "")
	v.SetDefault("blobs.gcs.endpoint", "")
	v.SetDefault("line.channel_secret", "")
	v.SetDefault("line.channel_access_token", "")
	v.SetDefault("line.endpoint", "https://api.line.me")
	v.SetDefault("line.data_endpoint", "https://api-data.line.me")
	v.SetDefault("line.rate_limit_rps", 10.0)
	v.SetDefault("ingest.max_bytes", 10<<20)
	v.SetDefault("ingest.staging_prefix", "staging")
	v.SetDefault("workflow.done_policy", string(command.DoneNever))
	v.SetDefault("workflow.list_category", command.DefaultListCategory)
	v.SetDefault("workflow.search_limit", command.DefaultSearchLimit)
	v.SetDefault("workflow.strict_categories", false)
	v.SetDefault("bot.event_timeout", 30*time.Second)
	v.SetDefault("logging.format", "text")
}

// SetupEnv enables SLOTHBOT_* overrides and the bare variable names used
// by hosted LINE bot deployments.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string]string{
		"line.channel_access_token":  "CHANNEL_ACCESS_TOKEN",
		"line.channel_secret":        "CHANNEL_SECRET",
		"blobs.gcs.credentials_json": "FIREBASE_KEY_JSON",
		"networking.port":            "PORT",
	}
	for key, alias := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, alias)
	}
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return slotherr.Errorf(slotherr.CodeConfigParseInvalidFormat, "loading %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, slotherr.Errorf(slotherr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes, normalises and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, slotherr.Errorf(slotherr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	cfg.normalize()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, slotherr.Errorf(slotherr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	if strings.HasPrefix(c.DataDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.DataDir = filepath.Join(home, c.DataDir[2:])
		}
	}
	if c.Networking.Port > 0 {
		c.Networking.Listen = net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Networking.Port))
	}
	c.Networking.PublicBaseURL = strings.TrimRight(c.Networking.PublicBaseURL, "/")
	if c.Blobs.Local.Root == "" && c.DataDir != "" {
		c.Blobs.Local.Root = filepath.Join(c.DataDir, "blobs")
	}
	if len(c.Workflow.Categories) == 0 {
		c.Workflow.Categories = command.DefaultCategories()
	}
}

// StoreConfig converts the storage settings for store.NewRecordStore.
func (c *Config) StoreConfig() *store.StorageConfig {
	return &store.StorageConfig{Backend: c.Storage.Backend}
}

// BlobConfig converts the blob settings for blob.New.
func (c *Config) BlobConfig() blob.Config {
	return blob.Config{
		Backend:            c.Blobs.Backend,
		LocalRoot:          c.Blobs.Local.Root,
		PublicBaseURL:      c.Networking.PublicBaseURL,
		GCSBucket:          c.Blobs.GCS.Bucket,
		GCSCredentialsJSON: c.Blobs.GCS.CredentialsJSON,
		GCSEndpoint:        c.Blobs.GCS.Endpoint,
	}
}

// CommandConfig converts the workflow settings for command.New.
func (c *Config) CommandConfig() command.Config {
	return command.Config{
		DonePolicy:       command.DonePolicy(c.Workflow.DonePolicy),
		ListCategory:     c.Workflow.ListCategory,
		SearchLimit:      c.Workflow.SearchLimit,
		Categories:       c.Workflow.Categories,
		StrictCategories: c.Workflow.StrictCategories,
	}
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, invalid("config: data_dir must not be empty"))
	}
	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateBlobs()...)
	errs = append(errs, c.validateLine()...)
	errs = append(errs, c.validateIngest()...)
	errs = append(errs, c.validateWorkflow()...)

	if c.Bot.EventTimeout <= 0 {
		errs = append(errs, invalid("config: bot.event_timeout must be greater than 0, got %s", c.Bot.EventTimeout))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, invalid("config: logging.format must be one of [text, json], got %q", c.Logging.Format))
	}
	return errs
}

// ValidateForServe adds the checks that only matter when receiving
// webhooks: the LINE credentials must be present.
func (c *Config) ValidateForServe() []error {
	errs := c.Validate()
	if c.Line.ChannelSecret == "" {
		errs = append(errs, invalid("config: line.channel_secret (CHANNEL_SECRET) must be set"))
	}
	if c.Line.ChannelAccessToken == "" {
		errs = append(errs, invalid("config: line.channel_access_token (CHANNEL_ACCESS_TOKEN) must be set"))
	}
	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, invalid("config: networking.listen must not be empty"))
	} else if _, portStr, err := net.SplitHostPort(c.Networking.Listen); err != nil {
		errs = append(errs, invalid("config: networking.listen must be a valid host:port address, got %q: %v",
			c.Networking.Listen, err))
	} else if port, err := strconv.Atoi(portStr); err != nil {
		errs = append(errs, invalid("config: networking.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, invalid("config: networking.listen port must be between 1 and 65535, got %d", port))
	}

	if c.Networking.Port < 0 || c.Networking.Port > 65535 {
		errs = append(errs, invalid("config: networking.port must be between 0 and 65535, got %d", c.Networking.Port))
	}
	if err := validateURL(c.Networking.PublicBaseURL); err != nil {
		errs = append(errs, invalid("config: networking.public_base_url %v", err))
	}
	for i, origin := range c.Networking.CORSOrigins {
		if origin == "*" {
			errs = append(errs, invalid("config: networking.cors_origins[%d] must not be a wildcard", i))
		}
	}
	if c.Networking.RateLimitRPS < 0 {
		errs = append(errs, invalid("config: networking.rate_limit_rps must not be negative, got %g", c.Networking.RateLimitRPS))
	}
	if c.Networking.RateLimitRPS > 0 && c.Networking.RateLimitBurst <= 0 {
		errs = append(errs, invalid("config: networking.rate_limit_burst must be greater than 0 when rate limiting is on, got %d",
			c.Networking.RateLimitBurst))
	}
	return errs
}

func (c *Config) validateStorage() []error {
	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		return []error{invalid("config: storage.backend must be one of [sqlite, memory], got %q", c.Storage.Backend)}
	}
	return nil
}

func (c *Config) validateBlobs() []error {
	var errs []error
	switch c.Blobs.Backend {
	case "local":
		if c.Blobs.Local.Root == "" {
			errs = append(errs, invalid("config: blobs.local.root must not be empty"))
		}
	case "gcs":
		if c.Blobs.GCS.Bucket == "" {
			errs = append(errs, invalid("config: blobs.gcs.bucket must be set for the gcs backend"))
		}
		if c.Blobs.GCS.Endpoint != "" {
			if err := validateURL(c.Blobs.GCS.Endpoint); err != nil {
				errs = append(errs, invalid("config: blobs.gcs.endpoint %v", err))
			}
		}
	case "memory":
	default:
		errs = append(errs, invalid("config: blobs.backend must be one of [local, gcs, memory], got %q", c.Blobs.Backend))
	}
	return errs
}

func (c *Config) validateLine() []error {
	var errs []error
	if err := validateURL(c.Line.Endpoint); err != nil {
		errs = append(errs, invalid("config: line.endpoint %v", err))
	}
	if err := validateURL(c.Line.DataEndpoint); err != nil {
		errs = append(errs, invalid("config: line.data_endpoint %v", err))
	}
	if c.Line.RateLimitRPS < 0 {
		errs = append(errs, invalid("config: line.rate_limit_rps must not be negative, got %g", c.Line.RateLimitRPS))
	}
	return errs
}

func (c *Config) validateIngest() []error {
	var errs []error
	if c.Ingest.MaxBytes <= 0 {
		errs = append(errs, invalid("config: ingest.max_bytes must be greater than 0, got %d", c.Ingest.MaxBytes))
	}
	if err := blob.ValidatePath(c.Ingest.StagingPrefix); err != nil {
		errs = append(errs, invalid("config: ingest.staging_prefix %q is not a valid object prefix", c.Ingest.StagingPrefix))
	}
	return errs
}

func (c *Config) validateWorkflow() []error {
	var errs []error

	if !command.DonePolicy(c.Workflow.DonePolicy).Valid() {
		errs = append(errs, invalid("config: workflow.done_policy must be one of [never, manual, auto], got %q",
			c.Workflow.DonePolicy))
	}
	if c.Workflow.ListCategory == "" {
		errs = append(errs, invalid("config: workflow.list_category must not be empty"))
	}
	if c.Workflow.SearchLimit <= 0 {
		errs = append(errs, invalid("config: workflow.search_limit must be greater than 0, got %d", c.Workflow.SearchLimit))
	}

	seen := map[string]bool{}
	for i, cat := range c.Workflow.Categories {
		if cat.Name == "" {
			errs = append(errs, invalid("config: workflow.categories[%d].name must not be empty", i))
			continue
		}
		if seen[cat.Name] {
			errs = append(errs, invalid("config: workflow.categories[%d].name %q is duplicated", i, cat.Name))
		}
		if strings.EqualFold(strings.TrimSpace(cat.Name), store.CategoryUnknown) {
			errs = append(errs, invalid("config: workflow.categories[%d].name %q is reserved for pending records", i, cat.Name))
		}
		seen[cat.Name] = true
		if cat.Prefix != "" {
			if err := blob.ValidatePath(cat.Prefix); err != nil {
				errs = append(errs, invalid("config: workflow.categories[%d].prefix %q is not a valid object prefix", i, cat.Prefix))
			}
		}
	}
	return errs
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return slotherr.Errorf(slotherr.CodeConfigValidateInvalidValue, "must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return slotherr.Errorf(slotherr.CodeConfigValidateInvalidValue, format, args...)
}
