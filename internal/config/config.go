package config

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rxtech-lab/argo-autotrader/internal/engine"
	"github.com/rxtech-lab/argo-autotrader/internal/gateway"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/parser"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AUTOTRADER"

// DefaultHTTPAddress is the API listen address when none is configured.
const DefaultHTTPAddress = ":8080"

// StrategyFile points at a strategy definition loaded on startup.
type StrategyFile struct {
	Path     string        `yaml:"path" json:"path" validate:"required"`
	Format   parser.Format `yaml:"format" json:"format" jsonschema:"enum=json,enum=dsl,enum=yaml" validate:"omitempty,oneof=json dsl yaml"`
	Activate bool          `yaml:"activate" json:"activate"`
}

// Secrets are read from the environment only, never from the config file.
type Secrets struct {
	BinanceAPIKey    string `envconfig:"BINANCE_API_KEY"`
	BinanceSecretKey string `envconfig:"BINANCE_SECRET_KEY"`
	BinanceBaseURL   string `envconfig:"BINANCE_BASE_URL"`
	PolygonAPIKey    string `envconfig:"POLYGON_API_KEY"`
}

// AppConfig is the application configuration file.
type AppConfig struct {
	Engine      engine.Config            `yaml:"engine" json:"engine"`
	Venue       gateway.VenueType        `yaml:"venue,omitempty" json:"venue,omitempty" jsonschema:"enum=binance-paper,enum=binance-live" validate:"omitempty,oneof=binance-paper binance-live"`
	Source      *marketdata.SourceConfig `yaml:"source,omitempty" json:"source,omitempty"`
	Symbols     []string                 `yaml:"symbols,omitempty" json:"symbols,omitempty"`
	Strategies  []StrategyFile           `yaml:"strategies,omitempty" json:"strategies,omitempty" validate:"dive"`
	HTTPAddress string                   `yaml:"http_address,omitempty" json:"http_address,omitempty"`
	Secrets     Secrets                  `yaml:"-" json:"-"`
}

// Load reads the YAML file at path and overlays secrets from the environment.
// A .env file next to the config, or in the working directory, is loaded first when present.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Strategy paths are relative to the config file.
	base := filepath.Dir(path)
	for i, s := range cfg.Strategies {
		if !filepath.IsAbs(s.Path) {
			cfg.Strategies[i].Path = filepath.Join(base, s.Path)
		}
	}

	// Missing .env files are fine; the environment may already be populated.
	_ = godotenv.Load(filepath.Join(base, ".env"))
	_ = godotenv.Load()

	if err := cfg.LoadSecrets(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes and validates a config document without touching the environment.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to decode config", err)
	}

	cfg.Engine = cfg.Engine.WithDefaults()

	if cfg.HTTPAddress == "" {
		cfg.HTTPAddress = DefaultHTTPAddress
	}

	for i, s := range cfg.Strategies {
		if s.Format == "" {
			cfg.Strategies[i].Format = formatFromExtension(s.Path)
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return &cfg, nil
}

// LoadSecrets fills Secrets from AUTOTRADER_* variables.
func (c *AppConfig) LoadSecrets() error {
	if err := envconfig.Process(EnvPrefix, &c.Secrets); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read environment", err)
	}

	if c.Source != nil {
		c.Source.PolygonAPIKey = c.Secrets.PolygonAPIKey
	}

	return nil
}

// VenueConfig returns the credentials for the configured venue.
func (c *AppConfig) VenueConfig() gateway.BinanceVenueConfig {
	return gateway.BinanceVenueConfig{
		ApiKey:    c.Secrets.BinanceAPIKey,
		SecretKey: c.Secrets.BinanceSecretKey,
		BaseURL:   c.Secrets.BinanceBaseURL,
	}
}

func formatFromExtension(path string) parser.Format {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return parser.FormatYAML
	case ".dsl", ".txt":
		return parser.FormatDSL
	default:
		return parser.FormatJSON
	}
}
