package gateway

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// BinanceVenueConfig contains configuration for Binance trading.
type BinanceVenueConfig struct {
	ApiKey    string `json:"apiKey" yaml:"apiKey" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey string `json:"secretKey" yaml:"secretKey" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	BaseURL   string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty" jsonschema:"title=Base URL,description=Overrides the REST endpoint" validate:"omitempty,url"`
}

// Validate validates the BinanceVenueConfig struct.
func (c *BinanceVenueConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeNotConfigured, "invalid binance venue config", err)
	}

	return nil
}

// parseBinanceConfig parses a JSON configuration string into a BinanceVenueConfig.
func parseBinanceConfig(jsonConfig string) (*BinanceVenueConfig, error) {
	var config BinanceVenueConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to parse binance config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
