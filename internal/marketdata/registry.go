package marketdata

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// SourceType names a market-data source implementation.
type SourceType string

const (
	SourceBinance   SourceType = "binance"
	SourcePolygon   SourceType = "polygon"
	SourceWebSocket SourceType = "websocket"
)

// SourceConfig selects and configures a source.
type SourceConfig struct {
	Type SourceType `yaml:"type" json:"type" jsonschema:"enum=binance,enum=polygon,enum=websocket" validate:"required,oneof=binance polygon websocket"`
	// URL is the endpoint of a websocket source.
	URL string `yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
	// Interval selects polygon aggregates: "1s" or "1m".
	Interval string `yaml:"interval,omitempty" json:"interval,omitempty" validate:"omitempty,oneof=1s 1m"`
	// PolygonAPIKey is usually filled from the environment.
	PolygonAPIKey string `yaml:"-" json:"-"`
}

// NewSource builds the configured source.
func NewSource(config SourceConfig, log *logger.Logger) (Source, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid market data source config", err)
	}

	switch config.Type {
	case SourceBinance:
		return NewBinanceSource(log), nil
	case SourcePolygon:
		source, err := NewPolygonSource(config.PolygonAPIKey, config.Interval, log)
		if err != nil {
			return nil, err
		}

		return source, nil
	case SourceWebSocket:
		if config.URL == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "websocket source requires a url")
		}

		return NewWebSocketSource(config.URL, log), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported market data source %q", config.Type)
	}
}
