package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// MarketData is a single price tick for a symbol.
type MarketData struct {
	Symbol    string                   `json:"symbol" yaml:"symbol"`
	Price     float64                  `json:"price" yaml:"price"`
	Volume    float64                  `json:"volume" yaml:"volume"`
	Timestamp time.Time                `json:"timestamp" yaml:"timestamp"`
	Bid       optional.Option[float64] `json:"bid,omitempty" yaml:"bid,omitempty"`
	Ask       optional.Option[float64] `json:"ask,omitempty" yaml:"ask,omitempty"`
	High24h   optional.Option[float64] `json:"high24h,omitempty" yaml:"high24h,omitempty"`
	Low24h    optional.Option[float64] `json:"low24h,omitempty" yaml:"low24h,omitempty"`
}
