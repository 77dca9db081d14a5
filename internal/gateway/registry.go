package gateway

import (
	"sort"

	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/rxtech-lab/argo-autotrader/pkg/strategy"
)

type VenueType string

const (
	VenueBinancePaper VenueType = "binance-paper"
	VenueBinanceLive  VenueType = "binance-live"
)

type VenueInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	IsPaperTrading bool   `json:"isPaperTrading"`
}

var venueRegistry = map[VenueType]VenueInfo{
	VenueBinancePaper: {
		Name:           string(VenueBinancePaper),
		DisplayName:    "Binance Testnet",
		Description:    "Binance testnet for paper trading cryptocurrency without real funds",
		IsPaperTrading: true,
	},
	VenueBinanceLive: {
		Name:           string(VenueBinanceLive),
		DisplayName:    "Binance Live",
		Description:    "Binance live environment for real-funds cryptocurrency trading",
		IsPaperTrading: false,
	},
}

// GetSupportedVenues returns the registered venue names, sorted.
func GetSupportedVenues() []string {
	venues := make([]string, 0, len(venueRegistry))
	for venueType := range venueRegistry {
		venues = append(venues, string(venueType))
	}

	sort.Strings(venues)

	return venues
}

// GetVenueInfo returns metadata for a venue.
func GetVenueInfo(name string) (VenueInfo, error) {
	info, exists := venueRegistry[VenueType(name)]
	if !exists {
		return VenueInfo{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported venue: %s", name)
	}

	return info, nil
}

// GetVenueConfigSchema returns the JSON schema for a venue's configuration.
func GetVenueConfigSchema(name string) (string, error) {
	switch VenueType(name) {
	case VenueBinancePaper, VenueBinanceLive:
		return strategy.ToJSONSchema(BinanceVenueConfig{})
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported venue: %s", name)
	}
}

// NewVenueFromJSON parses a JSON configuration and builds the named venue.
func NewVenueFromJSON(name string, jsonConfig string) (Venue, error) {
	switch VenueType(name) {
	case VenueBinancePaper, VenueBinanceLive:
		config, err := parseBinanceConfig(jsonConfig)
		if err != nil {
			return nil, err
		}

		return NewVenue(VenueType(name), *config)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported venue: %s", name)
	}
}

// NewVenue builds a venue of the given type.
func NewVenue(venueType VenueType, config BinanceVenueConfig) (Venue, error) {
	var useTestnet bool

	switch venueType {
	case VenueBinancePaper:
		useTestnet = true
	case VenueBinanceLive:
		useTestnet = false
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported venue: %s", venueType)
	}

	venue, err := NewBinanceVenue(config, useTestnet)
	if err != nil {
		return nil, err
	}

	return venue, nil
}
