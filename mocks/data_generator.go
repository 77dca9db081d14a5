package mocks

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// DataGenerator produces tick series standing in for a live feed in tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// TickConfig configures a generated tick series.
type TickConfig struct {
	// Symbol is the trading symbol (e.g., "BTCUSDT")
	Symbol string
	// StartTime is the timestamp of the first tick
	StartTime time.Time
	// Interval is the duration between ticks
	Interval time.Duration
	// Count is the number of ticks to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility is the per-tick standard deviation of returns (0.001 = 0.1%)
	Volatility float64
	// Spread is the bid/ask spread as a fraction of price
	Spread float64
	// VolumeBase is the average traded volume per tick
	VolumeBase float64
}

// DefaultTickConfig returns a sensible default configuration.
func DefaultTickConfig() TickConfig {
	return TickConfig{
		Symbol:       "BTCUSDT",
		StartTime:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:     time.Second,
		Count:        1000,
		InitialPrice: 50000.0,
		Volatility:   0.001,
		Spread:       0.0002,
		VolumeBase:   5,
	}
}

// Generate creates a random-walk tick series. Bid, ask and the running high/low are always set.
func (g *DataGenerator) Generate(config TickConfig) []types.MarketData {
	ticks := make([]types.MarketData, config.Count)
	price := config.InitialPrice
	high, low := price, price
	ts := config.StartTime

	for i := range ticks {
		// Box-Muller for a normally distributed return
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(1-u1)) * math.Cos(2*math.Pi*u2)

		next := price * (1 + config.Volatility*z)
		if next > 0 {
			price = next
		}

		high = math.Max(high, price)
		low = math.Min(low, price)
		half := price * config.Spread / 2

		ticks[i] = types.MarketData{
			Symbol:    config.Symbol,
			Price:     round(price, 2),
			Volume:    round(config.VolumeBase*(0.5+g.rng.Float64()), 4),
			Timestamp: ts,
			Bid:       optional.Some(round(price-half, 2)),
			Ask:       optional.Some(round(price+half, 2)),
			High24h:   optional.Some(round(high, 2)),
			Low24h:    optional.Some(round(low, 2)),
		}

		ts = ts.Add(config.Interval)
	}

	return ticks
}

// Path returns one tick per price, in order, for scripted threshold crossings.
func Path(symbol string, start time.Time, interval time.Duration, prices ...float64) []types.MarketData {
	ticks := make([]types.MarketData, len(prices))
	for i, p := range prices {
		ticks[i] = types.MarketData{
			Symbol:    symbol,
			Price:     p,
			Volume:    1,
			Timestamp: start.Add(time.Duration(i) * interval),
		}
	}

	return ticks
}

// Interleave merges several series into one ordered by timestamp. Ties keep argument order.
func Interleave(series ...[]types.MarketData) []types.MarketData {
	var all []types.MarketData
	for _, s := range series {
		all = append(all, s...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	return all
}

func round(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
