package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultTickConfig()
	config.Count = 100

	ticks := gen.Generate(config)
	require.Len(t, ticks, 100)

	for i, tick := range ticks {
		assert.Equal(t, config.Symbol, tick.Symbol)
		assert.Greater(t, tick.Price, 0.0)
		assert.True(t, tick.Bid.Unwrap() <= tick.Ask.Unwrap(), "bid above ask at %d", i)
		assert.True(t, tick.Low24h.Unwrap() <= tick.High24h.Unwrap(), "low above high at %d", i)

		if i > 0 {
			assert.Equal(t, config.Interval, tick.Timestamp.Sub(ticks[i-1].Timestamp))
		}
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	config := DefaultTickConfig()
	config.Count = 10

	assert.Equal(t, NewDataGenerator(42).Generate(config), NewDataGenerator(42).Generate(config))
	assert.NotEqual(t, NewDataGenerator(42).Generate(config), NewDataGenerator(123).Generate(config))
}

func TestPath(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := Path("ETHUSDT", start, time.Second, 3100, 2990, 3010)

	require.Len(t, ticks, 3)
	assert.Equal(t, 2990.0, ticks[1].Price)
	assert.Equal(t, start.Add(2*time.Second), ticks[2].Timestamp)
}

func TestInterleave(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	btc := Path("BTCUSDT", start, 2*time.Second, 1, 2, 3)
	eth := Path("ETHUSDT", start.Add(time.Second), 2*time.Second, 10, 20)

	merged := Interleave(btc, eth)
	require.Len(t, merged, 5)

	symbols := make([]string, len(merged))
	for i, tick := range merged {
		symbols[i] = tick.Symbol
	}

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "BTCUSDT", "ETHUSDT", "BTCUSDT"}, symbols)
}
