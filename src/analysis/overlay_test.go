package analysis

import (
	"testing"

	"trade-deck/src/logger"
	"trade-deck/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func testFacade(t *testing.T) *OverlayFacade {
	t.Helper()

	cfg := &models.MConfig{Timeframes: []string{"1m", "5m"}}
	cfg.Indicator.SMAPeriod = 3
	cfg.Indicator.EMAPeriod = 3
	cfg.Indicator.BollingerPeriod = 3
	cfg.Indicator.BollingerStdDevs = 2

	return NewOverlayFacade(cfg, logger.NewLogger("ERROR", "test"))
}

// -----------------------------------------------------------------------------

func tick(ts int64, price, volume float64) models.MPricePoint {
	return models.MPricePoint{
		Symbol:    "BTC-USDT",
		Price:     price,
		Volume:    volume,
		Timestamp: ts,
	}
}

// -----------------------------------------------------------------------------
// Timeframe Parsing
// -----------------------------------------------------------------------------

func TestNewOverlayFacade_ParsesTimeframes(t *testing.T) {
	f := testFacade(t)

	assert.Equal(t, int64(60), f.WindowsSecondsMap["1m"])
	assert.Equal(t, int64(300), f.WindowsSecondsMap["5m"])
}

// -----------------------------------------------------------------------------
// Candle Building
// -----------------------------------------------------------------------------

func TestBuildCandles_GroupsIntoMinuteWindows(t *testing.T) {
	f := testFacade(t)

	// Two ticks in the first minute, one in the next (ms timestamps)
	points := []models.MPricePoint{
		tick(0, 100, 1),
		tick(30_000, 110, 2),
		tick(61_000, 105, 3),
	}

	candles := f.BuildCandles("BTC-USDT", points, "1m")
	require.Len(t, candles, 2)

	first := candles[0]
	assert.Equal(t, "BTC-USDT", first.Symbol)
	assert.Equal(t, "1m", first.Timeframe)
	assert.InDelta(t, 100.0, first.Open, 1e-9)
	assert.InDelta(t, 110.0, first.High, 1e-9)
	assert.InDelta(t, 100.0, first.Low, 1e-9)
	assert.InDelta(t, 110.0, first.Close, 1e-9)
	assert.InDelta(t, 3.0, first.Volume, 1e-9)

	second := candles[1]
	assert.InDelta(t, 105.0, second.Open, 1e-9)
	assert.InDelta(t, 105.0, second.Close, 1e-9)
}

// -----------------------------------------------------------------------------

func TestBuildCandles_SortsUnorderedTicks(t *testing.T) {
	f := testFacade(t)

	points := []models.MPricePoint{
		tick(45_000, 120, 1),
		tick(0, 100, 1),
		tick(15_000, 90, 1),
	}

	candles := f.BuildCandles("BTC-USDT", points, "1m")
	require.Len(t, candles, 1)

	c := candles[0]
	assert.InDelta(t, 100.0, c.Open, 1e-9)  // earliest tick
	assert.InDelta(t, 120.0, c.Close, 1e-9) // latest tick
	assert.InDelta(t, 90.0, c.Low, 1e-9)
	assert.InDelta(t, 120.0, c.High, 1e-9)
}

// -----------------------------------------------------------------------------

func TestBuildCandles_UnknownTimeframe(t *testing.T) {
	f := testFacade(t)

	candles := f.BuildCandles("BTC-USDT", []models.MPricePoint{tick(0, 100, 1)}, "3d")
	assert.Nil(t, candles)
}

// -----------------------------------------------------------------------------

func TestBuildCandles_NoPoints(t *testing.T) {
	f := testFacade(t)
	assert.Nil(t, f.BuildCandles("BTC-USDT", nil, "1m"))
}

// -----------------------------------------------------------------------------
// Overlays
// -----------------------------------------------------------------------------

func TestComputeOverlays_NamesAndOffsets(t *testing.T) {
	f := testFacade(t)

	candles := make([]models.MCandle, 6)
	for i := range candles {
		candles[i] = models.MCandle{Close: float64(100 + i)}
	}

	overlays := f.ComputeOverlays(candles)
	require.Len(t, overlays, 5)

	byName := make(map[string]models.MOverlaySeries)
	for _, o := range overlays {
		byName[o.Name] = o
	}

	sma, ok := byName["SMA-3"]
	require.True(t, ok)
	assert.Equal(t, 2, sma.Offset)
	require.Len(t, sma.Values, 4) // 6 - 3 + 1
	assert.InDelta(t, 101.0, sma.Values[0], 1e-9)

	require.Contains(t, byName, "EMA-3")
	require.Contains(t, byName, "BOLL-3-2-upper")
	require.Contains(t, byName, "BOLL-3-2-middle")
	require.Contains(t, byName, "BOLL-3-2-lower")

	upper := byName["BOLL-3-2-upper"]
	lower := byName["BOLL-3-2-lower"]
	for i := range upper.Values {
		assert.GreaterOrEqual(t, upper.Values[i], lower.Values[i])
	}
}

// -----------------------------------------------------------------------------

func TestComputeOverlays_ShortHistoryYieldsEmptySeries(t *testing.T) {
	f := testFacade(t)

	overlays := f.ComputeOverlays([]models.MCandle{{Close: 100}})
	require.Len(t, overlays, 5)
	for _, o := range overlays {
		assert.Empty(t, o.Values)
	}
}

// -----------------------------------------------------------------------------
// Window Boundaries
// -----------------------------------------------------------------------------

func TestResampleIndices_EpochAlignedWindows(t *testing.T) {
	r := &TimeSeriesResampler{}

	// First timestamp sits mid-window; boundaries snap back to the epoch grid
	groups := r.ResampleIndices([]int64{90, 100, 130}, 60)
	require.Len(t, groups, 2)

	assert.Equal(t, int64(60), groups[0].StartTime)
	assert.Equal(t, int64(120), groups[0].EndTime)
	assert.Equal(t, []int{0, 1}, groups[0].Indices)

	assert.Equal(t, int64(120), groups[1].StartTime)
	assert.Equal(t, []int{2}, groups[1].Indices)
}

// -----------------------------------------------------------------------------

func TestCalculateWindowBoundaries(t *testing.T) {
	start, end := CalculateWindowBoundaries(125, 60)
	assert.Equal(t, int64(120), start)
	assert.Equal(t, int64(180), end)

	start, end = CalculateWindowBoundaries(120, 60)
	assert.Equal(t, int64(120), start)
	assert.Equal(t, int64(180), end)
}
