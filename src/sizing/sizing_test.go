package sizing

import (
	"math"
	"testing"

	"trade-deck/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// QuoteValue & MarginRequirement
// -----------------------------------------------------------------------------

func TestSizer_BaseUnitQuoteValueAndMargin(t *testing.T) {
	s := NewSizer(100000, 10, MarginIsolated, UnitBase, 1, 50000, nil, 0)

	quoteValue, err := s.QuoteValue()
	require.NoError(t, err)
	assert.InDelta(t, 50000.0, quoteValue, 1e-9)

	margin, err := s.MarginRequirement()
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, margin, 1e-9)
}

// -----------------------------------------------------------------------------

func TestSizer_QuoteUnitIsIdentity(t *testing.T) {
	s := NewSizer(100000, 5, MarginIsolated, UnitQuote, 2500, 50000, nil, 0)

	quoteValue, err := s.QuoteValue()
	require.NoError(t, err)
	assert.InDelta(t, 2500.0, quoteValue, 1e-9)

	margin, err := s.MarginRequirement()
	require.NoError(t, err)
	assert.InDelta(t, 500.0, margin, 1e-9)
}

// -----------------------------------------------------------------------------

func TestSizer_UnusablePrice(t *testing.T) {
	for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		s := NewSizer(100000, 10, MarginIsolated, UnitBase, 1, price, nil, 0)

		_, err := s.QuoteValue()
		assert.ErrorIs(t, err, ErrPriceUnavailable)

		_, err = s.MaxTradableAmount()
		assert.ErrorIs(t, err, ErrPriceUnavailable)

		_, err = s.MarginRequirement()
		assert.ErrorIs(t, err, ErrPriceUnavailable)
	}
}

// -----------------------------------------------------------------------------

func TestSizer_InvalidLeverage(t *testing.T) {
	s := NewSizer(100000, 0, MarginIsolated, UnitQuote, 1000, 50000, nil, 0)

	_, err := s.MarginRequirement()
	assert.ErrorIs(t, err, ErrInvalidLeverage)
}

// -----------------------------------------------------------------------------
// MaxTradableAmount
// -----------------------------------------------------------------------------

func TestSizer_MaxTradableIsolated(t *testing.T) {
	s := NewSizer(100000, 10, MarginIsolated, UnitQuote, 0, 50000, nil, 0)

	max, err := s.MaxTradableAmount()
	require.NoError(t, err)
	assert.InDelta(t, 100000.0, max, 1e-9)

	s.Unit = UnitBase
	max, err = s.MaxTradableAmount()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, max, 1e-9)
}

// -----------------------------------------------------------------------------

func TestSizer_MaxTradableZeroBalance(t *testing.T) {
	for _, balance := range []float64{0, -500} {
		s := NewSizer(balance, 10, MarginIsolated, UnitQuote, 0, 50000, nil, 0)

		max, err := s.MaxTradableAmount()
		require.NoError(t, err)
		assert.Zero(t, max)
	}
}

// -----------------------------------------------------------------------------

func TestSizer_CrossModeHoldsBackReserve(t *testing.T) {
	positions := []models.MPosition{
		{Symbol: "BTC-USDT", Amount: 2, AvgPrice: 50000},  // 100000 exposure
		{Symbol: "ETH-USDT", Amount: -10, AvgPrice: 3000}, // 30000 exposure
	}

	s := NewSizer(100000, 10, MarginCross, UnitQuote, 0, 50000, positions, 0)

	max, err := s.MaxTradableAmount()
	require.NoError(t, err)
	// 100000 - 0.1 * 130000
	assert.InDelta(t, 87000.0, max, 1e-9)
}

// -----------------------------------------------------------------------------

func TestSizer_CrossModeConfiguredReserve(t *testing.T) {
	positions := []models.MPosition{
		{Symbol: "BTC-USDT", Amount: 2, AvgPrice: 50000}, // 100000 exposure
	}

	s := NewSizer(100000, 10, MarginCross, UnitQuote, 0, 50000, positions, 0.25)

	max, err := s.MaxTradableAmount()
	require.NoError(t, err)
	// 100000 - 0.25 * 100000
	assert.InDelta(t, 75000.0, max, 1e-9)

	// Non-positive reserve falls back to the 10% default
	fallback := NewSizer(100000, 10, MarginCross, UnitQuote, 0, 50000, positions, 0)
	assert.InDelta(t, 0.1, fallback.ReservePct, 1e-9)
}

// -----------------------------------------------------------------------------

func TestSizer_CrossModeMoreExposureMeansLessTradable(t *testing.T) {
	small := NewSizer(100000, 10, MarginCross, UnitQuote, 0, 50000, []models.MPosition{
		{Amount: 1, AvgPrice: 50000},
	}, 0)
	large := NewSizer(100000, 10, MarginCross, UnitQuote, 0, 50000, []models.MPosition{
		{Amount: 5, AvgPrice: 50000},
	}, 0)

	maxSmall, err := small.MaxTradableAmount()
	require.NoError(t, err)
	maxLarge, err := large.MaxTradableAmount()
	require.NoError(t, err)

	assert.Greater(t, maxSmall, maxLarge)
}

// -----------------------------------------------------------------------------

func TestSizer_CrossModeClampsAtZero(t *testing.T) {
	s := NewSizer(1000, 10, MarginCross, UnitQuote, 0, 50000, []models.MPosition{
		{Amount: 10, AvgPrice: 50000}, // reserve far exceeds balance
	}, 0)

	max, err := s.MaxTradableAmount()
	require.NoError(t, err)
	assert.Zero(t, max)
}

// -----------------------------------------------------------------------------

func TestSizer_CrossMarginFloor(t *testing.T) {
	positions := []models.MPosition{
		{Amount: 2, AvgPrice: 50000}, // 100000 exposure
	}
	s := NewSizer(200000, 10, MarginCross, UnitQuote, 1000, 50000, positions, 0)

	margin, err := s.MarginRequirement()
	require.NoError(t, err)
	// trade alone needs 100, but exposure floor is 100000/10
	assert.InDelta(t, 10000.0, margin, 1e-9)
}

// -----------------------------------------------------------------------------
// Slider
// -----------------------------------------------------------------------------

func TestSizer_SliderPercentage(t *testing.T) {
	s := NewSizer(100000, 10, MarginIsolated, UnitQuote, 25000, 50000, nil, 0)

	pct, err := s.SliderPercentage()
	require.NoError(t, err)
	assert.Equal(t, 25, pct)
}

// -----------------------------------------------------------------------------

func TestSizer_SliderClampsAndRounds(t *testing.T) {
	s := NewSizer(100000, 10, MarginIsolated, UnitQuote, 250000, 50000, nil, 0)

	pct, err := s.SliderPercentage()
	require.NoError(t, err)
	assert.Equal(t, 100, pct)

	s.Size = -10
	pct, err = s.SliderPercentage()
	require.NoError(t, err)
	assert.Equal(t, 0, pct)

	s.Size = 33333 // 33.333% rounds to 33
	pct, err = s.SliderPercentage()
	require.NoError(t, err)
	assert.Equal(t, 33, pct)
}

// -----------------------------------------------------------------------------

func TestSizer_SliderZeroWhenNothingTradable(t *testing.T) {
	s := NewSizer(0, 10, MarginIsolated, UnitQuote, 1000, 50000, nil, 0)

	pct, err := s.SliderPercentage()
	require.NoError(t, err)
	assert.Equal(t, 0, pct)
}

// -----------------------------------------------------------------------------

func TestSizer_SizeFromPercentage(t *testing.T) {
	s := NewSizer(100000, 10, MarginIsolated, UnitQuote, 0, 50000, nil, 0)

	size, err := s.SizeFromPercentage(50)
	require.NoError(t, err)
	assert.InDelta(t, 50000.0, size, 1e-9)

	size, err = s.SizeFromPercentage(150)
	require.NoError(t, err)
	assert.InDelta(t, 100000.0, size, 1e-9)

	size, err = s.SizeFromPercentage(-5)
	require.NoError(t, err)
	assert.Zero(t, size)
}

// -----------------------------------------------------------------------------
// Conversion
// -----------------------------------------------------------------------------

func TestConvert_RoundTripSurvivesRounding(t *testing.T) {
	base, err := Convert(12345.67, UnitQuote, UnitBase, 50000)
	require.NoError(t, err)

	quote, err := Convert(base, UnitBase, UnitQuote, 50000)
	require.NoError(t, err)

	assert.InDelta(t, 12345.67, quote, 1e-9)
}

// -----------------------------------------------------------------------------

func TestConvert_SameUnitIsIdentity(t *testing.T) {
	v, err := Convert(123.456, UnitQuote, UnitQuote, 50000)
	require.NoError(t, err)
	assert.InDelta(t, 123.456, v, 1e-9)
}

// -----------------------------------------------------------------------------

func TestConvert_BadPrice(t *testing.T) {
	_, err := Convert(100, UnitQuote, UnitBase, 0)
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

// -----------------------------------------------------------------------------

func TestParseEnums(t *testing.T) {
	mode, err := ParseMarginMode("cross")
	require.NoError(t, err)
	assert.Equal(t, MarginCross, mode)

	_, err = ParseMarginMode("portfolio")
	assert.Error(t, err)

	unit, err := ParseSizeUnit("base")
	require.NoError(t, err)
	assert.Equal(t, UnitBase, unit)

	_, err = ParseSizeUnit("contracts")
	assert.Error(t, err)
}
