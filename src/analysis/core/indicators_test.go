package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// SMA
// -----------------------------------------------------------------------------

func TestSMA_OutputLength(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	result := SMA(series, 3)

	require.Len(t, result, 8) // len(series) - period + 1
}

// -----------------------------------------------------------------------------

func TestSMA_WindowMeans(t *testing.T) {
	series := []float64{2, 4, 6, 8}

	result := SMA(series, 2)

	require.Len(t, result, 3)
	assert.InDelta(t, 3.0, result[0], 1e-9)
	assert.InDelta(t, 5.0, result[1], 1e-9)
	assert.InDelta(t, 7.0, result[2], 1e-9)
}

// -----------------------------------------------------------------------------

func TestSMA_SeriesShorterThanPeriod(t *testing.T) {
	result := SMA([]float64{1, 2}, 5)

	assert.NotNil(t, result)
	assert.Empty(t, result)
}

// -----------------------------------------------------------------------------

func TestSMA_PeriodEqualsLength(t *testing.T) {
	result := SMA([]float64{1, 2, 3}, 3)

	require.Len(t, result, 1)
	assert.InDelta(t, 2.0, result[0], 1e-9)
}

// -----------------------------------------------------------------------------

func TestSMA_InvalidPeriod(t *testing.T) {
	assert.Empty(t, SMA([]float64{1, 2, 3}, 0))
	assert.Empty(t, SMA([]float64{1, 2, 3}, -1))
}

// -----------------------------------------------------------------------------
// EMA
// -----------------------------------------------------------------------------

func TestEMA_FirstValueIsSMASeed(t *testing.T) {
	series := []float64{10, 20, 30, 40, 50}

	result := EMA(series, 3)

	require.Len(t, result, 3)
	assert.InDelta(t, 20.0, result[0], 1e-9) // mean of first 3
}

// -----------------------------------------------------------------------------

func TestEMA_ConstantSeriesStaysFlat(t *testing.T) {
	series := []float64{7, 7, 7, 7, 7, 7, 7, 7}

	result := EMA(series, 4)

	require.Len(t, result, 5)
	for _, v := range result {
		assert.InDelta(t, 7.0, v, 1e-9)
	}
}

// -----------------------------------------------------------------------------

func TestEMA_RecurrenceMatchesHandComputation(t *testing.T) {
	series := []float64{1, 2, 3, 10}

	result := EMA(series, 3)

	require.Len(t, result, 2)
	// seed = (1+2+3)/3 = 2, k = 2/4 = 0.5
	// next = 10*0.5 + 2*0.5 = 6
	assert.InDelta(t, 2.0, result[0], 1e-9)
	assert.InDelta(t, 6.0, result[1], 1e-9)
}

// -----------------------------------------------------------------------------
// Bollinger
// -----------------------------------------------------------------------------

func TestBollinger_BandOrdering(t *testing.T) {
	series := []float64{44, 47, 45, 50, 48, 52, 49, 53, 51, 55}

	bands := Bollinger(series, 5, 2.0)

	require.Len(t, bands.Middle, 6)
	require.Len(t, bands.Upper, 6)
	require.Len(t, bands.Lower, 6)

	for i := range bands.Middle {
		assert.GreaterOrEqual(t, bands.Upper[i], bands.Middle[i])
		assert.GreaterOrEqual(t, bands.Middle[i], bands.Lower[i])
	}
}

// -----------------------------------------------------------------------------

func TestBollinger_UsesPopulationStdDev(t *testing.T) {
	series := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	bands := Bollinger(series, 8, 2.0)

	require.Len(t, bands.Middle, 1)
	// mean = 5, population std = 2 (classic example)
	assert.InDelta(t, 5.0, bands.Middle[0], 1e-9)
	assert.InDelta(t, 9.0, bands.Upper[0], 1e-9)
	assert.InDelta(t, 1.0, bands.Lower[0], 1e-9)
}

// -----------------------------------------------------------------------------

func TestBollinger_ConstantSeriesCollapses(t *testing.T) {
	series := []float64{5, 5, 5, 5, 5}

	bands := Bollinger(series, 3, 2.0)

	for i := range bands.Middle {
		assert.InDelta(t, 5.0, bands.Upper[i], 1e-9)
		assert.InDelta(t, 5.0, bands.Middle[i], 1e-9)
		assert.InDelta(t, 5.0, bands.Lower[i], 1e-9)
	}
}

// -----------------------------------------------------------------------------

func TestBollinger_ShortSeriesIsEmpty(t *testing.T) {
	bands := Bollinger([]float64{1, 2}, 5, 2.0)

	assert.Empty(t, bands.Upper)
	assert.Empty(t, bands.Middle)
	assert.Empty(t, bands.Lower)
}

// -----------------------------------------------------------------------------
// Statistics
// -----------------------------------------------------------------------------

func TestCalculateMeanStd_Population(t *testing.T) {
	mean, std := CalculateMeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.0, std, 1e-9)
}

// -----------------------------------------------------------------------------

func TestCalculateMeanStd_SingleElement(t *testing.T) {
	mean, std := CalculateMeanStd([]float64{42})

	assert.InDelta(t, 42.0, mean, 1e-9)
	assert.Zero(t, std)
}

// -----------------------------------------------------------------------------

func TestCalculateChangePercent(t *testing.T) {
	assert.InDelta(t, 0.1, CalculateChangePercent(110, 100), 1e-9)
	assert.InDelta(t, -0.5, CalculateChangePercent(50, 100), 1e-9)
	assert.True(t, math.Abs(CalculateChangePercent(10, 0)) < 1e-9)
}
