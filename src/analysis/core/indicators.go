package core

// -----------------------------------------------------------------------------
// Technical Indicators
// -----------------------------------------------------------------------------

// BollingerBands holds the three aligned band series produced by Bollinger.
type BollingerBands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// -----------------------------------------------------------------------------

// SMA computes the simple moving average over trailing windows of the series.
// Output length is len(series)-period+1; a series shorter than the period
// yields an empty result.
func SMA(series []float64, period int) []float64 {
	if period < 1 || len(series) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(series)-period+1)

	// Rolling sum instead of re-summing each window
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += series[i]
	}
	result = append(result, sum/float64(period))

	for i := period; i < len(series); i++ {
		sum += series[i] - series[i-period]
		result = append(result, sum/float64(period))
	}

	return result
}

// -----------------------------------------------------------------------------

// EMA computes the exponential moving average. The first output value is the
// SMA of the first period elements; each subsequent value applies
// price*k + prev*(1-k) with k = 2/(period+1). Alignment matches SMA.
func EMA(series []float64, period int) []float64 {
	if period < 1 || len(series) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(series)-period+1)

	// Seed with the SMA of the first window
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += series[i]
	}
	prev := sum / float64(period)
	result = append(result, prev)

	k := 2.0 / float64(period+1)
	for i := period; i < len(series); i++ {
		prev = series[i]*k + prev*(1-k)
		result = append(result, prev)
	}

	return result
}

// -----------------------------------------------------------------------------

// Bollinger computes Bollinger Bands: per window the middle band is the mean,
// upper/lower are mean +/- mult * population standard deviation. All three
// series align with SMA output.
func Bollinger(series []float64, period int, mult float64) BollingerBands {
	if period < 1 || len(series) < period {
		return BollingerBands{
			Upper:  []float64{},
			Middle: []float64{},
			Lower:  []float64{},
		}
	}

	n := len(series) - period + 1
	bands := BollingerBands{
		Upper:  make([]float64, n),
		Middle: make([]float64, n),
		Lower:  make([]float64, n),
	}

	for i := 0; i < n; i++ {
		mean, std := CalculateMeanStd(series[i : i+period])
		bands.Middle[i] = mean
		bands.Upper[i] = mean + mult*std
		bands.Lower[i] = mean - mult*std
	}

	return bands
}
