package analysis

import (
	"fmt"
	"sort"
	"time"

	"trade-deck/src/analysis/core"
	"trade-deck/src/logger"
	"trade-deck/src/models"
)

type OverlayFacade struct {
	Config            *models.MConfig
	WindowsSecondsMap map[string]int64
	Logger            *logger.Logger
}

// -----------------------------------------------------------------------------

func NewOverlayFacade(cfg *models.MConfig, log *logger.Logger) *OverlayFacade {
	// Initialize timeframe mapping from config
	windowsMap := make(map[string]int64)
	for _, tf := range cfg.Timeframes {
		if dur, err := time.ParseDuration(tf); err == nil {
			windowsMap[tf] = int64(dur.Seconds())
		}
	}

	return &OverlayFacade{
		Config:            cfg,
		WindowsSecondsMap: windowsMap,
		Logger:            log,
	}
}

// -----------------------------------------------------------------------------

// ComputeOverlays derives the configured indicator series from candle closes.
// Each overlay carries an Offset (period-1) so the chart can align values to
// source candles; candles older than the offset have no overlay value.
func (a *OverlayFacade) ComputeOverlays(candles []models.MCandle) []models.MOverlaySeries {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	var overlays []models.MOverlaySeries

	smaP := a.Config.Indicator.SMAPeriod
	overlays = append(overlays, models.MOverlaySeries{
		Name:   fmt.Sprintf("SMA-%d", smaP),
		Offset: smaP - 1,
		Values: core.SMA(closes, smaP),
	})

	emaP := a.Config.Indicator.EMAPeriod
	overlays = append(overlays, models.MOverlaySeries{
		Name:   fmt.Sprintf("EMA-%d", emaP),
		Offset: emaP - 1,
		Values: core.EMA(closes, emaP),
	})

	bollP := a.Config.Indicator.BollingerPeriod
	mult := a.Config.Indicator.BollingerStdDevs
	bands := core.Bollinger(closes, bollP, mult)
	prefix := fmt.Sprintf("BOLL-%d-%g", bollP, mult)

	overlays = append(overlays,
		models.MOverlaySeries{Name: prefix + "-upper", Offset: bollP - 1, Values: bands.Upper},
		models.MOverlaySeries{Name: prefix + "-middle", Offset: bollP - 1, Values: bands.Middle},
		models.MOverlaySeries{Name: prefix + "-lower", Offset: bollP - 1, Values: bands.Lower},
	)

	return overlays
}

// -----------------------------------------------------------------------------

// BuildCandles resamples raw price points into aligned candles for the given
// timeframe. Points are sorted by timestamp before grouping.
func (a *OverlayFacade) BuildCandles(symbol string, points []models.MPricePoint, timeframe string) []models.MCandle {
	windowSeconds, ok := a.WindowsSecondsMap[timeframe]
	if !ok {
		a.Logger.Error("Invalid timeframe %s", timeframe)
		return nil
	}
	if len(points) == 0 {
		return nil
	}

	sorted := make([]models.MPricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	timestamps := make([]int64, len(sorted))
	for i, p := range sorted {
		timestamps[i] = p.Timestamp
	}

	// Tick timestamps are in milliseconds
	resampler := &TimeSeriesResampler{}
	groups := ResampleData(resampler, timestamps, sorted, windowSeconds*1000)

	candles := make([]models.MCandle, 0, len(groups))
	for _, g := range groups {
		if len(g.Data) == 0 {
			continue
		}

		c := models.MCandle{
			Symbol:    symbol,
			Timeframe: timeframe,
			Open:      g.Data[0].Price,
			High:      g.Data[0].Price,
			Low:       g.Data[0].Price,
			Close:     g.Data[len(g.Data)-1].Price,
			StartTime: g.StartTime,
			EndTime:   g.EndTime,
			CreatedAt: time.Now().UTC(),
		}
		for _, p := range g.Data {
			if p.Price > c.High {
				c.High = p.Price
			}
			if p.Price < c.Low {
				c.Low = p.Price
			}
			c.Volume += p.Volume
		}
		candles = append(candles, c)
	}

	return candles
}
