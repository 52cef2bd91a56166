package orderbook

import (
	"math"
	"math/rand"
	"time"

	"trade-deck/src/models"
)

// -----------------------------------------------------------------------------
// Synthetic Order Book Generator
// -----------------------------------------------------------------------------

// Generator produces plausible demo-mode bid/ask ladders around a mark
// price when no live book is available.
type Generator struct {
	Levels    int     // price levels per side
	SpreadPct float64 // half-spread as a fraction of mid price
	StepPct   float64 // distance between levels as a fraction of mid price
	BaseSize  float64 // mean size per level
	rng       *rand.Rand
}

// -----------------------------------------------------------------------------

// NewGenerator builds a generator with dashboard-friendly defaults.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		Levels:    12,
		SpreadPct: 0.0002,
		StepPct:   0.0005,
		BaseSize:  1.5,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// -----------------------------------------------------------------------------

// Generate builds a synthetic book around the mid price. Bids are ordered
// best-first (descending price), asks best-first (ascending price); each
// level carries the cumulative size from the top of its side.
func (g *Generator) Generate(symbol string, midPrice float64) *models.MOrderBook {
	if midPrice <= 0 || math.IsNaN(midPrice) || math.IsInf(midPrice, 0) {
		return nil
	}

	halfSpread := midPrice * g.SpreadPct
	step := midPrice * g.StepPct

	bestBid := midPrice - halfSpread
	bestAsk := midPrice + halfSpread

	book := &models.MOrderBook{
		Symbol:    symbol,
		Bids:      make([]models.MOrderBookLevel, 0, g.Levels),
		Asks:      make([]models.MOrderBookLevel, 0, g.Levels),
		MidPrice:  midPrice,
		Spread:    bestAsk - bestBid,
		Timestamp: time.Now().Unix(),
		Synthetic: true,
	}

	bidTotal := 0.0
	askTotal := 0.0

	for i := 0; i < g.Levels; i++ {
		// Size grows away from the touch with multiplicative noise
		depthFactor := 1.0 + 0.35*float64(i)
		bidSize := g.noisySize(depthFactor)
		askSize := g.noisySize(depthFactor)

		bidTotal += bidSize
		askTotal += askSize

		book.Bids = append(book.Bids, models.MOrderBookLevel{
			Price: roundPrice(bestBid-step*float64(i), midPrice),
			Size:  bidSize,
			Total: bidTotal,
		})
		book.Asks = append(book.Asks, models.MOrderBookLevel{
			Price: roundPrice(bestAsk+step*float64(i), midPrice),
			Size:  askSize,
			Total: askTotal,
		})
	}

	return book
}

// -----------------------------------------------------------------------------

func (g *Generator) noisySize(depthFactor float64) float64 {
	noise := 0.5 + g.rng.Float64() // uniform in [0.5, 1.5)
	size := g.BaseSize * depthFactor * noise
	return math.Round(size*1000) / 1000
}

// -----------------------------------------------------------------------------

// roundPrice keeps a sensible tick precision relative to the price
// magnitude: large prices round to cents, small ones keep more digits.
func roundPrice(price, mid float64) float64 {
	switch {
	case mid >= 100:
		return math.Round(price*100) / 100
	case mid >= 1:
		return math.Round(price*10000) / 10000
	default:
		return math.Round(price*1e6) / 1e6
	}
}
