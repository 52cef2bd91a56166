package sizing

import (
	"errors"
	"fmt"
	"math"

	"trade-deck/src/models"
)

// -----------------------------------------------------------------------------
// Margin Mode and Size Unit Enumerations
// -----------------------------------------------------------------------------

type MarginMode int

const (
	MarginIsolated MarginMode = iota
	MarginCross
)

func (m MarginMode) String() string {
	if m == MarginCross {
		return "cross"
	}
	return "isolated"
}

// ParseMarginMode maps the wire representation to the enum.
func ParseMarginMode(s string) (MarginMode, error) {
	switch s {
	case "isolated":
		return MarginIsolated, nil
	case "cross":
		return MarginCross, nil
	default:
		return MarginIsolated, fmt.Errorf("unknown margin mode %q", s)
	}
}

// -----------------------------------------------------------------------------

type SizeUnit int

const (
	UnitQuote SizeUnit = iota
	UnitBase
)

func (u SizeUnit) String() string {
	if u == UnitBase {
		return "base"
	}
	return "quote"
}

// ParseSizeUnit maps the wire representation to the enum.
func ParseSizeUnit(s string) (SizeUnit, error) {
	switch s {
	case "quote":
		return UnitQuote, nil
	case "base":
		return UnitBase, nil
	default:
		return UnitQuote, fmt.Errorf("unknown size unit %q", s)
	}
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// ErrPriceUnavailable is returned when the mark price is missing or not a
// usable number. Derived quantities are reported as unavailable instead of
// propagating NaN.
var ErrPriceUnavailable = errors.New("mark price unavailable")

// ErrInvalidLeverage is returned for leverage below 1.
var ErrInvalidLeverage = errors.New("leverage must be at least 1")

// -----------------------------------------------------------------------------
// Sizer
// -----------------------------------------------------------------------------

// Sizer converts between quote-currency and base-asset trade sizing and
// derives margin requirements and tradable limits.
type Sizer struct {
	Balance    float64
	Leverage   int
	Mode       MarginMode
	Unit       SizeUnit
	Size       float64
	Price      float64
	Positions  []models.MPosition
	ReservePct float64 // cross-mode safety reserve on open exposure
}

// -----------------------------------------------------------------------------

// NewSizer builds a Sizer. A non-positive reservePct falls back to the
// default 10% cross-mode reserve.
func NewSizer(balance float64, leverage int, mode MarginMode, unit SizeUnit, size, price float64, positions []models.MPosition, reservePct float64) *Sizer {
	if reservePct <= 0 {
		reservePct = 0.1
	}
	return &Sizer{
		Balance:    balance,
		Leverage:   leverage,
		Mode:       mode,
		Unit:       unit,
		Size:       size,
		Price:      price,
		Positions:  positions,
		ReservePct: reservePct,
	}
}

// -----------------------------------------------------------------------------

func (s *Sizer) priceUsable() bool {
	return s.Price > 0 && !math.IsNaN(s.Price) && !math.IsInf(s.Price, 0)
}

// -----------------------------------------------------------------------------

// totalExposure sums the absolute quote-value of all open positions.
func (s *Sizer) totalExposure() float64 {
	total := 0.0
	for _, p := range s.Positions {
		total += math.Abs(p.Amount * p.AvgPrice)
	}
	return total
}

// -----------------------------------------------------------------------------

// QuoteValue reports the trade size in quote currency: identity for quote
// sizing, size times mark price for base sizing.
func (s *Sizer) QuoteValue() (float64, error) {
	if !s.priceUsable() {
		return 0, ErrPriceUnavailable
	}
	if s.Unit == UnitQuote {
		return s.Size, nil
	}
	return s.Size * s.Price, nil
}

// -----------------------------------------------------------------------------

// MaxTradableAmount reports the largest size expressible in the current unit.
// Isolated mode uses the full balance; cross mode holds back ReservePct of
// total open exposure. The result is clamped to be non-negative.
func (s *Sizer) MaxTradableAmount() (float64, error) {
	if !s.priceUsable() {
		return 0, ErrPriceUnavailable
	}
	if s.Balance <= 0 {
		return 0, nil
	}

	effective := s.Balance
	if s.Mode == MarginCross {
		effective -= s.ReservePct * s.totalExposure()
	}
	if effective < 0 {
		effective = 0
	}

	if s.Unit == UnitBase {
		return effective / s.Price, nil
	}
	return effective, nil
}

// -----------------------------------------------------------------------------

// MarginRequirement reports the margin the trade would lock. In cross mode
// the requirement never drops below the exposure-wide requirement.
func (s *Sizer) MarginRequirement() (float64, error) {
	if s.Leverage < 1 {
		return 0, ErrInvalidLeverage
	}

	quoteValue, err := s.QuoteValue()
	if err != nil {
		return 0, err
	}

	required := quoteValue / float64(s.Leverage)
	if s.Mode == MarginCross {
		crossFloor := s.totalExposure() / float64(s.Leverage)
		if crossFloor > required {
			required = crossFloor
		}
	}
	return required, nil
}

// -----------------------------------------------------------------------------

// SliderPercentage maps the current size onto the [0,100] slider, rounded to
// the nearest integer. A zero max amount pins the slider at 0.
func (s *Sizer) SliderPercentage() (int, error) {
	max, err := s.MaxTradableAmount()
	if err != nil {
		return 0, err
	}
	if max <= 0 {
		return 0, nil
	}

	pct := s.Size / max * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return int(math.Round(pct)), nil
}

// -----------------------------------------------------------------------------

// SizeFromPercentage is the inverse slider mapping. The percentage is clamped
// to [0,100] before computing; the result is rounded to 2 decimals.
func (s *Sizer) SizeFromPercentage(pct float64) (float64, error) {
	max, err := s.MaxTradableAmount()
	if err != nil {
		return 0, err
	}

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return Round2(pct / 100 * max), nil
}

// -----------------------------------------------------------------------------
// Unit Conversion
// -----------------------------------------------------------------------------

// Convert translates a size between quote and base units at the given price,
// rounding the result to 2 decimals. Converting quote->base->quote at a
// constant price reproduces the original value up to that rounding.
func Convert(value float64, from, to SizeUnit, price float64) (float64, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, ErrPriceUnavailable
	}
	if from == to {
		return value, nil
	}
	if from == UnitQuote {
		return value / price, nil
	}
	return Round2(value * price), nil
}

// -----------------------------------------------------------------------------

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
