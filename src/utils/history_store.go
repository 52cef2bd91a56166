package utils

import (
	"sync"

	"trade-deck/src/logger"
	"trade-deck/src/models"
)

// -----------------------------------------------------------------------------
// HistoryStore keeps per-symbol in-memory price history in ring buffers.
// -----------------------------------------------------------------------------

type HistoryStore struct {
	streams       map[string]*RingBuffer
	maxDataPoints int
	Logger        *logger.Logger
	mu            sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewHistoryStore(maxDataPoints int, log *logger.Logger) *HistoryStore {
	return &HistoryStore{
		streams:       make(map[string]*RingBuffer),
		maxDataPoints: maxDataPoints,
		Logger:        log,
	}
}

// -----------------------------------------------------------------------------

// AddPoint appends a price point to the symbol's buffer, creating the
// buffer on first use.
func (hs *HistoryStore) AddPoint(point models.MPricePoint) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	buf, ok := hs.streams[point.Symbol]
	if !ok {
		buf = NewRingBuffer(point.Symbol, hs.maxDataPoints)
		hs.streams[point.Symbol] = buf
	}
	buf.Append(point)
}

// -----------------------------------------------------------------------------

// History returns the full buffered history for one symbol, oldest first.
func (hs *HistoryStore) History(symbol string) []models.MPricePoint {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	buf, ok := hs.streams[symbol]
	if !ok {
		return []models.MPricePoint{}
	}
	return buf.GetAll()
}

// -----------------------------------------------------------------------------

// Latest returns the most recent point for one symbol.
func (hs *HistoryStore) Latest(symbol string) (models.MPricePoint, bool) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	buf, ok := hs.streams[symbol]
	if !ok || buf.Size() == 0 {
		return models.MPricePoint{}, false
	}

	latest := buf.GetLatest(1)
	return latest[0], true
}

// -----------------------------------------------------------------------------

// LatestAll returns the most recent point for every tracked symbol.
func (hs *HistoryStore) LatestAll() map[string]models.MPricePoint {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	result := make(map[string]models.MPricePoint, len(hs.streams))
	for sym, buf := range hs.streams {
		if buf.Size() == 0 {
			continue
		}
		latest := buf.GetLatest(1)
		result[sym] = latest[0]
	}
	return result
}

// -----------------------------------------------------------------------------

// Symbols lists the tracked symbols.
func (hs *HistoryStore) Symbols() []string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	syms := make([]string, 0, len(hs.streams))
	for sym := range hs.streams {
		syms = append(syms, sym)
	}
	return syms
}
