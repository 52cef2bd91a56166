package utils

import (
	"trade-deck/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of price points.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type RingBuffer struct {
	// Data storage as 2D slice (rows x features)
	data     [][models.RB_NUM_FEATURES]float64
	symbol   string
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(symbol string, capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000 // Default reasonable size
	}

	return &RingBuffer{
		data:     make([][models.RB_NUM_FEATURES]float64, capacity),
		symbol:   symbol,
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a structured data point (Strict Type)
func (rb *RingBuffer) Append(point models.MPricePoint) {
	rb.data[rb.index] = [models.RB_NUM_FEATURES]float64{
		float64(point.Timestamp),
		point.Price,
		point.Bid,
		point.Ask,
		point.Volume,
	}

	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns n latest records in chronological order
func (rb *RingBuffer) GetLatest(n int) []models.MPricePoint {
	if rb.size == 0 || n <= 0 {
		return []models.MPricePoint{}
	}

	// Calculate how many to return
	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MPricePoint, count)

	// Calculate starting index (latest data is at index-1)
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		idx := (startIdx + i) % rb.capacity
		result[i] = rb.toPoint(idx)
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MPricePoint {
	if rb.size == 0 {
		return []models.MPricePoint{}
	}

	result := make([]models.MPricePoint, rb.size)

	// Calculate start index (oldest element)
	var startIdx int
	if rb.size == rb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = rb.index
	} else {
		// Buffer not full, oldest is at index 0
		startIdx = 0
	}

	// Extract in order
	for i := 0; i < rb.size; i++ {
		idx := (startIdx + i) % rb.capacity
		result[i] = rb.toPoint(idx)
	}

	return result
}

// -----------------------------------------------------------------------------

func (rb *RingBuffer) toPoint(idx int) models.MPricePoint {
	row := rb.data[idx]
	return models.MPricePoint{
		Symbol:    rb.symbol,
		Timestamp: int64(row[models.RB_IDX_TIMESTAMP]),
		Price:     row[models.RB_IDX_PRICE],
		Bid:       row[models.RB_IDX_BID],
		Ask:       row[models.RB_IDX_ASK],
		Volume:    row[models.RB_IDX_VOLUME],
	}
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
