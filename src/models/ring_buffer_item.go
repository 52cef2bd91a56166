package models

// RingBuffer indices and constants
const (
	RB_IDX_TIMESTAMP = 0
	RB_IDX_PRICE     = 1
	RB_IDX_BID       = 2
	RB_IDX_ASK       = 3
	RB_IDX_VOLUME    = 4
	RB_NUM_FEATURES  = 5
)
