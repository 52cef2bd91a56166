package models

import "encoding/json"

// -----------------------------------------------------------------------------
// Upstream Wire Protocol
// -----------------------------------------------------------------------------

// MUpstreamEvent is the inbound envelope from the trading backend.
// Type "error" carries Data.message; other types correspond 1:1 to
// requested actions (bot_started, positions, trading_history, ...).
type MUpstreamEvent struct {
	Type      string          `json:"type"`
	MessageID string          `json:"messageId,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// MUpstreamError is the payload shape of a type=="error" event.
type MUpstreamError struct {
	Message string `json:"message"`
}
