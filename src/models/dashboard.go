package models

// -----------------------------------------------------------------------------
// Server State Structure (pushed to dashboard clients)
// -----------------------------------------------------------------------------

type MDashboardState struct {
	Type      string                         `json:"type"` // "INITIAL" or "UPDATE"
	Prices    map[string]MPricePoint         `json:"prices"`
	Candles   map[string]map[string][]MCandle `json:"candles"`
	Overlays  map[string][]MOverlaySeries    `json:"overlays"`
	OrderBook *MOrderBook                    `json:"order_book,omitempty"`
	Positions []MPosition                    `json:"positions"`
	BotStatus MBotStatus                     `json:"bot_status"`
	Timestamp int64                          `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string   `json:"command"`
	ClientType string   `json:"clientType"`
	Symbols    []string `json:"symbols"`
	Timeframe  string   `json:"timeframe"`
}
