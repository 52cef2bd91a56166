package network

import (
	"encoding/json"
	"fmt"
	"strings"

	"trade-deck/src/helpers"
)

// -----------------------------------------------------------------------------
// One-shot AI Analysis Fetch
// -----------------------------------------------------------------------------

// FetchAnalysis retrieves the structured AI insight object for one symbol
// via plain request/response, independent of the persistent websocket.
func (nm *AsyncNetworkManager) FetchAnalysis(symbol string) (json.RawMessage, error) {
	if symbol == "" {
		return nil, helpers.NewValidationError("symbol cannot be empty")
	}

	base := strings.TrimRight(nm.Config.Upstream.RestBaseURL, "/")
	body, err := nm.Get(fmt.Sprintf("%s/api/analysis/%s", base, symbol), nil)
	if err != nil {
		return nil, &helpers.UpstreamError{TradeDeckError: helpers.TradeDeckError{
			Message: fmt.Sprintf("analysis fetch for %s failed", symbol),
			Cause:   err,
		}}
	}

	// Validate that the payload is well-formed JSON before passing it on
	if !json.Valid(body) {
		return nil, &helpers.UpstreamError{TradeDeckError: helpers.TradeDeckError{
			Message: fmt.Sprintf("analysis response for %s is not valid JSON", symbol),
		}}
	}

	return json.RawMessage(body), nil
}
