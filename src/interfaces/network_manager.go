package interfaces

import "encoding/json"

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for HTTP requests with retry logic.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request to the specified URL with parameters.
	// Returns the response body as bytes or an error.
	Get(url string, params map[string]string) ([]byte, error)

	// -----------------------------------------------------------------------------

	// FetchAnalysis retrieves the AI analysis payload for a symbol from the
	// trading backend's REST API.
	FetchAnalysis(symbol string) (json.RawMessage, error)
}
