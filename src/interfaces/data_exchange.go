package interfaces

import "trade-deck/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for pushing state to dashboard clients.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a dashboard state update to all connected clients.
	Broadcast(state *models.MDashboardState)

	// -----------------------------------------------------------------------------
	// UpdateState merges new data into the retained state without broadcasting.
	UpdateState(state *models.MDashboardState)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
