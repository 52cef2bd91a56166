package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"trade-deck/src/models"
)

// -----------------------------------------------------------------------------
// Typed Operations
// -----------------------------------------------------------------------------

// GetPositions fetches the open positions from the trading backend.
func (c *Client) GetPositions(ctx context.Context) ([]models.MPosition, error) {
	data, err := c.Do(ctx, "get_positions", nil)
	if err != nil {
		return nil, err
	}

	var positions []models.MPosition
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("failed to decode positions: %w", err)
	}
	return positions, nil
}

// -----------------------------------------------------------------------------

// GetTradingHistory fetches executed trades, newest first.
func (c *Client) GetTradingHistory(ctx context.Context, limit int) ([]models.MTrade, error) {
	payload := map[string]interface{}{}
	if limit > 0 {
		payload["limit"] = limit
	}

	data, err := c.Do(ctx, "get_trading_history", payload)
	if err != nil {
		return nil, err
	}

	var trades []models.MTrade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("failed to decode trading history: %w", err)
	}
	return trades, nil
}

// -----------------------------------------------------------------------------

// StartBot asks the backend to start the trading bot for a symbol.
func (c *Client) StartBot(ctx context.Context, symbol, strategy string) (models.MBotStatus, error) {
	data, err := c.Do(ctx, "start_bot", map[string]interface{}{
		"symbol":   symbol,
		"strategy": strategy,
	})
	if err != nil {
		return models.MBotStatus{}, err
	}

	var status models.MBotStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return models.MBotStatus{}, fmt.Errorf("failed to decode bot status: %w", err)
	}
	return status, nil
}

// -----------------------------------------------------------------------------

// StopBot asks the backend to stop the trading bot.
func (c *Client) StopBot(ctx context.Context) (models.MBotStatus, error) {
	data, err := c.Do(ctx, "stop_bot", nil)
	if err != nil {
		return models.MBotStatus{}, err
	}

	var status models.MBotStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return models.MBotStatus{}, fmt.Errorf("failed to decode bot status: %w", err)
	}
	return status, nil
}

// -----------------------------------------------------------------------------

// GetAIAnalysis requests an AI insight object for a symbol over the socket.
func (c *Client) GetAIAnalysis(ctx context.Context, symbol string) (json.RawMessage, error) {
	return c.Do(ctx, "get_ai_analysis", map[string]interface{}{
		"symbol": symbol,
	})
}

// -----------------------------------------------------------------------------

// GetLogs fetches recent backend log lines.
func (c *Client) GetLogs(ctx context.Context, limit int) ([]string, error) {
	payload := map[string]interface{}{}
	if limit > 0 {
		payload["limit"] = limit
	}

	data, err := c.Do(ctx, "get_logs", payload)
	if err != nil {
		return nil, err
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode logs: %w", err)
	}
	return lines, nil
}

// -----------------------------------------------------------------------------

// UpdateConfig pushes a configuration patch to the backend and waits for
// the config_updated acknowledgement.
func (c *Client) UpdateConfig(ctx context.Context, patch map[string]interface{}) error {
	_, err := c.Do(ctx, "update_config", patch)
	return err
}
