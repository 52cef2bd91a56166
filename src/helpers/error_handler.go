package helpers

import (
	"fmt"
	"time"

	"trade-deck/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type TradeDeckError struct {
	Message string
	Cause   error
}

func (e *TradeDeckError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TradeDeckError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type ConfigurationError struct{ TradeDeckError }
type NetworkError struct{ TradeDeckError }
type UpstreamError struct{ TradeDeckError }
type DatabaseError struct{ TradeDeckError }
type ValidationError struct{ TradeDeckError }

// -----------------------------------------------------------------------------

// NewValidationError builds a local precondition failure. These block the
// action synchronously and are never retried.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{TradeDeckError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return nil, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{
		Logger:     logger.NewLogger("INFO", "ErrorHandler"),
		ErrorCount: 0,
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Handle logs an error with its context. Nil errors are ignored.
func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.ErrorCount++
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
