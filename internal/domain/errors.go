package domain

import "errors"

var (
	// ErrInsufficientHistory means too few observations exist to estimate demand.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrInvalidForecastInput is a programming error: bad rate, price or cost.
	ErrInvalidForecastInput = errors.New("invalid forecast input")
	// ErrConfirmationRequired guards destructive operations.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrInvalidDateRange is returned when a range ends before it starts.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrSourceNotConfigured means an ingest or export backend has no credentials.
	ErrSourceNotConfigured = errors.New("source not configured")
)
