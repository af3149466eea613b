package models

import "errors"

var (
	ErrTransport          = errors.New("remote request failed")
	ErrStore              = errors.New("cache store failure")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrNotFound           = errors.New("not found")
)
