package domain

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when a builder report for a day is not published.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAddress is returned for malformed account or builder addresses.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidTimeRange is returned when a window ends before it starts.
	ErrInvalidTimeRange = errors.New("invalid time range")
	// ErrMalformedRecord is returned when a feed record cannot be parsed.
	ErrMalformedRecord = errors.New("malformed record")
)
