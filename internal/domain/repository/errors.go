package repository

import "errors"

// ErrSeriesNotFound is returned when no backing series exists for a symbol/timeframe.
// An existing but empty series is not an error.
var ErrSeriesNotFound = errors.New("series not found")
