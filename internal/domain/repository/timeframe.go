package repository

import "strings"

// DefaultTimeframe is used when a request does not name one.
const DefaultTimeframe = "1h"

// NormalizeSymbol trims and upper-cases a symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeTimeframe trims a timeframe label, falling back to the default.
func NormalizeTimeframe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTimeframe
	}
	return s
}

// IsSafeKey reports whether a symbol or timeframe can address a file under the storage root.
func IsSafeKey(s string) bool {
	if s == "" || s == "." || strings.Contains(s, "..") {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}
