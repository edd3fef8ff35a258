package domain

import "regexp"

var symbolRegex = regexp.MustCompile(`^[A-Za-z0-9.]{1,16}$`)

// ValidSymbol reports whether s is an acceptable ticker symbol: a short
// alphanumeric string, optionally with dots (e.g. BRK.B). Symbols are
// case-sensitive and stored as given.
func ValidSymbol(s string) bool {
	return symbolRegex.MatchString(s)
}
