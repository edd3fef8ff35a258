package domain

import "testing"

func TestValidSymbol(t *testing.T) {
	valid := []string{"AAPL", "aapl", "BRK.B", "X", "A1", "ABCDEFGHIJKLMNOP"}
	for _, s := range valid {
		if !ValidSymbol(s) {
			t.Errorf("ValidSymbol(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "AA PL", "AAPL$", "ABCDEFGHIJKLMNOPQ", "ÄPPL", "-1"}
	for _, s := range invalid {
		if ValidSymbol(s) {
			t.Errorf("ValidSymbol(%q) = true, want false", s)
		}
	}
}
