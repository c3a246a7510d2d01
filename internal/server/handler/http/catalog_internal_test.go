package http

import "testing"

func TestParsePrice(t *testing.T) {
	cases := map[string]int64{
		"100000":    100000,
		" 8000 ":    8000,
		"8000 FCFA": 8000,
		"12.5":      12,
		"":          0,
		"abc":       0,
		"-5":        -5,
		"+7":        7,
	}
	for in, want := range cases {
		if got := parsePrice(in); got != want {
			t.Errorf("parsePrice(%q) = %d; want %d", in, got, want)
		}
	}
}
