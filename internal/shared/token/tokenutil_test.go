package tokenutil

import "testing"

func TestEstimateFast(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"whitespace", "   \n\t", 0},
		{"short word", "hi", 1},
		{"words beat runes", "a b c d e f", 6},
		{"long run", "abcdefghijklmnop", 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimateFast(tc.in); got != tc.want {
				t.Errorf("EstimateFast(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestCountTokensNonZero(t *testing.T) {
	// Whether tiktoken loads or the heuristic kicks in, a real sentence
	// must count as at least a few tokens.
	n := CountTokens("Selected SP-100 from Helios Dynamics.")
	if n < 3 {
		t.Errorf("CountTokens = %d, want >= 3", n)
	}
	if CountTokens("") != 0 {
		t.Error("empty string should count zero tokens")
	}
}
