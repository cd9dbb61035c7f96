package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Weekly Standup", "weekly_standup"},
		{"keeps digits and dashes", "episode-12_final", "episode-12_final"},
		{"non ascii collapsed", "café au lait", "caf__au_lait"},
		{"whitespace trimmed", "  padded  ", "padded"},
		{"empty", "", "unknown"},
		{"only punctuation", "!!!", "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeToken(tc.input); got != tc.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
