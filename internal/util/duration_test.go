package util

import "testing"

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"PT1H2M3S", 3723},
		{"PT15M", 900},
		{"PT30S", 30},
		{"PT2H", 7200},
		{"PT0S", 0},
		{"", 0},
		{"1h30m", 0},
		{"P1DT2H", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseISODuration(tt.input); got != tt.want {
				t.Errorf("ParseISODuration(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{30, "0:30"},
		{90, "1:30"},
		{3600, "1:00:00"},
		{3723, "1:02:03"},
		{0, "0:00"},
	}

	for _, tt := range tests {
		if got := FormatSeconds(tt.seconds); got != tt.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
