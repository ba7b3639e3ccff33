package match

import "testing"

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"thermal batt", "thermal batt", 0},
		{"Thermal Batt", "thermal batt", 0}, // case-insensitive
		{"wall wrap", "wall warp", 2},
		{"r2.5 batt", "r2.5 batts", 1},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDistanceSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"ceiling batt", "ceiling batts"},
		{"xps board", "xps panel"},
	}
	for _, p := range pairs {
		if Distance(p[0], p[1]) != Distance(p[1], p[0]) {
			t.Errorf("Distance(%q, %q) not symmetric", p[0], p[1])
		}
	}
}
