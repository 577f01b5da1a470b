package quant

import "testing"

func TestRound(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		places int
		want   float64
	}{
		{"TwoPlacesDown", 0.014, 2, 0.01},
		{"TwoPlacesUp", 0.015, 2, 0.02},
		{"ThreePlaces", 10.0149, 3, 10.015},
		{"SpreadResidue", 10.01 - 10.00, 2, 0.01},
		{"Negative", -0.015, 2, -0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Round(tt.value, tt.places); got != tt.want {
				t.Errorf("Round(%v, %d) = %v, want %v", tt.value, tt.places, got, tt.want)
			}
		})
	}
}

func TestSamePrice(t *testing.T) {
	if !SamePrice(10.01, 10.01) {
		t.Error("identical prices should match")
	}
	if !SamePrice(10.01, 10.01005) {
		t.Error("prices inside epsilon should match")
	}
	if SamePrice(10.01, 10.0102) {
		t.Error("prices outside epsilon should not match")
	}
}

func TestIsPennySpread(t *testing.T) {
	tests := []struct {
		name string
		bid  float64
		ask  float64
		want bool
	}{
		{"ExactPenny", 10.00, 10.01, true},
		{"FloatResidue", 21.34, 21.35, true},
		{"TwoPennies", 10.00, 10.02, false},
		{"Locked", 10.00, 10.00, false},
		{"SubPennyRoundsToPenny", 10.00, 10.014, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPennySpread(tt.bid, tt.ask); got != tt.want {
				t.Errorf("IsPennySpread(%v, %v) = %v, want %v", tt.bid, tt.ask, got, tt.want)
			}
		})
	}
}
