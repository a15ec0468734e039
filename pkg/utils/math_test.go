package utils

import (
	"math"
	"testing"
)

func TestNormalized(t *testing.T) {
	v := []float32{0, 10}
	got := Normalized(v)
	if got[0] != 0 || math.Abs(float64(got[1])-1) > 1e-6 {
		t.Errorf("got %v", got)
	}
	if v[1] != 10 {
		t.Errorf("input modified: %v", v)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v", v)
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed: %v", zero)
	}
}

func TestRound1(t *testing.T) {
	tests := map[float64]float64{
		66.666: 66.7,
		33.333: 33.3,
		60:     60,
		0.05:   0.1,
	}
	for in, want := range tests {
		if got := Round1(in); got != want {
			t.Errorf("Round1(%v) = %v, want %v", in, got, want)
		}
	}
}
