package utils

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := CosineSimilarity(a, a); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("identical vectors should score 1.0, got %f", got)
	}
	b := []float32{0, 1, 0}
	if got := CosineSimilarity(a, b); got != 0 {
		t.Errorf("orthogonal vectors should score 0, got %f", got)
	}
	// Opposite vectors clamp to 0 rather than going negative.
	c := []float32{-1, 0, 0}
	if got := CosineSimilarity(a, c); got != 0 {
		t.Errorf("opposite vectors should clamp to 0, got %f", got)
	}
	if got := CosineSimilarity(a, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched dimensions should score 0, got %f", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("NormalizeL2 = %v", v)
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector should be unchanged, got %v", zero)
	}
}
