package rng

import (
	"math"
	"testing"
)

func TestStreamIsReproducible(t *testing.T) {
	a := New("S1")
	b := New("S1")

	for i := 0; i < 1000; i++ {
		if av, bv := a.Float64(), b.Float64(); av != bv {
			t.Fatalf("draw %d diverged: %v != %v", i, av, bv)
		}
	}
}

func TestDistinctSeedsDiverge(t *testing.T) {
	a := New("S1")
	b := New("S2")

	same := 0
	for i := 0; i < 100; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same > 0 {
		t.Fatalf("expected distinct sequences, got %d identical draws", same)
	}
}

func TestDeriveMatchesSuffixedSeed(t *testing.T) {
	derived := New("base").Derive("anomaly")
	direct := New("base_anomaly")

	for i := 0; i < 100; i++ {
		if dv, sv := derived.Float64(), direct.Float64(); dv != sv {
			t.Fatalf("draw %d diverged: %v != %v", i, dv, sv)
		}
	}
}

func TestDeriveIsIndependentOfBaseStream(t *testing.T) {
	base := New("base")
	before := base.Derive("anomaly").Float64()

	base.Float64()
	base.Float64()

	after := base.Derive("anomaly").Float64()
	if before != after {
		t.Fatalf("derived stream depends on base stream position: %v != %v", before, after)
	}
}

func TestFloat64InRange(t *testing.T) {
	s := New("range-check")
	for i := 0; i < 10000; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("draw %d out of [0,1): %v", i, v)
		}
	}
}

func TestNormIsRoughlyCentered(t *testing.T) {
	s := New("gaussian")

	const n = 20000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		v := s.Norm(0, 1)
		sum += v
		sumSq += v * v
	}

	mean := sum / n
	variance := sumSq/n - mean*mean

	if math.Abs(mean) > 0.05 {
		t.Errorf("mean too far from 0: %v", mean)
	}
	if math.Abs(variance-1) > 0.1 {
		t.Errorf("variance too far from 1: %v", variance)
	}
}
