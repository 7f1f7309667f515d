package detect

import "testing"

func TestCompute_Empty(t *testing.T) {
	stats := Compute(nil)

	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if stats.HelmetPercent != 0 {
		t.Errorf("HelmetPercent = %d, want 0 (no division by zero)", stats.HelmetPercent)
	}
}

func TestCompute_Mixed(t *testing.T) {
	dets := []Detection{
		{HasHelmet: true, Confidence: 0.9},
		{HasHelmet: false, Confidence: 0.8},
		{HasHelmet: true, Confidence: 0.7},
	}

	stats := Compute(dets)

	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.WithHelmet != 2 {
		t.Errorf("WithHelmet = %d, want 2", stats.WithHelmet)
	}
	if stats.WithoutHelmet != 1 {
		t.Errorf("WithoutHelmet = %d, want 1", stats.WithoutHelmet)
	}
	if stats.HelmetPercent != 67 {
		t.Errorf("HelmetPercent = %d, want 67 (rounded)", stats.HelmetPercent)
	}
}

func TestCompute_EvenSplit(t *testing.T) {
	dets := []Detection{
		{HasHelmet: true, Confidence: 0.9},
		{HasHelmet: false, Confidence: 0.82},
	}

	stats := Compute(dets)
	want := Statistics{Total: 2, WithHelmet: 1, WithoutHelmet: 1, HelmetPercent: 50}
	if stats != want {
		t.Errorf("Compute() = %+v, want %+v", stats, want)
	}
}

func TestCompute_AllHelmet(t *testing.T) {
	dets := []Detection{
		{HasHelmet: true},
		{HasHelmet: true},
	}

	stats := Compute(dets)
	if stats.HelmetPercent != 100 {
		t.Errorf("HelmetPercent = %d, want 100", stats.HelmetPercent)
	}
	if stats.WithoutHelmet != 0 {
		t.Errorf("WithoutHelmet = %d, want 0", stats.WithoutHelmet)
	}
}
