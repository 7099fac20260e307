package aggregator

import (
	"math"
	"testing"
)

func TestAnalyzeSignal(t *testing.T) {
	metrics := AnalyzeSignal([][]float64{{3, -4}, {0, 0}}, DefaultSignalConfig())
	if metrics.SampleCount != 4 {
		t.Errorf("Expected 4 samples, got %d", metrics.SampleCount)
	}
	if math.Abs(metrics.RMS-2.5) > 1e-12 {
		t.Errorf("Expected RMS 2.5, got %v", metrics.RMS)
	}
	if metrics.Peak != 4 {
		t.Errorf("Expected peak 4, got %v", metrics.Peak)
	}
	if math.Abs(metrics.Mean+0.25) > 1e-12 {
		t.Errorf("Expected mean -0.25, got %v", metrics.Mean)
	}
	if metrics.IsQuiet {
		t.Error("Expected a loud signal")
	}
}

func TestAnalyzeSignalEmpty(t *testing.T) {
	metrics := AnalyzeSignal(nil, DefaultSignalConfig())
	if !metrics.IsQuiet || metrics.LevelDB != -80 {
		t.Errorf("Expected quiet -80 dB, got %+v", metrics)
	}
}

func TestCalculateDecibels(t *testing.T) {
	tests := []struct {
		name string
		rms  float64
		want float64
	}{
		{"reference level", 1, 0},
		{"tenth", 0.1, -20},
		{"zero", 0, -80},
		{"clamped high", 1e6, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateDecibels(tt.rms, 1); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("calculateDecibels(%v) = %v, want %v", tt.rms, got, tt.want)
			}
		})
	}
}

func TestComputeFeatureHash(t *testing.T) {
	a := ComputeFeatureHash([][]float64{{1, 2}, {3}})
	b := ComputeFeatureHash([][]float64{{1, 2}, {3}})
	c := ComputeFeatureHash([][]float64{{1}, {2, 3}})
	if a != b {
		t.Error("Expected identical hashes for identical input")
	}
	if a == c {
		t.Error("Expected row boundaries to change the hash")
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(a))
	}
}
