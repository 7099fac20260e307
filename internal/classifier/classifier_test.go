package classifier

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"wifi-pose-backend/internal/ml"
	"wifi-pose-backend/internal/models"
)

func randomCSI(rnd *rand.Rand) models.CSIVector {
	var csi models.CSIVector
	for i := range csi {
		csi[i] = rnd.NormFloat64()
	}
	return csi
}

func TestPredictShape(t *testing.T) {
	var rnd = rand.New(rand.NewSource(42))
	var m = NewModel(rnd)
	var out = m.Predict(randomCSI(rnd))
	if !(out.Presence > 0 && out.Presence < 1) {
		t.Errorf("Expected presence in (0, 1), got %v", out.Presence)
	}
	for i, logit := range out.PoseLogits {
		if !ml.IsFinite(logit) {
			t.Errorf("logit %d is not finite", i)
		}
	}
}

func TestPredictConcurrentDeterministic(t *testing.T) {
	var rnd = rand.New(rand.NewSource(1))
	var m = NewModel(rnd)
	var csi = randomCSI(rnd)
	var want = m.Predict(csi)

	var wg sync.WaitGroup
	var results = make([]Output, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Predict(csi)
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if got != want {
			t.Fatalf("goroutine %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	var rnd = rand.New(rand.NewSource(7))
	var m = NewModel(rnd)
	var path = filepath.Join(t.TempDir(), "models", "pose.bin")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Topology() != DefaultTopology() {
		t.Errorf("Expected default topology, got %v", loaded.Topology())
	}
	if loaded.Version() != m.Version() {
		t.Errorf("Expected version %s, got %s", m.Version(), loaded.Version())
	}
	for i := 0; i < 10; i++ {
		var csi = randomCSI(rnd)
		if m.Predict(csi) != loaded.Predict(csi) {
			t.Fatalf("prediction %d differs after reload", i)
		}
	}
}

func TestLoadIncompatibleTopology(t *testing.T) {
	var m = newModel(Topology{Inputs: 30, Hidden: 16, Layers: 2, Dense: 32, Outputs: 5})
	var path = filepath.Join(t.TempDir(), "small.bin")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrIncompatibleModel) {
		t.Errorf("Expected ErrIncompatibleModel, got %v", err)
	}
	if !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestLoadCorruptFiles(t *testing.T) {
	var dir = t.TempDir()
	var good = filepath.Join(dir, "good.bin")
	if err := NewModel(rand.New(rand.NewSource(1))).Save(good); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(good)
	if err != nil {
		t.Fatal(err)
	}

	var badMagic = append([]byte{'X', 'X'}, data[2:]...)
	var badVersion = append([]byte{'C', 'S', 9, 0}, data[4:]...)
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", badMagic},
		{"bad version", badVersion},
		{"truncated", data[:len(data)-3]},
		{"trailing bytes", append(append([]byte{}, data...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path = filepath.Join(dir, "corrupt.bin")
			if err := os.WriteFile(path, tt.data, 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.bin")); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for missing file, got %v", err)
	}
}

// loss with a fixed linear weighting of the raw outputs, so dL/dout == weights
func weightedOutput(m *Model, seq [][]float64, weights []float64) float64 {
	var trace = m.Forward(seq)
	var loss float64
	for i := range trace.output {
		loss += weights[i] * trace.output[i].Activation
	}
	return loss
}

func TestModelGradientCheck(t *testing.T) {
	var rnd = rand.New(rand.NewSource(3))
	var m = NewModel(rnd)
	var seq = Sequence(randomCSI(rnd))
	var weights = []float64{0.7, -0.3, 0.5, 0.1, -0.9}

	var trace = m.Forward(seq)
	m.Backward(trace, weights)

	const eps = 1e-6
	for pi, p := range m.Params() {
		// a sample of each matrix keeps the check fast
		for k := 0; k < 20; k++ {
			var i = rnd.Intn(len(p.Weights.Data))
			var orig = p.Weights.Data[i]
			p.Weights.Data[i] = orig + eps
			var plus = weightedOutput(m, seq, weights)
			p.Weights.Data[i] = orig - eps
			var minus = weightedOutput(m, seq, weights)
			p.Weights.Data[i] = orig

			var numeric = (plus - minus) / (2 * eps)
			var analytic = p.Gradients.Data[i].Value
			if math.Abs(analytic-numeric) > 1e-6+1e-4*math.Abs(numeric) {
				t.Fatalf("param %d[%d]: analytic %v, numeric %v", pi, i, analytic, numeric)
			}
		}
	}
}
