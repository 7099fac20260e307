package signal

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"wifi-pose-backend/internal/models"
)

func TestButterworthCoefficients(t *testing.T) {
	b, a, err := Butterworth(3, 0.1)
	if err != nil {
		t.Fatalf("Butterworth failed: %v", err)
	}
	var wantB = []float64{0.00289819, 0.00869458, 0.00869458, 0.00289819}
	var wantA = []float64{1, -2.37409474, 1.92935567, -0.53207537}
	for i := range wantB {
		if math.Abs(b[i]-wantB[i]) > 1e-7 {
			t.Errorf("b[%d] = %v, want %v", i, b[i], wantB[i])
		}
		if math.Abs(a[i]-wantA[i]) > 1e-7 {
			t.Errorf("a[%d] = %v, want %v", i, a[i], wantA[i])
		}
	}
}

func TestButterworthInvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		order int
		wn    float64
	}{
		{"zero order", 0, 0.1},
		{"zero cutoff", 3, 0},
		{"nyquist cutoff", 3, 1},
		{"nan cutoff", 3, math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Butterworth(tt.order, tt.wn); !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestFiltFiltPreservesConstant(t *testing.T) {
	b, a, _ := Butterworth(3, 0.1)
	var x = make([]float64, 30)
	for i := range x {
		x[i] = 1.7
	}
	y, err := FiltFilt(b, a, x)
	if err != nil {
		t.Fatalf("FiltFilt failed: %v", err)
	}
	for i, v := range y {
		if math.Abs(v-1.7) > 1e-9 {
			t.Fatalf("y[%d] = %v, want 1.7", i, v)
		}
	}
}

func TestFiltFiltRejectsNyquist(t *testing.T) {
	// every zero of the low-pass sits at z = -1
	b, a, _ := Butterworth(3, 0.1)
	var x = make([]float64, 200)
	for i := range x {
		x[i] = 1
		if i%2 == 1 {
			x[i] = -1
		}
	}
	y, err := FiltFilt(b, a, x)
	if err != nil {
		t.Fatalf("FiltFilt failed: %v", err)
	}
	for i := 80; i < 120; i++ {
		if math.Abs(y[i]) > 0.01 {
			t.Errorf("y[%d] = %v, want close to 0", i, y[i])
		}
	}
}

func TestFiltFiltShortInput(t *testing.T) {
	b, a, _ := Butterworth(3, 0.1)
	if _, err := FiltFilt(b, a, make([]float64, 12)); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestLFilterZIStepSteadyState(t *testing.T) {
	b, a, _ := Butterworth(3, 0.1)
	zi, err := LFilterZI(b, a)
	if err != nil {
		t.Fatalf("LFilterZI failed: %v", err)
	}
	var step = make([]float64, 20)
	for i := range step {
		step[i] = 1
	}
	for i, v := range LFilter(b, a, step, zi) {
		if math.Abs(v-1) > 1e-9 {
			t.Fatalf("y[%d] = %v, want 1", i, v)
		}
	}
}

// correlationLag returns the lag in [-maxLag, maxLag] at which the
// cross-correlation of x and y peaks
func correlationLag(x, y []float64, maxLag int) int {
	var best, bestValue = 0, math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		var sum float64
		for i := range x {
			if j := i + lag; j >= 0 && j < len(y) {
				sum += x[i] * y[j]
			}
		}
		if sum > bestValue {
			best, bestValue = lag, sum
		}
	}
	return best
}

// strongestExtremum returns the interior local extremum with the largest magnitude
func strongestExtremum(v []float64) int {
	var best = -1
	for i := 1; i < len(v)-1; i++ {
		var isMax = v[i] >= v[i-1] && v[i] >= v[i+1]
		var isMin = v[i] <= v[i-1] && v[i] <= v[i+1]
		if (isMax || isMin) && (best < 0 || math.Abs(v[i]) > math.Abs(v[best])) {
			best = i
		}
	}
	return best
}

func TestFiltFiltRefilterDoesNotShift(t *testing.T) {
	b, a, _ := Butterworth(3, 0.1)
	var noisy = NewSynthesizer(rand.New(rand.NewSource(42)))
	var clean = NewSynthesizer(rand.New(rand.NewSource(42)))

	for _, pose := range models.AllPoses() {
		t.Run(pose.String(), func(t *testing.T) {
			for _, noise := range []float64{0, 0.1} {
				var synth = clean
				if noise > 0 {
					synth = noisy
				}
				csi, err := synth.Synthesize(pose, true, noise)
				if err != nil {
					t.Fatalf("Synthesize failed: %v", err)
				}
				refiltered, err := FiltFilt(b, a, csi[:])
				if err != nil {
					t.Fatalf("FiltFilt failed: %v", err)
				}
				if lag := correlationLag(csi[:], refiltered, 5); lag != 0 {
					t.Errorf("noise %v: expected cross-correlation peak at lag 0, got %d", noise, lag)
				}
				if noise > 0 {
					continue
				}
				// smoothing may pull a lopsided extremum by one sample, never more
				var before, after = strongestExtremum(csi[:]), strongestExtremum(refiltered)
				if before < 0 || after < before-1 || after > before+1 {
					t.Errorf("Expected the strongest extremum to stay near %d, got %d", before, after)
				}
			}
		})
	}

	// a single causal pass delays the signal, which the lag check must see
	csi, _ := clean.Synthesize(models.PoseStand, true, 0)
	zi, _ := LFilterZI(b, a)
	var causal = LFilter(b, a, csi[:], scaled(zi, csi[0]))
	if lag := correlationLag(csi[:], causal, 5); lag <= 0 {
		t.Errorf("Expected a causal filter to lag, got %d", lag)
	}
}

func TestSynthesizeAllPoses(t *testing.T) {
	var synth = NewSynthesizer(rand.New(rand.NewSource(42)))
	for _, pose := range models.AllPoses() {
		csi, err := synth.Synthesize(pose, true, DefaultNoiseLevel)
		if err != nil {
			t.Fatalf("%v: %v", pose, err)
		}
		for i, v := range csi {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%v: value %d is not finite", pose, i)
			}
		}
	}
}

func TestSynthesizeNoiselessIsDeterministic(t *testing.T) {
	var first = NewSynthesizer(rand.New(rand.NewSource(1)))
	var second = NewSynthesizer(rand.New(rand.NewSource(99)))
	for _, pose := range models.AllPoses() {
		x, _ := first.Synthesize(pose, true, 0)
		y, _ := second.Synthesize(pose, true, 0)
		if x != y {
			t.Errorf("%v: expected identical noiseless vectors", pose)
		}
	}

	// poses must be distinguishable without noise
	sleep, _ := first.Synthesize(models.PoseSleep, true, 0)
	stand, _ := first.Synthesize(models.PoseStand, true, 0)
	if sleep == stand {
		t.Error("Expected different waveforms for Sleep and Stand")
	}
}

func TestSynthesizeEmptyRoomIsSmall(t *testing.T) {
	var synth = NewSynthesizer(rand.New(rand.NewSource(5)))
	var sum, sumSq float64
	const n = 200
	for i := 0; i < n; i++ {
		// pose is ignored without presence
		csi, err := synth.Synthesize(models.Pose(17), false, 5)
		if err != nil {
			t.Fatalf("Synthesize failed: %v", err)
		}
		for _, v := range csi {
			sum += v
			sumSq += v * v
		}
	}
	var count = float64(n * models.NumSubcarriers)
	var mean = sum / count
	var rms = math.Sqrt(sumSq / count)
	if math.Abs(mean) > 0.02 {
		t.Errorf("Expected mean near 0, got %v", mean)
	}
	if rms > 0.1 {
		t.Errorf("Expected smoothed background below the raw noise level, got rms %v", rms)
	}
}

func TestSynthesizeInvalid(t *testing.T) {
	var synth = NewSynthesizer(rand.New(rand.NewSource(5)))
	if _, err := synth.Synthesize(models.Pose(4), true, 0.1); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for unknown pose, got %v", err)
	}
	if _, err := synth.Synthesize(models.PoseSit, true, -1); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for negative noise, got %v", err)
	}
}
