package signal

import (
	"fmt"
	"math"
	"math/rand"

	"wifi-pose-backend/internal/models"
)

const (
	DefaultNoiseLevel = 0.1
	// EmptyRoomNoise is the standard deviation of the background signal
	// when nobody is present; it does not depend on the noise level.
	EmptyRoomNoise = 0.1

	FilterOrder  = 3
	FilterCutoff = 0.1
)

type waveform func(x float64) float64

var poseWaveforms = map[models.Pose]waveform{
	models.PoseStand: func(x float64) float64 {
		return 2.0*math.Sin(x) + 0.5*math.Cos(2*x)
	},
	models.PoseSit: func(x float64) float64 {
		return 1.5*math.Sin(x+math.Pi/4) + 0.8*math.Cos(3*x)
	},
	models.PoseKneel: func(x float64) float64 {
		return 1.2*math.Sin(2*x) + 0.6*math.Cos(x+math.Pi/3)
	},
	models.PoseSleep: func(x float64) float64 {
		return 0.8*math.Sin(3*x) + 1.0*math.Cos(x+math.Pi/6)
	},
}

// Synthesizer produces simulated CSI amplitude vectors. It owns a random
// source and is not safe for concurrent use.
type Synthesizer struct {
	rnd *rand.Rand
	b   []float64
	a   []float64
}

func NewSynthesizer(rnd *rand.Rand) *Synthesizer {
	b, a, err := Butterworth(FilterOrder, FilterCutoff)
	if err != nil {
		// constant, valid arguments
		panic(err)
	}
	return &Synthesizer{rnd: rnd, b: b, a: a}
}

// Synthesize returns one smoothed 30-subcarrier amplitude vector. The pose
// is ignored when presence is false.
func (s *Synthesizer) Synthesize(pose models.Pose, presence bool, noiseLevel float64) (models.CSIVector, error) {
	var csi models.CSIVector
	if noiseLevel < 0 || math.IsNaN(noiseLevel) {
		return csi, fmt.Errorf("%w: noise level must be non-negative, got %v", models.ErrInvalidArgument, noiseLevel)
	}

	var raw = make([]float64, models.NumSubcarriers)
	if !presence {
		for i := range raw {
			raw[i] = s.rnd.NormFloat64() * EmptyRoomNoise
		}
	} else {
		var wave, ok = poseWaveforms[pose]
		if !ok {
			return csi, fmt.Errorf("%w: unknown pose %d", models.ErrInvalidArgument, int(pose))
		}
		for i := range raw {
			raw[i] = wave(subcarrierPhase(i)) + s.rnd.NormFloat64()*noiseLevel
		}
	}

	smoothed, err := FiltFilt(s.b, s.a, raw)
	if err != nil {
		return csi, err
	}
	copy(csi[:], smoothed)
	return csi, nil
}

// subcarrierPhase spreads the subcarriers evenly over [0, 2π], both ends included
func subcarrierPhase(i int) float64 {
	return 2 * math.Pi * float64(i) / float64(models.NumSubcarriers-1)
}
