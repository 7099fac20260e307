package aggregator

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SignalConfig holds thresholds for CSI amplitude analysis
type SignalConfig struct {
	ReferenceLevel float64 // amplitude that maps to 0 dB
	QuietRMS       float64 // below this the room is treated as quiet (no strong reflector)
}

// DefaultSignalConfig returns the thresholds used for prediction logging
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		ReferenceLevel: 1.0,
		QuietRMS:       0.2,
	}
}

// SignalMetrics summarizes the amplitudes of one feature matrix
type SignalMetrics struct {
	RMS         float64 `json:"rms"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	Peak        float64 `json:"peak"` // largest absolute amplitude
	LevelDB     float64 `json:"level_db"`
	IsQuiet     bool    `json:"is_quiet"`
	SampleCount int     `json:"sample_count"`
}

// AnalyzeSignal flattens the matrix and computes amplitude statistics
func AnalyzeSignal(matrix [][]float64, config SignalConfig) SignalMetrics {
	var samples []float64
	for _, row := range matrix {
		samples = append(samples, row...)
	}

	metrics := SignalMetrics{SampleCount: len(samples)}
	if len(samples) == 0 {
		metrics.IsQuiet = true
		metrics.LevelDB = -80.0
		return metrics
	}

	metrics.RMS = floats.Norm(samples, 2) / math.Sqrt(float64(len(samples)))
	metrics.Mean = stat.Mean(samples, nil)
	if len(samples) > 1 {
		metrics.StdDev = stat.StdDev(samples, nil)
	}
	metrics.Peak = math.Max(math.Abs(floats.Max(samples)), math.Abs(floats.Min(samples)))
	metrics.IsQuiet = metrics.RMS < config.QuietRMS
	metrics.LevelDB = calculateDecibels(metrics.RMS, config.ReferenceLevel)
	return metrics
}

// calculateDecibels converts an RMS amplitude to dB relative to reference,
// clamped to [-80, 40]
func calculateDecibels(rms float64, reference float64) float64 {
	if rms <= 0 || reference <= 0 {
		return -80.0
	}

	db := 20.0 * math.Log10(rms/reference)
	if db < -80.0 {
		db = -80.0
	}
	if db > 40.0 {
		db = 40.0
	}
	return db
}

// ComputeFeatureHash computes a SHA256 hash of the matrix for reference.
// Rows are hashed in order as little-endian float64 values.
func ComputeFeatureHash(matrix [][]float64) string {
	h := sha256.New()
	var buf [8]byte
	for _, row := range matrix {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(row)))
		h.Write(buf[:])
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
