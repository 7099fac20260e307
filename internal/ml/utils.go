package ml

import (
	"math"
	"math/rand"
)

// InitUniform fills data with U(-max, max)
func InitUniform(rnd *rand.Rand, data []float64, max float64) {
	for i := range data {
		data[i] = (rnd.Float64() - 0.5) * 2 * max
	}
}

// Sigmoid is the logistic function, stable for large |x|
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	var e = math.Exp(x)
	return e / (1 + e)
}

// Softmax writes the normalized exponentials of logits into dst
func Softmax(dst, logits []float64) {
	var maxLogit = math.Inf(-1)
	for _, x := range logits {
		if x > maxLogit {
			maxLogit = x
		}
	}
	var sum float64
	for i, x := range logits {
		dst[i] = math.Exp(x - maxLogit)
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
}

// LogSumExp returns log(sum(exp(logits)))
func LogSumExp(logits []float64) float64 {
	var maxLogit = math.Inf(-1)
	for _, x := range logits {
		if x > maxLogit {
			maxLogit = x
		}
	}
	if math.IsInf(maxLogit, 0) {
		return maxLogit
	}
	var sum float64
	for _, x := range logits {
		sum += math.Exp(x - maxLogit)
	}
	return maxLogit + math.Log(sum)
}

// ArgMax returns the index of the largest value; the first one wins ties
func ArgMax(values []float64) int {
	var best = 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// IsFinite is false for NaN and ±Inf
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
