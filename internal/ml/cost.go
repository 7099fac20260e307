package ml

import "math"

// logClamp mirrors the usual BCE implementation that clamps log terms at -100
// so a saturated probability yields a large finite loss instead of +Inf.
const logClamp = -100

func clampedLog(x float64) float64 {
	return math.Max(math.Log(x), logClamp)
}

// BinaryCrossEntropy of a predicted probability against a 0/1 target
func BinaryCrossEntropy(predicted, target float64) float64 {
	return -(target*clampedLog(predicted) + (1-target)*clampedLog(1-predicted))
}

// BinaryCrossEntropyPrime is d(BCE)/d(logit) when predicted = Sigmoid(logit)
func BinaryCrossEntropyPrime(predicted, target float64) float64 {
	return predicted - target
}

// CrossEntropy of raw logits against the target class index
func CrossEntropy(logits []float64, target int) float64 {
	return LogSumExp(logits) - logits[target]
}

// CrossEntropyPrime writes d(CE)/d(logits) = softmax(logits) - onehot(target) into dst
func CrossEntropyPrime(dst, logits []float64, target int) {
	Softmax(dst, logits)
	dst[target] -= 1
}
