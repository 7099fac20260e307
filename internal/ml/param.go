package ml

// Param pairs a trainable matrix with its gradient accumulator
type Param struct {
	Weights   *Matrix
	Gradients *Gradients
}

// ApplyGradients runs one optimizer step over every parameter.
// scale is usually 1/batchSize.
func ApplyGradients(params []Param, opt *Adam, scale float64) {
	opt.Step()
	for _, p := range params {
		p.Gradients.Apply(p.Weights, opt, scale)
	}
}

func ResetGradients(params []Param) {
	for _, p := range params {
		p.Gradients.Reset()
	}
}

func CountParams(params []Param) int {
	var n int
	for _, p := range params {
		n += len(p.Weights.Data)
	}
	return n
}
