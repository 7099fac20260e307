package ml

import (
	"math"
	"math/rand"
)

// LSTMLayer is a single unidirectional LSTM layer. The stacked gate rows
// are ordered input, forget, cell, output.
type LSTMLayer struct {
	InputSize  int
	HiddenSize int

	Wx     Matrix // 4H x InputSize
	Wh     Matrix // 4H x HiddenSize
	Biases Matrix // 4H x 1

	wxGradients Gradients
	whGradients Gradients
	bGradients  Gradients
}

// LSTMStep holds the activations of one timestep needed for backprop
type LSTMStep struct {
	X     []float64
	HPrev []float64
	CPrev []float64
	I     []float64
	F     []float64
	G     []float64
	O     []float64
	C     []float64
	TanhC []float64
	H     []float64
}

type LSTMTrace struct {
	Steps []LSTMStep
}

// Outputs returns the hidden state of every timestep
func (t *LSTMTrace) Outputs() [][]float64 {
	var result = make([][]float64, len(t.Steps))
	for i := range t.Steps {
		result[i] = t.Steps[i].H
	}
	return result
}

// Last returns the final hidden state
func (t *LSTMTrace) Last() []float64 {
	return t.Steps[len(t.Steps)-1].H
}

func NewLSTMLayer(inputSize, hiddenSize int) *LSTMLayer {
	var gates = 4 * hiddenSize
	return &LSTMLayer{
		InputSize:   inputSize,
		HiddenSize:  hiddenSize,
		Wx:          NewMatrix(gates, inputSize),
		Wh:          NewMatrix(gates, hiddenSize),
		Biases:      NewMatrix(gates, 1),
		wxGradients: NewGradients(gates, inputSize),
		whGradients: NewGradients(gates, hiddenSize),
		bGradients:  NewGradients(gates, 1),
	}
}

// InitUniform draws every parameter from U(-1/sqrt(H), 1/sqrt(H))
func (l *LSTMLayer) InitUniform(rnd *rand.Rand) *LSTMLayer {
	var bound = 1 / math.Sqrt(float64(l.HiddenSize))
	InitUniform(rnd, l.Wx.Data, bound)
	InitUniform(rnd, l.Wh.Data, bound)
	InitUniform(rnd, l.Biases.Data, bound)
	return l
}

// Forward runs the layer over xs from zero initial state. It only reads the
// weights, so concurrent calls are safe.
func (l *LSTMLayer) Forward(xs [][]float64) *LSTMTrace {
	var h = l.HiddenSize
	var hPrev = make([]float64, h)
	var cPrev = make([]float64, h)
	var trace = &LSTMTrace{Steps: make([]LSTMStep, len(xs))}
	var z = make([]float64, 4*h)
	for t, x := range xs {
		copy(z, l.Biases.Data)
		l.Wx.MulVecAdd(z, x)
		l.Wh.MulVecAdd(z, hPrev)

		var s = LSTMStep{
			X:     x,
			HPrev: hPrev,
			CPrev: cPrev,
			I:     make([]float64, h),
			F:     make([]float64, h),
			G:     make([]float64, h),
			O:     make([]float64, h),
			C:     make([]float64, h),
			TanhC: make([]float64, h),
			H:     make([]float64, h),
		}
		for j := 0; j < h; j++ {
			s.I[j] = Sigmoid(z[j])
			s.F[j] = Sigmoid(z[h+j])
			s.G[j] = math.Tanh(z[2*h+j])
			s.O[j] = Sigmoid(z[3*h+j])
			s.C[j] = s.F[j]*cPrev[j] + s.I[j]*s.G[j]
			s.TanhC[j] = math.Tanh(s.C[j])
			s.H[j] = s.O[j] * s.TanhC[j]
		}
		trace.Steps[t] = s
		hPrev = s.H
		cPrev = s.C
	}
	return trace
}

// Backward runs backprop through time. dh[t] is the loss gradient with
// respect to the hidden output at t and may be nil. Parameter gradients are
// accumulated; the gradient with respect to each input is returned.
func (l *LSTMLayer) Backward(trace *LSTMTrace, dh [][]float64) [][]float64 {
	var h = l.HiddenSize
	var steps = trace.Steps
	var dxs = make([][]float64, len(steps))
	var dhNext = make([]float64, h)
	var dcNext = make([]float64, h)
	var dz = make([]float64, 4*h)
	for t := len(steps) - 1; t >= 0; t-- {
		var s = &steps[t]
		for j := 0; j < h; j++ {
			var dhj = dhNext[j]
			if t < len(dh) && dh[t] != nil {
				dhj += dh[t][j]
			}
			var do = dhj * s.TanhC[j]
			var dc = dhj*s.O[j]*(1-s.TanhC[j]*s.TanhC[j]) + dcNext[j]
			dcNext[j] = dc * s.F[j]

			dz[j] = dc * s.G[j] * s.I[j] * (1 - s.I[j])
			dz[h+j] = dc * s.CPrev[j] * s.F[j] * (1 - s.F[j])
			dz[2*h+j] = dc * s.I[j] * (1 - s.G[j]*s.G[j])
			dz[3*h+j] = do * s.O[j] * (1 - s.O[j])
		}

		for row, g := range dz {
			if g == 0 {
				continue
			}
			l.bGradients.Add(row, 0, g)
			l.wxGradients.AddScaledRow(row, g, s.X)
			l.whGradients.AddScaledRow(row, g, s.HPrev)
		}

		var dx = make([]float64, l.InputSize)
		l.Wx.MulTransVecAdd(dx, dz)
		dxs[t] = dx

		for j := range dhNext {
			dhNext[j] = 0
		}
		l.Wh.MulTransVecAdd(dhNext, dz)
	}
	return dxs
}

func (l *LSTMLayer) Params() []Param {
	return []Param{
		{Weights: &l.Wx, Gradients: &l.wxGradients},
		{Weights: &l.Wh, Gradients: &l.whGradients},
		{Weights: &l.Biases, Gradients: &l.bGradients},
	}
}
