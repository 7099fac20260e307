package ml

import "math"

const (
	DefaultLearningRate = 0.001
	Beta1               = 0.9
	Beta2               = 0.999
	Epsilon             = 1e-8
)

type Gradient struct {
	Value float64
	M1    float64
	M2    float64
}

type Gradients struct {
	Data []Gradient
	Rows int
	Cols int
}

func NewGradients(rows, cols int) Gradients {
	return Gradients{
		Data: make([]Gradient, cols*rows),
		Rows: rows,
		Cols: cols,
	}
}

func (g *Gradients) Add(row, col int, delta float64) {
	g.Data[row*g.Cols+col].Value += delta
}

// AddScaledRow accumulates scale*x into one row (outer-product update)
func (g *Gradients) AddScaledRow(row int, scale float64, x []float64) {
	if scale == 0 {
		return
	}
	var data = g.Data[row*g.Cols : (row+1)*g.Cols]
	for col, v := range x {
		data[col].Value += scale * v
	}
}

func (g *Gradients) Reset() {
	for i := range g.Data {
		g.Data[i].Value = 0
	}
}

// Apply performs one Adam update of m with the accumulated gradients
// multiplied by scale, then clears them.
func (g *Gradients) Apply(m *Matrix, opt *Adam, scale float64) {
	for i := range g.Data {
		m.Data[i] -= opt.calculate(&g.Data[i], g.Data[i].Value*scale)
		g.Data[i].Value = 0
	}
}

// Adam is a bias-corrected adaptive moment optimizer.
// Step must be called once before each round of Apply calls.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	step        int
	correction1 float64
	correction2 float64
}

func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        Beta1,
		Beta2:        Beta2,
		Epsilon:      Epsilon,
	}
}

func (a *Adam) Step() {
	a.step++
	a.correction1 = 1 - math.Pow(a.Beta1, float64(a.step))
	a.correction2 = 1 - math.Pow(a.Beta2, float64(a.step))
}

func (a *Adam) Steps() int {
	return a.step
}

func (a *Adam) calculate(g *Gradient, value float64) float64 {
	g.M1 = g.M1*a.Beta1 + value*(1-a.Beta1)
	g.M2 = g.M2*a.Beta2 + (value*value)*(1-a.Beta2)
	var m1 = g.M1 / a.correction1
	var m2 = g.M2 / a.correction2
	return a.LearningRate * m1 / (math.Sqrt(m2) + a.Epsilon)
}
