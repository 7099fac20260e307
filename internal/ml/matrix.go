package ml

import "gonum.org/v1/gonum/floats"

// Matrix is a dense row-major matrix
type Matrix struct {
	Data []float64
	Rows int
	Cols int
}

func NewMatrix(rows, cols int) Matrix {
	return Matrix{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

func (m *Matrix) Get(row, col int) float64 {
	return m.Data[row*m.Cols+col]
}

func (m *Matrix) Set(row, col int, value float64) {
	m.Data[row*m.Cols+col] = value
}

// Row returns a view of one row; writes go through to the matrix
func (m *Matrix) Row(row int) []float64 {
	return m.Data[row*m.Cols : (row+1)*m.Cols]
}

// MulVecAdd computes dst += m*x
func (m *Matrix) MulVecAdd(dst, x []float64) {
	for row := range dst {
		dst[row] += floats.Dot(m.Row(row), x)
	}
}

// MulTransVecAdd computes dst += transpose(m)*x
func (m *Matrix) MulTransVecAdd(dst, x []float64) {
	for row, v := range x {
		if v == 0 {
			continue
		}
		floats.AddScaled(dst, v, m.Row(row))
	}
}

func (m *Matrix) Clone() Matrix {
	var data = make([]float64, len(m.Data))
	copy(data, m.Data)
	return Matrix{Data: data, Rows: m.Rows, Cols: m.Cols}
}
