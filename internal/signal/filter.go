package signal

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"wifi-pose-backend/internal/models"
)

// LFilter applies the IIR filter (b, a) to x using the direct form II
// transposed structure. zi is the initial state (len max(len(a),len(b))-1)
// and may be nil for a zero state.
func LFilter(b, a, x, zi []float64) []float64 {
	b, a = normalize(b, a)
	var order = len(a) - 1
	var z = make([]float64, order)
	copy(z, zi)

	var y = make([]float64, len(x))
	if order == 0 {
		for n, xn := range x {
			y[n] = b[0] * xn
		}
		return y
	}
	for n, xn := range x {
		var yn = b[0]*xn + z[0]
		for i := 0; i < order-1; i++ {
			z[i] = b[i+1]*xn + z[i+1] - a[i+1]*yn
		}
		z[order-1] = b[order]*xn - a[order]*yn
		y[n] = yn
	}
	return y
}

// LFilterZI computes the initial state of LFilter that corresponds to the
// steady state of a unit step input.
func LFilterZI(b, a []float64) ([]float64, error) {
	b, a = normalize(b, a)
	var n = len(a) - 1
	if n == 0 {
		return nil, nil
	}

	// (I - companion(a)^T) zi = b[1:] - a[1:]*b[0]
	var lhs = mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		lhs.Set(i, i, 1)
		lhs.Set(i, 0, lhs.At(i, 0)+a[i+1])
		if i+1 < n {
			lhs.Set(i, i+1, -1)
		}
	}
	var rhs = mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(lhs, rhs); err != nil {
		return nil, fmt.Errorf("%w: failed to solve filter initial conditions: %v", models.ErrNumeric, err)
	}
	return zi.RawVector().Data, nil
}

// FiltFilt applies (b, a) forward and then backward, giving zero phase
// distortion. The signal is extended at both ends by odd reflection of
// length 3*max(len(a), len(b)) and each pass starts from the steady state
// scaled to its first sample.
func FiltFilt(b, a, x []float64) ([]float64, error) {
	var padLen = 3 * max(len(a), len(b))
	if len(x) <= padLen {
		return nil, fmt.Errorf("%w: input length %d must exceed padding %d", models.ErrInvalidArgument, len(x), padLen)
	}

	zi, err := LFilterZI(b, a)
	if err != nil {
		return nil, err
	}

	var ext = oddExtend(x, padLen)

	var state = scaled(zi, ext[0])
	var y = LFilter(b, a, ext, state)

	reverse(y)
	state = scaled(zi, y[0])
	y = LFilter(b, a, y, state)
	reverse(y)

	var result = make([]float64, len(x))
	copy(result, y[padLen:len(y)-padLen])
	return result, nil
}

func oddExtend(x []float64, n int) []float64 {
	var last = len(x) - 1
	var ext = make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := 1; i <= n; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}
	return ext
}

// normalize pads b and a to the same length and divides by a[0]
func normalize(b, a []float64) ([]float64, []float64) {
	var n = max(len(a), len(b))
	var nb = make([]float64, n)
	var na = make([]float64, n)
	copy(nb, b)
	copy(na, a)
	var a0 = na[0]
	for i := range nb {
		nb[i] /= a0
		na[i] /= a0
	}
	return nb, na
}

func scaled(v []float64, k float64) []float64 {
	var result = make([]float64, len(v))
	for i := range v {
		result[i] = v[i] * k
	}
	return result
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
