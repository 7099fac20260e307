package signal

import (
	"fmt"
	"math"
	"math/cmplx"

	"wifi-pose-backend/internal/models"
)

// Butterworth designs a digital low-pass filter of the given order with
// cutoff wn expressed as a fraction of the Nyquist frequency (0 < wn < 1).
// It returns the transfer function numerator b and denominator a, with a[0] == 1.
//
// The design goes analog prototype -> frequency-prewarped low-pass -> bilinear
// transform, which reproduces scipy.signal.butter coefficients.
func Butterworth(order int, wn float64) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("%w: filter order must be positive, got %d", models.ErrInvalidArgument, order)
	}
	if !(wn > 0 && wn < 1) {
		return nil, nil, fmt.Errorf("%w: cutoff must be in (0, 1), got %v", models.ErrInvalidArgument, wn)
	}

	// analog prototype poles on the left half of the unit circle
	var poles = make([]complex128, 0, order)
	for m := -order + 1; m < order; m += 2 {
		var theta = math.Pi * float64(m) / float64(2*order)
		poles = append(poles, -cmplx.Exp(complex(0, theta)))
	}

	// sample rate 2 so that wn is relative to Nyquist
	const fs = 2.0
	var warped = 2 * fs * math.Tan(math.Pi*wn/fs)
	var gain = math.Pow(warped, float64(order))
	for i := range poles {
		poles[i] *= complex(warped, 0)
	}

	var fs2 = complex(2*fs, 0)
	var denom = complex(1, 0)
	var zPoles = make([]complex128, len(poles))
	for i, p := range poles {
		zPoles[i] = (fs2 + p) / (fs2 - p)
		denom *= fs2 - p
	}
	gain = gain * real(1/denom)

	var zZeros = make([]complex128, order)
	for i := range zZeros {
		zZeros[i] = -1
	}

	b = realPoly(zZeros)
	for i := range b {
		b[i] *= gain
	}
	a = realPoly(zPoles)
	return b, a, nil
}

// realPoly expands prod(x - r) and returns the real parts of its
// coefficients, highest power first.
func realPoly(roots []complex128) []float64 {
	var coeffs = []complex128{1}
	for _, r := range roots {
		var next = make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	var result = make([]float64, len(coeffs))
	for i, c := range coeffs {
		result[i] = real(c)
	}
	return result
}
