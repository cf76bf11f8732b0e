package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultSigma is the smoothing standard deviation in grid cells.
const DefaultSigma = 1.0

// kernelTruncate is the kernel half-width in standard deviations.
const kernelTruncate = 4.0

// Smooth applies a separable 2-D Gaussian filter to values and returns a new
// matrix. Borders use half-sample reflection (d c b a | a b c d | d c b a)
// and the kernel is truncated at four standard deviations. A sigma of zero
// returns an unfiltered copy.
func Smooth(values mat.Matrix, sigma float64) (*mat.Dense, error) {
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma < 0 {
		return nil, fmt.Errorf("%w: sigma must be a finite non-negative number, got %v", ErrConfiguration, sigma)
	}
	out := mat.DenseCopyOf(values)
	if sigma == 0 {
		return out, nil
	}

	kernel := gaussianKernel(sigma)
	rows, cols := out.Dims()

	line := make([]float64, max(rows, cols))
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		convolveReflect(line[:cols], row, kernel)
		copy(row, line[:cols])
	}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, out)
		convolveReflect(line[:rows], col, kernel)
		out.SetCol(j, line[:rows])
	}
	return out, nil
}

// gaussianKernel returns normalized weights for offsets -r..r.
func gaussianKernel(sigma float64) []float64 {
	radius := int(kernelTruncate*sigma + 0.5)
	w := make([]float64, 2*radius+1)
	for k := -radius; k <= radius; k++ {
		w[k+radius] = math.Exp(-0.5 * float64(k*k) / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

func convolveReflect(dst, src, kernel []float64) {
	n := len(src)
	radius := len(kernel) / 2
	for i := range dst {
		var acc float64
		for k := -radius; k <= radius; k++ {
			acc += kernel[k+radius] * src[reflectIndex(i+k, n)]
		}
		dst[i] = acc
	}
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	m := 2 * n
	i = ((i % m) + m) % m
	if i >= n {
		i = m - 1 - i
	}
	return i
}
