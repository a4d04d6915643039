// Package numeric collects the scalar and small-matrix helpers shared by
// every operator: clipping, half-away-from-zero rounding, the NL-means
// integral image, and the classical Jacobi eigenvalue sweep used by the
// HDRVQM metric's covariance step.
package numeric

import "math"

// ClipF clips x to [lo, hi].
func ClipF(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ClipI clips x to [lo, hi].
func ClipI(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Round performs half-away-from-zero rounding: round(x) = floor(x +
// 0.5*sign(x)).
func Round(x float64) float64 {
	if x >= 0 {
		return math.Floor(x + 0.5)
	}
	return math.Ceil(x - 0.5)
}

// RoundToInt rounds x half-away-from-zero and truncates to int.
func RoundToInt(x float64) int {
	return int(Round(x))
}

// IntegralImage computes I[y][x] = sum over i<=y, j<=x of
// (a[i][j] - b[i+dy][j+dx])^2, the squared-difference summed-area table
// NL-means uses to fetch any patch distance D(x,y,dx,dy) in O(1).
//
// a and b must have identical width/height. Reads of b that fall outside
// [0,height)x[0,width) are treated as zero difference (equivalent to
// clamping the displaced patch to the frame boundary having no
// contribution there); callers that need edge-clamped samples should
// pre-pad their planes instead.
func IntegralImage(a, b []float64, width, height, dy, dx int) []float64 {
	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var d float64
			by, bx := y+dy, x+dx
			if by >= 0 && by < height && bx >= 0 && bx < width {
				diff := a[y*width+x] - b[by*width+bx]
				d = diff * diff
			}

			left, up, upleft := 0.0, 0.0, 0.0
			if x > 0 {
				left = out[y*width+x-1]
			}
			if y > 0 {
				up = out[(y-1)*width+x]
			}
			if x > 0 && y > 0 {
				upleft = out[(y-1)*width+x-1]
			}
			out[y*width+x] = d + left + up - upleft
		}
	}
	return out
}

// RegionSum returns the sum of the rectangle [y0,y1) x [x0,x1) from an
// integral image produced by IntegralImage, clamping the query rectangle
// to the image bounds.
func RegionSum(integral []float64, width, height, x0, y0, x1, y1 int) float64 {
	x0 = ClipI(x0, 0, width)
	x1 = ClipI(x1, 0, width)
	y0 = ClipI(y0, 0, height)
	y1 = ClipI(y1, 0, height)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}

	at := func(y, x int) float64 {
		if y < 0 || x < 0 {
			return 0
		}
		return integral[y*width+x]
	}

	return at(y1-1, x1-1) - at(y0-1, x1-1) - at(y1-1, x0-1) + at(y0-1, x0-1)
}

// JacobiEigen runs the classical single-sided Jacobi eigenvalue sweep on
// the symmetric matrix a (an n x n row-major slice, modified in place into
// the diagonalized form). It performs at most itMax sweeps, stopping when
// the Frobenius norm of the strict upper triangle drops below epsilon.
//
// Returns the eigenvalues (the diagonal of the reduced matrix) and the
// column-major eigenvector matrix v such that a_original = v * diag(eigen)
// * v^T.
func JacobiEigen(a [][]float64, itMax int, epsilon float64) (eigen []float64, v [][]float64) {
	n := len(a)
	v = make([][]float64, n)
	for i := range v {
		v[i] = make([]float64, n)
		v[i][i] = 1
	}

	off := func() float64 {
		var sum float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				sum += a[i][j] * a[i][j]
			}
		}
		return math.Sqrt(sum)
	}

	for sweep := 0; sweep < itMax; sweep++ {
		if off() < epsilon {
			break
		}

		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				if a[p][q] == 0 {
					continue
				}

				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta == 0 {
					t = 1
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				app, aqq, apq := a[p][p], a[q][q], a[p][q]
				a[p][p] = c*c*app - 2*s*c*apq + s*s*aqq
				a[q][q] = s*s*app + 2*s*c*apq + c*c*aqq
				a[p][q] = 0
				a[q][p] = 0

				for i := 0; i < n; i++ {
					if i == p || i == q {
						continue
					}
					aip, aiq := a[i][p], a[i][q]
					a[i][p] = c*aip - s*aiq
					a[p][i] = a[i][p]
					a[i][q] = s*aip + c*aiq
					a[q][i] = a[i][q]
				}

				for i := 0; i < n; i++ {
					vip, viq := v[i][p], v[i][q]
					v[i][p] = c*vip - s*viq
					v[i][q] = s*vip + c*viq
				}
			}
		}
	}

	eigen = make([]float64, n)
	for i := 0; i < n; i++ {
		eigen[i] = a[i][i]
	}
	return eigen, v
}
