package numeric

import (
	"math"
	"testing"
)

func TestClip(t *testing.T) {
	if got := ClipF(5, 0, 1); got != 1 {
		t.Errorf("ClipF(5,0,1) = %v, want 1", got)
	}
	if got := ClipF(-5, 0, 1); got != 0 {
		t.Errorf("ClipF(-5,0,1) = %v, want 0", got)
	}
	if got := ClipI(5, 0, 10); got != 5 {
		t.Errorf("ClipI(5,0,10) = %v, want 5", got)
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.5, 1}, {-0.5, -1}, {0.4999, 0}, {-0.4999, 0}, {2.5, 3}, {-2.5, -3},
	}
	for _, c := range cases {
		if got := Round(c.in); got != c.want {
			t.Errorf("Round(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIntegralImageZeroDisplacement(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	integral := IntegralImage(a, a, 2, 2, 0, 0)
	for i, v := range integral {
		if v != 0 {
			t.Errorf("integral[%d] = %v, want 0 (identical planes)", i, v)
		}
	}
}

func TestRegionSum(t *testing.T) {
	a := []float64{0, 0, 0, 0}
	b := []float64{1, 1, 1, 1}
	integral := IntegralImage(a, b, 2, 2, 0, 0)
	total := RegionSum(integral, 2, 2, 0, 0, 2, 2)
	if total != 4 {
		t.Errorf("RegionSum = %v, want 4", total)
	}
}

func TestJacobiEigenDiagonal(t *testing.T) {
	a := [][]float64{
		{2, 0, 0},
		{0, 3, 0},
		{0, 0, 5},
	}
	eigen, _ := JacobiEigen(a, 100, 1e-12)
	want := map[float64]bool{2: true, 3: true, 5: true}
	for _, e := range eigen {
		found := false
		for w := range want {
			if math.Abs(e-w) < 1e-9 {
				found = true
			}
		}
		if !found {
			t.Errorf("unexpected eigenvalue %v", e)
		}
	}
}

func TestJacobiEigenSymmetric2x2(t *testing.T) {
	a := [][]float64{
		{2, 1},
		{1, 2},
	}
	eigen, _ := JacobiEigen(a, 100, 1e-14)
	// Eigenvalues of [[2,1],[1,2]] are 1 and 3.
	sum := eigen[0] + eigen[1]
	if math.Abs(sum-4) > 1e-9 {
		t.Errorf("eigenvalue sum = %v, want 4 (trace)", sum)
	}
	prod := eigen[0] * eigen[1]
	if math.Abs(prod-3) > 1e-9 {
		t.Errorf("eigenvalue product = %v, want 3 (det)", prod)
	}
}
