package metric

import (
	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
)

// SSIM is the standard blockwise structural-similarity metric (spec.md
// §4.7): block size configurable (default 8), constants C1=(K1*max)^2,
// C2=(K2*max)^2, with a biased/unbiased variance switch.
type SSIM struct {
	BlockSize        int // default 8
	K1, K2           float64
	UnbiasedVariance bool

	Stats [4]*StatRecord
}

// NewSSIM returns an SSIM metric with spec-default constants (K1=0.01,
// K2=0.03, 8x8 blocks, biased variance) and fresh StatRecords.
func NewSSIM() *SSIM {
	s := &SSIM{BlockSize: 8, K1: 0.01, K2: 0.03}
	for c := range s.Stats {
		s.Stats[c] = NewStatRecord()
	}
	return s
}

func (s *SSIM) Name() string { return "ssim" }
func (s *SSIM) Close()       {}

// Compute runs the SSIM block loop over every live component.
func (s *SSIM) Compute(ref, test *frame.Frame) (map[string]float64, error) {
	if err := frame.RequireEqualType("SSIM", ref, test); err != nil {
		return nil, err
	}

	result := make(map[string]float64, 4)
	for c := frame.Component(0); c < 4; c++ {
		size := ref.Format.CompSize(c)
		if size == 0 {
			continue
		}
		maxVal := ref.MaxPelValue[c]
		if ref.Format.IsFloat {
			maxVal = 1
		}
		val := s.computePlane(planeFloat(ref, c), planeFloat(test, c), ref.Format.Width[c], ref.Format.Height[c], maxVal)
		s.Stats[c].UpdateStats(val)
		result[componentName(c)] = val
	}
	return result, nil
}

func (s *SSIM) computePlane(a, b []float64, w, h int, maxVal float64) float64 {
	bs := s.BlockSize
	if bs <= 0 {
		bs = 8
	}
	c1 := (s.K1 * maxVal) * (s.K1 * maxVal)
	c2 := (s.K2 * maxVal) * (s.K2 * maxVal)

	var sum float64
	var n int
	for y := 0; y+bs <= h; y += bs {
		for x := 0; x+bs <= w; x += bs {
			sum += s.blockSSIM(a, b, w, x, y, bs, c1, c2)
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

func (s *SSIM) blockSSIM(a, b []float64, stride, x0, y0, bs int, c1, c2 float64) float64 {
	n := float64(bs * bs)
	var meanA, meanB float64
	for dy := 0; dy < bs; dy++ {
		row := (y0 + dy) * stride
		for dx := 0; dx < bs; dx++ {
			meanA += a[row+x0+dx]
			meanB += b[row+x0+dx]
		}
	}
	meanA /= n
	meanB /= n

	var varA, varB, cov float64
	for dy := 0; dy < bs; dy++ {
		row := (y0 + dy) * stride
		for dx := 0; dx < bs; dx++ {
			da := a[row+x0+dx] - meanA
			db := b[row+x0+dx] - meanB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	denom := n
	if s.UnbiasedVariance && n > 1 {
		denom = n - 1
	}
	varA /= denom
	varB /= denom
	cov /= denom

	num := (2*meanA*meanB + c1) * (2*cov + c2)
	den := (meanA*meanA + meanB*meanB + c1) * (varA + varB + c2)
	if den == 0 {
		return 1
	}
	return num / den
}

// TFSSIM runs the SSIM kernel on a transfer-function-mapped luminance
// derived from RGB via XYZ (spec.md §4.7: "RGB input only, 4:4:4 only").
type TFSSIM struct {
	SSIM
	TF transferMapper
}

// transferMapper is the minimal slice of transfer.TransferFunction TF-SSIM
// needs (Forward only), kept narrow so this package does not need to import
// the transfer package's full Create/Kind machinery for a single call site.
type transferMapper interface {
	Forward(v float64) float64
}

// NewTFSSIM returns a TFSSIM metric; tf maps linear luminance Y (from
// RGB->XYZ) to a perceptually-uniform code value before the SSIM kernel.
func NewTFSSIM(tf transferMapper) *TFSSIM {
	t := &TFSSIM{SSIM: *NewSSIM(), TF: tf}
	return t
}

func (t *TFSSIM) Name() string { return "tf-ssim" }

// Compute requires ref/test to be float RGB in 4:4:4 (spec.md §4.7).
func (t *TFSSIM) Compute(ref, test *frame.Frame) (map[string]float64, error) {
	if err := frame.RequireEqualType("TFSSIM", ref, test); err != nil {
		return nil, err
	}
	if !ref.Format.IsFloat || ref.Format.ChromaFormat != frame.Format444 {
		return nil, herror.New(herror.TypeMismatch, "TFSSIM", "requires float RGB 4:4:4 input", nil)
	}

	size := ref.Format.CompSize(frame.ComponentY)
	yRef := make([]float64, size)
	yTest := make([]float64, size)
	for i := 0; i < size; i++ {
		yRef[i] = t.TF.Forward(xyzLumaFromRGB(ref, i))
		yTest[i] = t.TF.Forward(xyzLumaFromRGB(test, i))
	}

	val := t.computePlane(yRef, yTest, ref.Format.Width[frame.ComponentY], ref.Format.Height[frame.ComponentY], 1)
	t.Stats[frame.ComponentY].UpdateStats(val)
	return map[string]float64{"y": val}, nil
}

// xyzLumaFromRGB computes the BT.709 XYZ Y component at sample i.
func xyzLumaFromRGB(f *frame.Frame, i int) float64 {
	r := float64(f.F32[frame.ComponentY][i])
	g := float64(f.F32[frame.ComponentU][i])
	b := float64(f.F32[frame.ComponentV][i])
	return 0.2126*r + 0.7152*g + 0.0722*b
}
