package metric

import (
	"math"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

// PSNR computes classical per-plane PSNR = 10*log10(max^2/MSE) (spec.md
// §4.7), with an optional regional variant reporting the worst
// blockSize x blockSize subregion at the configured overlap stride.
type PSNR struct {
	// BlockSize > 0 enables the regional variant; 0 disables it (frame-wide
	// PSNR only).
	BlockSize int
	// Stride is the step between candidate block origins; defaults to
	// BlockSize (no overlap) when <= 0.
	Stride int

	Stats    [4]*StatRecord
	Regional [4]*StatRecord

	dist *DistortionMap
}

// NewPSNR returns a PSNR metric with fresh StatRecords for every component.
func NewPSNR() *PSNR {
	p := &PSNR{}
	for c := range p.Stats {
		p.Stats[c] = NewStatRecord()
		p.Regional[c] = NewStatRecord()
	}
	return p
}

// SetDistortionMap attaches a per-pixel squared-error heatmap sink for the
// luma component (spec.md §4.7 supplement, teacher's MetricWithDistortionMap).
func (p *PSNR) SetDistortionMap(d *DistortionMap) { p.dist = d }

// Compute updates per-component StatRecords from ref/test and returns this
// frame's PSNR per component (herror.TypeMismatch on shape mismatch).
func (p *PSNR) Compute(ref, test *frame.Frame) (map[string]float64, error) {
	if err := frame.RequireEqualType("PSNR", ref, test); err != nil {
		return nil, err
	}

	result := make(map[string]float64, 4)
	for c := frame.Component(0); c < 4; c++ {
		size := ref.Format.CompSize(c)
		if size == 0 {
			continue
		}
		a, b := planeFloat(ref, c), planeFloat(test, c)
		maxVal := ref.MaxPelValue[c]
		if ref.Format.IsFloat {
			maxVal = 1
		}

		var sse float64
		sqErr := make([]float64, size)
		for i := range a {
			d := a[i] - b[i]
			sqErr[i] = d * d
			sse += sqErr[i]
		}
		mse := sse / float64(size)
		val := psnrFromMSE(mse, maxVal)
		p.Stats[c].UpdateStats(val)
		result[componentName(c)] = val

		if c == frame.ComponentY && p.dist != nil {
			p.dist.Emit(sqErr)
		}

		if p.BlockSize > 0 {
			worst := p.worstRegion(sqErr, ref.Format.Width[c], ref.Format.Height[c], maxVal)
			p.Regional[c].UpdateStats(worst)
			result[componentName(c)+"_regional"] = worst
		}
	}
	return result, nil
}

func (p *PSNR) worstRegion(sqErr []float64, w, h int, maxVal float64) float64 {
	stride := p.Stride
	if stride <= 0 {
		stride = p.BlockSize
	}
	worstMSE := 0.0
	found := false
	for y := 0; y+p.BlockSize <= h; y += stride {
		for x := 0; x+p.BlockSize <= w; x += stride {
			var sum float64
			for dy := 0; dy < p.BlockSize; dy++ {
				row := (y + dy) * w
				for dx := 0; dx < p.BlockSize; dx++ {
					sum += sqErr[row+x+dx]
				}
			}
			mse := sum / float64(p.BlockSize*p.BlockSize)
			if !found || mse > worstMSE {
				worstMSE = mse
				found = true
			}
		}
	}
	if !found {
		return math.Inf(1)
	}
	return psnrFromMSE(worstMSE, maxVal)
}

func psnrFromMSE(mse, maxVal float64) float64 {
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(maxVal*maxVal/mse)
}

func (p *PSNR) Name() string { return "psnr" }
func (p *PSNR) Close()       {}

func componentName(c frame.Component) string {
	switch c {
	case frame.ComponentY:
		return "y"
	case frame.ComponentU:
		return "u"
	case frame.ComponentV:
		return "v"
	case frame.ComponentA:
		return "a"
	default:
		return "?"
	}
}
