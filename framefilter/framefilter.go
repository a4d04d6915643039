// Package framefilter implements FrameFilter (C8): the 2D-separable
// Wiener-in-dark spatial filter and Buades-style non-local means
// denoising, both operating over a single Frame component (spec.md §4.6).
package framefilter

import (
	"math"

	"github.com/hdrtoolbox/hdrtoolbox/filter"
	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/numeric"
)

// Separable2D is the Wiener-in-dark filter: a horizontal then vertical
// 1-D pass, with an optional edge-adaptation step that blends the
// filtered value back toward the input when the two disagree sharply.
type Separable2D struct {
	Horizontal, Vertical filter.Descriptor
	EdgeAdapt            bool
	Thres0, Thres1       float64 // defaults 2, 5
}

// NewSeparable2D builds a Separable2D with spec.md's default thresholds.
func NewSeparable2D(h, v filter.Descriptor, edgeAdapt bool) *Separable2D {
	return &Separable2D{Horizontal: h, Vertical: v, EdgeAdapt: edgeAdapt, Thres0: 2, Thres1: 5}
}

// Process filters component c of src into dst (same geometry).
func (s *Separable2D) Process(src, dst *frame.Frame, c frame.Component) {
	w, h := src.Format.Width[c], src.Format.Height[c]
	in := planeFloat(src, c, w*h)
	lo, hi := src.MinPelValue[c], src.MaxPelValue[c]

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := in[y*w : y*w+w]
		for x := 0; x < w; x++ {
			tmp[y*w+x] = s.Horizontal.ApplyFloat(row, x, w)
		}
	}

	out := make([]float64, w*h)
	col := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = tmp[y*w+x]
		}
		for y := 0; y < h; y++ {
			out[y*w+x] = s.Vertical.ApplyFloat(col, y, h)
		}
	}

	rng := hi - lo
	if rng <= 0 {
		rng = 1
	}
	for i, fValue := range out {
		v := fValue
		if s.EdgeAdapt {
			delta := in[i] - fValue
			if math.Abs(delta) > s.Thres0 {
				d := numeric.ClipF(math.Abs(delta), s.Thres0, s.Thres1)
				v = (d*in[i] + (rng-d)*fValue) / rng
			}
		}
		writeSample(dst, c, i, numeric.ClipF(v, lo, hi))
	}
}

func planeFloat(f *frame.Frame, c frame.Component, size int) []float64 {
	out := make([]float64, size)
	switch {
	case f.Format.IsFloat:
		for i := 0; i < size; i++ {
			out[i] = float64(f.F32[c][i])
		}
	case f.Format.BitDepth[c] <= 8:
		for i := 0; i < size; i++ {
			out[i] = float64(f.U8[c][i])
		}
	default:
		for i := 0; i < size; i++ {
			out[i] = float64(f.U16[c][i])
		}
	}
	return out
}

func writeSample(f *frame.Frame, c frame.Component, i int, v float64) {
	switch {
	case f.Format.IsFloat:
		f.F32[c][i] = float32(v)
	case f.Format.BitDepth[c] <= 8:
		f.U8[c][i] = uint8(numeric.Round(v))
	default:
		f.U16[c][i] = uint16(numeric.Round(v))
	}
}

// NLMeans is the Buades-style non-local means denoiser: patch size 7,
// search range 7, using an integral image of squared differences for
// O(1) patch-distance lookups at each of the 49 displacements in
// [-3,3]^2 (spec.md §4.6).
type NLMeans struct {
	PatchRadius, SearchRadius int // default 3 (patch/search size 7)
	Factor                    float64
	decay                     [128]float64
}

// NewNLMeans builds an NLMeans filter with a 128-entry exp(-d*factor)
// decay table, matching the teacher's habit of precomputing weight
// tables rather than calling math.Exp per pixel.
func NewNLMeans(factor float64) *NLMeans {
	n := &NLMeans{PatchRadius: 3, SearchRadius: 3, Factor: factor}
	for i := range n.decay {
		n.decay[i] = math.Exp(-float64(i) * factor)
	}
	return n
}

func (n *NLMeans) weight(d float64) float64 {
	idx := int(d)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(n.decay) {
		return 0
	}
	return n.decay[idx]
}

// Process denoises component c of src into dst using the squared-
// difference integral image I[y,x] = sum_{i<=y,j<=x} (A[i,j]-B[i+dy,j+dx])^2
// for each displacement (dx,dy), giving O(1) patch-distance lookups
// (spec.md §4.6, §4.8).
func (n *NLMeans) Process(src, dst *frame.Frame, c frame.Component) {
	w, h := src.Format.Width[c], src.Format.Height[c]
	in := planeFloat(src, c, w*h)
	lo, hi := src.MinPelValue[c], src.MaxPelValue[c]

	pr, sr := n.PatchRadius, n.SearchRadius
	accum := make([]float64, w*h)
	weightSum := make([]float64, w*h)

	for dy := -sr; dy <= sr; dy++ {
		for dx := -sr; dx <= sr; dx++ {
			b := make([]float64, w*h)
			for y := 0; y < h; y++ {
				sy := clampInt(y+dy, 0, h-1)
				for x := 0; x < w; x++ {
					sx := clampInt(x+dx, 0, w-1)
					b[y*w+x] = in[sy*w+sx]
				}
			}
			// I[y,x] = sum_{i<=y,j<=x} (in[i,j]-in[i+dy,j+dx])^2, per
			// spec.md §4.8; numeric.IntegralImage folds the squared
			// difference and displacement into one pass.
			integral := numeric.IntegralImage(in, in, w, h, dy, dx)

			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					x0, y0 := clampInt(x-pr, 0, w-1), clampInt(y-pr, 0, h-1)
					x1, y1 := clampInt(x+pr, 0, w-1), clampInt(y+pr, 0, h-1)
					area := float64((x1 - x0 + 1) * (y1 - y0 + 1))
					patchDist := numeric.RegionSum(integral, w, h, x0, y0, x1+1, y1+1) / area
					weight := n.weight(patchDist)
					accum[y*w+x] += weight * b[y*w+x]
					weightSum[y*w+x] += weight
				}
			}
		}
	}

	for i := range accum {
		v := in[i]
		if weightSum[i] > 0 {
			v = accum[i] / weightSum[i]
		}
		writeSample(dst, c, i, numeric.ClipF(v, lo, hi))
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
