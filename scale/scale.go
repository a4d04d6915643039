// Package scale implements FrameScale (C5): a spatial resampler built from
// per-axis separable polyphase coefficients, independent of chroma format.
// Grounded on FrameScaleLanczos.cpp's coefficient-table construction
// (SetFilterLimits / PrepareFilterCoefficients) and the classic
// Catmull-Rom / bilinear / nearest-neighbor kernels the rest of the
// FrameScale* family in original_source implements.
package scale

import (
	"math"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
	"github.com/hdrtoolbox/hdrtoolbox/numeric"
)

// Method selects the resampling kernel.
type Method int

const (
	MethodNull Method = iota
	MethodNearest
	MethodHalf
	MethodBilinear
	MethodBiCubic
	MethodLanczos
)

// axisFilter holds, for every output position along one axis, the integer
// source offsets and float coefficients of its tap window.
type axisFilter struct {
	taps    int
	offsets []int       // len == outSize, the first source index a position's window reads
	coeffs  [][]float64 // len == outSize, each of length taps
}

// Scaler resizes width[Y]/height[Y] (and the chroma planes, scaled to
// match) while holding every other Format attribute equal (spec.md §4.3).
type Scaler struct {
	Method Method
	Lobes  int

	inW, inH, outW, outH int
	x, y                 axisFilter
}

// NewScaler builds a Scaler for a fixed (inW,inH)->(outW,outH) resize.
// lobes is only consulted for MethodLanczos (typically 2 or 3).
func NewScaler(method Method, inW, inH, outW, outH, lobes int) *Scaler {
	if lobes <= 0 {
		lobes = 3
	}
	s := &Scaler{Method: method, Lobes: lobes, inW: inW, inH: inH, outW: outW, outH: outH}
	s.x = buildAxis(method, inW, outW, lobes)
	s.y = buildAxis(method, inH, outH, lobes)
	return s
}

// kernel returns the continuous resampling kernel for method, defined on
// [-support, support].
func kernel(method Method, lobes int) (fn func(x float64) float64, support float64) {
	switch method {
	case MethodNearest:
		return func(x float64) float64 {
			if x > -0.5 && x <= 0.5 {
				return 1
			}
			return 0
		}, 0.5
	case MethodBilinear, MethodHalf:
		return func(x float64) float64 {
			x = math.Abs(x)
			if x < 1 {
				return 1 - x
			}
			return 0
		}, 1
	case MethodBiCubic:
		const a = -0.5
		return func(x float64) float64 {
			x = math.Abs(x)
			switch {
			case x <= 1:
				return ((a+2)*x-(a+3))*x*x + 1
			case x < 2:
				return (((x-5)*x+8)*x - 4) * a
			default:
				return 0
			}
		}, 2
	case MethodLanczos:
		l := float64(lobes)
		return func(x float64) float64 {
			if x == 0 {
				return 1
			}
			if x <= -l || x >= l {
				return 0
			}
			piX := math.Pi * x
			return (math.Sin(piX) / piX) * (math.Sin(piX/l) / (piX / l))
		}, l
	default:
		return func(x float64) float64 { return 1 }, 0
	}
}

// buildAxis precomputes per-output-position taps for one axis. Source
// offsets may fall outside [0, inSize); processPlane clamps them to the
// edge when it evaluates the taps (spec.md §4.3: "border positions are
// clamped to edge").
func buildAxis(method Method, inSize, outSize, lobes int) axisFilter {
	scaleFactor := float64(inSize) / float64(outSize)
	fn, support := kernel(method, lobes)

	var taps int
	switch method {
	case MethodNull:
		taps = 1
	case MethodNearest:
		taps = 1
	case MethodBilinear, MethodHalf:
		taps = 2
	case MethodBiCubic:
		taps = 4
	case MethodLanczos:
		factor := 1.0 / scaleFactor
		if factor > 1.0 {
			taps = int(math.Ceil(factor * 2 * float64(lobes)))
		} else {
			taps = 2 * lobes
		}
	}
	if taps < 1 {
		taps = 1
	}

	af := axisFilter{taps: taps, offsets: make([]int, outSize), coeffs: make([][]float64, outSize)}

	filterScale := scaleFactor
	if filterScale < 1 {
		filterScale = 1 // only widen (low-pass) the kernel when downsampling
	}

	for o := 0; o < outSize; o++ {
		if method == MethodNull {
			af.offsets[o] = o
			af.coeffs[o] = []float64{1}
			continue
		}
		center := (float64(o)+0.5)*scaleFactor - 0.5
		first := int(math.Floor(center-support*filterScale)) + 1
		row := make([]float64, taps)
		sum := 0.0
		for t := 0; t < taps; t++ {
			srcPos := first + t
			dist := (float64(srcPos) - center) / filterScale
			w := fn(dist)
			row[t] = w
			sum += w
		}
		if sum != 0 {
			for t := range row {
				row[t] /= sum
			}
		}
		af.offsets[o] = first
		af.coeffs[o] = row
	}
	return af
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Process resamples src's width[Y]/height[Y] (and proportionally its
// chroma planes) into a Frame matching dstFormat, which must equal src's
// Format on everything except width/height (spec.md §4.3). Integer
// outputs are rounded-half-up and clipped to [minPel,maxPel]; float
// outputs are left unclipped.
func (s *Scaler) Process(src *frame.Frame, dstFormat frame.Format) (*frame.Frame, error) {
	const op = "scale.Process"
	if src.Format.IsFloat != dstFormat.IsFloat || src.Format.ChromaFormat != dstFormat.ChromaFormat {
		return nil, herror.New(herror.TypeMismatch, op, "scale requires equal format except width/height", nil)
	}

	dst := frame.New(dstFormat)
	for c := frame.Component(0); c < 4; c++ {
		inW, inH := src.Format.Width[c], src.Format.Height[c]
		outW, outH := dst.Format.Width[c], dst.Format.Height[c]
		if inW == 0 || inH == 0 || outW == 0 || outH == 0 {
			continue
		}
		xf := s.x
		yf := s.y
		if c == frame.ComponentU || c == frame.ComponentV {
			// Chroma planes may be smaller than luma; rebuild axis filters
			// at the chroma plane's own resolution so taps stay correctly
			// scaled (spec.md §4.3 applies per-plane).
			xf = buildAxis(s.Method, inW, outW, s.Lobes)
			yf = buildAxis(s.Method, inH, outH, s.Lobes)
		}
		s.processPlane(src, dst, c, inW, inH, outW, outH, xf, yf)
	}
	return dst, nil
}

func (s *Scaler) processPlane(src, dst *frame.Frame, c frame.Component, inW, inH, outW, outH int, xf, yf axisFilter) {
	in := planeAsFloat(src, c, inW*inH)
	lo, hi := src.MinPelValue[c], src.MaxPelValue[c]

	// Horizontal pass.
	tmp := make([]float64, outW*inH)
	for y := 0; y < inH; y++ {
		for x := 0; x < outW; x++ {
			var acc float64
			for t := 0; t < xf.taps; t++ {
				sx := clampIdx(xf.offsets[x]+t, inW)
				acc += xf.coeffs[x][t] * in[y*inW+sx]
			}
			tmp[y*outW+x] = acc
		}
	}

	// Vertical pass, writing into dst.
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			var acc float64
			for t := 0; t < yf.taps; t++ {
				sy := clampIdx(yf.offsets[y]+t, inH)
				acc += yf.coeffs[y][t] * tmp[sy*outW+x]
			}
			writeSample(dst, c, y*outW+x, acc, lo, hi)
		}
	}
}

func planeAsFloat(f *frame.Frame, c frame.Component, size int) []float64 {
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

func writeSample(f *frame.Frame, c frame.Component, idx int, val, lo, hi float64) {
	switch {
	case f.Format.IsFloat:
		if idx < len(f.F32[c]) {
			f.F32[c][idx] = float32(val)
		}
	case f.Format.BitDepth[c] <= 8:
		if idx < len(f.U8[c]) {
			f.U8[c][idx] = uint8(numeric.ClipF(numeric.Round(val), lo, hi))
		}
	default:
		if idx < len(f.U16[c]) {
			f.U16[c][idx] = uint16(numeric.ClipF(numeric.Round(val), lo, hi))
		}
	}
}
