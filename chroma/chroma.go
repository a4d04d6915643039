// Package chroma implements the ChromaResampler family (C4): conversions
// between ChromaFormat400/420/422/444 using the separable polyphase filters
// described by filter.Descriptor, plus the edge-adaptive 444->420
// downsampler of spec.md §4.2.
//
// Filter coefficients below are taken verbatim from the MPEG-2 TM5 and
// short-kernel filters used by the original HDRTools chroma converters
// (Conv422to420Generic / Conv420to422Generic / Conv422to444Generic); see
// DESIGN.md for the exact file-level grounding.
package chroma

import (
	"github.com/hdrtoolbox/hdrtoolbox/filter"
	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
)

// Method selects among the downsampling filter families a Resampler may
// use for 444<->422 and 422<->420 conversion.
type Method int

const (
	MethodMPEG2TM5 Method = iota
	MethodThreeTap
	MethodSixTap
	MethodBilinear
)

// horizontalDown444to422 returns the 11-tap MPEG-2 TM5 horizontal
// downsampling filter (Conv422to420Generic.cpp, DCF_MPEG2_TM5_H), used for
// 444->422 horizontal decimation.
func horizontalDown444to422(method Method, lo, hi float64) filter.Descriptor {
	switch method {
	case MethodThreeTap:
		return floatDescriptor([]int64{1, 2, 1}, 2, 2, 1, lo, hi)
	case MethodBilinear:
		return floatDescriptor([]int64{1, 1}, 1, 1, 0, lo, hi)
	default: // MethodMPEG2TM5, MethodSixTap falls back to TM5 (only family with 11 taps retained)
		return floatDescriptor(
			[]int64{21, 0, -52, 0, 159, 256, 159, 0, -52, 0, 21},
			5, 9, 5, lo, hi,
		)
	}
}

// verticalDown422to420 returns the 12-tap MPEG-2 TM5 vertical downsampling
// filter (Conv422to420Generic.cpp, DCF_MPEG2_TM5_V), or one of the shorter
// alternatives.
func verticalDown422to420(method Method, lo, hi float64) filter.Descriptor {
	switch method {
	case MethodThreeTap:
		return floatDescriptor([]int64{1, 6, 1}, 4, 3, 1, lo, hi)
	case MethodBilinear:
		return floatDescriptor([]int64{1, 1}, 1, 1, 0, lo, hi)
	default:
		return floatDescriptor(
			[]int64{5, 11, -21, -37, 70, 228, 228, 70, -37, -21, 11, 5},
			5, 9, 5, lo, hi,
		)
	}
}

// verticalUp420to422 returns one of the four 4-tap upsampling kernels
// (Conv420to422Generic.cpp, UCF_F0/F1/F2/passthrough), selected by the
// vertical chroma phase (0..3).
func verticalUp420to422(phase int, lo, hi float64) filter.Descriptor {
	switch phase {
	case 0:
		return floatDescriptor([]int64{-2, 16, 54, -4}, 32, 6, 1, lo, hi)
	case 1:
		return floatDescriptor([]int64{-4, 54, 16, -2}, 32, 6, 2, lo, hi)
	case 2:
		return floatDescriptor([]int64{-4, 36, 36, -4}, 32, 6, 1, lo, hi)
	default:
		return floatDescriptor([]int64{0, 1}, 0, 0, 0, lo, hi)
	}
}

// phasesForLocation maps a ChromaLocation to the (horizontal, vertical)
// phase pair used by the 422->444 dual-phase upsampler
// (Conv422to444Generic.cpp). Phases collapse to one of two cases: (0,2) or
// (1,3), chosen by where the chroma sample sits relative to the luma grid.
func phasesForLocation(loc frame.ChromaLocation) (even, odd int) {
	switch loc {
	case frame.ChromaLocBottomLeft, frame.ChromaLocTop, frame.ChromaLocLeft:
		return 1, 3
	default: // ChromaLocTopLeft, ChromaLocTopLeft2, ChromaLocCenter
		return 0, 2
	}
}

// Resampler converts Frames between chroma formats using the filters
// above. One Resampler instance is valid for a fixed (from, to, method)
// triple; it holds no per-frame state.
type Resampler struct {
	Method         Method
	ChromaLocation [2]frame.ChromaLocation // [frame, field], field unused (progressive only)

	// EdgeClassifier is the fractional-sample threshold used by the
	// adaptive 444->420 downsampler (spec.md §4.2, default 0.10).
	EdgeClassifier float64
}

// NewResampler builds a Resampler with spec.md's default edge classifier.
func NewResampler(method Method, loc frame.ChromaLocation) *Resampler {
	return &Resampler{Method: method, ChromaLocation: [2]frame.ChromaLocation{loc, loc}, EdgeClassifier: 0.10}
}

// Convert resamples src's chroma planes to match dstFormat, returning a new
// Frame. src and dst differ only in ChromaFormat; differing BitDepth,
// IsFloat, or luma geometry is a TypeMismatch (spec.md §4.1: chroma
// resampling never touches the luma plane).
func (r *Resampler) Convert(src *frame.Frame, dstFormat frame.Format) (*frame.Frame, error) {
	const op = "chroma.Convert"
	if src.Format.IsFloat != dstFormat.IsFloat || src.Format.BitDepth[frame.ComponentY] != dstFormat.BitDepth[frame.ComponentY] {
		return nil, herror.New(herror.TypeMismatch, op, "sample type/bitDepth must match across a chroma conversion", nil)
	}
	if src.Format.Width[frame.ComponentY] != dstFormat.Width[frame.ComponentY] || src.Format.Height[frame.ComponentY] != dstFormat.Height[frame.ComponentY] {
		return nil, herror.New(herror.TypeMismatch, op, "luma geometry must be unchanged by chroma resampling", nil)
	}

	dst := frame.New(dstFormat)
	// Luma is always copied through unmodified (spec.md §8 item 3: Y
	// values produced by a pure chroma conversion equal the input Y
	// values to machine precision).
	copyPlane(src, dst, frame.ComponentY)

	from, to := src.Format.ChromaFormat, dstFormat.ChromaFormat
	if from == to {
		copyPlane(src, dst, frame.ComponentU)
		copyPlane(src, dst, frame.ComponentV)
		return dst, nil
	}

	switch {
	case from == frame.Format444 && to == frame.Format422:
		r.down444to422(src, dst)
	case from == frame.Format422 && to == frame.Format420:
		r.down422to420(src, dst)
	case from == frame.Format444 && to == frame.Format420:
		r.down444to420Adaptive(src, dst)
	case from == frame.Format420 && to == frame.Format422:
		r.up420to422(src, dst)
	case from == frame.Format422 && to == frame.Format444:
		r.up422to444(src, dst)
	case from == frame.Format420 && to == frame.Format444:
		mid := src.Format
		mid.Width[frame.ComponentY], mid.Height[frame.ComponentY] = src.Format.Width[frame.ComponentY], src.Format.Height[frame.ComponentY]
		mid.BitDepth, mid.IsFloat, mid.SampleRange = src.Format.BitDepth, src.Format.IsFloat, src.Format.SampleRange
		mid.ChromaFormat = frame.Format422
		mid.DeriveChromaPlanes()
		step, err := r.Convert(src, mid)
		if err != nil {
			return nil, err
		}
		r.up422to444(step, dst)
	case to == frame.Format400 || from == frame.Format400:
		// Chroma planes simply don't exist on one side; already handled
		// by the luma copy above and frame.New's zero-size allocation.
	default:
		return nil, herror.New(herror.UnsupportedFormat, op, "unsupported chroma conversion pair", nil)
	}

	return dst, nil
}

func copyPlane(src, dst *frame.Frame, c frame.Component) {
	copy(dst.U8[c], src.U8[c])
	copy(dst.U16[c], src.U16[c])
	copy(dst.F32[c], src.F32[c])
}

// down444to422 applies the horizontal TM5 filter to halve chroma width.
func (r *Resampler) down444to422(src, dst *frame.Frame) {
	for _, c := range [2]frame.Component{frame.ComponentU, frame.ComponentV} {
		w, h := src.Format.Width[c], src.Format.Height[c]
		outW := dst.Format.Width[c]
		lo, hi := src.MinPelValue[c], src.MaxPelValue[c]
		fd := horizontalDown444to422(r.Method, lo, hi)
		for y := 0; y < h; y++ {
			filterRow(src, dst, c, y, y, w, outW, 2, fd, true)
		}
	}
}

// down422to420 applies the vertical TM5 filter to halve chroma height.
func (r *Resampler) down422to420(src, dst *frame.Frame) {
	for _, c := range [2]frame.Component{frame.ComponentU, frame.ComponentV} {
		w, h := src.Format.Width[c], src.Format.Height[c]
		outH := dst.Format.Height[c]
		lo, hi := src.MinPelValue[c], src.MaxPelValue[c]
		fd := verticalDown422to420(r.Method, lo, hi)
		for x := 0; x < w; x++ {
			filterCol(src, dst, c, x, x, h, outH, 2, fd, true)
		}
	}
}

// down444to420Adaptive implements spec.md §4.2's edge-classified adaptive
// downsampler: a ranked family of filters from longest (most aggressive
// low-pass) to shortest is tried at each output position, selecting the
// longest filter whose support is "flat" (every tap-window sample within
// EdgeClassifier of the filtered output), falling back to the longest
// filter when none of them is flat.
func (r *Resampler) down444to420Adaptive(src, dst *frame.Frame) {
	taps := [][]int64{
		{21, 0, -52, 0, 159, 256, 159, 0, -52, 0, 21}, // TM5 11-tap, most aggressive
		{1, 2, 1},
		{1, 6, 1},
		{1, 1},
		{0, 1}, // nearest-sample
	}
	offsets := []int64{5, 2, 4, 1, 0}
	shifts := []uint{9, 2, 3, 1, 0}
	posOff := []int{5, 1, 1, 0, 0}

	classifier := r.EdgeClassifier
	if classifier <= 0 {
		classifier = 0.10
	}

	for _, c := range [2]frame.Component{frame.ComponentU, frame.ComponentV} {
		w, h := src.Format.Width[c], src.Format.Height[c]
		halfW := w / 2
		lo, hi := src.MinPelValue[c], src.MaxPelValue[c]
		rng := hi - lo
		if rng <= 0 {
			rng = 1
		}
		threshold := classifier * rng

		horiz := make([]float64, halfW*h)
		for y := 0; y < h; y++ {
			row := planeRowF(src, c, y, w)
			for x := 0; x < halfW; x++ {
				pos := 2 * x
				horiz[y*halfW+x] = floatDescriptor(taps[0], offsets[0], shifts[0], posOff[0], lo, hi).ApplyFloat(row, pos, w)
				for i, tp := range taps {
					fd := floatDescriptor(tp, offsets[i], shifts[i], posOff[i], lo, hi)
					if isFlatF(row, pos, w, fd, threshold) {
						horiz[y*halfW+x] = fd.ApplyFloat(row, pos, w)
						break
					}
				}
			}
		}

		halfH := h / 2
		outH, outW := dst.Format.Height[c], dst.Format.Width[c]
		for x := 0; x < halfW && x < outW; x++ {
			col := make([]float64, h)
			for y := 0; y < h; y++ {
				col[y] = horiz[y*halfW+x]
			}
			for y := 0; y < halfH && y < outH; y++ {
				pos := 2 * y
				val := floatDescriptor(taps[0], offsets[0], shifts[0], posOff[0], lo, hi).ApplyFloat(col, pos, h)
				for i, tp := range taps {
					fd := floatDescriptor(tp, offsets[i], shifts[i], posOff[i], lo, hi)
					if isFlatF(col, pos, h, fd, threshold) {
						val = fd.ApplyFloat(col, pos, h)
						break
					}
				}
				setSample(dst, c, x, y, outW, val, lo, hi)
			}
		}
	}
}

// floatDescriptor converts an (int taps, shift) pair into the equivalent
// float-tap Descriptor: taps/2^shift sums to 1 for every filter in this
// package, so the integer formula's rounding offset (needed only to bias
// a truncating right-shift) has no float equivalent and is dropped.
func floatDescriptor(taps []int64, offset int64, shift uint, posOff int, lo, hi float64) filter.Descriptor {
	div := float64(int64(1) << shift)
	ft := make([]float64, len(taps))
	for i, t := range taps {
		ft[i] = float64(t) / div
	}
	d := filter.NewFloatTaps(ft, posOff, true, lo, hi)
	return d
}

// isFlatF reports whether every sample in fd's support window at pos
// differs from the filtered value by no more than threshold.
func isFlatF(src []float64, pos, n int, fd filter.Descriptor, threshold float64) bool {
	value := fd.ApplyFloat(src, pos, n)
	for i := 0; i < fd.Len(); i++ {
		srcPos := pos + i - fd.PositionOffset
		if srcPos < 0 {
			srcPos = 0
		}
		if srcPos >= n {
			srcPos = n - 1
		}
		d := value - src[srcPos]
		if d < 0 {
			d = -d
		}
		if d > threshold {
			return false
		}
	}
	return true
}

// up420to422 applies the 4-tap vertical upsampler, doubling chroma height.
func (r *Resampler) up420to422(src, dst *frame.Frame) {
	for _, c := range [2]frame.Component{frame.ComponentU, frame.ComponentV} {
		w, h := src.Format.Width[c], src.Format.Height[c]
		outH := dst.Format.Height[c]
		lo, hi := src.MinPelValue[c], src.MaxPelValue[c]
		even := verticalUp420to422(0, lo, hi)
		odd := verticalUp420to422(1, lo, hi)
		for x := 0; x < w; x++ {
			col := planeColF(src, c, x, w, h)
			for y := 0; y < outH; y++ {
				srcPos := y / 2
				fd := even
				if y%2 == 1 {
					fd = odd
				}
				val := fd.ApplyFloat(col, srcPos, h)
				setSample(dst, c, x, y, dst.Format.Width[c], val, lo, hi)
			}
		}
	}
}

// up422to444 applies the dual-phase horizontal upsampler, doubling chroma
// width, per the six-case chroma-location table collapsed into an
// (even, odd) phase pair.
func (r *Resampler) up422to444(src, dst *frame.Frame) {
	even, odd := phasesForLocation(r.ChromaLocation[0])
	for _, c := range [2]frame.Component{frame.ComponentU, frame.ComponentV} {
		w, h := src.Format.Width[c], src.Format.Height[c]
		outW := dst.Format.Width[c]
		lo, hi := src.MinPelValue[c], src.MaxPelValue[c]
		fdEven := verticalUp420to422(even, lo, hi)
		fdOdd := verticalUp420to422(odd, lo, hi)
		for y := 0; y < h; y++ {
			row := planeRowF(src, c, y, w)
			for x := 0; x < outW; x++ {
				srcPos := x / 2
				fd := fdEven
				if x%2 == 1 {
					fd = fdOdd
				}
				val := fd.ApplyFloat(row, srcPos, w)
				setSample(dst, c, x, y, outW, val, lo, hi)
			}
		}
	}
}

// filterRow applies fd horizontally along row srcY of component c,
// producing outW samples in dst's row dstY, reading every step-th input
// column (step=2 decimates, step=1 is a straight horizontal pass).
func filterRow(src, dst *frame.Frame, c frame.Component, srcY, dstY, w, outW, step int, fd filter.Descriptor, decimate bool) {
	row := planeRowF(src, c, srcY, w)
	for x := 0; x < outW; x++ {
		pos := x
		if decimate {
			pos = x * step
		}
		val := fd.ApplyFloat(row, pos, w)
		setSample(dst, c, x, dstY, outW, val, src.MinPelValue[c], src.MaxPelValue[c])
	}
}

// filterCol applies fd vertically along column srcX of component c.
func filterCol(src, dst *frame.Frame, c frame.Component, srcX, dstX, h, outH, step int, fd filter.Descriptor, decimate bool) {
	col := planeColF(src, c, srcX, src.Format.Width[c], h)
	for y := 0; y < outH; y++ {
		pos := y
		if decimate {
			pos = y * step
		}
		val := fd.ApplyFloat(col, pos, h)
		setSample(dst, c, dstX, y, dst.Format.Width[c], val, src.MinPelValue[c], src.MaxPelValue[c])
	}
}

func planeRowF(f *frame.Frame, c frame.Component, y, w int) []float64 {
	out := make([]float64, w)
	base := y * w
	switch {
	case f.Format.IsFloat:
		for x := 0; x < w; x++ {
			out[x] = float64(f.F32[c][base+x])
		}
	case f.Format.BitDepth[c] <= 8:
		for x := 0; x < w; x++ {
			out[x] = float64(f.U8[c][base+x])
		}
	default:
		for x := 0; x < w; x++ {
			out[x] = float64(f.U16[c][base+x])
		}
	}
	return out
}

func planeColF(f *frame.Frame, c frame.Component, x, w, h int) []float64 {
	out := make([]float64, h)
	switch {
	case f.Format.IsFloat:
		for y := 0; y < h; y++ {
			out[y] = float64(f.F32[c][y*w+x])
		}
	case f.Format.BitDepth[c] <= 8:
		for y := 0; y < h; y++ {
			out[y] = float64(f.U8[c][y*w+x])
		}
	default:
		for y := 0; y < h; y++ {
			out[y] = float64(f.U16[c][y*w+x])
		}
	}
	return out
}

func setSample(f *frame.Frame, c frame.Component, x, y, w int, val, lo, hi float64) {
	if x < 0 || y < 0 {
		return
	}
	idx := y*w + x
	switch {
	case f.Format.IsFloat:
		if idx < len(f.F32[c]) {
			f.F32[c][idx] = float32(val)
		}
	case f.Format.BitDepth[c] <= 8:
		if idx < len(f.U8[c]) {
			if val < lo {
				val = lo
			}
			if val > hi {
				val = hi
			}
			f.U8[c][idx] = uint8(val + 0.5)
		}
	default:
		if idx < len(f.U16[c]) {
			if val < lo {
				val = lo
			}
			if val > hi {
				val = hi
			}
			f.U16[c][idx] = uint16(val + 0.5)
		}
	}
}
