package frame

import "github.com/hdrtoolbox/hdrtoolbox/herror"

// Frame is the universal pixel container and the only state passed
// between operators (spec.md §3.1). Exactly one of U8, U16, F32 is live,
// selected by (Format.IsFloat, Format.BitDepth[c] <= 8).
type Frame struct {
	Format Format

	U8  [4][]uint8
	U16 [4][]uint16
	F32 [4][]float32

	MinPelValue [4]float64
	MaxPelValue [4]float64
	MidPelValue [4]float64

	FrameNo     int
	IsAvailable bool
}

// New allocates a Frame for the given format, sizing whichever payload the
// format selects and deriving Min/Max/MidPelValue from BitDepth and
// SampleRange (spec.md §3.1).
func New(format Format) *Frame {
	f := &Frame{Format: format}
	f.allocate()
	f.deriveRanges()
	return f
}

func (f *Frame) allocate() {
	for c := Component(0); c < 4; c++ {
		size := f.Format.CompSize(c)
		if size == 0 {
			continue
		}
		if f.Format.IsFloat {
			f.F32[c] = make([]float32, size)
		} else if f.Format.BitDepth[c] <= 8 {
			f.U8[c] = make([]uint8, size)
		} else {
			f.U16[c] = make([]uint16, size)
		}
	}
}

// Reset clears every live plane to zero without reallocating, supporting
// the steady-state reuse lifecycle (spec.md §3.1: "no per-frame
// allocation in steady state").
func (f *Frame) Reset() {
	for c := Component(0); c < 4; c++ {
		for i := range f.U8[c] {
			f.U8[c][i] = 0
		}
		for i := range f.U16[c] {
			f.U16[c][i] = 0
		}
		for i := range f.F32[c] {
			f.F32[c][i] = 0
		}
	}
	f.IsAvailable = false
}

// deriveRanges computes MinPelValue/MaxPelValue/MidPelValue per component
// from BitDepth and SampleRange, per spec.md §4.2.2's weight/offset table
// (reused here for the plain per-sample legal range, not just luma/chroma
// quantization weights).
func (f *Frame) deriveRanges() {
	for c := Component(0); c < 4; c++ {
		depth := f.Format.BitDepth[c]
		if depth == 0 {
			continue
		}
		scale := 1 << uint(depth-8)
		isChroma := c == ComponentU || c == ComponentV

		if f.Format.IsFloat {
			f.MinPelValue[c], f.MaxPelValue[c] = 0, 1
			f.MidPelValue[c] = 0.5
			continue
		}

		switch f.Format.SampleRange {
		case RangeFull:
			f.MaxPelValue[c] = float64(int(1)<<uint(depth)) - 1
			f.MinPelValue[c] = 0
		case RangeSDI:
			if isChroma {
				f.MinPelValue[c] = float64(1 * scale)
				f.MaxPelValue[c] = float64(1*scale) + 253*float64(scale) - 1
			} else {
				f.MinPelValue[c] = float64(1 * scale)
				f.MaxPelValue[c] = float64(1*scale) + 253.75*float64(scale) - 1
			}
		default: // RangeStandard
			if isChroma {
				f.MinPelValue[c] = float64(16 * scale)
				f.MaxPelValue[c] = float64(16*scale) + float64(224*scale) - 1
			} else {
				f.MinPelValue[c] = float64(16 * scale)
				f.MaxPelValue[c] = float64(16*scale) + float64(219*scale) - 1
			}
		}
		f.MidPelValue[c] = (f.MinPelValue[c] + f.MaxPelValue[c]) / 2
	}
}

// Validate checks every invariant spec.md §3.1 requires to hold after an
// operator runs: chroma-plane sizing matching ChromaFormat (4:4:4 chroma
// sizing is not checked), at most one live payload per component, and (for
// integer payloads) values within [MinPelValue, MaxPelValue].
func (f *Frame) Validate(operator string) error {
	wantU, wantV := f.Format.Width[ComponentU], f.Format.Width[ComponentV]
	switch f.Format.ChromaFormat {
	case Format400:
		if wantU != 0 || wantV != 0 {
			return herror.New(herror.TypeMismatch, operator, "chromaFormat=400 requires width[U]=width[V]=0", nil)
		}
	case Format420:
		if wantU != f.Format.Width[ComponentY]/2 || f.Format.Height[ComponentU] != f.Format.Height[ComponentY]/2 {
			return herror.New(herror.TypeMismatch, operator, "chromaFormat=420 sizing", nil)
		}
	case Format422:
		if wantU != f.Format.Width[ComponentY]/2 || f.Format.Height[ComponentU] != f.Format.Height[ComponentY] {
			return herror.New(herror.TypeMismatch, operator, "chromaFormat=422 sizing", nil)
		}
	}

	for c := Component(0); c < 4; c++ {
		live := 0
		if len(f.U8[c]) > 0 {
			live++
		}
		if len(f.U16[c]) > 0 {
			live++
		}
		if len(f.F32[c]) > 0 {
			live++
		}
		if live > 1 {
			return herror.New(herror.TypeMismatch, operator, "multiple live payloads for component", nil)
		}
	}

	if !f.Format.IsFloat {
		for c := Component(0); c < 4; c++ {
			for _, v := range f.U8[c] {
				if float64(v) < f.MinPelValue[c] || float64(v) > f.MaxPelValue[c] {
					return herror.New(herror.DomainError, operator, "sample outside [minPel,maxPel]", nil)
				}
			}
			for _, v := range f.U16[c] {
				if float64(v) < f.MinPelValue[c] || float64(v) > f.MaxPelValue[c] {
					return herror.New(herror.DomainError, operator, "sample outside [minPel,maxPel]", nil)
				}
			}
		}
	}

	return nil
}

// RequireEqualType asserts that f and other are equal-typed (spec.md
// §3.2), returning a TypeMismatch herror.Error naming operator otherwise.
func RequireEqualType(operator string, f, other *Frame) error {
	if !f.Format.EqualType(other.Format) {
		return herror.New(herror.TypeMismatch, operator, "inputs are not equal-typed", nil)
	}
	return nil
}

// Reader produces a finite, restartable sequence of Frames (spec.md §6.1).
type Reader interface {
	Read(frameIndex int) (*Frame, error)
	Close() error
}

// Writer persists a Frame in the handle's on-disk format (spec.md §6.2).
type Writer interface {
	Write(f *Frame, frameIndex int) error
	Close() error
}
