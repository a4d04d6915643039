// Package filter implements FilterDescriptor (C3): an ordered sequence of
// taps plus (offset, shift, positionOffset, clip) describing a 1-D
// separable polyphase filter, in both integer and floating-point tap
// forms.
package filter

import "github.com/hdrtoolbox/hdrtoolbox/numeric"

// Descriptor holds one phase of a separable filter: output = clip?(
// (sum tap_i * input[pos+i-positionOffset]) + offset) >> shift.
//
// An integer filter with Shift==0 reduces to the unclamped
// float-equivalent form used for lossless passes (spec.md §3.3).
type Descriptor struct {
	TapsInt []int64
	TapsF   []float64
	UseInt  bool

	Offset         int64
	Shift          uint
	PositionOffset int
	Clip           bool
	MinVal, MaxVal float64
}

// Len returns the tap count.
func (d Descriptor) Len() int {
	if d.UseInt {
		return len(d.TapsInt)
	}
	return len(d.TapsF)
}

// ApplyInt evaluates the filter at input position pos over src, an
// integer-sample plane, clamping source reads to [0, n) (edge-clamped
// border handling per spec.md §4.3).
func (d Descriptor) ApplyInt(src []int64, pos, n int) int64 {
	var acc int64
	for i, tap := range d.TapsInt {
		srcPos := pos + i - d.PositionOffset
		if srcPos < 0 {
			srcPos = 0
		}
		if srcPos >= n {
			srcPos = n - 1
		}
		acc += tap * src[srcPos]
	}
	acc += d.Offset
	if d.Shift > 0 {
		acc >>= d.Shift
	}
	if d.Clip {
		f := numeric.ClipF(float64(acc), d.MinVal, d.MaxVal)
		acc = int64(numeric.Round(f))
	}
	return acc
}

// ApplyFloat evaluates the float-tap form of the filter.
func (d Descriptor) ApplyFloat(src []float64, pos, n int) float64 {
	var acc float64
	for i, tap := range d.TapsF {
		srcPos := pos + i - d.PositionOffset
		if srcPos < 0 {
			srcPos = 0
		}
		if srcPos >= n {
			srcPos = n - 1
		}
		acc += tap * src[srcPos]
	}
	acc += float64(d.Offset)
	if d.Clip {
		acc = numeric.ClipF(acc, d.MinVal, d.MaxVal)
	}
	return acc
}

// NewIntTaps builds an integer Descriptor with the given taps, shift, and
// position offset (the tap index that aligns with the output position).
func NewIntTaps(taps []int64, offset int64, shift uint, positionOffset int, clip bool, minVal, maxVal float64) Descriptor {
	return Descriptor{
		TapsInt: taps, UseInt: true, Offset: offset, Shift: shift,
		PositionOffset: positionOffset, Clip: clip, MinVal: minVal, MaxVal: maxVal,
	}
}

// NewFloatTaps builds a floating-point Descriptor.
func NewFloatTaps(taps []float64, positionOffset int, clip bool, minVal, maxVal float64) Descriptor {
	return Descriptor{
		TapsF: taps, UseInt: false, PositionOffset: positionOffset,
		Clip: clip, MinVal: minVal, MaxVal: maxVal,
	}
}
