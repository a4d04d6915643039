// Package frame implements the Frame data model (C1): a typed pixel
// container with per-plane buffers, an immutable format descriptor, and
// the invariants every operator must preserve.
package frame

import "github.com/hdrtoolbox/hdrtoolbox/transfer"

// Component indexes a plane. Y doubles as the luma plane in YCbCr/ICtCp/
// XYZ/RGB alike (spec.md §3.1); U/V double as chroma or G/B.
type Component int

const (
	ComponentY Component = iota
	ComponentU
	ComponentV
	ComponentA
)

// ChromaFormat selects the relative chroma-plane sizing.
type ChromaFormat int

const (
	Format400 ChromaFormat = iota // no chroma
	Format420                     // half width, half height
	Format422                     // half width, full height
	Format444                     // equal
)

// ColorSpace names the component interpretation.
type ColorSpace int

const (
	ColorSpaceRGB ColorSpace = iota
	ColorSpaceYCbCr
	ColorSpaceXYZ
	ColorSpaceYDzDx
	ColorSpaceYUpVp
	ColorSpaceICtCp
	ColorSpaceYFBFR1
	ColorSpaceYFBFR2
	ColorSpaceYFBFR3
	ColorSpaceYFBFR4
)

// ColorPrimaries selects the 3x3 primary matrices used by colortransform.
type ColorPrimaries int

const (
	Primaries709 ColorPrimaries = iota
	Primaries2020
	PrimariesP3D65
	PrimariesP3D60
	Primaries601
	PrimariesEXT
	PrimariesXYZ
	PrimariesAMT
	PrimariesYCoCg
)

// SampleRange selects the legal/full/SDI code-value mapping (spec.md §4.2.2).
type SampleRange int

const (
	RangeStandard SampleRange = iota // legal/narrow
	RangeFull
	RangeSDI
)

// ChromaLocation is one of the six BT-specified sample-position codes.
type ChromaLocation int

const (
	ChromaLocTopLeft ChromaLocation = iota
	ChromaLocLeft
	ChromaLocTopLeft2
	ChromaLocTop
	ChromaLocCenter
	ChromaLocBottomLeft
)

// PixelFormat names the on-disk packing; the byte-level codec for any
// given value is out of scope here (spec.md §1) beyond the rawio package's
// headerless planar layout.
type PixelFormat int

const (
	PixelFormatPlanar PixelFormat = iota
	PixelFormatV210
	PixelFormatR210
	PixelFormatB64A
	PixelFormatSIM2
	PixelFormatYFBFR
)

// Format is the immutable descriptor half of a Frame (spec.md §3.2):
// every Frame attribute except the payload buffers, FrameNo, and
// IsAvailable.
type Format struct {
	Width, Height   [4]int
	BitDepth        [4]int
	IsFloat         bool
	ChromaFormat    ChromaFormat
	ColorSpace      ColorSpace
	ColorPrimaries  ColorPrimaries
	TransferFunc    transfer.Kind
	SampleRange     SampleRange
	ChromaLocTop    ChromaLocation
	ChromaLocBottom ChromaLocation
	IsInterlaced    bool
	PixelFormat     PixelFormat
	FrameRate       float64
	SystemGamma     float64
}

// CompSize returns width[c]*height[c].
func (f Format) CompSize(c Component) int {
	return f.Width[c] * f.Height[c]
}

// TotalSize returns the sum of every plane's CompSize.
func (f Format) TotalSize() int {
	var total int
	for c := Component(0); c < 4; c++ {
		total += f.CompSize(c)
	}
	return total
}

// EqualType implements the spec.md §3.2 equal-typed predicate: two Frames
// are equal-typed iff their formats match on (width[Y], height[Y],
// chromaFormat, bitDepth, isFloat, colorSpace, colorPrimaries).
func (f Format) EqualType(g Format) bool {
	if f.Width[ComponentY] != g.Width[ComponentY] ||
		f.Height[ComponentY] != g.Height[ComponentY] ||
		f.ChromaFormat != g.ChromaFormat ||
		f.IsFloat != g.IsFloat ||
		f.ColorSpace != g.ColorSpace ||
		f.ColorPrimaries != g.ColorPrimaries {
		return false
	}
	if !f.IsFloat {
		for c := Component(0); c < 4; c++ {
			if f.BitDepth[c] != g.BitDepth[c] {
				return false
			}
		}
	}
	return true
}

// DeriveChromaPlanes fills Width/Height for U and V from Width[Y]/Height[Y]
// and ChromaFormat, enforcing the spec.md §3.1 sizing invariants.
func (f *Format) DeriveChromaPlanes() {
	wy, hy := f.Width[ComponentY], f.Height[ComponentY]
	switch f.ChromaFormat {
	case Format400:
		f.Width[ComponentU], f.Height[ComponentU] = 0, 0
		f.Width[ComponentV], f.Height[ComponentV] = 0, 0
	case Format420:
		f.Width[ComponentU], f.Height[ComponentU] = wy/2, hy/2
		f.Width[ComponentV], f.Height[ComponentV] = wy/2, hy/2
	case Format422:
		f.Width[ComponentU], f.Height[ComponentU] = wy/2, hy
		f.Width[ComponentV], f.Height[ComponentV] = wy/2, hy
	case Format444:
		f.Width[ComponentU], f.Height[ComponentU] = wy, hy
		f.Width[ComponentV], f.Height[ComponentV] = wy, hy
	}
}
