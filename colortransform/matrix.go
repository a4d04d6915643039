package colortransform

import "github.com/hdrtoolbox/hdrtoolbox/frame"

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float64

// Mul returns m*v.
func (m Mat3) Mul(v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// Invert returns m^-1 via the closed-form cofactor/determinant formula.
func (m Mat3) Invert() Mat3 {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if det == 0 {
		return Mat3{}
	}
	inv := 1 / det
	return Mat3{
		{(e*i - f*h) * inv, (c*h - b*i) * inv, (b*f - c*e) * inv},
		{(f*g - d*i) * inv, (a*i - c*g) * inv, (c*d - a*f) * inv},
		{(d*h - e*g) * inv, (b*g - a*h) * inv, (a*e - b*d) * inv},
	}
}

// ycbcrMatrix builds the standard analog-derived RGB->Y'CbCr matrix from
// the luma coefficients (kR, kG, kB) of a primary set, per BT.601/709/2020
// §3.3 ("Y'CbCr in terms of R'G'B'"):
//
//	Y'  =  kR·R' + kG·G' + kB·B'
//	Cb' = (B' - Y') / (2·(1-kB))
//	Cr' = (R' - Y') / (2·(1-kR))
func ycbcrMatrix(kR, kB float64) Mat3 {
	kG := 1 - kR - kB
	cb := 1 / (2 * (1 - kB))
	cr := 1 / (2 * (1 - kR))
	return Mat3{
		{kR, kG, kB},
		{-kR * cb, -kG * cb, (1 - kB) * cb},
		{(1 - kR) * cr, -kG * cr, -kB * cr},
	}
}

// Mode selects a forward/inverse matrix pair from the static table.
type Mode int

const (
	ModeIdentity Mode = iota
	ModeRGB709_YUV709
	ModeRGB2020_YUV2020
	ModeRGB2020_YUV2020HP
	ModeRGBP3D65_YUVP3D65
	ModeRGB601_YUV601
	ModeRGBEXT_YUVEXT
	ModeRGB709_XYZ
	ModeRGB2020_XYZ
	ModeRGBP3D65_XYZ
	ModeRGB_YCoCg
	ModeRGB_AMT
)

// kR, kB per BT.709, BT.2020 and BT.601. The high-precision 2020
// coefficients are written inline in ForwardMatrix (spec.md §4.4.1).
const (
	kR709, kB709   = 0.2126, 0.0722
	kR2020, kB2020 = 0.2627, 0.0593
	kR601, kB601   = 0.299, 0.114
)

// xyzFromRGB709 is the BT.709 RGB->XYZ matrix (D65 white point).
var xyzFromRGB709 = Mat3{
	{0.4123908, 0.3575843, 0.1804808},
	{0.2126390, 0.7151687, 0.0721923},
	{0.0193308, 0.1191948, 0.9505322},
}

// xyzFromRGB2020 is the BT.2020 RGB->XYZ matrix (D65 white point).
var xyzFromRGB2020 = Mat3{
	{0.6369580, 0.1446169, 0.1688810},
	{0.2627002, 0.6779981, 0.0593017},
	{0.0000000, 0.0280727, 1.0609851},
}

// xyzFromP3D65 is the DCI-P3 (D65) RGB->XYZ matrix.
var xyzFromP3D65 = Mat3{
	{0.4865709, 0.2656677, 0.1982173},
	{0.2289746, 0.6917385, 0.0792869},
	{0.0000000, 0.0451134, 1.0439444},
}

var ycocgFwd = Mat3{
	{0.25, 0.5, 0.25},
	{0.5, 0, -0.5},
	{-0.25, 0.5, -0.25},
}

// ForwardMatrix returns M_fwd for mode. useHighPrecision selects the
// higher-precision 2020 coefficients when set (forward direction: == 1).
func ForwardMatrix(mode Mode, useHighPrecision int) Mat3 {
	switch mode {
	case ModeRGB709_YUV709:
		return ycbcrMatrix(kR709, kB709)
	case ModeRGB2020_YUV2020:
		return ycbcrMatrix(kR2020, kB2020)
	case ModeRGB2020_YUV2020HP:
		if useHighPrecision == 1 {
			return ycbcrMatrix(0.262700212, 0.059302987)
		}
		return ycbcrMatrix(kR2020, kB2020)
	case ModeRGBP3D65_YUVP3D65:
		return ycbcrMatrix(kR709, kB709) // P3D65 conventionally reuses BT.709 luma coefficients
	case ModeRGB601_YUV601:
		return ycbcrMatrix(kR601, kB601)
	case ModeRGBEXT_YUVEXT:
		return ycbcrMatrix(kR2020, kB2020)
	case ModeRGB709_XYZ:
		return xyzFromRGB709
	case ModeRGB2020_XYZ:
		return xyzFromRGB2020
	case ModeRGBP3D65_XYZ:
		return xyzFromP3D65
	case ModeRGB_YCoCg:
		return ycocgFwd
	case ModeRGB_AMT:
		return ycbcrMatrix(kR2020, kB2020)
	default:
		return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
}

// InverseMatrix returns M_inv for mode. useHighPrecision selects the
// high-precision inverse direction when == 2 (spec.md §4.4.1).
func InverseMatrix(mode Mode, useHighPrecision int) Mat3 {
	fwdPrecision := 0
	if useHighPrecision == 2 {
		fwdPrecision = 1
	}
	return ForwardMatrix(mode, fwdPrecision).Invert()
}

// modeKRKB reports the luma coefficients kR, kB of mode's RGB<->YCbCr
// equation; modes without their own (including XYZ and YCoCg) get the
// BT.709 pair. Used by CL / ClosedLoop.
func modeKRKB(mode Mode) (kR, kB float64) {
	switch mode {
	case ModeRGB2020_YUV2020, ModeRGB2020_YUV2020HP, ModeRGBEXT_YUVEXT, ModeRGB_AMT:
		return kR2020, kB2020
	case ModeRGB601_YUV601:
		return kR601, kB601
	default:
		return kR709, kB709
	}
}

// weightsForRange returns (lumaWeight, lumaOffset, chromaWeight,
// chromaOffset) for the given bit depth and sample range, per spec.md
// §4.4.2 (the same constants frame.deriveRanges uses for legal-range
// bounds).
func weightsForRange(bitDepth int, rng frame.SampleRange) (lumaWeight, lumaOffset, chromaWeight, chromaOffset float64) {
	scale := float64(int(1) << uint(bitDepth-8))
	midpoint := float64(int(1) << uint(bitDepth-1))
	switch rng {
	case frame.RangeFull:
		return float64(int(1)<<uint(bitDepth)) - 1, 0, float64(int(1)<<uint(bitDepth)) - 1, 0
	case frame.RangeSDI:
		return 253.75 * scale, 1 * scale, 253 * scale, midpoint
	default:
		return 219 * scale, 16 * scale, 224 * scale, midpoint
	}
}
