// Package params implements the Configuration record (C11, spec.md §6.3):
// every startup-time knob as a typed Params field, plus Negotiate, which
// derives a frame.Format from a Params value the way spec.md §3.1/§6.3
// describe.
package params

import (
	"github.com/hdrtoolbox/hdrtoolbox/colortransform"
	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
)

// Params is the single configuration record passed once at startup
// (spec.md §6.3). Zero value is a valid "auto-detect everything" request
// except for Width and Height, which Negotiate requires to be > 0, and
// where a field's comment says otherwise.
type Params struct {
	// Geometry
	Width, Height int
	ChromaFormat  frame.ChromaFormat
	BitDepthCmp   [3]int // per-component depth, 8-16

	// Color interpretation
	ColorSpace         frame.ColorSpace
	ColorPrimaries     frame.ColorPrimaries
	TransferFunction   int // transfer.Kind
	SampleRange        frame.SampleRange
	ChromaLocationType [2]frame.ChromaLocation // Top, Bottom field

	// ColorTransform (C6)
	UseClosedLoop      bool
	ClosedLoopType     colortransform.Mode
	MaxIterations      int // <= 30
	UseMinMax          int // selects forceRange in CL variants
	UseHighPrecision   int // 0/1/2
	TransformPrecision bool

	// ChromaResampler (C4)
	ChromaDownsampleFilter int
	ChromaUpsampleFilter   int
	UseAdaptiveDownsampler bool
	UseAdaptiveUpsampler   bool

	// TransferFunction (C2)
	EnableTFLUTs bool

	// Frame window
	NumberOfFrames, StartFrame, FrameSkip int
	CropOffsetLeft, CropOffsetTop         int // signed; negative pads
	CropOffsetRight, CropOffsetBottom     int

	// HDRMontage placement
	DestMinPosX, DestMinPosY int
	DestMaxPosX, DestMaxPosY int

	// Metrics (C9)
	EnableMetricPSNR, EnableMetricSSIM       bool
	EnableMetricTFSSIM, EnableMetricMPSNR    bool
	EnableMetricDeltaE, EnableMetricVQM      bool
	EnableMetricBlockiness                   bool
	SSIMBlockSizeX, SSIMBlockSizeY           int
	SSIMBlockDistance                        int
	RPSNRBlockSizeX, RPSNRBlockSizeY         int
	RPSNRBlockDistanceX, RPSNRBlockDistanceY int
	DeltaEPointsEnable                       uint8
	MaxSampleValue                           float64

	// ToneMapping (C7)
	ToneMapMode        string
	ToneMapMinValue    float64
	ToneMapMaxValue    float64
	ToneMapTargetValue float64
	ToneMapGamma       float64
	ToneMapScale       bool
}

// Default returns a Params with the spec's documented defaults where one
// exists (MaxIterations=30, UseHighPrecision=0, SampleRange=Standard,
// ChromaFormat=4:2:0, 10-bit components, ToneMapGamma=2.2,
// MaxSampleValue=1, 8x8 SSIM and 16x16 RPSNR blocks,
// DeltaEPointsEnable=0x0F; everything else zero/auto-detect).
func Default() Params {
	return Params{
		MaxIterations:      30,
		SampleRange:        frame.RangeStandard,
		ChromaFormat:       frame.Format420,
		BitDepthCmp:        [3]int{10, 10, 10},
		ToneMapGamma:       2.2,
		MaxSampleValue:     1.0,
		SSIMBlockSizeX:     8,
		SSIMBlockSizeY:     8,
		RPSNRBlockSizeX:    16,
		RPSNRBlockSizeY:    16,
		DeltaEPointsEnable: 0x0F,
	}
}

// Negotiate derives the frame.Format buffer sizes, strides, and value
// ranges a Params record describes (spec.md §6.3, §3.1), validating the
// cross-field constraints the configuration table implies.
func Negotiate(p Params) (frame.Format, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return frame.Format{}, herror.New(herror.UnsupportedFormat, "Negotiate", "Width/Height must be > 0", nil)
	}
	if p.MaxIterations > 30 {
		return frame.Format{}, herror.New(herror.UnsupportedFormat, "Negotiate", "MaxIterations must be <= 30", nil)
	}
	for _, d := range p.BitDepthCmp {
		if d != 0 && (d < 8 || d > 16) {
			return frame.Format{}, herror.New(herror.UnsupportedFormat, "Negotiate", "BitDepthCmp out of [8,16]", nil)
		}
	}

	f := frame.Format{
		ChromaFormat:   p.ChromaFormat,
		ColorSpace:     p.ColorSpace,
		ColorPrimaries: p.ColorPrimaries,
		SampleRange:    p.SampleRange,
	}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = applyCrop(p)
	for c := 0; c < 3; c++ {
		depth := p.BitDepthCmp[c]
		if depth == 0 {
			depth = 10
		}
		f.BitDepth[c] = depth
	}
	f.DeriveChromaPlanes()
	return f, nil
}

// applyCrop derives the post-crop/pad luma geometry: positive offsets
// crop, negative offsets pad (spec.md §6.3).
func applyCrop(p Params) (w, h int) {
	w = p.Width - p.CropOffsetLeft - p.CropOffsetRight
	h = p.Height - p.CropOffsetTop - p.CropOffsetBottom
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
