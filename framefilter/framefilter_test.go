package framefilter

import (
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/filter"
	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

func lumaFormat(w, h int) frame.Format {
	f := frame.Format{ChromaFormat: frame.Format400, BitDepth: [4]int{8, 0, 0, 0}, SampleRange: frame.RangeFull}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

func TestSeparable2DFlatFieldInvariant(t *testing.T) {
	src := frame.New(lumaFormat(8, 8))
	for i := range src.U8[frame.ComponentY] {
		src.U8[frame.ComponentY][i] = 120
	}
	h := filter.NewFloatTaps([]float64{0.25, 0.5, 0.25}, 1, true, 0, 255)
	v := filter.NewFloatTaps([]float64{0.25, 0.5, 0.25}, 1, true, 0, 255)
	s := NewSeparable2D(h, v, true)
	dst := frame.New(lumaFormat(8, 8))
	s.Process(src, dst, frame.ComponentY)
	for i, v := range dst.U8[frame.ComponentY] {
		if v != 120 {
			t.Fatalf("flat field drifted at %d: got %d want 120", i, v)
		}
	}
}

func TestNLMeansFlatFieldInvariant(t *testing.T) {
	src := frame.New(lumaFormat(12, 12))
	for i := range src.U8[frame.ComponentY] {
		src.U8[frame.ComponentY][i] = 90
	}
	n := NewNLMeans(0.05)
	dst := frame.New(lumaFormat(12, 12))
	n.Process(src, dst, frame.ComponentY)
	for i, v := range dst.U8[frame.ComponentY] {
		if v != 90 {
			t.Fatalf("NL-means flat field drifted at %d: got %d want 90", i, v)
		}
	}
}

func TestNLMeansFlatInputStaysNearInput(t *testing.T) {
	src := frame.New(lumaFormat(16, 16))
	for i := range src.U8[frame.ComponentY] {
		src.U8[frame.ComponentY][i] = 50
	}
	src.U8[frame.ComponentY][8*16+8] = 50 // no outlier: sanity check average stays near 50
	n := NewNLMeans(0.1)
	dst := frame.New(lumaFormat(16, 16))
	n.Process(src, dst, frame.ComponentY)
	if dst.U8[frame.ComponentY][8*16+8] < 40 || dst.U8[frame.ComponentY][8*16+8] > 60 {
		t.Fatalf("unexpected large deviation on flat input: %d", dst.U8[frame.ComponentY][8*16+8])
	}
}
