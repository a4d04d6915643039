package scale

import (
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

func fmt444(w, h int) frame.Format {
	f := frame.Format{ChromaFormat: frame.Format444, BitDepth: [4]int{8, 8, 8, 0}, SampleRange: frame.RangeFull}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

func TestNullScaleIdentity(t *testing.T) {
	src := frame.New(fmt444(8, 4))
	for i := range src.U8[frame.ComponentY] {
		src.U8[frame.ComponentY][i] = uint8(i * 7 % 251)
	}
	s := NewScaler(MethodNull, 8, 4, 8, 4, 0)
	dst, err := s.Process(src, fmt444(8, 4))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for i := range src.U8[frame.ComponentY] {
		if dst.U8[frame.ComponentY][i] != src.U8[frame.ComponentY][i] {
			t.Fatalf("null scale changed sample %d: got %d want %d", i, dst.U8[frame.ComponentY][i], src.U8[frame.ComponentY][i])
		}
	}
}

func TestFlatFieldInvariantUnderBicubicResize(t *testing.T) {
	src := frame.New(fmt444(16, 8))
	for i := range src.U8[frame.ComponentY] {
		src.U8[frame.ComponentY][i] = 150
	}
	s := NewScaler(MethodBiCubic, 16, 8, 8, 4, 0)
	dst, err := s.Process(src, fmt444(8, 4))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for i, v := range dst.U8[frame.ComponentY] {
		if v != 150 {
			t.Fatalf("flat field drifted at %d: got %d want 150", i, v)
		}
	}
}

func TestLanczosUpsampleProducesCorrectDimensions(t *testing.T) {
	src := frame.New(fmt444(4, 4))
	s := NewScaler(MethodLanczos, 4, 4, 16, 16, 3)
	dst, err := s.Process(src, fmt444(16, 16))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if dst.Format.Width[frame.ComponentY] != 16 || dst.Format.Height[frame.ComponentY] != 16 {
		t.Fatalf("unexpected output dims: %dx%d", dst.Format.Width[frame.ComponentY], dst.Format.Height[frame.ComponentY])
	}
}

func TestRejectsChromaFormatMismatch(t *testing.T) {
	src := frame.New(fmt444(8, 4))
	dstFormat := fmt444(4, 2)
	dstFormat.ChromaFormat = frame.Format420
	dstFormat.DeriveChromaPlanes()
	s := NewScaler(MethodBilinear, 8, 4, 4, 2, 0)
	if _, err := s.Process(src, dstFormat); err == nil {
		t.Fatalf("expected TypeMismatch for differing chroma format")
	}
}
