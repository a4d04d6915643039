package chroma

import (
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

func makeFormat(cf frame.ChromaFormat, w, h int) frame.Format {
	f := frame.Format{ChromaFormat: cf, BitDepth: [4]int{8, 8, 8, 0}, SampleRange: frame.RangeFull}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

func flatFrame(cf frame.ChromaFormat, w, h int, y, u, v uint8) *frame.Frame {
	fr := frame.New(makeFormat(cf, w, h))
	for i := range fr.U8[frame.ComponentY] {
		fr.U8[frame.ComponentY][i] = y
	}
	for i := range fr.U8[frame.ComponentU] {
		fr.U8[frame.ComponentU][i] = u
	}
	for i := range fr.U8[frame.ComponentV] {
		fr.U8[frame.ComponentV][i] = v
	}
	return fr
}

func TestLumaPreservedAcrossChromaConversion(t *testing.T) {
	src := flatFrame(frame.Format444, 16, 8, 120, 200, 50)
	for i, v := range src.U8[frame.ComponentY] {
		src.U8[frame.ComponentY][i] = uint8(i % 251)
		_ = v
	}
	r := NewResampler(MethodMPEG2TM5, frame.ChromaLocTopLeft)
	dst, err := r.Convert(src, makeFormat(frame.Format420, 16, 8))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	for i := range src.U8[frame.ComponentY] {
		if dst.U8[frame.ComponentY][i] != src.U8[frame.ComponentY][i] {
			t.Fatalf("luma changed at %d: got %d want %d", i, dst.U8[frame.ComponentY][i], src.U8[frame.ComponentY][i])
		}
	}
}

func TestFlatChromaInvariantUnderDownAndUpsample(t *testing.T) {
	src := flatFrame(frame.Format444, 16, 8, 128, 180, 90)
	r := NewResampler(MethodMPEG2TM5, frame.ChromaLocTopLeft)

	down, err := r.Convert(src, makeFormat(frame.Format420, 16, 8))
	if err != nil {
		t.Fatalf("down Convert: %v", err)
	}
	for _, c := range [2]frame.Component{frame.ComponentU, frame.ComponentV} {
		want := src.U8[c][0]
		for i, v := range down.U8[c] {
			if absDiffU8(v, want) > 1 {
				t.Fatalf("flat-field downsample drifted at plane %v idx %d: got %d want ~%d", c, i, v, want)
			}
		}
	}

	up, err := r.Convert(down, makeFormat(frame.Format444, 16, 8))
	if err != nil {
		t.Fatalf("up Convert: %v", err)
	}
	for _, c := range [2]frame.Component{frame.ComponentU, frame.ComponentV} {
		want := src.U8[c][0]
		for i, v := range up.U8[c] {
			if absDiffU8(v, want) > 1 {
				t.Fatalf("flat-field upsample drifted at plane %v idx %d: got %d want ~%d", c, i, v, want)
			}
		}
	}
}

func absDiffU8(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestConvertRejectsBitDepthMismatch(t *testing.T) {
	src := flatFrame(frame.Format444, 8, 4, 100, 100, 100)
	dstFormat := makeFormat(frame.Format420, 8, 4)
	dstFormat.BitDepth[frame.ComponentY] = 10
	r := NewResampler(MethodMPEG2TM5, frame.ChromaLocTopLeft)
	if _, err := r.Convert(src, dstFormat); err == nil {
		t.Fatalf("expected TypeMismatch for differing bit depth")
	}
}

func Test420To444RoundTripViaIntermediateFormat(t *testing.T) {
	src := flatFrame(frame.Format420, 16, 8, 64, 64, 192)
	r := NewResampler(MethodMPEG2TM5, frame.ChromaLocTopLeft)
	dst, err := r.Convert(src, makeFormat(frame.Format444, 16, 8))
	if err != nil {
		t.Fatalf("Convert 420->444: %v", err)
	}
	if len(dst.U8[frame.ComponentU]) != 16*8 {
		t.Fatalf("expected full-resolution U plane, got %d samples", len(dst.U8[frame.ComponentU]))
	}
}
