package params

import (
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

func TestNegotiateDerivesChromaPlanes(t *testing.T) {
	p := Default()
	p.Width, p.Height = 64, 32
	p.ChromaFormat = frame.Format420

	f, err := Negotiate(p)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if f.Width[frame.ComponentY] != 64 || f.Height[frame.ComponentY] != 32 {
		t.Fatalf("unexpected luma geometry: %dx%d", f.Width[frame.ComponentY], f.Height[frame.ComponentY])
	}
	if f.Width[frame.ComponentU] != 32 || f.Height[frame.ComponentU] != 16 {
		t.Errorf("420 chroma planes not derived correctly: %dx%d", f.Width[frame.ComponentU], f.Height[frame.ComponentU])
	}
}

func TestNegotiateAppliesCropOffsets(t *testing.T) {
	p := Default()
	p.Width, p.Height = 100, 100
	p.CropOffsetLeft, p.CropOffsetRight = 10, 10
	p.CropOffsetTop, p.CropOffsetBottom = 5, 5

	f, err := Negotiate(p)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if f.Width[frame.ComponentY] != 80 || f.Height[frame.ComponentY] != 90 {
		t.Errorf("crop not applied: got %dx%d want 80x90", f.Width[frame.ComponentY], f.Height[frame.ComponentY])
	}
}

func TestNegotiateRejectsZeroDimensions(t *testing.T) {
	p := Default()
	if _, err := Negotiate(p); err == nil {
		t.Fatal("expected error for zero Width/Height")
	}
}

func TestNegotiateRejectsExcessiveMaxIterations(t *testing.T) {
	p := Default()
	p.Width, p.Height = 16, 16
	p.MaxIterations = 31
	if _, err := Negotiate(p); err == nil {
		t.Fatal("expected error for MaxIterations > 30")
	}
}
