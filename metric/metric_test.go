package metric

import (
	"math"
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

func rgbFloat444(w, h int) frame.Format {
	f := frame.Format{ChromaFormat: frame.Format444, IsFloat: true, BitDepth: [4]int{10, 10, 10, 0}}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

func fillRGB(fr *frame.Frame, r, g, b float32) {
	for i := range fr.F32[frame.ComponentY] {
		fr.F32[frame.ComponentY][i] = r
		fr.F32[frame.ComponentU][i] = g
		fr.F32[frame.ComponentV][i] = b
	}
}

// S4: PSNR(ref, ref) == +inf, StatRecord.Min == +inf after frame 0.
func TestPSNRIdenticalFramesIsInfinite(t *testing.T) {
	ref := frame.New(rgbFloat444(4, 4))
	fillRGB(ref, 0.5, 0.3, 0.8)
	test := frame.New(rgbFloat444(4, 4))
	fillRGB(test, 0.5, 0.3, 0.8)

	p := NewPSNR()
	scores, err := p.Compute(ref, test)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !math.IsInf(scores["y"], 1) {
		t.Errorf("identical frames should yield +inf PSNR, got %v", scores["y"])
	}
	if !math.IsInf(p.Stats[frame.ComponentY].Min, 1) {
		t.Errorf("StatRecord.Min should be +inf after one identical frame, got %v", p.Stats[frame.ComponentY].Min)
	}
}

// S5: SSIM(ref, ref) with 8x8/K1=0.01/K2=0.03 is exactly 1.0.
func TestSSIMIdenticalFramesIsOne(t *testing.T) {
	ref := frame.New(rgbFloat444(16, 16))
	fillRGB(ref, 0.4, 0.4, 0.4)
	test := frame.New(rgbFloat444(16, 16))
	fillRGB(test, 0.4, 0.4, 0.4)

	s := NewSSIM()
	scores, err := s.Compute(ref, test)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if scores["y"] != 1.0 {
		t.Errorf("SSIM(ref,ref) should be exactly 1.0, got %v", scores["y"])
	}
}

// S6: DeltaE2000 between identical linear gray values is 0, PSNR-equivalent +inf.
func TestDeltaE2000IdenticalIsZero(t *testing.T) {
	ref := frame.New(rgbFloat444(2, 2))
	fillRGB(ref, 0.5, 0.5, 0.5)
	test := frame.New(rgbFloat444(2, 2))
	fillRGB(test, 0.5, 0.5, 0.5)

	d := NewDeltaE2000()
	scores, err := d.Compute(ref, test)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, w := range d.Whites {
		if scores[w.Name+"_avg"] != 0 || scores[w.Name+"_max"] != 0 {
			t.Errorf("identical inputs should yield deltaE==0 for %s, got avg=%v max=%v", w.Name, scores[w.Name+"_avg"], scores[w.Name+"_max"])
		}
	}
}

// Statistics laws (spec.md §8 item 8): average == sum/count, min <= average <= max.
func TestStatRecordLaws(t *testing.T) {
	s := NewStatRecord()
	values := []float64{1, 5, 3, 9, -2}
	var sum float64
	for _, v := range values {
		s.UpdateStats(v)
		sum += v
	}
	if s.Average() != sum/float64(len(values)) {
		t.Errorf("average mismatch: got %v want %v", s.Average(), sum/float64(len(values)))
	}
	if !(s.Min <= s.Average() && s.Average() <= s.Max) {
		t.Errorf("min <= average <= max violated: min=%v avg=%v max=%v", s.Min, s.Average(), s.Max)
	}
}

func TestPSNRRejectsShapeMismatch(t *testing.T) {
	ref := frame.New(rgbFloat444(4, 4))
	test := frame.New(rgbFloat444(8, 8))
	p := NewPSNR()
	if _, err := p.Compute(ref, test); err == nil {
		t.Fatal("expected error for mismatched shapes")
	}
}

func TestBlockinessZeroForIdenticalFrames(t *testing.T) {
	ref := frame.New(rgbFloat444(32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			ref.F32[frame.ComponentY][y*32+x] = float32(x%8) / 8
		}
	}
	test := frame.New(rgbFloat444(32, 32))
	copy(test.F32[frame.ComponentY], ref.F32[frame.ComponentY])

	b := NewBlockiness()
	scores, err := b.Compute(ref, test)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if scores["j341"] != 0 {
		t.Errorf("identical frames should yield 0 blockiness delta, got %v", scores["j341"])
	}
}
