package tonemap

import (
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

func rgbFormat(w, h int) frame.Format {
	f := frame.Format{ChromaFormat: frame.Format444, IsFloat: true, BitDepth: [4]int{10, 10, 10, 0}}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

func TestRollBelowMinValueIsUnchanged(t *testing.T) {
	src := frame.New(rgbFormat(2, 2))
	for i := range src.F32[frame.ComponentY] {
		src.F32[frame.ComponentY][i] = 0.1
		src.F32[frame.ComponentU][i] = 0.1
		src.F32[frame.ComponentV][i] = 0.1
	}
	r := &Roll{MinValue: 0.5, MaxValue: 1.0, TargetValue: 0.8, Gamma: 2.2}
	dst := frame.New(rgbFormat(2, 2))
	if err := r.Process(src, dst); err != nil {
		t.Fatalf("Process: %v", err)
	}
	for i := range dst.F32[frame.ComponentY] {
		if dst.F32[frame.ComponentY][i] != 0.1 {
			t.Errorf("value below minValue should pass through unchanged, got %v", dst.F32[frame.ComponentY][i])
		}
	}
}

func TestAllToneMappersClipToUnitInterval(t *testing.T) {
	src := frame.New(rgbFormat(2, 2))
	for i := range src.F32[frame.ComponentY] {
		src.F32[frame.ComponentY][i] = 0.95
		src.F32[frame.ComponentU][i] = 0.9
		src.F32[frame.ComponentV][i] = 0.85
	}
	cases := []interface {
		Process(src, dst *frame.Frame) error
	}{
		&Roll{MinValue: 0.5, MaxValue: 1, TargetValue: 0.8, Gamma: 2.2},
		&CIE1931{MaxIntensity: 0.7, ScaleGamut: true},
		&BT2390{MaxIntensity: 0.7},
		&BT2390IPT{MaxIntensity: 0.7},
	}
	for idx, tm := range cases {
		dst := frame.New(rgbFormat(2, 2))
		if err := tm.Process(src, dst); err != nil {
			t.Fatalf("case %d Process: %v", idx, err)
		}
		for i := range dst.F32[frame.ComponentY] {
			for _, v := range []float32{dst.F32[frame.ComponentY][i], dst.F32[frame.ComponentU][i], dst.F32[frame.ComponentV][i]} {
				if v < 0 || v > 1 {
					t.Errorf("case %d: output %v outside [0,1]", idx, v)
				}
			}
		}
	}
}

func TestBezierKneeIdentityBelowKneePoint(t *testing.T) {
	maxIntensity := 0.8
	ks := 1.5*maxIntensity - 0.5
	below := ks - 0.05
	if got := bezierKnee(below, maxIntensity); got != below {
		t.Errorf("bezierKnee below KS should be identity, got %v want %v", got, below)
	}
}
