package filter

import "testing"

func TestApplyFloatIdentity(t *testing.T) {
	d := NewFloatTaps([]float64{1}, 0, false, 0, 1)
	src := []float64{1, 2, 3, 4}
	for i := range src {
		if got := d.ApplyFloat(src, i, len(src)); got != src[i] {
			t.Errorf("identity filter at %d = %v, want %v", i, got, src[i])
		}
	}
}

func TestApplyFloatAveraging(t *testing.T) {
	d := NewFloatTaps([]float64{0.5, 0.5}, 0, false, 0, 1)
	src := []float64{0, 2, 4, 6}
	if got := d.ApplyFloat(src, 1, len(src)); got != 3 {
		t.Errorf("2-tap average at 1 = %v, want 3", got)
	}
}

func TestApplyIntShiftAndClip(t *testing.T) {
	// [1,2,1]/4 box filter represented as integer taps with shift=2.
	d := NewIntTaps([]int64{1, 2, 1}, 0, 2, 1, true, 0, 255)
	src := []int64{0, 0, 255, 255, 255}
	got := d.ApplyInt(src, 2, len(src))
	// (0 + 2*255 + 255) >> 2 = 765>>2 = 191
	if got != 191 {
		t.Errorf("got %v, want 191", got)
	}
}

func TestApplyIntEdgeClamp(t *testing.T) {
	d := NewIntTaps([]int64{1, 1}, 0, 0, 1, false, 0, 0)
	src := []int64{10, 20, 30}
	// pos=0, positionOffset=1: taps read src[-1] (clamped to 0) and src[0].
	got := d.ApplyInt(src, 0, len(src))
	if got != 20 {
		t.Errorf("edge clamp: got %v, want 20", got)
	}
}
