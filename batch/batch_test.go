package batch

import (
	"context"
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

func lumaFormat(w, h int) frame.Format {
	f := frame.Format{ChromaFormat: frame.Format400, BitDepth: [4]int{8, 0, 0, 0}, SampleRange: frame.RangeFull}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

type constReader struct {
	format frame.Format
	values []uint8
}

func (c *constReader) Read(i int) (*frame.Frame, error) {
	if i >= len(c.values) {
		return &frame.Frame{IsAvailable: false}, nil
	}
	f := frame.New(c.format)
	f.IsAvailable = true
	f.FrameNo = i
	for j := range f.U8[frame.ComponentY] {
		f.U8[frame.ComponentY][j] = c.values[i]
	}
	return f, nil
}
func (c *constReader) Close() error { return nil }

type sumAbsDiffMetric struct{}

func (sumAbsDiffMetric) Compute(ref, test *frame.Frame) (map[string]float64, error) {
	var sum float64
	for i := range ref.U8[frame.ComponentY] {
		d := int(ref.U8[frame.ComponentY][i]) - int(test.U8[frame.ComponentY][i])
		if d < 0 {
			d = -d
		}
		sum += float64(d)
	}
	return map[string]float64{"absdiff": sum}, nil
}

func TestRunnerProducesPerFrameScores(t *testing.T) {
	fmtY := lumaFormat(2, 2)
	ref := &constReader{format: fmtY, values: []uint8{10, 20, 30}}
	test := &constReader{format: fmtY, values: []uint8{10, 15, 50}}

	r, err := NewRunner(ref, test, []Metric{sumAbsDiffMetric{}}, 2, 3, fmtY)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	scores, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []float64{0, 20, 80}
	got := scores["absdiff"]
	if len(got) != len(want) {
		t.Fatalf("expected %d scores, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestNewRunnerRejectsEmptyMetricList(t *testing.T) {
	fmtY := lumaFormat(2, 2)
	ref := &constReader{format: fmtY, values: []uint8{1}}
	test := &constReader{format: fmtY, values: []uint8{1}}
	if _, err := NewRunner(ref, test, nil, 1, 1, fmtY); err == nil {
		t.Fatal("expected error for empty metric list")
	}
}
