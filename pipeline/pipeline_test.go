package pipeline

import (
	"errors"
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

func testFormat(w, h int) frame.Format {
	f := frame.Format{ChromaFormat: frame.Format400, BitDepth: [4]int{8, 0, 0, 0}, SampleRange: frame.RangeFull}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

// sliceReader serves a fixed slice of frames, then reports EOF via a nil
// IsAvailable frame.
type sliceReader struct {
	frames []*frame.Frame
	closed bool
}

func (r *sliceReader) Read(i int) (*frame.Frame, error) {
	if i >= len(r.frames) {
		return &frame.Frame{IsAvailable: false}, nil
	}
	return r.frames[i], nil
}
func (r *sliceReader) Close() error { r.closed = true; return nil }

// addOneOperator adds 1 to every luma sample, same format in and out.
type addOneOperator struct{}

func (addOneOperator) Name() string                              { return "addOne" }
func (addOneOperator) OutputFormat(in frame.Format) frame.Format { return in }
func (addOneOperator) Process(dst, src *frame.Frame) error {
	dst.IsAvailable = true
	dst.FrameNo = src.FrameNo
	for i, v := range src.U8[frame.ComponentY] {
		dst.U8[frame.ComponentY][i] = v + 1
	}
	return nil
}

// failingOperator always errors, to exercise first-error termination.
type failingOperator struct{}

func (failingOperator) Name() string                              { return "fail" }
func (failingOperator) OutputFormat(in frame.Format) frame.Format { return in }
func (failingOperator) Process(dst, src *frame.Frame) error       { return errors.New("boom") }

type recordingWriter struct {
	frames []*frame.Frame
}

func (w *recordingWriter) Write(f *frame.Frame, i int) error {
	cp := frame.New(f.Format)
	copy(cp.U8[frame.ComponentY], f.U8[frame.ComponentY])
	w.frames = append(w.frames, cp)
	return nil
}
func (w *recordingWriter) Close() error { return nil }

func makeFrame(w, h int, val uint8) *frame.Frame {
	f := frame.New(testFormat(w, h))
	f.IsAvailable = true
	for i := range f.U8[frame.ComponentY] {
		f.U8[frame.ComponentY][i] = val
	}
	return f
}

func TestSchedulerAppliesOperatorChainInOrder(t *testing.T) {
	reader := &sliceReader{frames: []*frame.Frame{makeFrame(2, 2, 10), makeFrame(2, 2, 20)}}
	writer := &recordingWriter{}

	s := NewScheduler(reader, []Operator{addOneOperator{}, addOneOperator{}}, testFormat(2, 2))
	s.WithWriter(writer)

	if _, err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(writer.frames) != 2 {
		t.Fatalf("expected 2 written frames, got %d", len(writer.frames))
	}
	if writer.frames[0].U8[frame.ComponentY][0] != 12 {
		t.Errorf("expected 10+1+1=12, got %d", writer.frames[0].U8[frame.ComponentY][0])
	}
	if writer.frames[1].U8[frame.ComponentY][0] != 22 {
		t.Errorf("expected 20+1+1=22, got %d", writer.frames[1].U8[frame.ComponentY][0])
	}
}

func TestSchedulerStopsOnFirstOperatorError(t *testing.T) {
	reader := &sliceReader{frames: []*frame.Frame{makeFrame(2, 2, 10)}}
	writer := &recordingWriter{}

	s := NewScheduler(reader, []Operator{addOneOperator{}, failingOperator{}}, testFormat(2, 2))
	s.WithWriter(writer)

	_, err := s.Run()
	if err == nil {
		t.Fatal("expected error from failing operator")
	}
	if len(writer.frames) != 0 {
		t.Errorf("writer should not have received any frame before the failing stage, got %d", len(writer.frames))
	}
}

func TestSchedulerStopsAtEndOfStream(t *testing.T) {
	reader := &sliceReader{frames: []*frame.Frame{makeFrame(2, 2, 1)}}
	writer := &recordingWriter{}

	s := NewScheduler(reader, nil, testFormat(2, 2))
	s.WithWriter(writer)

	if _, err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(writer.frames) != 1 {
		t.Fatalf("expected exactly 1 frame before EOF, got %d", len(writer.frames))
	}
}
