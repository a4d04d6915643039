package rawio

import (
	"path/filepath"
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
)

func testFormat(w, h int) frame.Format {
	f := frame.Format{ChromaFormat: frame.Format420, BitDepth: [4]int{10, 10, 10, 0}, SampleRange: frame.RangeFull}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.raw")
	format := testFormat(4, 4)

	w, err := Create(path, format)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	frames := make([]*frame.Frame, 3)
	for i := range frames {
		f := frame.New(format)
		f.FrameNo = i
		for j := range f.U16[frame.ComponentY] {
			f.U16[frame.ComponentY][j] = uint16(i*100 + j)
		}
		frames[i] = f
		if err := w.Write(f, i); err != nil {
			t.Fatalf("Write frame %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close writer: %v", err)
	}

	r, err := Open(path, format)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	for i := range frames {
		got, err := r.Read(i)
		if err != nil {
			t.Fatalf("Read frame %d: %v", i, err)
		}
		if !got.IsAvailable {
			t.Fatalf("frame %d should be available", i)
		}
		for j := range got.U16[frame.ComponentY] {
			want := uint16(i*100 + j)
			if got.U16[frame.ComponentY][j] != want {
				t.Errorf("frame %d sample %d: got %d want %d", i, j, got.U16[frame.ComponentY][j], want)
			}
		}
	}

	last, err := r.Read(len(frames))
	if err != nil {
		t.Fatalf("Read past end: %v", err)
	}
	if last.IsAvailable {
		t.Error("expected IsAvailable=false past end of stream")
	}
}

func TestFloatRoundTrip(t *testing.T) {
	format := frame.Format{ChromaFormat: frame.Format444, IsFloat: true, BitDepth: [4]int{10, 10, 10, 0}}
	format.Width[frame.ComponentY], format.Height[frame.ComponentY] = 2, 2
	format.DeriveChromaPlanes()

	path := filepath.Join(t.TempDir(), "float.raw")
	w, err := Create(path, format)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f := frame.New(format)
	for i := range f.F32[frame.ComponentY] {
		f.F32[frame.ComponentY][i] = float32(i) * 0.25
	}
	if err := w.Write(f, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Close()

	r, err := Open(path, format)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	got, err := r.Read(0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range got.F32[frame.ComponentY] {
		if got.F32[frame.ComponentY][i] != f.F32[frame.ComponentY][i] {
			t.Errorf("sample %d: got %v want %v", i, got.F32[frame.ComponentY][i], f.F32[frame.ComponentY][i])
		}
	}
}
