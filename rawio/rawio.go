// Package rawio implements a minimal headerless planar frame.Reader/
// frame.Writer pair (SPEC_FULL.md §13): plane-major, little-endian
// byte layout standing in for the excluded TIFF/OpenEXR/DPX/AVI/Y4M
// container readers spec.md §1 scopes out, just enough to drive the
// cmd/* tools end-to-end.
package rawio

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
)

// Reader reads fixed-format frames from a single headerless file: each
// frame is every live plane's samples, Y then U then V then A, written
// contiguously in little-endian order (8-bit: 1 byte/sample; >8-bit: 2
// bytes/sample per BitDepth; float: 4-byte IEEE 754).
type Reader struct {
	f         *os.File
	format    frame.Format
	frameSize int64
}

// Open opens path for raw-planar reading at the given format.
func Open(path string, format frame.Format) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, herror.New(herror.IOFailure, "rawio.Open", path, err)
	}
	return &Reader{f: f, format: format, frameSize: frameByteSize(format)}, nil
}

// Read seeks to frameIndex and populates a freshly allocated Frame,
// clearing IsAvailable when the file has no more complete frames
// (spec.md §6.1).
func (r *Reader) Read(frameIndex int) (*frame.Frame, error) {
	fr := frame.New(r.format)
	off := int64(frameIndex) * r.frameSize
	buf := make([]byte, r.frameSize)
	n, err := r.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, herror.New(herror.IOFailure, "rawio.Read", "ReadAt", err)
	}
	if int64(n) < r.frameSize {
		fr.IsAvailable = false
		return fr, nil
	}

	pos := 0
	for c := frame.Component(0); c < 4; c++ {
		size := r.format.CompSize(c)
		if size == 0 {
			continue
		}
		switch {
		case r.format.IsFloat:
			for i := 0; i < size; i++ {
				fr.F32[c][i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[pos:]))
				pos += 4
			}
		case r.format.BitDepth[c] <= 8:
			copy(fr.U8[c], buf[pos:pos+size])
			pos += size
		default:
			for i := 0; i < size; i++ {
				fr.U16[c][i] = binary.LittleEndian.Uint16(buf[pos:])
				pos += 2
			}
		}
	}

	fr.FrameNo = frameIndex
	fr.IsAvailable = true
	return fr, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if err := r.f.Close(); err != nil {
		return herror.New(herror.IOFailure, "rawio.Close", "", err)
	}
	return nil
}

// Writer appends frames to a headerless raw-planar file in Reader's wire
// format.
type Writer struct {
	f      *os.File
	format frame.Format
}

// Create truncates (or creates) path for raw-planar writing.
func Create(path string, format frame.Format) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, herror.New(herror.IOFailure, "rawio.Create", path, err)
	}
	return &Writer{f: f, format: format}, nil
}

// Write appends f's live planes in Y,U,V,A order (spec.md §6.2). The byte
// offset into the output buffer advances by each sample's byte width,
// consistently for every bit depth including 16-bit planes — the
// original's BufToImgBasic mixed byte and element strides for 16-bit
// buffers (SPEC_FULL.md Open Question #2); that bug is not replicated.
func (w *Writer) Write(f *frame.Frame, frameIndex int) error {
	buf := make([]byte, frameByteSize(f.Format))
	pos := 0
	for c := frame.Component(0); c < 4; c++ {
		size := f.Format.CompSize(c)
		if size == 0 {
			continue
		}
		switch {
		case f.Format.IsFloat:
			for i := 0; i < size; i++ {
				binary.LittleEndian.PutUint32(buf[pos:], math.Float32bits(f.F32[c][i]))
				pos += 4
			}
		case f.Format.BitDepth[c] <= 8:
			copy(buf[pos:pos+size], f.U8[c])
			pos += size
		default:
			for i := 0; i < size; i++ {
				binary.LittleEndian.PutUint16(buf[pos:], f.U16[c][i])
				pos += 2
			}
		}
	}
	if _, err := w.f.Write(buf); err != nil {
		return herror.New(herror.IOFailure, "rawio.Write", "Write", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	if err := w.f.Close(); err != nil {
		return herror.New(herror.IOFailure, "rawio.Close", "", err)
	}
	return nil
}

func frameByteSize(f frame.Format) int64 {
	var total int64
	for c := frame.Component(0); c < 4; c++ {
		size := f.CompSize(c)
		if size == 0 {
			continue
		}
		switch {
		case f.IsFloat:
			total += int64(size) * 4
		case f.BitDepth[c] <= 8:
			total += int64(size)
		default:
			total += int64(size) * 2
		}
	}
	return total
}
