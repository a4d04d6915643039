package metric

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/hdrtoolbox/hdrtoolbox/herror"
)

// DistortionMap streams a per-pixel error heatmap as raw grayf32le samples
// to an io.Writer, mirroring the wire format of teacher's
// metrics/distortion_map.go HeatmapWriter without depending on ffmpeg:
// spec.md §1 excludes container/codec I/O, so rendering the stream into a
// video is left to an external tool (see DESIGN.md).
type DistortionMap struct {
	w        io.Writer
	maxValue float64

	buf     []float32
	byteBuf []byte
}

// NewDistortionMap returns a DistortionMap that normalizes incoming
// per-pixel values to [0,1] by maxValue before writing them to w.
func NewDistortionMap(w io.Writer, maxValue float64) (*DistortionMap, error) {
	if maxValue <= 0 {
		return nil, herror.New(herror.DomainError, "DistortionMap", "maxValue must be > 0", nil)
	}
	return &DistortionMap{w: w, maxValue: maxValue}, nil
}

// Emit normalizes and writes one frame's worth of per-pixel error values.
func (d *DistortionMap) Emit(values []float64) error {
	if len(d.buf) != len(values) {
		d.buf = make([]float32, len(values))
		d.byteBuf = make([]byte, len(values)*4)
	}
	scale := 1.0 / d.maxValue
	for i, v := range values {
		if v > d.maxValue {
			v = d.maxValue
		}
		d.buf[i] = float32(math.Max(0, v) * scale)
	}
	for i, v := range d.buf {
		binary.LittleEndian.PutUint32(d.byteBuf[i*4:], math.Float32bits(v))
	}
	_, err := d.w.Write(d.byteBuf)
	return err
}
