package metric

import (
	"math"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
)

// MPSNRFast is the fast multi-exposure PSNR variant (spec.md §4.7): for
// each pixel, every integer exposure stop is tried and only those whose
// 8-bit-exposed value lands in [0.5, 254.5] contribute.
type MPSNRFast struct {
	MinStop, MaxStop int // cMin, cMax

	Stats *StatRecord
}

// NewMPSNRFast returns an MPSNRFast metric spanning stops [-12, 12], a
// range wide enough to cover any plausible HDR exposure sweep.
func NewMPSNRFast() *MPSNRFast {
	return &MPSNRFast{MinStop: -12, MaxStop: 12, Stats: NewStatRecord()}
}

func (m *MPSNRFast) Name() string { return "mpsnr-fast" }
func (m *MPSNRFast) Close()       {}

// Compute requires float linear RGB 4:4:4 input (the exposure sweep is
// only meaningful on scene-linear values).
func (m *MPSNRFast) Compute(ref, test *frame.Frame) (map[string]float64, error) {
	if err := frame.RequireEqualType("MPSNRFast", ref, test); err != nil {
		return nil, err
	}
	if !ref.Format.IsFloat || ref.Format.ChromaFormat != frame.Format444 {
		return nil, herror.New(herror.TypeMismatch, "MPSNRFast", "requires float RGB 4:4:4 input", nil)
	}

	size := ref.Format.CompSize(frame.ComponentY)
	var sse float64
	var n int64

	for i := 0; i < size; i++ {
		r1, g1, b1 := float64(ref.F32[frame.ComponentY][i]), float64(ref.F32[frame.ComponentU][i]), float64(ref.F32[frame.ComponentV][i])
		r2, g2, b2 := float64(test.F32[frame.ComponentY][i]), float64(test.F32[frame.ComponentU][i]), float64(test.F32[frame.ComponentV][i])

		maxRef := math.Max(r1, math.Max(g1, b1))

		for c := m.MinStop; c <= m.MaxStop; c++ {
			stop := math.Pow(2, float64(c))
			erExp := 255 * math.Pow(stop*maxRef, 1/2.2)
			if erExp < 0.5 || erExp > 254.5 {
				continue
			}

			er, eg, eb := exposeChannel(r1, stop), exposeChannel(g1, stop), exposeChannel(b1, stop)
			tr, tg, tb := exposeChannel(r2, stop), exposeChannel(g2, stop), exposeChannel(b2, stop)

			sse += sq(er-tr) + sq(eg-tg) + sq(eb-tb)
			n += 3
		}
	}

	if n == 0 {
		return map[string]float64{"mpsnr": math.Inf(1)}, nil
	}
	mse := sse / float64(n)
	val := psnrFromMSE(mse, 255)
	m.Stats.UpdateStats(val)
	return map[string]float64{"mpsnr": val}, nil
}

func exposeChannel(v, stop float64) float64 {
	e := 255 * math.Pow(stop*v, 1/2.2)
	return math.Max(0, math.Min(255, e))
}

func sq(x float64) float64 { return x * x }
