package metric

import "github.com/hdrtoolbox/hdrtoolbox/frame"

// planeFloat reads component c of f into a freshly-allocated float64 plane,
// mirroring framefilter's planeFloat helper (teacher/scale-pattern grounded).
func planeFloat(f *frame.Frame, c frame.Component) []float64 {
	size := f.Format.CompSize(c)
	out := make([]float64, size)
	switch {
	case f.Format.IsFloat:
		for i := 0; i < size; i++ {
			out[i] = float64(f.F32[c][i])
		}
	case f.Format.BitDepth[c] <= 8:
		for i := 0; i < size; i++ {
			out[i] = float64(f.U8[c][i])
		}
	default:
		for i := 0; i < size; i++ {
			out[i] = float64(f.U16[c][i])
		}
	}
	return out
}
