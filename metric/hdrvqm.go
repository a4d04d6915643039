package metric

import (
	"math"
	"sort"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
	"github.com/hdrtoolbox/hdrtoolbox/numeric"
	"gonum.org/v1/gonum/dsp/fourier"
)

// HDRVQM is the multi-scale, multi-orientation log-Gabor visual quality
// metric (spec.md §4.7, §4.8): it decomposes PQ-mapped luminance into a
// log-Gabor filterbank response, pools the per-orientation response
// covariance over spatio-temporal tubes via the Jacobi eigensolver (C12),
// and reports the poolingPerc-percentile tube error.
type HDRVQM struct {
	NumScales, NumOrientations int
	FixationTime, FrameRate    float64 // tube length in frames = round(FixationTime*FrameRate)
	PoolingPerc                float64 // percentile in [0,100]
	TileSize                   int     // spatial tile side for tube pooling

	Stats *StatRecord

	tubeLen   int
	tileVecs  map[int][]([]float64) // tile index -> one (scale*orientation)-vector per buffered frame
	tileOrder []int
	pqForward func(float64) float64
}

// NewHDRVQM returns an HDRVQM metric with the spec's defaults: 4 scales, 6
// orientations, a 0.2s fixation time, poolingPerc=96, 16-pixel tiles, and
// a locally-duplicated PQ forward curve (tonemap-style leaf dependency;
// see DESIGN.md).
func NewHDRVQM(frameRate float64) *HDRVQM {
	h := &HDRVQM{
		NumScales:       4,
		NumOrientations: 6,
		FixationTime:    0.2,
		FrameRate:       frameRate,
		PoolingPerc:     96,
		TileSize:        16,
		Stats:           NewStatRecord(),
		pqForward:       pqForwardLocal,
	}
	h.tubeLen = int(numeric.Round(h.FixationTime * h.FrameRate))
	if h.tubeLen < 1 {
		h.tubeLen = 1
	}
	h.tileVecs = make(map[int][][]float64)
	return h
}

func (h *HDRVQM) Name() string { return "hdrvqm" }
func (h *HDRVQM) Close()       {}

// Compute buffers one frame's per-tile log-Gabor response-difference
// vectors. Once a full spatio-temporal tube (tubeLen frames) has been
// buffered, it pools each tile's covariance via JacobiEigen and returns
// the poolingPerc-percentile tube error; otherwise it returns the average
// of the tube scores pooled so far (NaN before the first tube completes).
func (h *HDRVQM) Compute(ref, test *frame.Frame) (map[string]float64, error) {
	if err := frame.RequireEqualType("HDRVQM", ref, test); err != nil {
		return nil, err
	}
	if !ref.Format.IsFloat || ref.Format.ChromaFormat != frame.Format444 {
		return nil, herror.New(herror.TypeMismatch, "HDRVQM", "requires float RGB 4:4:4 input", nil)
	}

	w, h2 := ref.Format.Width[frame.ComponentY], ref.Format.Height[frame.ComponentY]
	lumaRef := h.pqLuminance(ref)
	lumaTest := h.pqLuminance(test)

	bank := buildLogGaborBank(w, h2, h.NumScales, h.NumOrientations)

	// diffEnergy[s*NumOrientations+o][i] = squared response difference.
	diffEnergy := make([][]float64, h.NumScales*h.NumOrientations)
	for idx, filt := range bank {
		respRef := applyFreqFilter(lumaRef, w, h2, filt)
		respTest := applyFreqFilter(lumaTest, w, h2, filt)
		d := make([]float64, w*h2)
		for i := range d {
			diff := respRef[i] - respTest[i]
			d[i] = diff * diff
		}
		diffEnergy[idx] = d
	}

	h.bufferTiles(diffEnergy, w, h2)

	if len(h.tileVecs) == 0 || len(firstVec(h.tileVecs)) < h.tubeLen {
		return map[string]float64{"hdrvqm": h.Stats.Average()}, nil
	}

	score := h.poolTubes()
	h.Stats.UpdateStats(score)
	h.tileVecs = make(map[int][][]float64)
	return map[string]float64{"hdrvqm": score}, nil
}

func firstVec(m map[int][][]float64) [][]float64 {
	for _, v := range m {
		return v
	}
	return nil
}

// pqLuminance maps linear RGB to PQ-encoded luminance (BT.709 weights).
func (h *HDRVQM) pqLuminance(f *frame.Frame) []float64 {
	size := f.Format.CompSize(frame.ComponentY)
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		r := float64(f.F32[frame.ComponentY][i])
		g := float64(f.F32[frame.ComponentU][i])
		b := float64(f.F32[frame.ComponentV][i])
		y := numeric.ClipF(0.2126*r+0.7152*g+0.0722*b, 0, 1)
		out[i] = h.pqForward(y)
	}
	return out
}

func (h *HDRVQM) bufferTiles(diffEnergy [][]float64, w, hgt int) {
	tilesX := (w + h.TileSize - 1) / h.TileSize
	tilesY := (hgt + h.TileSize - 1) / h.TileSize

	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			tile := ty*tilesX + tx
			vec := make([]float64, len(diffEnergy))
			x0, y0 := tx*h.TileSize, ty*h.TileSize
			x1, y1 := numeric.ClipI(x0+h.TileSize, 0, w), numeric.ClipI(y0+h.TileSize, 0, hgt)
			area := float64((x1 - x0) * (y1 - y0))
			if area == 0 {
				continue
			}
			for idx, d := range diffEnergy {
				var sum float64
				for yy := y0; yy < y1; yy++ {
					row := yy * w
					for xx := x0; xx < x1; xx++ {
						sum += d[row+xx]
					}
				}
				vec[idx] = sum / area
			}
			h.tileVecs[tile] = append(h.tileVecs[tile], vec)
		}
	}
}

// poolTubes runs the Jacobi eigensolver on each tile's temporal covariance
// of (scale,orientation) response-difference vectors, takes the largest
// eigenvalue as that tube's error, and returns the poolingPerc-percentile
// error across tiles (spec.md §4.7/§4.8).
func (h *HDRVQM) poolTubes() float64 {
	n := h.NumScales * h.NumOrientations
	errs := make([]float64, 0, len(h.tileVecs))

	for _, samples := range h.tileVecs {
		if len(samples) == 0 {
			continue
		}
		mean := make([]float64, n)
		for _, s := range samples {
			for i, v := range s {
				mean[i] += v
			}
		}
		for i := range mean {
			mean[i] /= float64(len(samples))
		}

		cov := make([][]float64, n)
		for i := range cov {
			cov[i] = make([]float64, n)
		}
		for _, s := range samples {
			for i := 0; i < n; i++ {
				di := s[i] - mean[i]
				for j := 0; j < n; j++ {
					dj := s[j] - mean[j]
					cov[i][j] += di * dj
				}
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				cov[i][j] /= float64(len(samples))
			}
		}

		eigen, _ := numeric.JacobiEigen(cov, 100, 1e-10)
		maxEig := 0.0
		for _, e := range eigen {
			if e > maxEig {
				maxEig = e
			}
		}
		errs = append(errs, maxEig)
	}

	if len(errs) == 0 {
		return 0
	}
	sort.Float64s(errs)
	idx := int(h.PoolingPerc / 100 * float64(len(errs)-1))
	idx = numeric.ClipI(idx, 0, len(errs)-1)
	return errs[idx]
}

// logGaborFilter is the frequency-domain magnitude response of one
// scale/orientation subband of a Kovesi-style log-Gabor filterbank.
type logGaborFilter struct {
	resp [][]float64 // [y][x] magnitude in unshifted FFT frequency order
}

func buildLogGaborBank(w, h, numScales, numOrientations int) []logGaborFilter {
	bank := make([]logGaborFilter, 0, numScales*numOrientations)
	minWavelength := 3.0
	mult := 2.1
	sigmaOnF := 0.55
	sigmaTheta := math.Pi / float64(numOrientations) * 0.8

	for s := 0; s < numScales; s++ {
		wavelength := minWavelength * math.Pow(mult, float64(s))
		f0 := 1.0 / wavelength
		for o := 0; o < numOrientations; o++ {
			theta0 := float64(o) * math.Pi / float64(numOrientations)
			resp := make([][]float64, h)
			for y := 0; y < h; y++ {
				fy := freqAt(y, h)
				resp[y] = make([]float64, w)
				for x := 0; x < w; x++ {
					fx := freqAt(x, w)
					f := math.Hypot(fx, fy)
					if f == 0 {
						resp[y][x] = 0
						continue
					}
					theta := math.Atan2(fy, fx)
					dTheta := angularDist(theta, theta0)
					radial := math.Exp(-(math.Log(f/f0) * math.Log(f/f0)) / (2 * math.Log(sigmaOnF) * math.Log(sigmaOnF)))
					angular := math.Exp(-(dTheta * dTheta) / (2 * sigmaTheta * sigmaTheta))
					resp[y][x] = radial * angular
				}
			}
			bank = append(bank, logGaborFilter{resp: resp})
		}
	}
	return bank
}

func freqAt(k, n int) float64 {
	if k <= n/2 {
		return float64(k) / float64(n)
	}
	return float64(k-n) / float64(n)
}

func angularDist(a, b float64) float64 {
	d := a - b
	for d > math.Pi/2 {
		d -= math.Pi
	}
	for d < -math.Pi/2 {
		d += math.Pi
	}
	return d
}

// applyFreqFilter runs a 2D FFT (row pass then column pass) over img,
// multiplies by filt in the frequency domain, and inverse-transforms back
// to the spatial domain, returning the real part (the filtered subband
// response).
func applyFreqFilter(img []float64, w, h int, filt logGaborFilter) []float64 {
	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)

	spec := make([][]complex128, h)
	rowBuf := make([]complex128, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rowBuf[x] = complex(img[y*w+x], 0)
		}
		out := make([]complex128, w)
		rowFFT.Coefficients(out, rowBuf)
		spec[y] = out
	}

	colBuf := make([]complex128, h)
	colOut := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			colBuf[y] = spec[y][x]
		}
		colFFT.Coefficients(colOut, colBuf)
		for y := 0; y < h; y++ {
			spec[y][x] = complex(real(colOut[y])*filt.resp[y][x], imag(colOut[y])*filt.resp[y][x])
		}
	}

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			colBuf[y] = spec[y][x]
		}
		colFFT.Sequence(colOut, colBuf)
		for y := 0; y < h; y++ {
			spec[y][x] = colOut[y]
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		rowFFT.Sequence(rowBuf, spec[y])
		for x := 0; x < w; x++ {
			out[y*w+x] = real(rowBuf[x])
		}
	}
	return out
}

// pqForwardLocal duplicates transfer's PQ inverse-EOTF locally so this
// metric stays independent of the transfer package's Kind/Create
// machinery for a single scalar curve (same leaf-package rationale as
// tonemap; see DESIGN.md).
func pqForwardLocal(v float64) float64 {
	const m1 = 2610.0 / 16384.0
	const m2 = 2523.0 * 128.0 / 4096.0
	const c1 = 3424.0 / 4096.0
	const c2 = 2413.0 * 32.0 / 4096.0
	const c3 = 2392.0 * 32.0 / 4096.0
	if v < 0 {
		v = 0
	}
	vm1 := math.Pow(v, m1)
	return math.Pow((c1+c2*vm1)/(1+c3*vm1), m2)
}
