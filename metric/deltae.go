package metric

import (
	"math"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
)

// ReferenceWhite is one of the up to four CIE white points ΔE2000 can be
// evaluated against (spec.md §4.7, §9's 7-bit deltaEPointsEnable mask).
type ReferenceWhite struct {
	Name       string
	Xn, Yn, Zn float64
}

// D65, DCI, D60, and D50 are the four standard reference whites the
// 7-bit deltaEPointsEnable mask selects among (spec.md §9).
var (
	D65 = ReferenceWhite{"D65", 95.047, 100.0, 108.883}
	DCI = ReferenceWhite{"DCI", 95.043, 100.0, 65.394}
	D60 = ReferenceWhite{"D60", 95.658, 100.0, 90.818}
	D50 = ReferenceWhite{"D50", 96.422, 100.0, 82.521}
)

// DeltaE2000 computes CIEDE2000 color difference in RGB->XYZ->Lab space
// against up to four reference whites, selected by PointsEnable (spec.md
// §4.7, §9). Each bit of the mask that is set enables the corresponding
// entry of Whites; the metric reports per-white average and the frame max
// across all enabled whites.
type DeltaE2000 struct {
	Whites       []ReferenceWhite
	PointsEnable uint8 // 7-bit mask, bit i enables Whites[i]

	Stats [4]*StatRecord // one per enabled white, up to 4
}

// NewDeltaE2000 returns a DeltaE2000 metric evaluated against all four
// standard whites.
func NewDeltaE2000() *DeltaE2000 {
	d := &DeltaE2000{Whites: []ReferenceWhite{D65, DCI, D60, D50}, PointsEnable: 0x0F}
	for i := range d.Stats {
		d.Stats[i] = NewStatRecord()
	}
	return d
}

func (d *DeltaE2000) Name() string { return "deltae2000" }
func (d *DeltaE2000) Close()       {}

// Compute requires float linear RGB 4:4:4 input; each pixel's color
// difference is computed per enabled reference white and the frame's
// per-white average and max are returned.
func (d *DeltaE2000) Compute(ref, test *frame.Frame) (map[string]float64, error) {
	if err := frame.RequireEqualType("DeltaE2000", ref, test); err != nil {
		return nil, err
	}
	if !ref.Format.IsFloat || ref.Format.ChromaFormat != frame.Format444 {
		return nil, herror.New(herror.TypeMismatch, "DeltaE2000", "requires float RGB 4:4:4 input", nil)
	}

	size := ref.Format.CompSize(frame.ComponentY)
	result := make(map[string]float64, len(d.Whites)*2)

	for wi, white := range d.Whites {
		if d.PointsEnable&(1<<uint(wi)) == 0 {
			continue
		}
		var sum, max float64
		for i := 0; i < size; i++ {
			xr, yr, zr := rgbToXYZDeltaE(ref, i)
			xt, yt, zt := rgbToXYZDeltaE(test, i)
			lr, ar, br := xyzToLab(xr, yr, zr, white)
			lt, at, bt := xyzToLab(xt, yt, zt, white)
			de := ciede2000(lr, ar, br, lt, at, bt)
			sum += de
			if de > max {
				max = de
			}
		}
		avg := sum / float64(size)
		d.Stats[wi].UpdateStats(avg)
		result[white.Name+"_avg"] = avg
		result[white.Name+"_max"] = max
	}
	return result, nil
}

func rgbToXYZDeltaE(f *frame.Frame, i int) (x, y, z float64) {
	r := float64(f.F32[frame.ComponentY][i])
	g := float64(f.F32[frame.ComponentU][i])
	b := float64(f.F32[frame.ComponentV][i])
	x = (0.4124564*r + 0.3575761*g + 0.1804375*b) * 100
	y = (0.2126729*r + 0.7151522*g + 0.0721750*b) * 100
	z = (0.0193339*r + 0.1191920*g + 0.9503041*b) * 100
	return
}

// xyzToLab converts CIE XYZ (Y scaled to 100) to CIE L*a*b* against white.
// The classical `t < 0.008856` cube-root branch is retained in full (the
// dead simplification spec.md §9 documents applies only to the downstream
// CIEDE2000 hue term, not this conversion).
func xyzToLab(x, y, z float64, white ReferenceWhite) (l, a, b float64) {
	fx := labF(x / white.Xn)
	fy := labF(y / white.Yn)
	fz := labF(z / white.Zn)
	l = 116*fy - 16
	a = 500 * (fx - fy)
	b = 200 * (fy - fz)
	return
}

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}

// ciede2000 implements the CIEDE2000 color-difference formula (Sharma,
// Wu, Dalal 2005). The `r < 0.008856` term from spec.md §9's
// DistortionMetricDeltaE is a documented dead simplification in the
// original and is not replicated here; only the surviving branch is
// implemented.
func ciede2000(l1, a1, b1, l2, a2, b2 float64) float64 {
	const kL, kC, kH = 1.0, 1.0, 1.0

	c1 := math.Hypot(a1, b1)
	c2 := math.Hypot(a2, b2)
	cBar := (c1 + c2) / 2

	g := 0.5 * (1 - math.Sqrt(math.Pow(cBar, 7)/(math.Pow(cBar, 7)+math.Pow(25, 7))))
	a1p := a1 * (1 + g)
	a2p := a2 * (1 + g)

	c1p := math.Hypot(a1p, b1)
	c2p := math.Hypot(a2p, b2)

	h1p := atan2Deg(b1, a1p)
	h2p := atan2Deg(b2, a2p)

	deltaLp := l2 - l1
	deltaCp := c2p - c1p

	var deltahp float64
	if c1p*c2p == 0 {
		deltahp = 0
	} else if math.Abs(h2p-h1p) <= 180 {
		deltahp = h2p - h1p
	} else if h2p-h1p > 180 {
		deltahp = h2p - h1p - 360
	} else {
		deltahp = h2p - h1p + 360
	}
	deltaHp := 2 * math.Sqrt(c1p*c2p) * math.Sin(deg2rad(deltahp)/2)

	lBarp := (l1 + l2) / 2
	cBarp := (c1p + c2p) / 2

	var hBarp float64
	if c1p*c2p == 0 {
		hBarp = h1p + h2p
	} else if math.Abs(h1p-h2p) <= 180 {
		hBarp = (h1p + h2p) / 2
	} else if h1p+h2p < 360 {
		hBarp = (h1p + h2p + 360) / 2
	} else {
		hBarp = (h1p + h2p - 360) / 2
	}

	t := 1 - 0.17*math.Cos(deg2rad(hBarp-30)) + 0.24*math.Cos(deg2rad(2*hBarp)) +
		0.32*math.Cos(deg2rad(3*hBarp+6)) - 0.20*math.Cos(deg2rad(4*hBarp-63))

	deltaTheta := 30 * math.Exp(-math.Pow((hBarp-275)/25, 2))
	rc := 2 * math.Sqrt(math.Pow(cBarp, 7)/(math.Pow(cBarp, 7)+math.Pow(25, 7)))
	sl := 1 + (0.015*math.Pow(lBarp-50, 2))/math.Sqrt(20+math.Pow(lBarp-50, 2))
	sc := 1 + 0.045*cBarp
	sh := 1 + 0.015*cBarp*t
	rt := -math.Sin(deg2rad(2*deltaTheta)) * rc

	dl := deltaLp / (kL * sl)
	dc := deltaCp / (kC * sc)
	dh := deltaHp / (kH * sh)

	return math.Sqrt(dl*dl + dc*dc + dh*dh + rt*dc*dh)
}

func atan2Deg(y, x float64) float64 {
	if x == 0 && y == 0 {
		return 0
	}
	deg := math.Atan2(y, x) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
