// Package tonemap implements the ToneMapping family (C7): Roll, CIE1931,
// BT2390, and BT2390-IPT, each compressing linear-light RGB toward a
// target peak: Roll with a power-law roll-off, the others via the BT.2390
// Bezier knee (spec.md §4.5).
package tonemap

import (
	"math"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
	"github.com/hdrtoolbox/hdrtoolbox/numeric"
)

// bezierKnee applies the BT.2390 cubic Bezier knee to e, compressing
// values above KS = 1.5*maxIntensity - 0.5 toward maxIntensity
// (spec.md §4.5).
func bezierKnee(e, maxIntensity float64) float64 {
	ks := 1.5*maxIntensity - 0.5
	if e < ks {
		return e
	}
	if ks >= 1 {
		return e
	}
	t := (e - ks) / (1 - ks)
	t2 := t * t
	t3 := t * t2
	p := (t3-t2-t+1)*ks + (t3 - 2*t2 + t) + (-2*t3+3*t2)*maxIntensity
	return p
}

// Roll implements the gamma roll-off tone mapper.
type Roll struct {
	MinValue, MaxValue, TargetValue, Gamma float64
}

// Process applies the Roll curve to every linear RGB sample of src,
// producing dst (same geometry, float, 4:4:4 RGB).
func (r *Roll) Process(src, dst *frame.Frame) error {
	if err := requireFloatRGB("tonemap.Roll.Process", src); err != nil {
		return err
	}
	gamma := r.Gamma
	if gamma == 0 {
		gamma = 1
	}
	apply := func(in float64) float64 {
		if in <= r.MinValue {
			return numeric.ClipF(in, 0, 1)
		}
		span := r.MaxValue - r.MinValue
		if span == 0 {
			return numeric.ClipF(in, 0, 1)
		}
		norm := (in - r.MinValue) / span
		out := math.Pow(norm, 1/gamma)*(r.TargetValue-r.MinValue) + r.MinValue
		return numeric.ClipF(out, 0, 1)
	}
	forEachRGB(src, dst, apply)
	return nil
}

// CIE1931 tone-maps via xyY, applying the Bezier knee to Y and optionally
// scaling chromaticity to preserve gamut boundaries.
type CIE1931 struct {
	MaxIntensity float64
	ScaleGamut   bool
}

func (c *CIE1931) Process(src, dst *frame.Frame) error {
	if err := requireFloatRGB("tonemap.CIE1931.Process", src); err != nil {
		return err
	}
	n := src.Format.CompSize(frame.ComponentY)
	for i := 0; i < n; i++ {
		r, g, b := rgbAt(src, i)
		x, y, z := rgbToXYZ(r, g, b)
		sum := x + y + z
		if sum == 0 {
			setRGB(dst, i, 0, 0, 0)
			continue
		}
		px, py := x/sum, y/sum
		yOut := bezierKnee(y, c.MaxIntensity)
		if c.ScaleGamut && y > 0 {
			scale := math.Min(yOut/y, y/yOut)
			px = 0.5 + (px-0.5)*scale
			py = 0.5 + (py-0.5)*scale
		}
		xOut := px * yOut / py
		zOut := (1 - px - py) * yOut / py
		rr, gg, bb := xyzToRGB(xOut, yOut, zOut)
		setRGB(dst, i, numeric.ClipF(rr, 0, 1), numeric.ClipF(gg, 0, 1), numeric.ClipF(bb, 0, 1))
	}
	return nil
}

// BT2390 tone-maps in ICtCp, applying the knee to I and preserving
// chroma hue via the Ct/Cp ratio (spec.md §4.5).
type BT2390 struct {
	MaxIntensity float64
}

func (b *BT2390) Process(src, dst *frame.Frame) error {
	if err := requireFloatRGB("tonemap.BT2390.Process", src); err != nil {
		return err
	}
	n := src.Format.CompSize(frame.ComponentY)
	for i := 0; i < n; i++ {
		r, g, bl := rgbAt(src, i)
		i1, ct, cp := rgbToICtCp(r, g, bl)
		iOut := bezierKnee(i1, b.MaxIntensity)
		var scale float64
		if i1 != 0 {
			scale = iOut / i1
		}
		rr, gg, bb := ictcpToRGB(iOut, ct*scale, cp*scale)
		setRGB(dst, i, numeric.ClipF(rr, 0, 1), numeric.ClipF(gg, 0, 1), numeric.ClipF(bb, 0, 1))
	}
	return nil
}

// BT2390IPT is the same knee applied in IPT space instead of ICtCp.
type BT2390IPT struct {
	MaxIntensity float64
}

func (b *BT2390IPT) Process(src, dst *frame.Frame) error {
	if err := requireFloatRGB("tonemap.BT2390IPT.Process", src); err != nil {
		return err
	}
	n := src.Format.CompSize(frame.ComponentY)
	for i := 0; i < n; i++ {
		r, g, bl := rgbAt(src, i)
		ii, p, t := rgbToIPT(r, g, bl)
		iOut := bezierKnee(ii, b.MaxIntensity)
		var scale float64
		if ii != 0 {
			scale = iOut / ii
		}
		rr, gg, bb := iptToRGB(iOut, p*scale, t*scale)
		setRGB(dst, i, numeric.ClipF(rr, 0, 1), numeric.ClipF(gg, 0, 1), numeric.ClipF(bb, 0, 1))
	}
	return nil
}

func requireFloatRGB(op string, f *frame.Frame) error {
	if !f.Format.IsFloat || f.Format.ChromaFormat != frame.Format444 {
		return herror.New(herror.TypeMismatch, op, "tone mapping requires 4:4:4 float RGB", nil)
	}
	return nil
}

func forEachRGB(src, dst *frame.Frame, fn func(float64) float64) {
	n := src.Format.CompSize(frame.ComponentY)
	for i := 0; i < n; i++ {
		dst.F32[frame.ComponentY][i] = float32(fn(float64(src.F32[frame.ComponentY][i])))
		dst.F32[frame.ComponentU][i] = float32(fn(float64(src.F32[frame.ComponentU][i])))
		dst.F32[frame.ComponentV][i] = float32(fn(float64(src.F32[frame.ComponentV][i])))
	}
}

func rgbAt(f *frame.Frame, i int) (r, g, b float64) {
	return float64(f.F32[frame.ComponentY][i]), float64(f.F32[frame.ComponentU][i]), float64(f.F32[frame.ComponentV][i])
}

func setRGB(f *frame.Frame, i int, r, g, b float64) {
	f.F32[frame.ComponentY][i] = float32(r)
	f.F32[frame.ComponentU][i] = float32(g)
	f.F32[frame.ComponentV][i] = float32(b)
}

// BT.709 RGB <-> XYZ (D65), matches colortransform.xyzFromRGB709 without
// importing it, to keep tonemap leaf-dependency free per the teacher's
// package layering.
func rgbToXYZ(r, g, b float64) (x, y, z float64) {
	x = 0.4123908*r + 0.3575843*g + 0.1804808*b
	y = 0.2126390*r + 0.7151687*g + 0.0721923*b
	z = 0.0193308*r + 0.1191948*g + 0.9505322*b
	return
}

func xyzToRGB(x, y, z float64) (r, g, b float64) {
	r = 3.2409699*x - 1.5373832*y - 0.4986108*z
	g = -0.9692436*x + 1.8759675*y + 0.0415551*z
	b = 0.0556301*x - 0.2039770*y + 1.0569715*z
	return
}

var lmsFromRGB = [3][3]float64{
	{1688.0 / 4096, 2146.0 / 4096, 262.0 / 4096},
	{683.0 / 4096, 2951.0 / 4096, 462.0 / 4096},
	{99.0 / 4096, 309.0 / 4096, 3688.0 / 4096},
}

func mulMat(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func invert3(m [3][3]float64) [3][3]float64 {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]
	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	inv := 1 / det
	return [3][3]float64{
		{(e*i - f*h) * inv, (c*h - b*i) * inv, (b*f - c*e) * inv},
		{(f*g - d*i) * inv, (a*i - c*g) * inv, (c*d - a*f) * inv},
		{(d*h - e*g) * inv, (b*g - a*h) * inv, (a*e - b*d) * inv},
	}
}

var rgbFromLMS = invert3(lmsFromRGB)

// pqOetf/pqEotf duplicate transfer.PQ's shape locally (tonemap stays a
// leaf package; see DESIGN.md for why this isn't imported from transfer).
func pqOetf(v float64) float64 {
	const m1, m2, c1, c2, c3 = 2610.0 / 16384, 2523.0 * 128 / 4096, 3424.0 / 4096, 2413.0 * 32 / 4096, 2392.0 * 32 / 4096
	vp := math.Pow(math.Max(v, 0), m1)
	return math.Pow((c1+c2*vp)/(1+c3*vp), m2)
}

func pqEotf(v float64) float64 {
	const m1, m2, c1, c2, c3 = 2610.0 / 16384, 2523.0 * 128 / 4096, 3424.0 / 4096, 2413.0 * 32 / 4096, 2392.0 * 32 / 4096
	vp := math.Pow(v, 1/m2)
	num := math.Max(vp-c1, 0)
	den := c2 - c3*vp
	if den <= 0 {
		return 1
	}
	return math.Pow(num/den, 1/m1)
}

func rgbToICtCp(r, g, b float64) (i, ct, cp float64) {
	x, y, z := rgbToXYZ(r, g, b)
	lms := mulMat(lmsFromRGB, [3]float64{x, y, z})
	lp := pqOetf(lms[0])
	mp := pqOetf(lms[1])
	sp := pqOetf(lms[2])
	i = 0.5*lp + 0.5*mp
	ct = (6610*lp - 13613*mp + 7003*sp) / 4096
	cp = (17933*lp - 17390*mp - 543*sp) / 4096
	return
}

func ictcpToRGB(i, ct, cp float64) (r, g, b float64) {
	lp := i + 0.00860904*ct + 0.11102962*cp
	mp := i - 0.00860904*ct - 0.11102962*cp
	sp := i + 0.56003134*ct - 0.32062717*cp
	lms := [3]float64{pqEotf(lp), pqEotf(mp), pqEotf(sp)}
	xyz := mulMat(rgbFromLMS, lms)
	return xyzToRGB(xyz[0], xyz[1], xyz[2])
}

// IPT per Ebner & Fairchild 1998, with IPT's 0.43 power law on LMS.
var iptLMSFromXYZ = [3][3]float64{
	{0.4002, 0.7075, -0.0807},
	{-0.2280, 1.1500, 0.0612},
	{0.0000, 0.0000, 0.9184},
}

var iptFromLMSPrime = [3][3]float64{
	{0.4000, 0.4000, 0.2000},
	{4.4550, -4.8510, 0.3960},
	{0.8056, 0.3572, -1.1628},
}

var lmsPrimeFromIPT = invert3(iptFromLMSPrime)
var xyzFromIPTLMS = invert3(iptLMSFromXYZ)

func rgbToIPT(r, g, b float64) (i, p, t float64) {
	x, y, z := rgbToXYZ(r, g, b)
	lms := mulMat(iptLMSFromXYZ, [3]float64{x, y, z})
	lp := math.Pow(math.Max(lms[0], 0), 0.43)
	mp := math.Pow(math.Max(lms[1], 0), 0.43)
	sp := math.Pow(math.Max(lms[2], 0), 0.43)
	ipt := mulMat(iptFromLMSPrime, [3]float64{lp, mp, sp})
	return ipt[0], ipt[1], ipt[2]
}

func iptToRGB(i, p, t float64) (r, g, b float64) {
	lmsP := mulMat(lmsPrimeFromIPT, [3]float64{i, p, t})
	lms := [3]float64{
		math.Pow(math.Max(lmsP[0], 0), 1/0.43),
		math.Pow(math.Max(lmsP[1], 0), 1/0.43),
		math.Pow(math.Max(lmsP[2], 0), 1/0.43),
	}
	xyz := mulMat(xyzFromIPTLMS, lms)
	return xyzToRGB(xyz[0], xyz[1], xyz[2])
}
