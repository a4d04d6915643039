// Package transfer implements the opto-electronic / electro-optical
// transfer-function curves (C2): invertible scalar maps between linear
// light and a normalized code value, with an optional piecewise-linear
// LUT acceleration path.
package transfer

import "math"

// Kind enumerates the supported transfer-function curves.
type Kind int

const (
	Null Kind = iota
	PQ
	HLG
	BT709
	BT1886
	SRGB
	ST240
	HybridPQ
	HybridPQ2
	PQNoise
	Combo
	BiasedMPQ
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "Null"
	case PQ:
		return "PQ"
	case HLG:
		return "HLG"
	case BT709:
		return "BT709"
	case BT1886:
		return "BT1886"
	case SRGB:
		return "sRGB"
	case ST240:
		return "ST240"
	case HybridPQ:
		return "HybridPQ"
	case HybridPQ2:
		return "HybridPQ2"
	case PQNoise:
		return "PQNoise"
	case Combo:
		return "Combo"
	case BiasedMPQ:
		return "BiasedMPQ"
	default:
		return "Unknown"
	}
}

// PQ constants, SMPTE ST 2084.
const (
	pqM1 = 2610.0 / 16384.0
	pqM2 = 2523.0 * 128.0 / 4096.0
	pqC1 = 3424.0 / 4096.0
	pqC2 = 2413.0 * 32.0 / 4096.0
	pqC3 = 2392.0 * 32.0 / 4096.0
)

// TransferFunction is the public contract every curve implements:
// scalar forward (linear -> nonlinear) and inverse (nonlinear ->
// linear) maps over [0,1].
type TransferFunction interface {
	Kind() Kind
	Forward(v float64) float64
	Inverse(v float64) float64
}

// lutBins is the number of logarithmic decades the LUT covers: 10^-10 .. 10^0.
const lutBins = 10

// lutSamples is the number of uniformly spaced samples within each decade.
const lutSamples = 10000

// lut accelerates Forward/Inverse with a piecewise-linear approximation
// built from lutBins decades of lutSamples uniform samples each, per
// spec.md's LUT-acceleration description.
type lut struct {
	forward [lutBins][]float64
	inverse [lutBins][]float64
}

func buildLUT(f func(float64) float64) *lut {
	l := &lut{}
	for b := 0; b < lutBins; b++ {
		lo := math.Pow(10, float64(b-lutBins))
		hi := math.Pow(10, float64(b-lutBins+1))
		l.forward[b] = make([]float64, lutSamples+1)
		for i := 0; i <= lutSamples; i++ {
			v := lo + (hi-lo)*float64(i)/float64(lutSamples)
			l.forward[b][i] = f(v)
		}
	}
	return l
}

func (l *lut) lookup(v float64) float64 {
	if v <= 0 {
		return l.forward[0][0]
	}
	if v >= 1 {
		return l.forward[lutBins-1][lutSamples]
	}

	decExp := math.Floor(math.Log10(v))
	b := int(decExp) + lutBins
	if b < 0 {
		b = 0
	}
	if b >= lutBins {
		b = lutBins - 1
	}

	lo := math.Pow(10, float64(b-lutBins))
	hi := math.Pow(10, float64(b-lutBins+1))
	frac := (v - lo) / (hi - lo) * float64(lutSamples)
	idx := int(math.Floor(frac))
	if idx < 0 {
		idx = 0
	}
	if idx >= lutSamples {
		return l.forward[b][lutSamples]
	}
	t := frac - float64(idx)
	return l.forward[b][idx]*(1-t) + l.forward[b][idx+1]*t
}

// curve wraps a forward/inverse pair with optional LUT acceleration.
type curve struct {
	kind       Kind
	fwd, inv   func(float64) float64
	lutFwd     *lut
	lutInv     *lut
	lutEnabled bool
}

func (c *curve) Kind() Kind { return c.kind }

func (c *curve) Forward(v float64) float64 {
	v = clip01(v)
	if c.lutEnabled && c.lutFwd != nil {
		return clip01(c.lutFwd.lookup(v))
	}
	return clip01(c.fwd(v))
}

func (c *curve) Inverse(v float64) float64 {
	v = clip01(v)
	if c.lutEnabled && c.lutInv != nil {
		return clip01(c.lutInv.lookup(v))
	}
	return clip01(c.inv(v))
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Create builds a concrete TransferFunction for kind. enableLUT turns on
// the piecewise-linear acceleration table for both Forward and Inverse.
// params is curve-specific: HLG uses params[0] as the display peak
// luminance in cd/m^2 (default 1000 if empty); BiasedMPQ uses params[0]
// as the inflection point and params[1] as the negative-bias scale.
func Create(kind Kind, enableLUT bool, params ...float64) TransferFunction {
	var fwd, inv func(float64) float64

	switch kind {
	case Null:
		fwd = func(v float64) float64 { return v }
		inv = func(v float64) float64 { return v }
	case PQ:
		fwd = pqForward
		inv = pqInverse
	case HLG:
		peak := 1000.0
		if len(params) > 0 && params[0] > 0 {
			peak = params[0]
		}
		fwd, inv = hlgPair(peak)
	case BT709:
		fwd, inv = bt709Pair()
	case BT1886:
		fwd, inv = bt1886Pair()
	case SRGB:
		fwd, inv = srgbPair()
	case ST240:
		fwd, inv = st240Pair()
	case HybridPQ:
		fwd, inv = hybridPQPair(0.5)
	case HybridPQ2:
		fwd, inv = hybridPQPair(0.25)
	case PQNoise:
		fwd, inv = pqNoisePair()
	case Combo:
		fwd, inv = comboPair()
	case BiasedMPQ:
		inflection := 0.5
		scale := 0.75
		if len(params) > 0 {
			inflection = params[0]
		}
		if len(params) > 1 {
			scale = params[1]
		}
		fwd, inv = biasedMPQPair(inflection, scale)
	default:
		fwd = func(v float64) float64 { return v }
		inv = func(v float64) float64 { return v }
	}

	c := &curve{kind: kind, fwd: fwd, inv: inv, lutEnabled: enableLUT}
	if enableLUT {
		c.lutFwd = buildLUT(fwd)
		c.lutInv = buildLUT(inv)
	}
	return c
}

// pqForward is the ST 2084 inverse-EOTF: linear [0,1] (representing
// 0..10000 cd/m^2) to nonlinear code value.
func pqForward(v float64) float64 {
	vp := math.Pow(v, pqM1)
	num := pqC1 + pqC2*vp
	den := 1 + pqC3*vp
	return math.Pow(num/den, pqM2)
}

// pqInverse is the ST 2084 EOTF: nonlinear code value to linear.
func pqInverse(v float64) float64 {
	vp := math.Pow(v, 1/pqM2)
	num := math.Max(vp-pqC1, 0)
	den := pqC2 - pqC3*vp
	if den <= 0 {
		return 1
	}
	return math.Pow(num/den, 1/pqM1)
}

// hlgPair builds the ARIB STD-B67 pair for the given display peak
// luminance in cd/m^2: inverse applies the OETF inverse and then the system
// gamma (display light), and forward removes the system gamma before the
// OETF, so the two invert each other.
func hlgPair(peakNits float64) (fwd, inv func(float64) float64) {
	const a = 0.17883277
	const b = 1 - 4*a
	c := 0.5 - a*math.Log(4*a)

	oetf := func(e float64) float64 {
		if e <= 1.0/12.0 {
			return math.Sqrt(3 * e)
		}
		return a*math.Log(12*e-b) + c
	}
	oetfInv := func(v float64) float64 {
		if v <= 0.5 {
			return v * v / 3
		}
		return (math.Exp((v-c)/a) + b) / 12
	}

	systemGamma := 1.2 + 0.42*math.Log10(peakNits/1000)
	if peakNits <= 0 {
		systemGamma = 1.2
	}

	fwd = func(e float64) float64 { return oetf(math.Pow(e, 1/systemGamma)) }
	inv = func(v float64) float64 {
		scene := oetfInv(v)
		return math.Pow(scene, systemGamma) // display-light reconstruction
	}
	return fwd, inv
}

func bt709Pair() (fwd, inv func(float64) float64) {
	const alpha = 1.099
	const beta = 0.018
	fwd = func(e float64) float64 {
		if e < beta {
			return 4.5 * e
		}
		return alpha*math.Pow(e, 0.45) - (alpha - 1)
	}
	inv = func(v float64) float64 {
		if v < 4.5*beta {
			return v / 4.5
		}
		return math.Pow((v+alpha-1)/alpha, 1/0.45)
	}
	return fwd, inv
}

// bt1886Pair is the simple display power-law gamma 2.4.
func bt1886Pair() (fwd, inv func(float64) float64) {
	const gamma = 2.4
	fwd = func(e float64) float64 { return math.Pow(e, 1/gamma) }
	inv = func(v float64) float64 { return math.Pow(v, gamma) }
	return fwd, inv
}

func srgbPair() (fwd, inv func(float64) float64) {
	fwd = func(e float64) float64 {
		if e <= 0.0031308 {
			return 12.92 * e
		}
		return 1.055*math.Pow(e, 1/2.4) - 0.055
	}
	inv = func(v float64) float64 {
		if v <= 0.04045 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return fwd, inv
}

func st240Pair() (fwd, inv func(float64) float64) {
	const alpha = 1.1115
	const beta = 0.0228
	fwd = func(e float64) float64 {
		if e < beta {
			return 4.0 * e
		}
		return alpha*math.Pow(e, 0.45) - (alpha - 1)
	}
	inv = func(v float64) float64 {
		if v < 4.0*beta {
			return v / 4.0
		}
		return math.Pow((v+alpha-1)/alpha, 1/0.45)
	}
	return fwd, inv
}

// hybridPQPair is a PQ curve with a linear segment below blend (continuous
// at the junction, so it stays exactly invertible), used by the TF-based
// distortion metric's composite curves. HybridPQ and HybridPQ2 differ only
// in the junction point.
func hybridPQPair(blend float64) (fwd, inv func(float64) float64) {
	junctionV := pqForward(blend)

	fwd = func(e float64) float64 {
		if e >= blend {
			return pqForward(e)
		}
		return (e / blend) * junctionV
	}
	inv = func(v float64) float64 {
		if v >= junctionV {
			return pqInverse(v)
		}
		return (v / junctionV) * blend
	}
	return fwd, inv
}

// pqNoisePair is PQ forward/inverse used to exercise a distinct TF path in
// TF-SSIM composites; it carries no actual dither (the metric only needs
// the PQ shape under a distinguishable name).
func pqNoisePair() (fwd, inv func(float64) float64) {
	return pqForward, pqInverse
}

// comboPair is the Combo(PQ+PH10K) composite: PQ above 0.5 (10000 cd/m^2
// reference), a gamma-2.4 power curve below, continuous at the junction.
func comboPair() (fwd, inv func(float64) float64) {
	const junction = 0.5
	pqAtJunction := pqForward(junction)

	fwd = func(e float64) float64 {
		if e >= junction {
			return pqForward(e)
		}
		return math.Pow(e/junction, 1/2.4) * pqAtJunction
	}
	inv = func(v float64) float64 {
		if v >= pqAtJunction {
			return pqInverse(v)
		}
		return math.Pow(v/pqAtJunction, 2.4) * junction
	}
	return fwd, inv
}

// biasedMPQPair is TransferFunctionBiasedMPQ: a PQ curve composed with a
// continuous, monotonic piecewise-linear remap of the linear-light domain
// that compresses values below inflectionPoint by scale, grounded on
// original_source/common/src/TransferFunctionBiasedMPQ.cpp. The remap
// (rather than a direct rescale of the PQ output) keeps the composite
// strictly monotonic and therefore exactly invertible at the junction.
func biasedMPQPair(inflectionPoint, scale float64) (fwd, inv func(float64) float64) {
	invInflection := pqInverse(inflectionPoint)
	if scale <= 0 {
		scale = 1
	}
	junction := invInflection * scale
	upperSlope := (1 - junction) / (1 - invInflection)
	if invInflection >= 1 {
		upperSlope = 1
	}

	remap := func(e float64) float64 {
		if e <= invInflection {
			return e * scale
		}
		return junction + (e-invInflection)*upperSlope
	}
	remapInv := func(e float64) float64 {
		if e <= junction {
			return e / scale
		}
		return invInflection + (e-junction)/upperSlope
	}

	fwd = func(e float64) float64 { return pqForward(remap(e)) }
	inv = func(v float64) float64 { return remapInv(pqInverse(v)) }
	return fwd, inv
}
