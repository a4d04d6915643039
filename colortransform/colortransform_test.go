package colortransform

import (
	"math"
	"testing"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/transfer"
)

var allModes = []Mode{
	ModeIdentity, ModeRGB709_YUV709, ModeRGB2020_YUV2020, ModeRGB2020_YUV2020HP,
	ModeRGBP3D65_YUVP3D65, ModeRGB601_YUV601, ModeRGBEXT_YUVEXT,
	ModeRGB709_XYZ, ModeRGB2020_XYZ, ModeRGBP3D65_XYZ, ModeRGB_YCoCg, ModeRGB_AMT,
}

// TestMatrixInversionIdentity verifies spec.md §8 item 2: forward and
// inverse matrices multiply to the identity within 1e-12 Frobenius norm.
func TestMatrixInversionIdentity(t *testing.T) {
	for _, mode := range allModes {
		fwd := ForwardMatrix(mode, 0)
		inv := InverseMatrix(mode, 0)
		var frob float64
		for i := 0; i < 3; i++ {
			row := fwd.Mul(inv.Mul(identityColumn(i)))
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				d := row[j] - want
				frob += d * d
			}
		}
		if math.Sqrt(frob) > 1e-12 {
			t.Errorf("mode %d: M_fwd * M_inv not identity, frobenius=%v", mode, math.Sqrt(frob))
		}
	}
}

func identityColumn(i int) [3]float64 {
	var v [3]float64
	v[i] = 1
	return v
}

func format444(w, h int, isFloat bool) frame.Format {
	f := frame.Format{ChromaFormat: frame.Format444, IsFloat: isFloat, BitDepth: [4]int{10, 10, 10, 0}, SampleRange: frame.RangeStandard}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

func TestGenericRoundTripApproximatesIdentity(t *testing.T) {
	src := frame.New(format444(4, 4, true))
	for i := range src.F32[frame.ComponentY] {
		src.F32[frame.ComponentY][i] = float32(i) / 16
		src.F32[frame.ComponentU][i] = float32(i) / 20
		src.F32[frame.ComponentV][i] = float32(i) / 24
	}
	g := NewGeneric(ModeRGB709_YUV709, 0)
	dst := frame.New(format444(4, 4, true))
	if err := g.Process(src, dst); err != nil {
		t.Fatalf("Process: %v", err)
	}

	back := frame.New(format444(4, 4, true))
	invMat := InverseMatrix(ModeRGB709_YUV709, 0)
	for i := range dst.F32[frame.ComponentY] {
		y := float64(dst.F32[frame.ComponentY][i])
		cb := float64(dst.F32[frame.ComponentU][i])
		cr := float64(dst.F32[frame.ComponentV][i])
		rgb := invMat.Mul([3]float64{y, cb, cr})
		back.F32[frame.ComponentY][i] = float32(rgb[0])
		back.F32[frame.ComponentU][i] = float32(rgb[1])
		back.F32[frame.ComponentV][i] = float32(rgb[2])
	}
	for i := range src.F32[frame.ComponentY] {
		if math.Abs(float64(back.F32[frame.ComponentY][i])-float64(src.F32[frame.ComponentY][i])) > 1e-6 {
			t.Errorf("round trip R drifted at %d", i)
		}
	}
}

func TestFVDOExactInvertibility(t *testing.T) {
	for _, sub := range []FVDOMode{FVDOV1, FVDOV2, FVDOV3, FVDOV4} {
		f := &FVDO{SubMode: sub}
		src := frame.New(format444(4, 4, false))
		for i := range src.U16[frame.ComponentY] {
			src.U16[frame.ComponentY][i] = uint16(100 + i*3)
			src.U16[frame.ComponentU][i] = uint16(200 + i*5)
			src.U16[frame.ComponentV][i] = uint16(300 + i*7)
		}
		lifted := frame.New(format444(4, 4, false))
		if err := f.Forward(src, lifted); err != nil {
			t.Fatalf("sub %v Forward: %v", sub, err)
		}
		back := frame.New(format444(4, 4, false))
		if err := f.Inverse(lifted, back); err != nil {
			t.Fatalf("sub %v Inverse: %v", sub, err)
		}
		for i := range src.U16[frame.ComponentY] {
			if back.U16[frame.ComponentY][i] != src.U16[frame.ComponentY][i] ||
				back.U16[frame.ComponentU][i] != src.U16[frame.ComponentU][i] ||
				back.U16[frame.ComponentV][i] != src.U16[frame.ComponentV][i] {
				t.Fatalf("sub %v: lossless round trip failed at %d", sub, i)
			}
		}
	}
}

func TestClosedLoopBisectMonotonicityAndGridAlignment(t *testing.T) {
	cl := &ClosedLoop{
		Mode:          ModeRGB709_YUV709,
		TF:            transfer.Create(transfer.BT1886, false),
		MaxIterations: 30,
		TFDistance:    true,
		Range:         frame.RangeStandard,
	}
	m := ForwardMatrix(cl.Mode, 0)
	mInv := m.Invert()
	kR, kG, kB := m[0][0], m[0][1], m[0][2]
	r, g, b := 0.7, 0.4, 0.2
	yTrue := kR*r + kG*g + kB*b
	lumaWeight, _, _, _ := weightsForRange(10, frame.RangeStandard)

	res := cl.bisect(yTrue, 0.1, -0.1, mInv, kR, kG, kB, r, g, b, 30, lumaWeight)
	if res.yMin > res.yMax {
		t.Fatalf("bisection bracket inverted: min=%v max=%v", res.yMin, res.yMax)
	}
	if res.yFinal < res.yMin || res.yFinal > res.yMax {
		t.Fatalf("chosen Y' %v outside bracket [%v,%v]", res.yFinal, res.yMin, res.yMax)
	}
	scaled := res.yFinal * lumaWeight
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		t.Fatalf("chosen Y' %v is not a multiple of 1/lumaWeight", res.yFinal)
	}
}

func TestCLForwardInverseRoundTrip(t *testing.T) {
	cl := &CL{Mode: ModeRGB2020_YUV2020, TF: transfer.Create(transfer.PQ, false)}
	src := frame.New(format444(4, 4, true))
	for i := range src.F32[frame.ComponentY] {
		src.F32[frame.ComponentY][i] = 0.5
		src.F32[frame.ComponentU][i] = 0.3
		src.F32[frame.ComponentV][i] = 0.2
	}
	ycc := frame.New(format444(4, 4, true))
	if err := cl.Forward(src, ycc); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	back := frame.New(format444(4, 4, true))
	if err := cl.Inverse(ycc, back); err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	for i := range src.F32[frame.ComponentY] {
		if math.Abs(float64(back.F32[frame.ComponentY][i])-float64(src.F32[frame.ComponentY][i])) > 1e-4 {
			t.Errorf("CL round trip R drifted at %d: got %v want %v", i, back.F32[frame.ComponentY][i], src.F32[frame.ComponentY][i])
		}
	}
}
