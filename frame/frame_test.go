package frame

import "testing"

func baseFormat() Format {
	f := Format{
		ChromaFormat: Format420,
		BitDepth:     [4]int{10, 10, 10, 0},
		SampleRange:  RangeStandard,
	}
	f.Width[ComponentY], f.Height[ComponentY] = 16, 8
	f.DeriveChromaPlanes()
	return f
}

func TestDeriveChromaPlanes420(t *testing.T) {
	f := baseFormat()
	if f.Width[ComponentU] != 8 || f.Height[ComponentU] != 4 {
		t.Errorf("420 chroma sizing wrong: got %dx%d", f.Width[ComponentU], f.Height[ComponentU])
	}
}

func TestDeriveChromaPlanes400(t *testing.T) {
	f := baseFormat()
	f.ChromaFormat = Format400
	f.DeriveChromaPlanes()
	if f.Width[ComponentU] != 0 || f.Width[ComponentV] != 0 {
		t.Errorf("400 must zero chroma planes, got %d/%d", f.Width[ComponentU], f.Width[ComponentV])
	}
}

func TestNewFrameAllocatesExactlyOnePayload(t *testing.T) {
	fr := New(baseFormat())
	// New zero-fills planes, which is below a Standard-range minPel; give
	// every live plane its minPel so Validate sees legal samples.
	for c := range fr.U16 {
		for i := range fr.U16[c] {
			fr.U16[c][i] = uint16(fr.MinPelValue[c])
		}
	}
	if err := fr.Validate("test"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(fr.U16[ComponentY]) == 0 {
		t.Errorf("expected U16 payload for 10-bit integer frame")
	}
	if len(fr.U8[ComponentY]) != 0 || len(fr.F32[ComponentY]) != 0 {
		t.Errorf("expected only one live payload")
	}
}

func TestEqualType(t *testing.T) {
	a := New(baseFormat())
	b := New(baseFormat())
	if err := RequireEqualType("test", a, b); err != nil {
		t.Fatalf("expected equal-typed frames: %v", err)
	}

	c := New(baseFormat())
	c.Format.ChromaFormat = Format444
	c.Format.DeriveChromaPlanes()
	if err := RequireEqualType("test", a, c); err == nil {
		t.Fatalf("expected TypeMismatch for differing chroma format")
	}
}

func TestStandardRangeLumaChromaWeights(t *testing.T) {
	fr := New(baseFormat())
	// 10-bit Standard: luma [64,940), chroma [64,960), derived from the
	// 8-bit bases (16,219 luma; 16,224 chroma) scaled by 2^(bitDepth-8) = 4.
	if fr.MinPelValue[ComponentY] != 16*4 {
		t.Errorf("luma min = %v, want %v", fr.MinPelValue[ComponentY], 16*4)
	}
	if fr.MaxPelValue[ComponentY] != 16*4+219*4-1 {
		t.Errorf("luma max = %v, want %v", fr.MaxPelValue[ComponentY], 16*4+219*4-1)
	}
}

func TestValidateDetectsOutOfRangeSample(t *testing.T) {
	fr := New(baseFormat())
	fr.U16[ComponentY][0] = 65535
	if err := fr.Validate("test"); err == nil {
		t.Fatalf("expected DomainError for out-of-range sample")
	}
}
