package spg290

import "testing"

func TestDecodeSPForm(t *testing.T) {
	slot := encodeSP(5, 10, 15, fnADD, true)
	f := decodeSPForm(slot)
	if f.rD != 5 || f.rA != 10 || f.rB != 15 || f.func6 != fnADD || !f.cu {
		t.Fatalf("decodeSPForm = %+v, want rD=5 rA=10 rB=15 func6=%d cu=true", f, fnADD)
	}
}

func TestDecodeIForm(t *testing.T) {
	slot := encodeI(0x01, 7, 3, 0xBEEF)
	f := decodeIForm(slot)
	if f.rD != 7 || f.func3 != 3 || f.imm16 != 0xBEEF {
		t.Fatalf("decodeIForm = %+v, want rD=7 func3=3 imm16=0xBEEF", f)
	}
}

func TestDecodeJForm(t *testing.T) {
	slot := encodeJ(0x123456, true)
	f := decodeJForm(slot)
	if f.disp24 != 0x123456 || !f.link {
		t.Fatalf("decodeJForm = %+v, want disp24=0x123456 link=true", f)
	}
}

func TestDecodeRIXForm(t *testing.T) {
	slot := encodeRIX(0x03, 4, 9, 0xABC, 5)
	f := decodeRIXForm(slot)
	if f.rD != 4 || f.rA != 9 || f.disp12 != 0xABC || f.func3 != 5 {
		t.Fatalf("decodeRIXForm = %+v, want rD=4 rA=9 disp12=0xABC func3=5", f)
	}
}

func TestDecodeBForm(t *testing.T) {
	slot := encodeB(CondEQ, 0x3FFFFE, true)
	f := decodeBForm(slot)
	if f.cc != CondEQ || f.disp22 != 0x3FFFFE || !f.link {
		t.Fatalf("decodeBForm = %+v, want cc=CondEQ disp22=0x3FFFFE link=true", f)
	}
}

func TestDecodeCRForm(t *testing.T) {
	slot := encodeCR(12, 3, crSubMtcr)
	f := decodeCRForm(slot)
	if f.rD != 12 || f.crA != 3 || f.subop != crSubMtcr {
		t.Fatalf("decodeCRForm = %+v, want rD=12 crA=3 subop=mtcr", f)
	}
}

func TestDecodeImmForms(t *testing.T) {
	slot14 := encodeImm14(0x08, 1, 2, 0x1FFF)
	f14 := decodeImm14Form(slot14)
	if f14.rD != 1 || f14.rA != 2 || f14.imm != 0x1FFF {
		t.Fatalf("decodeImm14Form = %+v, want rD=1 rA=2 imm=0x1FFF", f14)
	}

	slot15 := encodeImm15(0x10, 3, 4, 0x3FFF)
	f15 := decodeImm15Form(slot15)
	if f15.rD != 3 || f15.rA != 4 || f15.imm != 0x3FFF {
		t.Fatalf("decodeImm15Form = %+v, want rD=3 rA=4 imm=0x3FFF", f15)
	}
}

func TestDecodeHalf16(t *testing.T) {
	h := encodeHalf16(true, fmtALUStack, 6, 2, 0x1F)
	got := decodeHalf16(h)
	if !got.parallel || got.format != fmtALUStack || got.rD != 6 || got.rA != 2 || got.imm != 0x1F {
		t.Fatalf("decodeHalf16 = %+v, want parallel=true format=%d rD=6 rA=2 imm=0x1F", got, fmtALUStack)
	}
}

func TestOpOf(t *testing.T) {
	if op := opOf(encodeSP(0, 0, 0, fnADD, false)); op != 0x00 {
		t.Fatalf("opOf(SP-form) = 0x%02X, want 0x00", op)
	}
	if op := opOf(encodeImm14(0x0A, 0, 0, 0)); op != 0x0A {
		t.Fatalf("opOf(imm14 op=0x0A) = 0x%02X, want 0x0A", op)
	}
}
