package spg290

import "testing"

func TestFlagsPackUnpackRoundTrip(t *testing.T) {
	cases := []Flags{
		{},
		{N: true},
		{N: true, Z: true, C: true, V: true, T: true},
		{C: true, T: true},
	}
	for _, f := range cases {
		got := UnpackFlags(f.Pack())
		if got != f {
			t.Fatalf("UnpackFlags(Pack(%+v)) = %+v, want unchanged", f, got)
		}
	}
}

func TestAddFlagsCarryOverflow(t *testing.T) {
	tests := []struct {
		a, b       uint32
		result     uint32
		c, v       bool
	}{
		{1, 1, 2, false, false},
		{0xFFFFFFFF, 1, 0, true, false},
		{0x7FFFFFFF, 1, 0x80000000, false, true},
		{0x80000000, 0x80000000, 0, true, true},
	}
	for _, tc := range tests {
		result, c, v := addFlags(tc.a, tc.b)
		if result != tc.result || c != tc.c || v != tc.v {
			t.Fatalf("addFlags(0x%X, 0x%X) = (0x%X, %v, %v), want (0x%X, %v, %v)",
				tc.a, tc.b, result, c, v, tc.result, tc.c, tc.v)
		}
	}
}

func TestSubFlagsBorrow(t *testing.T) {
	tests := []struct {
		a, b   uint32
		result uint32
		c, v   bool
	}{
		{5, 3, 2, true, false},
		{3, 5, 0xFFFFFFFE, false, false},
		{0x80000000, 1, 0x7FFFFFFF, true, true},
	}
	for _, tc := range tests {
		result, c, v := subFlags(tc.a, tc.b)
		if result != tc.result || c != tc.c || v != tc.v {
			t.Fatalf("subFlags(0x%X, 0x%X) = (0x%X, %v, %v), want (0x%X, %v, %v)",
				tc.a, tc.b, result, c, v, tc.result, tc.c, tc.v)
		}
	}
}

func TestConditionCodeEvaluate(t *testing.T) {
	f := Flags{Z: true, N: false, C: true, V: false}
	tests := []struct {
		cc   ConditionCode
		want bool
	}{
		{CondEQ, true},
		{CondNE, false},
		{CondCS, true},
		{CondCC, false},
		{CondGE, true}, // N == V
		{CondLT, false},
		{CondAL, true},
	}
	for _, tc := range tests {
		if got := tc.cc.Evaluate(f); got != tc.want {
			t.Fatalf("cc=%d.Evaluate(%+v) = %v, want %v", tc.cc, f, got, tc.want)
		}
	}
}

func TestSignExtend(t *testing.T) {
	if got := signExtend(0x1FF, 9); got != 0xFFFFFFFF {
		t.Fatalf("signExtend(0x1FF, 9) = 0x%X, want 0xFFFFFFFF", got)
	}
	if got := signExtend(0x0FF, 9); got != 0xFF {
		t.Fatalf("signExtend(0x0FF, 9) = 0x%X, want 0xFF", got)
	}
}
