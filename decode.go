// decode.go - instruction field extraction for the 32-bit and 16-bit encodings
//
// The architectural manual this core is modelled on (spec.md §9's "encoding
// table cited in §9") was not available to this implementation; where
// spec.md leaves a bit-exact layout unresolved (the B-form displacement
// split, the OP=0x18..0x1F compact dispatch, the CR-form 0x01 sub-opcode)
// this file adopts the single, explicit choice recorded in DESIGN.md's Open
// Question decisions and sticks to it consistently, rather than guessing a
// different layout in each call site.
//
// License: GPLv3 or later

package spg290

// Top-level opcode field, bits [31:27] of every 32-bit instruction slot.
func opOf(slot uint32) uint8 { return uint8(slot >> 27) }

func bitsOf(slot uint32, hi, lo uint) uint32 {
	width := hi - lo + 1
	mask := uint32(1)<<width - 1
	return (slot >> lo) & mask
}

// spForm decodes OP=0x00: rD, rA, rB, func6, CU.
type spForm struct {
	rD, rA, rB uint8
	func6      uint8
	cu         bool
}

func decodeSPForm(slot uint32) spForm {
	return spForm{
		rD:    uint8(bitsOf(slot, 26, 22)),
		rA:    uint8(bitsOf(slot, 21, 17)),
		rB:    uint8(bitsOf(slot, 16, 12)),
		func6: uint8(bitsOf(slot, 11, 6)),
		cu:    bitsOf(slot, 5, 5) != 0,
	}
}

// iForm decodes OP=0x01/0x05: rD, 3-bit function, 16-bit immediate.
type iForm struct {
	rD    uint8
	func3 uint8
	imm16 uint32
}

func decodeIForm(slot uint32) iForm {
	return iForm{
		rD:    uint8(bitsOf(slot, 26, 22)),
		func3: uint8(bitsOf(slot, 21, 19)),
		imm16: bitsOf(slot, 18, 3),
	}
}

// jForm decodes OP=0x02: 24-bit displacement, link bit.
type jForm struct {
	disp24 uint32
	link   bool
}

func decodeJForm(slot uint32) jForm {
	return jForm{
		disp24: bitsOf(slot, 26, 3),
		link:   bitsOf(slot, 2, 2) != 0,
	}
}

// rixForm decodes OP=0x03/0x07: rD, rA, signed 12-bit displacement, 3-bit
// function selecting width/sign.
type rixForm struct {
	rD, rA uint8
	disp12 uint32 // raw, sign-extend with signExtend(disp12, 12)
	func3  uint8
}

func decodeRIXForm(slot uint32) rixForm {
	return rixForm{
		rD:     uint8(bitsOf(slot, 26, 22)),
		rA:     uint8(bitsOf(slot, 21, 17)),
		disp12: bitsOf(slot, 16, 5),
		func3:  uint8(bitsOf(slot, 4, 2)),
	}
}

// bForm decodes OP=0x04: 4-bit condition code, 22-bit displacement (spread
// across a high 18-bit field and a low 4-bit field, per the Open Question
// decision in DESIGN.md), 1-bit link.
type bForm struct {
	cc     ConditionCode
	disp22 uint32 // raw 22-bit value, sign-extend with signExtend(disp22, 22)
	link   bool
}

func decodeBForm(slot uint32) bForm {
	cc := ConditionCode(bitsOf(slot, 26, 23))
	hi := bitsOf(slot, 22, 5)
	lo := bitsOf(slot, 4, 1)
	disp := (hi << 4) | lo
	return bForm{
		cc:     cc,
		disp22: disp,
		link:   bitsOf(slot, 0, 0) != 0,
	}
}

// crForm decodes OP=0x06: mfcr/mtcr/rte between rD and crA.
type crForm struct {
	rD, crA uint8
	subop   uint8
}

func decodeCRForm(slot uint32) crForm {
	return crForm{
		rD:    uint8(bitsOf(slot, 26, 22)),
		crA:   uint8(bitsOf(slot, 21, 17)),
		subop: uint8(bitsOf(slot, 16, 9)),
	}
}

const (
	crSubMfcr = 0x00
	crSubMtcr = 0x01
	crSubRte  = 0x84
)

// immForm decodes OP=0x08..0x0F (ADDRI/ANDRI/ORRI) and OP=0x10..0x17
// (memory-form): rD, rA, signed immediate. The immediate width differs
// (14 bits vs 15 bits) so callers sign-extend with the appropriate width.
type immForm struct {
	rD, rA uint8
	imm    uint32
}

func decodeImm14Form(slot uint32) immForm {
	return immForm{
		rD:  uint8(bitsOf(slot, 26, 22)),
		rA:  uint8(bitsOf(slot, 21, 17)),
		imm: bitsOf(slot, 16, 3),
	}
}

func decodeImm15Form(slot uint32) immForm {
	return immForm{
		rD:  uint8(bitsOf(slot, 26, 22)),
		rA:  uint8(bitsOf(slot, 21, 17)),
		imm: bitsOf(slot, 16, 2),
	}
}

// --- 16-bit compact encodings (OP=0x18..0x1F) ---
//
// A fetch slot in this range holds two independent 16-bit half-instructions
// in its high and low 16 bits (execCompact runs the low half first). Each half's top bit is its parallel-mode flag (p0/p1 in
// the glossary); the next 3 bits select one of eight 16-bit formats, and the
// low 12 bits carry that format's operands. Per the Open Question decision,
// the fetch itself stays a single read32(PC) — the halves are never
// re-fetched as independent 16-bit reads.
type half16 struct {
	parallel bool
	format   uint8
	rD, rA   uint8 // 3-bit compact register fields (r0..r7), where applicable
	imm      uint32
}

func decodeHalf16(h uint16) half16 {
	return half16{
		parallel: h&0x8000 != 0,
		format:   uint8((h >> 12) & 0x07),
		rD:       uint8((h >> 9) & 0x07),
		rA:       uint8((h >> 6) & 0x07),
		imm:      uint32(h & 0x3F),
	}
}

// The eight 16-bit format families named in spec.md §4.7.
const (
	fmtMoveBranch  = 0 // move / branch-and-link via register
	fmtCETransfer  = 1 // mfce/mtce compact transfer
	fmtALUStack    = 2 // register-register ALU, push/pop
	fmtDirectJump  = 3 // unconditional jump, 9-bit displacement
	fmtCondBranch  = 4 // conditional branch, 6-bit displacement
	fmtLoadImm     = 5 // load immediate into a compact register
	fmtShiftBit    = 6 // shift / bit test on a compact register
	fmtSPRelMemory = 7 // stack-pointer-relative load/store
)

// isValidInstruction reports whether slot decodes to an instruction this
// ISA actually defines, mirroring cpu.go's Step dispatch: a top-level
// opcode together with whatever sub-field that opcode relies on (SP-form
// func6, CR-form subop, the ADDRI/ANDRI/ORRI op-select) must itself be one
// of the assigned values. opOf(slot) alone cannot discriminate validity:
// every value 0x00-0x1F is a defined top-level opcode, so real invalidity
// lives one level down, in these sub-fields. Used by engine.go's loader for
// both endianness detection and the post-load entry-point probe; has no
// side effects and does not execute the instruction.
func isValidInstruction(slot uint32) bool {
	op := opOf(slot)
	switch {
	case op == 0x00:
		return decodeSPForm(slot).func6 <= fnBRCC
	case op == 0x01:
		return decodeIForm(slot).func3 <= 0x06
	case op == 0x06:
		subop := decodeCRForm(slot).subop
		return subop == crSubMfcr || subop == crSubMtcr || subop == crSubRte
	case op >= 0x08 && op <= 0x0F:
		return op&0x07 <= 0x02
	default:
		// op == 0x02 (J-form), 0x03/0x07 (RIX-form), 0x04 (B-form), 0x05
		// (upper-immediate I-form), 0x10..0x17 (memory-form) and 0x18..0x1F
		// (16-bit compact) take every bit pattern their operand fields allow,
		// so any slot reaching this opcode decodes to something defined.
		return true
	}
}
