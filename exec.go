// exec.go - per-form instruction execution bodies, dispatched from cpu.go's Step
//
// License: GPLv3 or later

package spg290

import "math/bits"

func (cpu *CPU) setNZCV(result uint32, c, v bool) {
	n, z := nzFlags(result)
	cpu.flags.N, cpu.flags.Z, cpu.flags.C, cpu.flags.V = n, z, c, v
}

func (cpu *CPU) setNZ(result uint32) {
	n, z := nzFlags(result)
	cpu.flags.N, cpu.flags.Z = n, z
}

// SP-form function codes (OP=0x00), assigned per DESIGN.md's bit-layout
// choice; fnCMP's value (0x0C) is load-bearing for scenario S3.
const (
	fnADD    = 0x00
	fnADDC   = 0x01
	fnSUB    = 0x02
	fnSUBC   = 0x03
	fnNEG    = 0x04
	fnAND    = 0x05
	fnOR     = 0x06
	fnXOR    = 0x07
	fnNOT    = 0x08
	fnSLL    = 0x09
	fnSRL    = 0x0A
	fnSRA    = 0x0B
	fnCMP    = 0x0C
	fnCMPZ   = 0x0D
	fnROR    = 0x0E
	fnROL    = 0x0F
	fnRORC   = 0x10
	fnROLC   = 0x11
	fnBITCLR = 0x12
	fnBITSET = 0x13
	fnBITTGL = 0x14
	fnBITTST = 0x15
	fnEXTSB  = 0x16
	fnEXTSH  = 0x17
	fnEXTZB  = 0x18
	fnEXTZH  = 0x19
	fnMUL    = 0x1A
	fnMULU   = 0x1B
	fnDIV    = 0x1C
	fnDIVU   = 0x1D
	fnMFCE   = 0x1E
	fnMTCE   = 0x1F
	fnMFSR   = 0x20
	fnMTSR   = 0x21
	fnBRCC   = 0x22
)

func rotateRightThroughCarry(a, amt uint32, cIn bool) (uint32, bool) {
	amt %= 33
	val := uint64(a)
	if cIn {
		val |= 1 << 32
	}
	for i := uint32(0); i < amt; i++ {
		lsb := val & 1
		val >>= 1
		if lsb != 0 {
			val |= 1 << 32
		}
	}
	return uint32(val), val&(1<<32) != 0
}

func rotateLeftThroughCarry(a, amt uint32, cIn bool) (uint32, bool) {
	amt %= 33
	val := uint64(a)
	if cIn {
		val |= 1 << 32
	}
	for i := uint32(0); i < amt; i++ {
		msb := (val >> 32) & 1
		val = (val << 1) & 0x1FFFFFFFF
		if msb != 0 {
			val |= 1
		}
	}
	return uint32(val), val&(1<<32) != 0
}

// execSPForm executes OP=0x00. Returns true if control transferred (br[cc]
// taken), in which case Step must not perform the default PC+4 advance.
func (cpu *CPU) execSPForm(slot uint32) bool {
	f := decodeSPForm(slot)
	a, b := cpu.R[f.rA], cpu.R[f.rB]

	applyNZCV := func(result uint32, c, v bool) {
		cpu.R[f.rD] = result
		if f.cu {
			cpu.setNZCV(result, c, v)
		}
	}
	applyNZ := func(result uint32) {
		cpu.R[f.rD] = result
		if f.cu {
			cpu.setNZ(result)
		}
	}

	switch f.func6 {
	case fnADD:
		result, c, v := addFlags(a, b)
		applyNZCV(result, c, v)
	case fnADDC:
		result, c, v := addcFlags(a, b, cpu.flags.C)
		applyNZCV(result, c, v)
	case fnSUB:
		result, c, v := subFlags(a, b)
		applyNZCV(result, c, v)
	case fnSUBC:
		result, c, v := subcFlags(a, b, cpu.flags.C)
		applyNZCV(result, c, v)
	case fnNEG:
		result, c, v := subFlags(0, a)
		applyNZCV(result, c, v)
	case fnAND:
		applyNZ(a & b)
	case fnOR:
		applyNZ(a | b)
	case fnXOR:
		applyNZ(a ^ b)
	case fnNOT:
		applyNZ(^a)
	case fnSLL:
		applyNZ(a << (b & 0x1F))
	case fnSRL:
		applyNZ(a >> (b & 0x1F))
	case fnSRA:
		applyNZ(uint32(int32(a) >> (b & 0x1F)))
	case fnROR:
		applyNZ(bits.RotateLeft32(a, -int(b&0x1F)))
	case fnROL:
		applyNZ(bits.RotateLeft32(a, int(b&0x1F)))
	case fnRORC:
		result, c := rotateRightThroughCarry(a, b&0x1F, cpu.flags.C)
		cpu.R[f.rD] = result
		if f.cu {
			n, z := nzFlags(result)
			cpu.flags.N, cpu.flags.Z, cpu.flags.C = n, z, c
		}
	case fnROLC:
		result, c := rotateLeftThroughCarry(a, b&0x1F, cpu.flags.C)
		cpu.R[f.rD] = result
		if f.cu {
			n, z := nzFlags(result)
			cpu.flags.N, cpu.flags.Z, cpu.flags.C = n, z, c
		}
	case fnBITCLR:
		applyNZ(a &^ (1 << (b & 0x1F)))
	case fnBITSET:
		applyNZ(a | (1 << (b & 0x1F)))
	case fnBITTGL:
		applyNZ(a ^ (1 << (b & 0x1F)))
	case fnBITTST:
		mask := uint32(1) << (b & 0x1F)
		cpu.flags.T = a&mask != 0
		cpu.flags.Z = !cpu.flags.T
	case fnEXTSB:
		applyNZ(signExtend(a&0xFF, 8))
	case fnEXTSH:
		applyNZ(signExtend(a&0xFFFF, 16))
	case fnEXTZB:
		applyNZ(a & 0xFF)
	case fnEXTZH:
		applyNZ(a & 0xFFFF)
	case fnMUL:
		p := int64(int32(a)) * int64(int32(b))
		cpu.CEL, cpu.CEH = uint32(p), uint32(uint64(p)>>32)
	case fnMULU:
		p := uint64(a) * uint64(b)
		cpu.CEL, cpu.CEH = uint32(p), uint32(p>>32)
	case fnDIV:
		if b != 0 {
			cpu.CEL = uint32(int32(a) / int32(b))
			cpu.CEH = uint32(int32(a) % int32(b))
		}
	case fnDIVU:
		if b != 0 {
			cpu.CEL = a / b
			cpu.CEH = a % b
		}
	case fnMFCE:
		sel := f.rB & 0x3
		switch sel {
		case 1:
			cpu.R[f.rD] = cpu.CEL
		case 2:
			cpu.R[f.rD] = cpu.CEH
		case 3:
			cpu.R[f.rD] = cpu.CEL
			cpu.R[(f.rD+1)&0x1F] = cpu.CEH
		}
	case fnMTCE:
		sel := f.rB & 0x3
		src := cpu.R[f.rA]
		switch sel {
		case 1:
			cpu.CEL = src
		case 2:
			cpu.CEH = src
		case 3:
			cpu.CEL = src
			cpu.CEH = cpu.R[(f.rA+1)&0x1F]
		}
	case fnMFSR:
		cpu.R[f.rD] = cpu.ReadSR(f.rB & 0x1F)
	case fnMTSR:
		cpu.WriteSR(f.rB&0x1F, a)
	case fnCMP:
		cc := ConditionCode(f.rD & 0x0F)
		result, c, v := subFlags(a, b)
		n, z := nzFlags(result)
		cpu.flags.N, cpu.flags.Z, cpu.flags.C, cpu.flags.V = n, z, c, v
		cpu.flags.T = cc.Evaluate(cpu.flags)
	case fnCMPZ:
		cc := ConditionCode(f.rD & 0x0F)
		result, c, v := subFlags(a, 0)
		n, z := nzFlags(result)
		cpu.flags.N, cpu.flags.Z, cpu.flags.C, cpu.flags.V = n, z, c, v
		cpu.flags.T = cc.Evaluate(cpu.flags)
	case fnBRCC:
		cc := ConditionCode(f.rD & 0x0F)
		link := f.rD&0x10 != 0
		if !cc.Evaluate(cpu.flags) {
			return false
		}
		if link {
			cpu.R[3] = cpu.PC + 4
		}
		cpu.PC = a
		return true
	default:
		cpu.RaiseException(InvalidInstructionCause)
		return true
	}
	return false
}

// execIForm executes OP=0x01 (upper=false) and OP=0x05 (upper=true).
func (cpu *CPU) execIForm(slot uint32, upper bool) {
	f := decodeIForm(slot)
	if upper {
		cpu.R[f.rD] = f.imm16 << 16
		return
	}
	switch f.func3 {
	case 0: // ldi
		cpu.R[f.rD] = signExtend(f.imm16, 16)
	case 1: // addi
		cpu.R[f.rD] = cpu.R[f.rD] + signExtend(f.imm16, 16)
	case 2: // cmpi (unsigned immediate)
		result, c, v := subFlags(cpu.R[f.rD], f.imm16)
		n, z := nzFlags(result)
		cpu.flags.N, cpu.flags.Z, cpu.flags.C, cpu.flags.V = n, z, c, v
	case 3: // cmpis (signed immediate)
		result, c, v := subFlags(cpu.R[f.rD], signExtend(f.imm16, 16))
		n, z := nzFlags(result)
		cpu.flags.N, cpu.flags.Z, cpu.flags.C, cpu.flags.V = n, z, c, v
	case 4: // andi
		cpu.R[f.rD] &= f.imm16
	case 5: // ori
		cpu.R[f.rD] |= f.imm16
	case 6: // xori
		cpu.R[f.rD] ^= f.imm16
	}
}

func (cpu *CPU) execJForm(slot uint32) bool {
	f := decodeJForm(slot)
	target := (cpu.PC & 0xFE000000) | (f.disp24 << 1)
	if f.link {
		cpu.R[3] = cpu.PC + 4
	}
	cpu.PC = target
	return true
}

// busRead8/16/32 and busWrite8/16/32 are mutex-guarded MIU accessors for
// load/store execution, matching cpu_ie32.go's locking discipline.
func (cpu *CPU) busRead8(addr uint32) uint8 {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	return cpu.miu.Read8(addr)
}
func (cpu *CPU) busRead16(addr uint32) uint16 {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	return cpu.miu.Read16(addr)
}
func (cpu *CPU) busRead32(addr uint32) uint32 {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	return cpu.miu.Read32(addr)
}
func (cpu *CPU) busWrite8(addr uint32, v uint8) {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	cpu.miu.Write8(addr, v)
}
func (cpu *CPU) busWrite16(addr uint32, v uint16) {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	cpu.miu.Write16(addr, v)
}
func (cpu *CPU) busWrite32(addr uint32, v uint32) {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	cpu.miu.Write32(addr, v)
}

// doMemOp implements the eight load/store width-and-sign variants shared by
// RIX-form and memory-form, keyed by a 3-bit selector: 0=LB 1=LBU 2=LH
// 3=LHU 4=LW 5=SB 6=SH 7=SW.
func (cpu *CPU) doMemOp(sub uint8, rD uint8, addr uint32) {
	switch sub {
	case 0:
		cpu.R[rD] = signExtend(uint32(cpu.busRead8(addr)), 8)
	case 1:
		cpu.R[rD] = uint32(cpu.busRead8(addr))
	case 2:
		cpu.R[rD] = signExtend(uint32(cpu.busRead16(addr &^ 1)), 16)
	case 3:
		cpu.R[rD] = uint32(cpu.busRead16(addr &^ 1))
	case 4:
		cpu.R[rD] = cpu.busRead32(addr &^ 3)
	case 5:
		cpu.busWrite8(addr, byte(cpu.R[rD]))
	case 6:
		cpu.busWrite16(addr&^1, uint16(cpu.R[rD]))
	case 7:
		cpu.busWrite32(addr&^3, cpu.R[rD])
	}
}

// execRIXForm executes OP=0x03 (writeback=true) and OP=0x07 (writeback=false).
func (cpu *CPU) execRIXForm(slot uint32, writeback bool) {
	f := decodeRIXForm(slot)
	addr := cpu.R[f.rA] + signExtend(f.disp12, 12)
	cpu.doMemOp(f.func3, f.rD, addr)
	if writeback {
		cpu.R[f.rA] = addr
	}
}

func (cpu *CPU) execBForm(slot uint32) bool {
	f := decodeBForm(slot)
	if !f.cc.Evaluate(cpu.flags) {
		return false
	}
	if f.link {
		cpu.R[3] = cpu.PC + 4
	}
	cpu.PC = cpu.PC + (signExtend(f.disp22, 22) << 1)
	return true
}

func (cpu *CPU) execCRForm(slot uint32) bool {
	f := decodeCRForm(slot)
	switch f.subop {
	case crSubMfcr:
		cpu.R[f.rD] = cpu.CR[f.crA]
		return false
	case crSubMtcr:
		cpu.CR[f.crA] = cpu.R[f.rD]
		return false
	case crSubRte:
		cpu.ReturnFromException()
		return true
	default:
		cpu.RaiseException(InvalidInstructionCause)
		return true
	}
}

// execImmALUForm executes OP=0x08..0x0F: rD = rA op sign-extended imm14.
func (cpu *CPU) execImmALUForm(slot uint32, sub uint8) {
	f := decodeImm14Form(slot)
	imm := signExtend(f.imm, 14)
	switch sub {
	case 0: // addri
		cpu.R[f.rD] = cpu.R[f.rA] + imm
	case 1: // andri
		cpu.R[f.rD] = cpu.R[f.rA] & imm
	case 2: // orri
		cpu.R[f.rD] = cpu.R[f.rA] | imm
	}
}

// execMemoryForm executes OP=0x10..0x17: the general load/store with a
// 15-bit immediate displacement.
func (cpu *CPU) execMemoryForm(slot uint32, sub uint8) {
	f := decodeImm15Form(slot)
	addr := cpu.R[f.rA] + signExtend(f.imm, 15)
	cpu.doMemOp(sub, f.rD, addr)
}

// execCompact executes OP=0x18..0x1F: one 32-bit fetch slot holding two
// 16-bit half-instructions. When both halves flag parallel mode, both read
// the pre-instruction register file (via snapshot) and their results are
// applied together; otherwise they execute sequentially, low half first.
func (cpu *CPU) execCompact(slot uint32) bool {
	hi := decodeHalf16(uint16(slot >> 16))
	lo := decodeHalf16(uint16(slot))

	if hi.parallel && lo.parallel {
		snapshot := cpu.R
		b1 := cpu.execHalf(lo, &snapshot)
		b2 := cpu.execHalf(hi, &snapshot)
		return b1 || b2
	}
	b1 := cpu.execHalf(lo, nil)
	b2 := cpu.execHalf(hi, nil)
	return b1 || b2
}

// execHalf executes one 16-bit half-instruction. When src is non-nil
// (parallel mode), register reads come from the pre-instruction snapshot
// rather than cpu.R, which may already carry the other half's result.
func (cpu *CPU) execHalf(h half16, src *[32]uint32) bool {
	read := func(i uint8) uint32 {
		if src != nil {
			return src[i&0x1F]
		}
		return cpu.R[i&0x1F]
	}

	switch h.format {
	case fmtMoveBranch:
		if h.imm&1 != 0 {
			target := read(h.rA)
			cpu.R[3] = cpu.PC + 4
			cpu.PC = target
			return true
		}
		cpu.R[h.rD] = read(h.rA)

	case fmtCETransfer:
		sel := h.imm & 0x3
		if h.rA&1 != 0 { // mtce: register(s) -> CE
			v := read(h.rD)
			switch sel {
			case 1:
				cpu.CEL = v
			case 2:
				cpu.CEH = v
			case 3:
				cpu.CEL = v
				cpu.CEH = read((h.rD + 1) & 7)
			}
		} else { // mfce: CE -> register(s)
			switch sel {
			case 1:
				cpu.R[h.rD] = cpu.CEL
			case 2:
				cpu.R[h.rD] = cpu.CEH
			case 3:
				cpu.R[h.rD] = cpu.CEL
				cpu.R[(h.rD+1)&7] = cpu.CEH
			}
		}

	case fmtALUStack:
		a, b := read(h.rD), read(h.rA)
		switch h.imm & 0x7 {
		case 0:
			result, c, v := addFlags(a, b)
			cpu.R[h.rD] = result
			cpu.setNZCV(result, c, v)
		case 1:
			result, c, v := subFlags(a, b)
			cpu.R[h.rD] = result
			cpu.setNZCV(result, c, v)
		case 2:
			cpu.R[h.rD] = a & b
			cpu.setNZ(a & b)
		case 3:
			cpu.R[h.rD] = a | b
			cpu.setNZ(a | b)
		case 4:
			cpu.R[h.rD] = a ^ b
			cpu.setNZ(a ^ b)
		case 5: // push rA-slot value
			sp := read(29) - 4
			cpu.R[29] = sp
			cpu.busWrite32(sp, b)
		case 6: // pop into rD-slot
			sp := read(29)
			cpu.R[h.rD] = cpu.busRead32(sp)
			cpu.R[29] = sp + 4
		case 7: // cmp
			result, c, v := subFlags(a, b)
			n, z := nzFlags(result)
			cpu.flags.N, cpu.flags.Z, cpu.flags.C, cpu.flags.V = n, z, c, v
		}

	case fmtDirectJump:
		disp9 := (uint32(h.rD) << 6) | (uint32(h.rA) << 3) | (h.imm & 0x7)
		cpu.PC = cpu.PC + (signExtend(disp9, 9) << 1)
		return true

	case fmtCondBranch:
		cc := ConditionCode(h.rD)
		if cc.Evaluate(cpu.flags) {
			disp6 := (uint32(h.rA) << 3) | (h.imm & 0x7)
			cpu.PC = cpu.PC + (signExtend(disp6, 6) << 1)
			return true
		}

	case fmtLoadImm:
		imm9 := (uint32(h.rA) << 6) | h.imm
		cpu.R[h.rD] = imm9

	case fmtShiftBit:
		a := read(h.rD)
		op := h.imm & 0x7
		amt := (h.imm >> 3) & 0x7
		switch op {
		case 0:
			cpu.R[h.rD] = a << amt
		case 1:
			cpu.R[h.rD] = a >> amt
		case 2:
			cpu.R[h.rD] = uint32(int32(a) >> amt)
		case 3:
			cpu.R[h.rD] = bits.RotateLeft32(a, -int(amt))
		case 4:
			mask := uint32(1) << amt
			cpu.flags.T = a&mask != 0
			cpu.flags.Z = !cpu.flags.T
		case 5:
			cpu.R[h.rD] = a | (1 << amt)
		case 6:
			cpu.R[h.rD] = a &^ (1 << amt)
		case 7:
			cpu.R[h.rD] = a ^ (1 << amt)
		}

	case fmtSPRelMemory:
		store := h.rA&0x4 != 0
		off := (((uint32(h.rA) & 0x3) << 6) | h.imm) << 2
		addr := read(29) + off
		if store {
			cpu.busWrite32(addr, read(h.rD))
		} else {
			cpu.R[h.rD] = cpu.busRead32(addr)
		}
	}
	return false
}
