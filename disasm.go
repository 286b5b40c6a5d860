// disasm.go - non-normative pretty-printer for S+core instruction slots
//
// Grounded on debug_disasm_ie32.go's shape (a mnemonic table plus a single
// decode-and-format loop returning []DisassembledLine), generalized from a
// fixed 8-byte instruction to this ISA's 4-byte slot with its SP/I/J/RIX/B/
// CR/immediate/compact forms. Disassembly never drives execution; it exists
// purely for debugger/CLI display and reuses decode.go's field extraction.
//
// License: GPLv3 or later

package spg290

import "fmt"

// DisassembledLine is one decoded instruction, formatted for display.
type DisassembledLine struct {
	Address      uint32
	HexBytes     string
	Mnemonic     string
	Size         int
	IsPC         bool
	IsBranch     bool
	BranchTarget uint32
	HasTarget    bool
}

func regName(i uint8) string { return fmt.Sprintf("r%d", i&0x1F) }

var spMnemonics = map[uint8]string{
	fnADD: "add", fnADDC: "addc", fnSUB: "sub", fnSUBC: "subc", fnNEG: "neg",
	fnAND: "and", fnOR: "or", fnXOR: "xor", fnNOT: "not",
	fnSLL: "sll", fnSRL: "srl", fnSRA: "sra",
	fnCMP: "cmp", fnCMPZ: "cmpz",
	fnROR: "ror", fnROL: "rol", fnRORC: "rorc", fnROLC: "rolc",
	fnBITCLR: "bitclr", fnBITSET: "bitset", fnBITTGL: "bittgl", fnBITTST: "bittst",
	fnEXTSB: "extsb", fnEXTSH: "extsh", fnEXTZB: "extzb", fnEXTZH: "extzh",
	fnMUL: "mul", fnMULU: "mulu", fnDIV: "div", fnDIVU: "divu",
	fnMFCE: "mfce", fnMTCE: "mtce", fnMFSR: "mfsr", fnMTSR: "mtsr",
	fnBRCC: "br",
}

var condNames = map[ConditionCode]string{
	CondCS: "cs", CondCC: "cc", CondHI: "hi", CondLS: "ls",
	CondEQ: "eq", CondNE: "ne", CondGT: "gt", CondLE: "le",
	CondGE: "ge", CondLT: "lt", CondMI: "mi", CondPL: "pl",
	CondVS: "vs", CondVC: "vc", CondT: "t", CondAL: "al",
}

var iFormMnemonics = [7]string{"ldi", "addi", "cmpi", "cmpis", "andi", "ori", "xori"}

var memMnemonics = [8]string{"lb", "lbu", "lh", "lhu", "lw", "sb", "sh", "sw"}

// decodeOne formats the instruction at slot, returning its mnemonic and
// (when it is a direct branch) a resolved target address.
func decodeOne(slot uint32, pc uint32) (mnemonic string, isBranch bool, target uint32, hasTarget bool) {
	op := opOf(slot)
	switch {
	case op == 0x00:
		f := decodeSPForm(slot)
		name, ok := spMnemonics[f.func6]
		if !ok {
			return fmt.Sprintf("dw 0x%08X", slot), false, 0, false
		}
		switch f.func6 {
		case fnCMP, fnCMPZ:
			return fmt.Sprintf("%s.%s %s, %s", name, condNames[ConditionCode(f.rD&0xF)], regName(f.rA), regName(f.rB)), false, 0, false
		case fnBRCC:
			cc := condNames[ConditionCode(f.rD&0xF)]
			link := ""
			if f.rD&0x10 != 0 {
				link = "l"
			}
			return fmt.Sprintf("br%s.%s %s", link, cc, regName(f.rA)), true, 0, false
		case fnNOT, fnEXTSB, fnEXTSH, fnEXTZB, fnEXTZH, fnMFCE, fnMFSR:
			return fmt.Sprintf("%s %s, %s", name, regName(f.rD), regName(f.rA)), false, 0, false
		default:
			return fmt.Sprintf("%s %s, %s, %s", name, regName(f.rD), regName(f.rA), regName(f.rB)), false, 0, false
		}
	case op == 0x01 || op == 0x05:
		f := decodeIForm(slot)
		if op == 0x05 {
			return fmt.Sprintf("lui %s, 0x%04X", regName(f.rD), f.imm16), false, 0, false
		}
		name := "dw"
		if int(f.func3) < len(iFormMnemonics) {
			name = iFormMnemonics[f.func3]
		}
		return fmt.Sprintf("%s %s, 0x%04X", name, regName(f.rD), f.imm16), false, 0, false
	case op == 0x02:
		f := decodeJForm(slot)
		tgt := (pc & 0xFE000000) | (f.disp24 << 1)
		name := "j"
		if f.link {
			name = "jl"
		}
		return fmt.Sprintf("%s 0x%08X", name, tgt), true, tgt, true
	case op == 0x03 || op == 0x07:
		f := decodeRIXForm(slot)
		name := "dw"
		if int(f.func3) < len(memMnemonics) {
			name = memMnemonics[f.func3]
		}
		suffix := ""
		if op == 0x03 {
			suffix = "!"
		}
		return fmt.Sprintf("%s%s %s, [%s, %d]", name, suffix, regName(f.rD), regName(f.rA), int32(signExtend(f.disp12, 12))), false, 0, false
	case op == 0x04:
		f := decodeBForm(slot)
		tgt := pc + (signExtend(f.disp22, 22) << 1)
		name := "b"
		if f.link {
			name = "bl"
		}
		return fmt.Sprintf("%s.%s 0x%08X", name, condNames[f.cc], tgt), true, tgt, true
	case op == 0x06:
		f := decodeCRForm(slot)
		switch f.subop {
		case crSubMfcr:
			return fmt.Sprintf("mfcr %s, cr%d", regName(f.rD), f.crA), false, 0, false
		case crSubMtcr:
			return fmt.Sprintf("mtcr cr%d, %s", f.crA, regName(f.rD)), false, 0, false
		case crSubRte:
			return "rte", true, 0, false
		default:
			return fmt.Sprintf("dw 0x%08X", slot), false, 0, false
		}
	case op >= 0x08 && op <= 0x0F:
		f := decodeImm14Form(slot)
		names := [3]string{"addri", "andri", "orri"}
		sub := op & 0x07
		name := "dw"
		if int(sub) < len(names) {
			name = names[sub]
		}
		return fmt.Sprintf("%s %s, %s, %d", name, regName(f.rD), regName(f.rA), int32(signExtend(f.imm, 14))), false, 0, false
	case op >= 0x10 && op <= 0x17:
		f := decodeImm15Form(slot)
		sub := op & 0x07
		name := "dw"
		if int(sub) < len(memMnemonics) {
			name = memMnemonics[sub]
		}
		return fmt.Sprintf("%s %s, [%s, %d]", name, regName(f.rD), regName(f.rA), int32(signExtend(f.imm, 15))), false, 0, false
	case op >= 0x18 && op <= 0x1F:
		hi := decodeHalf16(uint16(slot >> 16))
		lo := decodeHalf16(uint16(slot))
		return fmt.Sprintf("{%s | %s}", describeHalf(hi), describeHalf(lo)), false, 0, false
	default:
		return fmt.Sprintf("dw 0x%08X", slot), false, 0, false
	}
}

func describeHalf(h half16) string {
	switch h.format {
	case fmtMoveBranch:
		if h.imm&1 != 0 {
			return fmt.Sprintf("jl.16 %s", regName(h.rA))
		}
		return fmt.Sprintf("mov.16 %s, %s", regName(h.rD), regName(h.rA))
	case fmtCETransfer:
		if h.rA&1 != 0 {
			return fmt.Sprintf("mtce.16 %s", regName(h.rD))
		}
		return fmt.Sprintf("mfce.16 %s", regName(h.rD))
	case fmtALUStack:
		ops := [8]string{"add", "sub", "and", "or", "xor", "push", "pop", "cmp"}
		return fmt.Sprintf("%s.16 %s, %s", ops[h.imm&0x7], regName(h.rD), regName(h.rA))
	case fmtDirectJump:
		return "j.16"
	case fmtCondBranch:
		return fmt.Sprintf("b.16.%s", condNames[ConditionCode(h.rD&0x7)])
	case fmtLoadImm:
		return fmt.Sprintf("ldi.16 %s, %d", regName(h.rD), (uint32(h.rA)<<6)|h.imm)
	case fmtShiftBit:
		return fmt.Sprintf("shift.16 %s", regName(h.rD))
	case fmtSPRelMemory:
		return fmt.Sprintf("sp.16 %s", regName(h.rD))
	default:
		return "?.16"
	}
}

// Disassemble decodes count instruction slots starting at addr, reading
// through miu so it observes the same memory a running CPU would. pc marks
// the line whose address equals the current program counter, if any.
func Disassemble(miu *MIU, addr uint32, count int, pc uint32) []DisassembledLine {
	lines := make([]DisassembledLine, 0, count)
	for i := 0; i < count; i++ {
		slot := miu.Read32(addr)
		mnemonic, isBranch, target, hasTarget := decodeOne(slot, addr)
		lines = append(lines, DisassembledLine{
			Address:      addr,
			HexBytes:     fmt.Sprintf("%02X %02X %02X %02X", byte(slot), byte(slot>>8), byte(slot>>16), byte(slot>>24)),
			Mnemonic:     mnemonic,
			Size:         4,
			IsPC:         addr == pc,
			IsBranch:     isBranch,
			BranchTarget: target,
			HasTarget:    hasTarget,
		})
		addr += 4
	}
	return lines
}
