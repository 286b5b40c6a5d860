// cpu.go - S+core interpreter: register file, flags, exceptions, step dispatch
//
// Grounded on cpu_ie32.go's shape: a single struct owning all architectural
// state, mutex-guarded bus access for external (debugger) reads during
// execution, and a `Reset`/`Step` pair rather than a free-standing
// function. Unlike the teacher's fixed 16-register 8-bit-opcode machine,
// this is the S+core ISA of spec.md §4.7: 32 general registers, two
// 32-entry control/system banks, five 1-bit flags, and a 6-bit-cause
// exception vector.
//
// License: GPLv3 or later

package spg290

import "sync"

// Cause code used for undecodable instructions (spec.md §7's "Invalid
// opcode" row): the architectural system trap / sdbbp vector.
const InvalidInstructionCause = 0x3F

// CPU implements spec.md §3's data model and §4.7's interpreter.
type CPU struct {
	// Hot path: fetched and updated on every step.
	PC    uint32
	R     [32]uint32
	flags Flags

	// Control and system register banks.
	CR [32]uint32
	sr [32]uint32 // sr[0] is never read directly; Flags.Pack()/UnpackFlags back it

	// Custom multiply/divide engine accumulator halves.
	CEL, CEH uint32

	cycles       uint64
	instructions uint64
	halted       bool

	miu *MIU

	mutex sync.Mutex

	breakpoints map[uint32]struct{}
	watchpoints map[uint32]byte // address -> last observed byte

	lastFault error
}

// NewCPU creates a CPU wired to miu, at power-on state (PC=0, all registers
// zero, interrupts disabled).
func NewCPU(miu *MIU) *CPU {
	cpu := &CPU{
		miu:         miu,
		breakpoints: make(map[uint32]struct{}),
		watchpoints: make(map[uint32]byte),
	}
	return cpu
}

// Reset returns the CPU to power-on values (spec.md §3 "Lifecycle").
func (cpu *CPU) Reset() {
	cpu.PC = 0
	cpu.R = [32]uint32{}
	cpu.flags = Flags{}
	cpu.CR = [32]uint32{}
	cpu.sr = [32]uint32{}
	cpu.CEL, cpu.CEH = 0, 0
	cpu.cycles = 0
	cpu.instructions = 0
	cpu.halted = false
	cpu.lastFault = nil
}

// Halted, Cycles, Instructions expose read-only execution counters.
func (cpu *CPU) Halted() bool          { return cpu.halted }
func (cpu *CPU) Cycles() uint64        { return cpu.cycles }
func (cpu *CPU) Instructions() uint64  { return cpu.instructions }
func (cpu *CPU) Flags() Flags          { return cpu.flags }
func (cpu *CPU) SetPC(pc uint32)       { cpu.PC = pc }
func (cpu *CPU) ProgramCounter() uint32 { return cpu.PC }

// Register reads/writes register i (0-31); register 0 is an ordinary
// general-purpose register in this ISA (no hardwired zero), per spec.md's
// data model, which names only conventional uses for r3/r29.
func (cpu *CPU) Register(i uint8) uint32     { return cpu.R[i&0x1F] }
func (cpu *CPU) SetRegister(i uint8, v uint32) { cpu.R[i&0x1F] = v }

// ControlRegister and SetControlRegister expose the cr0-cr31 bank directly,
// for the debugger's register dump and for tests asserting on the exception
// entry/return sequence (cr1/cr2/cr3/cr5).
func (cpu *CPU) ControlRegister(i uint8) uint32     { return cpu.CR[i&0x1F] }
func (cpu *CPU) SetControlRegister(i uint8, v uint32) { cpu.CR[i&0x1F] = v }

// ReadSR implements invariant I2: sr0 is the packed flags mirror; all other
// entries are plain storage.
func (cpu *CPU) ReadSR(i uint8) uint32 {
	if i == 0 {
		return cpu.flags.Pack()
	}
	return cpu.sr[i&0x1F]
}

// WriteSR implements the write side of invariant I2.
func (cpu *CPU) WriteSR(i uint8, v uint32) {
	if i == 0 {
		cpu.flags = UnpackFlags(v)
		return
	}
	cpu.sr[i&0x1F] = v
}

// RaiseException implements spec.md §4.7's exception-entry sequence. It
// satisfies ExceptionRaiser so the interrupt controller and the CPU's own
// invalid-instruction path share one entry point.
func (cpu *CPU) RaiseException(cause uint8) {
	packed := cpu.flags.Pack()
	cpu.CR[1] = packed
	cpu.CR[2] = (cpu.CR[2] &^ (0x3F << 18)) | (uint32(cause&0x3F) << 18)
	cpu.CR[5] = cpu.PC
	cpu.CR[0] &^= 1
	cpu.PC = cpu.CR[3] + uint32(cause)*4
}

// ReturnFromException implements `rte`: sr0/flags and PC are restored from
// cr1/cr5 exactly.
func (cpu *CPU) ReturnFromException() {
	cpu.flags = UnpackFlags(cpu.CR[1])
	cpu.PC = cpu.CR[5]
}

// SetBreakpoint/ClearBreakpoint/HasBreakpoint implement the optional
// breakpoint set named in spec.md §6; StepBlocked reports whether the
// engine should pause before executing the instruction at the current PC.
func (cpu *CPU) SetBreakpoint(addr uint32)   { cpu.breakpoints[addr] = struct{}{} }
func (cpu *CPU) ClearBreakpoint(addr uint32) { delete(cpu.breakpoints, addr) }
func (cpu *CPU) ClearAllBreakpoints()        { cpu.breakpoints = make(map[uint32]struct{}) }
func (cpu *CPU) HasBreakpoint(addr uint32) bool {
	_, ok := cpu.breakpoints[addr]
	return ok
}
func (cpu *CPU) ListBreakpoints() []uint32 {
	out := make([]uint32, 0, len(cpu.breakpoints))
	for a := range cpu.breakpoints {
		out = append(out, a)
	}
	return out
}

// lockedRead32/lockedWrite32 guard MIU access with the CPU's mutex so an
// external debugger reading memory concurrently with Step never observes a
// torn multi-byte value, mirroring cpu_ie32.go's Read32/Write32 locking.
func (cpu *CPU) lockedRead32(addr uint32) uint32 {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	return cpu.miu.Read32(addr)
}

// ReadMemory8/16/32 and WriteMemory8/16/32 are the debugger-facing,
// lock-guarded accessors into the CPU's bus.
func (cpu *CPU) ReadMemory8(addr uint32) uint8 {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	return cpu.miu.Read8(addr)
}
func (cpu *CPU) ReadMemory32(addr uint32) uint32 {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	return cpu.miu.Read32(addr)
}
func (cpu *CPU) WriteMemory8(addr uint32, v uint8) {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()
	cpu.miu.Write8(addr, v)
}

// Step fetches, decodes, and executes exactly one instruction slot at PC,
// per spec.md §4.7. It always succeeds from the caller's point of view: an
// undecodable instruction enters the exception flow instead of returning an
// error, matching spec.md §7's "Invalid opcode" row. Step returns false
// only when the CPU has been halted by a host-level condition (there is
// none in this architecture today; the boolean exists so Engine's slice
// loop has a uniform "ok" signal to check, per spec.md §4.8 step 2b).
func (cpu *CPU) Step() bool {
	if cpu.halted {
		return false
	}

	cpu.mutex.Lock()
	slot := cpu.miu.Read32(cpu.PC)
	cpu.mutex.Unlock()

	op := opOf(slot)
	advance := uint32(4)
	branched := false

	switch {
	case !isValidInstruction(slot):
		cpu.RaiseException(InvalidInstructionCause)
		branched = true
	case op == 0x00:
		branched = cpu.execSPForm(slot)
	case op == 0x01:
		cpu.execIForm(slot, false)
	case op == 0x05:
		cpu.execIForm(slot, true)
	case op == 0x02:
		branched = cpu.execJForm(slot)
	case op == 0x03:
		cpu.execRIXForm(slot, true)
	case op == 0x07:
		cpu.execRIXForm(slot, false)
	case op == 0x04:
		branched = cpu.execBForm(slot)
	case op == 0x06:
		branched = cpu.execCRForm(slot)
	case op >= 0x08 && op <= 0x0F:
		cpu.execImmALUForm(slot, op&0x07)
	case op >= 0x10 && op <= 0x17:
		cpu.execMemoryForm(slot, op&0x07)
	case op >= 0x18 && op <= 0x1F:
		branched = cpu.execCompact(slot)
	default:
		cpu.RaiseException(InvalidInstructionCause)
		branched = true
	}

	if !branched {
		cpu.PC += advance
	}

	cpu.cycles += 4
	cpu.instructions++
	return true
}

// StepOne is an alias kept for debugger callers that prefer a name distinct
// from the engine's per-slice Step invocation.
func (cpu *CPU) StepOne() bool { return cpu.Step() }
