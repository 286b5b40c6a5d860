// engine.go - frame-quantized scheduler: ROM load, slice loop, vblank, render
//
// Grounded on spec.md §4.8 and on the teacher's coupling of a fixed cycle
// budget to cpu.Execute() (cpu_ie32.go): a single owning struct drives the
// CPU through bounded slices and yields to the host once per frame, rather
// than free-running on its own goroutine.
//
// License: GPLv3 or later

package spg290

import (
	"encoding/binary"
	"fmt"
)

// Timing constants fixed by spec.md §4.8.
const (
	CPUClockHz     = 33_868_800
	TargetFPS      = 60
	CyclesPerFrame = CPUClockHz / TargetFPS // 564,480
	CyclesPerSlice = 10_000
)

// romMagic is the big-endian 'aM82' signature at ROM offset 0x4E selecting
// the alternate entry point, per spec.md §4.8/§6.
const (
	romMagic         = 0x614D3832
	romMagicOffset   = 0x4E
	entryDefault     = 0x9E000000
	entryWithMagic   = 0x9E000100
)

// EngineState is the core's coarse lifecycle state, per spec.md §6.
type EngineState uint8

const (
	StateStopped EngineState = iota
	StateLoading
	StatePaused
	StateRunning
	StateError
)

func (s EngineState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateLoading:
		return "loading"
	case StatePaused:
		return "paused"
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EngineStatus is a point-in-time snapshot for external callers (debugger UI,
// CLI status line) per spec.md §6's `getStatus()`.
type EngineStatus struct {
	State        EngineState
	Frame        uint64
	Cycles       uint64
	Instructions uint64
	PC           uint32
}

// Engine owns the CPU, MIU, and every peripheral, and is the only thing in
// this package that drives time forward (spec.md §3 "Ownership").
type Engine struct {
	cpu   *CPU
	miu   *MIU
	intc  *InterruptController
	timer *Timer
	uart  *UART
	vdu   *VDU

	flash *ArrayRegion
	dram  *ArrayRegion
	io    *MmioRegion

	state EngineState
	frame uint64

	lastErr error
}

// NewEngine wires a complete machine: CPU, MIU, flash/DRAM regions, the I/O
// segment's MMIO region, and the four peripherals, per spec.md §6's address
// map. vduWidth/vduHeight/format/target configure the VDU's fixed scan-out
// geometry; target may be nil for a headless engine.
func NewEngine(vduWidth, vduHeight int, format PixelFormat, target PixelTarget) *Engine {
	miu := NewMIU()
	cpu := NewCPU(miu)
	intc := NewInterruptController()
	timer := NewTimer()
	uart := NewUART()
	vdu := NewVDU(vduWidth, vduHeight, format, target)

	flash := NewArrayRegion("flash", FlashSize)
	dram := NewArrayRegion("dram", DRAMSize)
	io := NewMmioRegion("io", IOSize)

	e := &Engine{
		cpu: cpu, miu: miu, intc: intc, timer: timer, uart: uart, vdu: vdu,
		flash: flash, dram: dram, io: io,
		state: StateStopped,
	}
	e.wireIO()

	miu.SetRegion(SegmentFlash, flash, "flash")
	miu.SetRegion(SegmentDRAM, dram, "dram")
	miu.SetRegion(SegmentIO, io, "io")

	return e
}

// wireIO registers every peripheral register with the I/O segment's MMIO
// region. The interrupt controller and timer already expose byte-offset
// Read32/Write32 pairs matching MmioRegion.Handle's signature directly; the
// VDU's half-word register pairs are composed into 32-bit words first.
func (e *Engine) wireIO() {
	for _, off := range []uint32{INTCMaskOffset, INTCPrioOffset, INTCStatusOffset, INTCAckOffset} {
		local := off
		e.io.Handle(TimerIntcBase+local,
			func(uint32) uint32 { return e.intc.Read32(local) },
			func(_ uint32, v uint32) { e.intc.Write32(local, v) })
	}

	for ch := uint32(0); ch < 3; ch++ {
		for reg := uint32(0); reg < 4; reg++ {
			local := ch*TimerChannelStride + reg*4
			abs := TimerIntcBase + TimerBlockOffset + local
			e.io.Handle(abs,
				func(uint32) uint32 { return e.timer.Read32(local) },
				func(_ uint32, v uint32) { e.timer.Write32(local, v) })
		}
	}

	for _, off := range []uint32{0x00, 0x08, 0x0C, 0x10} {
		local := off
		e.io.Handle(UARTBase+local,
			func(uint32) uint32 { return e.uart.Read32(local) },
			func(_ uint32, v uint32) { e.uart.Write32(local, v) })
	}

	e.io.Handle(VDUBase+0x00,
		func(uint32) uint32 {
			return uint32(e.vdu.Read16(0x00)) | uint32(e.vdu.Read16(0x02))<<16
		},
		func(_ uint32, v uint32) {
			e.vdu.Write16(0x00, uint16(v))
			e.vdu.Write16(0x02, uint16(v>>16))
		})
	e.io.Handle(VDUBase+0x04,
		func(uint32) uint32 {
			return uint32(e.vdu.Read16(0x04)) | uint32(e.vdu.Read16(0x06))<<16
		},
		func(_ uint32, v uint32) {
			e.vdu.Write16(0x04, uint16(v))
			e.vdu.Write16(0x06, uint16(v>>16))
		})
}

func byteSwap32(buf []byte) {
	for i := 0; i+4 <= len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = buf[i+3], buf[i+2], buf[i+1], buf[i]
	}
}

// LoadRom implements spec.md §4.8's loader: endianness auto-detection by
// comparing the first instruction slot's decode validity under both byte
// orders, the 'aM82' magic-byte entry-point selection, and an opcode
// validity probe at the chosen entry point. Only the first word takes part
// in byte-order detection; an image whose first word is valid under both
// byte orders is loaded unswapped. The image is written to flash only after
// the entry probe passes.
func (e *Engine) LoadRom(data []byte) error {
	if len(data) > FlashSize {
		return fmt.Errorf("spg290: ROM image of %d bytes exceeds flash capacity %d", len(data), FlashSize)
	}
	e.state = StateLoading

	image := make([]byte, len(data))
	copy(image, data)

	if len(image) >= 4 {
		leWord := binary.LittleEndian.Uint32(image[:4])
		beWord := binary.BigEndian.Uint32(image[:4])
		leValid := isValidInstruction(leWord)
		beValid := isValidInstruction(beWord)
		if beValid && !leValid {
			byteSwap32(image)
		}
	}

	entry := uint32(entryDefault)
	if len(image) >= romMagicOffset+4 {
		magic := binary.BigEndian.Uint32(image[romMagicOffset : romMagicOffset+4])
		if magic == romMagic {
			entry = entryWithMagic
		}
	}

	off := entry - entryDefault
	probe := e.flash.Read32(off)
	if uint32(len(image)) >= off+4 {
		probe = binary.LittleEndian.Uint32(image[off : off+4])
	}
	if !isValidInstruction(probe) {
		e.state = StateError
		e.lastErr = fmt.Errorf("spg290: invalid opcode 0x%02X at entry 0x%08X", opOf(probe), entry)
		return e.lastErr
	}

	e.flash.SetReadOnly(false)
	e.flash.Load(0, image)
	e.flash.SetReadOnly(true)

	e.miu.Reset()
	e.intc.Reset()
	e.timer.Reset()
	e.uart.Reset()
	e.vdu.Reset()
	e.cpu.Reset()
	e.cpu.SetPC(entry)

	e.state = StatePaused
	e.frame = 0
	e.lastErr = nil
	return nil
}

// Start/Pause/Reset implement spec.md §6's lifecycle operations.
func (e *Engine) Start() {
	if e.state == StatePaused {
		e.state = StateRunning
	}
}

func (e *Engine) Pause() {
	if e.state == StateRunning {
		e.state = StatePaused
	}
}

// Reset discards all transient state (spec.md §4.8 "Cancellation and
// timeouts"); the flash image itself is untouched. The engine is left
// stopped with PC at 0, and Start has no effect from the stopped state, so
// running again takes a new LoadRom call.
func (e *Engine) Reset() {
	e.miu.Reset()
	e.intc.Reset()
	e.timer.Reset()
	e.uart.Reset()
	e.vdu.Reset()
	e.cpu.Reset()
	e.frame = 0
	e.lastErr = nil
	e.state = StateStopped
}

// RunFrame executes exactly one frame's worth of cycles: a slice loop
// interleaving CPU steps with periodic timer advances, followed by vblank
// assertion and a VDU scan-out, per spec.md §4.8 steps 1-4. It returns false
// without advancing anything if the engine is not in the running state. It
// also returns false, leaving the frame unfinished, if a breakpoint is hit
// (the engine transitions to paused) or if a step fails (the engine
// transitions to error); steps already executed in the frame stay done.
func (e *Engine) RunFrame() bool {
	if e.state != StateRunning {
		return false
	}

	e.vdu.ClearVBlank()

	cyclesRemaining := int32(CyclesPerFrame)
	sliceRemaining := int32(CyclesPerSlice)

	for cyclesRemaining > 0 {
		if e.cpu.HasBreakpoint(e.cpu.ProgramCounter()) {
			e.state = StatePaused
			return false
		}
		if !e.cpu.Step() {
			e.state = StateError
			e.lastErr = fmt.Errorf("spg290: cpu step failed at pc 0x%08X", e.cpu.ProgramCounter())
			return false
		}
		cyclesRemaining -= 4
		sliceRemaining -= 4
		if sliceRemaining <= 0 {
			sliceRemaining += CyclesPerSlice
			e.timer.Advance(CyclesPerSlice, func() { e.intc.Trigger(e.cpu, IRQTimer) })
		}
	}

	e.frame++
	e.vdu.Render(e.miu, e.intc, e.cpu)
	return true
}

// Status reports a point-in-time snapshot, per spec.md §6's `getStatus()`.
func (e *Engine) Status() EngineStatus {
	return EngineStatus{
		State:        e.state,
		Frame:        e.frame,
		Cycles:       e.cpu.Cycles(),
		Instructions: e.cpu.Instructions(),
		PC:           e.cpu.ProgramCounter(),
	}
}

func (e *Engine) LastError() error { return e.lastErr }

// CPU, MIU, InterruptController, Timer, UART, VDU expose the owned
// components for debugger and CLI wiring outside this package.
func (e *Engine) CPU() *CPU                           { return e.cpu }
func (e *Engine) MIU() *MIU                           { return e.miu }
func (e *Engine) InterruptController() *InterruptController { return e.intc }
func (e *Engine) Timer() *Timer                       { return e.timer }
func (e *Engine) UART() *UART                         { return e.uart }
func (e *Engine) VDU() *VDU                           { return e.vdu }
