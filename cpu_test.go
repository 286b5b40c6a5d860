package spg290

import "testing"

func TestCPUResetClearsArchitecturalState(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.SetRegister(5, 0xDEAD)
	cpu.SetPC(0x1000)
	cpu.WriteSR(0, UnpackFlags(0).Pack())
	cpu.Reset()
	if cpu.Register(5) != 0 || cpu.ProgramCounter() != 0 {
		t.Fatalf("Reset left r5=0x%X pc=0x%X, want both zero", cpu.Register(5), cpu.ProgramCounter())
	}
}

func TestSR0IsPackedFlagsMirror(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.flags = Flags{N: true, C: true, T: true}
	if got := cpu.ReadSR(0); got != cpu.flags.Pack() {
		t.Fatalf("ReadSR(0) = 0x%X, want the packed flags word 0x%X", got, cpu.flags.Pack())
	}
	cpu.WriteSR(0, Flags{Z: true}.Pack())
	if !cpu.flags.Z || cpu.flags.N {
		t.Fatalf("WriteSR(0, ...) did not update flags: %+v", cpu.flags)
	}
}

func TestSR1IsPlainStorage(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.WriteSR(1, 0xCAFE)
	if got := cpu.ReadSR(1); got != 0xCAFE {
		t.Fatalf("sr1 round trip = 0x%X, want 0xCAFE", got)
	}
}

func TestRaiseAndReturnFromException(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.SetPC(0x9E000100)
	cpu.flags = Flags{Z: true}
	cpu.SetControlRegister(3, 0x9E000000) // exception vector base
	cpu.SetControlRegister(0, 1)          // global interrupt enable

	cpu.RaiseException(InvalidInstructionCause)

	if cpu.ControlRegister(5) != 0x9E000100 {
		t.Fatalf("cr5 (saved pc) = 0x%X, want 0x9E000100", cpu.ControlRegister(5))
	}
	wantPC := uint32(0x9E000000) + uint32(InvalidInstructionCause)*4
	if cpu.ProgramCounter() != wantPC {
		t.Fatalf("pc after exception = 0x%X, want 0x%X", cpu.ProgramCounter(), wantPC)
	}
	if cpu.ControlRegister(0)&1 != 0 {
		t.Fatalf("interrupt-enable bit (cr0 bit 0) not cleared on exception entry")
	}

	cpu.SetRegister(0, 0) // unrelated, just to touch state before returning
	cpu.ReturnFromException()
	if cpu.ProgramCounter() != 0x9E000100 {
		t.Fatalf("pc after rte = 0x%X, want restored 0x9E000100", cpu.ProgramCounter())
	}
	if !cpu.flags.Z {
		t.Fatalf("flags not restored by rte: %+v", cpu.flags)
	}
}

func TestStepUndecodableOpcodeRaisesException(t *testing.T) {
	cpu, miu := newTestCPU()
	cpu.SetControlRegister(3, 0)
	// Op field bits 31:27 cover every 5-bit value 0x00-0x1F and none is
	// invalid on its own, so an undefined CR-form sub-opcode supplies the
	// undecodable instruction instead.
	slot := encodeCR(0, 0, 0x7F) // subop not mfcr/mtcr/rte
	miu.Write32(0xA0000000, slot)
	cpu.SetPC(0xA0000000)

	cpu.Step()
	want := uint32(InvalidInstructionCause) * 4
	if cpu.ProgramCounter() != want {
		t.Fatalf("pc after invalid CR sub-opcode = 0x%X, want exception vector 0x%X", cpu.ProgramCounter(), want)
	}
}

func TestBreakpointBookkeeping(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.SetBreakpoint(0x100)
	cpu.SetBreakpoint(0x200)
	if !cpu.HasBreakpoint(0x100) || !cpu.HasBreakpoint(0x200) {
		t.Fatalf("breakpoints not recorded")
	}
	cpu.ClearBreakpoint(0x100)
	if cpu.HasBreakpoint(0x100) {
		t.Fatalf("ClearBreakpoint did not remove 0x100")
	}
	if len(cpu.ListBreakpoints()) != 1 {
		t.Fatalf("ListBreakpoints() = %v, want one entry", cpu.ListBreakpoints())
	}
	cpu.ClearAllBreakpoints()
	if len(cpu.ListBreakpoints()) != 0 {
		t.Fatalf("ClearAllBreakpoints left %v", cpu.ListBreakpoints())
	}
}
