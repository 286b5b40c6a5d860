// debugger.go - breakpoint/watchpoint set, register/disassembly introspection
//
// Adapts debug_interface.go's DebuggableCPU-shaped contract down to this
// package's single S+core CPU: the teacher's per-architecture adapter layer
// (one debug_cpu_*.go per ISA) collapses to one Debugger wrapping *Engine
// directly, since there is only ever one CPU type here. Breakpoint
// conditions generalize the teacher's ConditionOp enum into short Lua
// expressions evaluated against exposed registers/flags, and a snapshot can
// be pushed to the system clipboard for bug reports, mirroring the
// teacher's own debug-snapshot affordances.
//
// License: GPLv3 or later

package spg290

import (
	"fmt"
	"sort"

	"golang.design/x/clipboard"
	lua "github.com/yuin/gopher-lua"
)

// RegisterInfo describes a single register for display, mirroring
// debug_interface.go's field set.
type RegisterInfo struct {
	Name  string
	Value uint32
	Group string // "general", "control", "flags"
}

// Watchpoint is a write-observation point on one byte of address space.
type Watchpoint struct {
	Address uint32
	Last    byte
}

// WatchpointHit reports a byte that changed since the last poll.
type WatchpointHit struct {
	Address  uint32
	OldValue byte
	NewValue byte
}

// BreakpointCondition is a Lua boolean expression evaluated against the
// CPU's registers (r0..r31), pc, flags (n/z/c/v/t), and cycles/instructions
// counters — e.g. "r22 == 0x42 and pc > 0x9E000100".
type BreakpointCondition struct {
	Expr string
}

// ConditionalBreakpoint pairs a breakpoint address with an optional
// condition and a running hit count.
type ConditionalBreakpoint struct {
	Address   uint32
	Condition *BreakpointCondition
	HitCount  uint64
}

// Debugger wraps an Engine with the introspection and control surface an
// external UI (cmd/spg290debug) or test harness needs, without reaching
// into CPU internals directly.
type Debugger struct {
	engine *Engine

	conditional map[uint32]*ConditionalBreakpoint
	watchpoints map[uint32]*Watchpoint

	lua *lua.LState
}

// NewDebugger creates a debugger attached to engine. The embedded Lua state
// is created lazily on first condition evaluation to avoid the cost for
// callers that never use conditional breakpoints.
func NewDebugger(engine *Engine) *Debugger {
	return &Debugger{
		engine:      engine,
		conditional: make(map[uint32]*ConditionalBreakpoint),
		watchpoints: make(map[uint32]*Watchpoint),
	}
}

// Close releases the embedded Lua interpreter, if one was created.
func (d *Debugger) Close() {
	if d.lua != nil {
		d.lua.Close()
		d.lua = nil
	}
}

func (d *Debugger) ensureLua() *lua.LState {
	if d.lua == nil {
		d.lua = lua.NewState()
	}
	return d.lua
}

// SetBreakpoint installs an unconditional breakpoint at addr.
func (d *Debugger) SetBreakpoint(addr uint32) {
	d.engine.CPU().SetBreakpoint(addr)
	delete(d.conditional, addr)
}

// SetConditionalBreakpoint installs a breakpoint at addr that only actually
// pauses execution when expr evaluates truthy.
func (d *Debugger) SetConditionalBreakpoint(addr uint32, expr string) {
	d.engine.CPU().SetBreakpoint(addr)
	d.conditional[addr] = &ConditionalBreakpoint{Address: addr, Condition: &BreakpointCondition{Expr: expr}}
}

func (d *Debugger) ClearBreakpoint(addr uint32) {
	d.engine.CPU().ClearBreakpoint(addr)
	delete(d.conditional, addr)
}

func (d *Debugger) ClearAllBreakpoints() {
	d.engine.CPU().ClearAllBreakpoints()
	d.conditional = make(map[uint32]*ConditionalBreakpoint)
}

func (d *Debugger) ListBreakpoints() []uint32 {
	addrs := d.engine.CPU().ListBreakpoints()
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

func (d *Debugger) GetConditionalBreakpoint(addr uint32) *ConditionalBreakpoint {
	return d.conditional[addr]
}

// ShouldBreak reports whether the breakpoint at addr (which must already be
// set) actually warrants pausing: unconditional breakpoints always do;
// conditional ones only when their expression evaluates truthy. It advances
// the breakpoint's hit count whenever the condition evaluates truthy.
func (d *Debugger) ShouldBreak(addr uint32) bool {
	cb, ok := d.conditional[addr]
	if !ok {
		return true
	}
	if !d.evalCondition(cb.Condition.Expr) {
		return false
	}
	cb.HitCount++
	return true
}

func (d *Debugger) evalCondition(expr string) bool {
	L := d.ensureLua()
	cpu := d.engine.CPU()
	for i := uint8(0); i < 32; i++ {
		L.SetGlobal(fmt.Sprintf("r%d", i), lua.LNumber(cpu.Register(i)))
	}
	f := cpu.Flags()
	L.SetGlobal("pc", lua.LNumber(cpu.ProgramCounter()))
	L.SetGlobal("n", lua.LBool(f.N))
	L.SetGlobal("z", lua.LBool(f.Z))
	L.SetGlobal("c", lua.LBool(f.C))
	L.SetGlobal("v", lua.LBool(f.V))
	L.SetGlobal("t", lua.LBool(f.T))
	L.SetGlobal("cycles", lua.LNumber(cpu.Cycles()))
	L.SetGlobal("instructions", lua.LNumber(cpu.Instructions()))

	if err := L.DoString("__cond_result = (" + expr + ")"); err != nil {
		return false
	}
	result := L.GetGlobal("__cond_result")
	L.SetGlobal("__cond_result", lua.LNil)
	return lua.LVAsBool(result)
}

// SetWatchpoint starts observing byte-level writes at addr.
func (d *Debugger) SetWatchpoint(addr uint32) {
	d.watchpoints[addr] = &Watchpoint{Address: addr, Last: d.engine.CPU().ReadMemory8(addr)}
}

func (d *Debugger) ClearWatchpoint(addr uint32) { delete(d.watchpoints, addr) }
func (d *Debugger) ClearAllWatchpoints()        { d.watchpoints = make(map[uint32]*Watchpoint) }

func (d *Debugger) ListWatchpoints() []uint32 {
	addrs := make([]uint32, 0, len(d.watchpoints))
	for a := range d.watchpoints {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// PollWatchpoints compares every watched byte against its last observed
// value, returning the set that changed and updating the stored baseline.
// The engine does not fire watchpoint callbacks mid-instruction (spec.md
// §4.8's "interpreter itself does not suspend mid-instruction"), so callers
// poll between steps/frames instead.
func (d *Debugger) PollWatchpoints() []WatchpointHit {
	var hits []WatchpointHit
	cpu := d.engine.CPU()
	addrs := d.ListWatchpoints()
	for _, addr := range addrs {
		wp := d.watchpoints[addr]
		cur := cpu.ReadMemory8(addr)
		if cur != wp.Last {
			hits = append(hits, WatchpointHit{Address: addr, OldValue: wp.Last, NewValue: cur})
			wp.Last = cur
		}
	}
	return hits
}

// Registers returns a flat, display-ready dump of PC, r0-r31, the packed
// flags word, and cr0-cr31.
func (d *Debugger) Registers() []RegisterInfo {
	cpu := d.engine.CPU()
	out := make([]RegisterInfo, 0, 1+32+1+32)
	out = append(out, RegisterInfo{Name: "pc", Value: cpu.ProgramCounter(), Group: "general"})
	for i := uint8(0); i < 32; i++ {
		out = append(out, RegisterInfo{Name: fmt.Sprintf("r%d", i), Value: cpu.Register(i), Group: "general"})
	}
	out = append(out, RegisterInfo{Name: "flags", Value: cpu.Flags().Pack(), Group: "flags"})
	for i := uint8(0); i < 32; i++ {
		out = append(out, RegisterInfo{Name: fmt.Sprintf("cr%d", i), Value: cpu.ControlRegister(i), Group: "control"})
	}
	return out
}

// Disassemble decodes count instructions starting at addr.
func (d *Debugger) Disassemble(addr uint32, count int) []DisassembledLine {
	return Disassemble(d.engine.MIU(), addr, count, d.engine.CPU().ProgramCounter())
}

// formatSnapshot renders the current machine state as plain text, for
// CopySnapshot and for any caller that just wants a printable dump.
func (d *Debugger) formatSnapshot() string {
	s := d.engine.Status()
	out := fmt.Sprintf("spg290 snapshot: state=%s frame=%d cycles=%d instructions=%d\n", s.State, s.Frame, s.Cycles, s.Instructions)
	for _, r := range d.Registers() {
		out += fmt.Sprintf("%-8s 0x%08X\n", r.Name, r.Value)
	}
	return out
}

// CopySnapshot serializes the current register/flag/cycle state and pushes
// it to the system clipboard, for pasting directly into a bug report.
func (d *Debugger) CopySnapshot() error {
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("spg290: clipboard unavailable: %w", err)
	}
	clipboard.Write(clipboard.FmtText, []byte(d.formatSnapshot()))
	return nil
}
