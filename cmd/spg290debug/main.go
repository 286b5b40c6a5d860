// spg290debug - interactive register/memory/breakpoint REPL over an Engine
//
// Grounded on terminal_host.go's raw-mode dance (term.MakeRaw on stdin's fd,
// always paired with a deferred term.Restore) but fed into term.NewTerminal
// instead of a byte-at-a-time reader, since this is a line-oriented command
// shell rather than a char-mode MMIO device.
//
// License: GPLv3 or later

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/hyperscan-emu/spg290"
)

const (
	debugWidth  = 256
	debugHeight = 224
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: spg290debug <rom-path>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "spg290debug: %v\n", err)
		os.Exit(1)
	}

	engine := spg290.NewEngine(debugWidth, debugHeight, spg290.FormatRGB565, nil)
	if err := engine.LoadRom(data); err != nil {
		fmt.Fprintf(os.Stderr, "spg290debug: %v\n", err)
		os.Exit(1)
	}
	dbg := spg290.NewDebugger(engine)
	defer dbg.Close()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Not a real terminal (piped input, CI) - fall back to a plain reader
		// rather than refusing to run, since scripted debug sessions are
		// still useful without line editing.
		runPlain(dbg, engine)
		return
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(os.Stdin, "(spg290) ")
	for {
		line, err := t.ReadLine()
		if err != nil {
			fmt.Fprintln(t, err)
			return
		}
		if done := dispatch(t, dbg, engine, line); done {
			return
		}
	}
}

// runPlain is the non-raw fallback used when stdin isn't a terminal.
func runPlain(dbg *spg290.Debugger, engine *spg290.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("(spg290) ")
		if !scanner.Scan() {
			return
		}
		if dispatch(os.Stdout, dbg, engine, scanner.Text()) {
			return
		}
	}
}

func dispatch(w interface{ Write([]byte) (int, error) }, dbg *spg290.Debugger, engine *spg290.Engine, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	out := func(format string, a ...interface{}) { fmt.Fprintf(w, format, a...) }

	switch cmd {
	case "quit", "q", "exit":
		return true

	case "regs", "r":
		for _, reg := range dbg.Registers() {
			out("%-8s 0x%08X\n", reg.Name, reg.Value)
		}

	case "step", "s":
		n := 1
		if len(args) > 0 {
			n, _ = strconv.Atoi(args[0])
		}
		for i := 0; i < n; i++ {
			engine.CPU().Step()
		}
		out("stepped %d instruction(s), pc=0x%08X\n", n, engine.CPU().ProgramCounter())

	case "run", "c":
		engine.Start()
		for engine.Status().State == spg290.StateRunning {
			if engine.CPU().HasBreakpoint(engine.CPU().ProgramCounter()) &&
				!dbg.ShouldBreak(engine.CPU().ProgramCounter()) {
				engine.CPU().Step()
				continue
			}
			if engine.CPU().HasBreakpoint(engine.CPU().ProgramCounter()) {
				out("breakpoint hit at 0x%08X\n", engine.CPU().ProgramCounter())
				break
			}
			if !engine.RunFrame() {
				break
			}
		}

	case "break", "b":
		if len(args) == 0 {
			out("usage: break <addr> [expr]\n")
			break
		}
		addr, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			out("bad address: %v\n", err)
			break
		}
		if len(args) > 1 {
			dbg.SetConditionalBreakpoint(uint32(addr), strings.Join(args[1:], " "))
		} else {
			dbg.SetBreakpoint(uint32(addr))
		}
		out("breakpoint set at 0x%08X\n", addr)

	case "clear":
		if len(args) == 0 {
			dbg.ClearAllBreakpoints()
			out("all breakpoints cleared\n")
			break
		}
		addr, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			out("bad address: %v\n", err)
			break
		}
		dbg.ClearBreakpoint(uint32(addr))

	case "watch":
		if len(args) == 0 {
			out("usage: watch <addr>\n")
			break
		}
		addr, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			out("bad address: %v\n", err)
			break
		}
		dbg.SetWatchpoint(uint32(addr))

	case "watches":
		for _, hit := range dbg.PollWatchpoints() {
			out("0x%08X: 0x%02X -> 0x%02X\n", hit.Address, hit.OldValue, hit.NewValue)
		}

	case "disasm", "d":
		addr := engine.CPU().ProgramCounter()
		count := 10
		if len(args) > 0 {
			if v, err := strconv.ParseUint(args[0], 0, 32); err == nil {
				addr = uint32(v)
			}
		}
		if len(args) > 1 {
			if v, err := strconv.Atoi(args[1]); err == nil {
				count = v
			}
		}
		for _, l := range dbg.Disassemble(addr, count) {
			marker := " "
			if l.IsPC {
				marker = ">"
			}
			out("%s0x%08X  %-8s  %s\n", marker, l.Address, l.HexBytes, l.Mnemonic)
		}

	case "snapshot":
		if err := dbg.CopySnapshot(); err != nil {
			out("snapshot failed: %v\n", err)
		} else {
			out("snapshot copied to clipboard\n")
		}

	case "status":
		st := engine.Status()
		out("state=%s frame=%d cycles=%d instructions=%d pc=0x%08X\n",
			st.State, st.Frame, st.Cycles, st.Instructions, st.PC)

	case "help", "?":
		out("commands: regs step run break clear watch watches disasm snapshot status quit\n")

	default:
		out("unknown command %q (try 'help')\n", cmd)
	}
	return false
}
