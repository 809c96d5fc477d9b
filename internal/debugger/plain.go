package debugger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/ktstephano/rvm/vm"
)

// RunPlain is the non-TUI debugger REPL, grounded on the teacher's
// execProgramDebugMode: n/next steps one instruction, r/run runs to
// completion or a breakpoint, b <addr> toggles a breakpoint, q quits.
// When stdin is a real terminal it puts it in raw mode so commands don't
// need a trailing Enter; otherwise (piped input, redirected files) it
// falls back to plain line buffering so scripted debug sessions still work.
func RunPlain(cpu *vm.CPU, program []vm.Word) error {
	m := New(cpu, program)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		return runRaw(&m, fd)
	}
	return runBuffered(&m, os.Stdin)
}

func printState(m *model) {
	pc := m.cpu.PC()
	if line, ok := m.lines[pc]; ok {
		fmt.Println("->", "next instruction>", line)
	}
	fmt.Printf("->\tregisters> %v\n", registerSlice(m.cpu))
	fmt.Printf("->\tflags> %08b\n", m.cpu.GetFlags())
	if m.stepped {
		if m.status.IsTrap() {
			fmt.Println(m.status)
		} else if m.status == vm.OutOfInstructions {
			fmt.Println(m.status)
		}
	}
}

func registerSlice(cpu *vm.CPU) []uint32 {
	out := make([]uint32, vm.NumRegisters)
	for i := range out {
		out[i] = cpu.Register(uint8(i)).Uint()
	}
	return out
}

func runRaw(m *model, fd int) error {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return runBuffered(m, os.Stdin)
	}
	defer term.Restore(fd, oldState) //nolint:errcheck

	fmt.Print("Commands:\n\tn: next instruction\n\tr: run\n\tb: toggle breakpoint\n\tq: quit\n\n")
	printState(m)

	in := bufio.NewReader(os.Stdin)
	for {
		b, err := in.ReadByte()
		if err != nil {
			return err
		}
		switch b {
		case 'q':
			return nil
		case 'n':
			m.step()
			printState(m)
		case 'r':
			m.run()
			printState(m)
		case 'b':
			addr, err := readLineRaw(in, oldState, fd)
			if err == nil {
				if a, perr := strconv.ParseUint(strings.TrimSpace(addr), 0, 32); perr == nil {
					m.toggleBreakpoint(uint32(a))
				}
			}
			term.MakeRaw(fd) //nolint:errcheck
		}
		if m.status.IsTrap() || m.status == vm.OutOfInstructions {
			return nil
		}
	}
}

// readLineRaw temporarily restores cooked mode so the user can type and see
// an address followed by Enter, the one case the teacher's "b <line>"
// command needs actual line input for.
func readLineRaw(in *bufio.Reader, oldState *term.State, fd int) (string, error) {
	term.Restore(fd, oldState) //nolint:errcheck
	fmt.Print("breakpoint address> ")
	return in.ReadString('\n')
}

func runBuffered(m *model, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	fmt.Print("Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb <addr>: toggle breakpoint\n\n")
	printState(m)

	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch {
		case line == "q" || line == "quit":
			return nil
		case line == "n" || line == "next":
			m.step()
			printState(m)
		case line == "r" || line == "run":
			m.run()
			printState(m)
		case strings.HasPrefix(line, "b"):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "b"))
			if a, err := strconv.ParseUint(arg, 0, 32); err == nil {
				m.toggleBreakpoint(uint32(a))
			}
		}
		if m.status.IsTrap() || m.status == vm.OutOfInstructions {
			return nil
		}
	}
	return scanner.Err()
}
