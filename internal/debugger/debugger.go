// Package debugger implements rvm's interactive debugger: a bubbletea TUI
// by default, and a golang.org/x/term raw-mode REPL (grounded on the
// teacher's own execProgramDebugMode) when --plain is requested. The plain
// REPL reads line-buffered commands when stdin isn't a terminal; without
// --plain the TUI is used whatever stdin is.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ktstephano/rvm/asm"
	"github.com/ktstephano/rvm/vm"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	pcStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	trapStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// model is the bubbletea TUI's state.
type model struct {
	cpu    *vm.CPU
	lines  map[uint32]string
	addrs  []uint32 // instruction addresses in program order, for the scrolling listing

	breakpoints map[uint32]struct{}
	mode        string // "normal" or "break-entry"
	bpInput     string

	status  vm.Status
	stepped bool
}

// New builds the TUI model for an already-loaded CPU and its disassembly.
func New(cpu *vm.CPU, program []vm.Word) model {
	lines := make(map[uint32]string)
	var addrs []uint32
	addr := 0
	for _, line := range asm.Disassemble(program) {
		// asm.Disassemble prefixes each line with "%04x: ", matching the
		// address we index it by below.
		lines[uint32(addr)] = line
		addrs = append(addrs, uint32(addr))
		addr += wordsConsumed(program, addr)
	}
	return model{
		cpu:         cpu,
		lines:       lines,
		addrs:       addrs,
		breakpoints: make(map[uint32]struct{}),
		mode:        "normal",
	}
}

// wordsConsumed reports how many words the instruction at addr occupies
// (1, or 2 if it carries an extension word), mirroring the CPU's own fetch.
func wordsConsumed(program []vm.Word, addr int) int {
	if addr >= len(program) {
		return 1
	}
	d := vm.Decode(program[addr])
	if imm := d.ImmediateOperand(); imm != nil && imm.NeedsExtension(d.ImmWidth) {
		return 2
	}
	return 1
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	key := keyMsg.String()

	if m.mode == "break-entry" {
		switch {
		case key == "enter":
			if addr, err := strconv.ParseUint(m.bpInput, 0, 32); err == nil {
				m.toggleBreakpoint(uint32(addr))
			}
			m.mode, m.bpInput = "normal", ""
		case key == "esc":
			m.mode, m.bpInput = "normal", ""
		case key == "backspace":
			if len(m.bpInput) > 0 {
				m.bpInput = m.bpInput[:len(m.bpInput)-1]
			}
		default:
			if len(key) == 1 {
				m.bpInput += key
			}
		}
		return m, nil
	}

	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n":
		m.step()
	case "r":
		m.run()
	case "b":
		m.mode, m.bpInput = "break-entry", ""
	}
	return m, nil
}

func (m *model) toggleBreakpoint(addr uint32) {
	if _, ok := m.breakpoints[addr]; ok {
		delete(m.breakpoints, addr)
		return
	}
	m.breakpoints[addr] = struct{}{}
}

func (m *model) step() {
	if m.status.IsTrap() || m.status == vm.OutOfInstructions {
		return
	}
	m.status, _ = m.cpu.Cycle(1)
	m.stepped = true
}

func (m *model) run() {
	for {
		if m.status.IsTrap() || m.status == vm.OutOfInstructions {
			return
		}
		m.status, _ = m.cpu.Cycle(1)
		m.stepped = true
		if _, hit := m.breakpoints[m.cpu.PC()]; hit {
			return
		}
	}
}

// listing renders a small window of instructions centered on pc, each
// prefixed with a breakpoint marker and the current-PC arrow.
func (m model) listing(pc uint32) string {
	center := 0
	for i, a := range m.addrs {
		if a == pc {
			center = i
			break
		}
	}

	const window = 3
	lo := max(0, center-window)
	hi := min(len(m.addrs), center+window+1)

	var b strings.Builder
	for i := lo; i < hi; i++ {
		addr := m.addrs[i]
		marker := "  "
		if addr == pc {
			marker = "> "
		}
		if _, bp := m.breakpoints[addr]; bp {
			marker = marker[:1] + "*"
		}
		line, ok := m.lines[addr]
		if !ok {
			continue
		}
		if addr == pc {
			b.WriteString(marker + pcStyle.Render(line) + "\n")
		} else {
			b.WriteString(marker + dimStyle.Render(line) + "\n")
		}
	}
	if len(m.addrs) == 0 {
		b.WriteString(dimStyle.Render("  (no instruction at this address)\n"))
	}
	return b.String()
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("rvm debugger") + "  " + dimStyle.Render("n: step  r: run  b: breakpoint  q: quit") + "\n\n")

	pc := m.cpu.PC()
	b.WriteString(m.listing(pc) + "\n")

	b.WriteString(headerStyle.Render("registers") + "\n")
	for r := 0; r < vm.NumRegisters; r += 8 {
		var row []string
		for c := r; c < r+8 && c < vm.NumRegisters; c++ {
			row = append(row, fmt.Sprintf("r%-2d=%08x", c, m.cpu.Register(uint8(c)).Uint()))
		}
		b.WriteString("  " + strings.Join(row, " ") + "\n")
	}

	b.WriteString("\n" + headerStyle.Render("flags") + fmt.Sprintf("  %08b\n", m.cpu.GetFlags()))

	if m.stepped {
		if m.status.IsTrap() {
			b.WriteString("\n" + trapStyle.Render("trap: "+m.status.String()) + "\n")
		} else if m.status == vm.OutOfInstructions {
			b.WriteString("\n" + dimStyle.Render("program finished: "+m.status.String()) + "\n")
		}
	}

	if m.mode == "break-entry" {
		b.WriteString("\n" + headerStyle.Render("toggle breakpoint at address: ") + m.bpInput + "_\n")
	}

	return b.String()
}

// Run launches the bubbletea TUI and blocks until the user quits.
func Run(cpu *vm.CPU, program []vm.Word) error {
	_, err := tea.NewProgram(New(cpu, program)).Run()
	return err
}
