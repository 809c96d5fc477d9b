package vm

import "math/rand/v2"

// Register file layout, per spec: 64 general-purpose slots addressed
// R0..R63, with two of them conventionally named.
const (
	NumRegisters = 64
	SPIndex      = 16
	BPIndex      = 17
)

// PendingQueueCap bounds the interrupt-request FIFO; requests past this
// capacity are silently dropped.
const PendingQueueCap = 32

// Flags is the CPU's status bitmask.
type Flags uint32

const (
	FlagInterruptsEnabled Flags = 1 << iota
	FlagEqual
	FlagGreaterThan
	FlagLessThan
	FlagReady
)

// CPU is the register file, program counter, flags, pending-interrupt
// queue, and fetch/decode/execute loop described in spec.md §4.3. A CPU
// owns exactly one Memory and is not safe for concurrent use: callers that
// call Interrupt from another goroutine must supply their own mutual
// exclusion around it and Cycle (see spec.md §5).
type CPU struct {
	registers [NumRegisters]Word
	pc        uint32
	flags     Flags

	program []Word
	mem     *Memory

	pending []uint32

	// latchedTrap holds a memory fault discovered mid-instruction; it is
	// surfaced at the next cycle boundary rather than unwinding immediately,
	// per spec.md §4.6/§7. Any terminal status Cycle reports (a trap or
	// OutOfInstructions) is kept here too, so later Cycle calls return it
	// again until Reset or Load clears it.
	latchedTrap Status

	rng *rand.Rand
}

// NewCPU constructs a CPU wired to mem, in the post-construction state:
// zeroed registers, INTERRUPTS_ENABLED set, READY clear, no program loaded.
func NewCPU(mem *Memory) *CPU {
	c := &CPU{mem: mem}
	c.Seed(1)
	c.Reset()
	return c
}

// Seed reseeds the RNGI/RNGF pseudo-random source so tests (and the CLI's
// --seed flag) can get deterministic output.
func (c *CPU) Seed(seed uint64) {
	c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Reset returns the CPU to its post-construction state: registers, memory,
// program, and flags are wiped (flags back to INTERRUPTS_ENABLED only) and
// the pending-interrupt queue is drained.
func (c *CPU) Reset() {
	for i := range c.registers {
		c.registers[i] = 0
	}
	c.pc = 0
	c.flags = FlagInterruptsEnabled
	c.program = nil
	c.pending = c.pending[:0]
	c.latchedTrap = Undefined
	c.mem.Reset()
}

// Load installs an assembled program: the packed word stream, the initial
// data image (copied to the start of memory), and the entry address. It
// sets SP to the data image size and marks the CPU READY, as the code
// generator's emission pass specifies. Any latched terminal status is
// cleared, so the new program runs from entry on the next Cycle.
func (c *CPU) Load(program []Word, dataImage []byte, entry uint32) {
	c.program = program
	c.mem.Load(dataImage)
	c.registers[SPIndex] = Word(uint32(len(dataImage)))
	c.pc = entry
	c.flags |= FlagReady
	c.latchedTrap = Undefined
}

// PC returns the current program counter (an index into the word stream).
func (c *CPU) PC() uint32 { return c.pc }

// GetFlags returns the current status flags.
func (c *CPU) GetFlags() Flags { return c.flags }

// Register reads register r (0..NumRegisters-1).
func (c *CPU) Register(r uint8) Word { return c.registers[r] }

// SetRegister writes register r (0..NumRegisters-1); exported for tests
// and the debugger, which need to poke state directly.
func (c *CPU) SetRegister(r uint8, w Word) { c.registers[r] = w }

// Memory exposes the backing memory, mainly for debugger inspection.
func (c *CPU) Memory() *Memory { return c.mem }

// Interrupt enqueues a jump target for delivery on a future cycle. It
// returns false (and does nothing) if READY is clear or the queue is full.
func (c *CPU) Interrupt(addr uint32) bool {
	if c.flags&FlagReady == 0 {
		return false
	}
	if len(c.pending) >= PendingQueueCap {
		return false
	}
	c.pending = append(c.pending, addr)
	return true
}

func (c *CPU) readWord(addr uint32) Word {
	w, ok := c.mem.ReadWord(addr)
	if !ok {
		c.latchedTrap = Segfault
	}
	return w
}

func (c *CPU) writeWord(addr uint32, w Word) {
	if !c.mem.WriteWord(addr, w) {
		c.latchedTrap = Segfault
	}
}

func (c *CPU) push(w Word) {
	sp := c.registers[SPIndex].Uint()
	c.writeWord(sp, w)
	c.registers[SPIndex] = Word(sp + WordBytes)
}

func (c *CPU) pop() Word {
	sp := c.registers[SPIndex].Uint() - WordBytes
	c.registers[SPIndex] = Word(sp)
	return c.readWord(sp)
}

// serviceInterrupt dequeues and delivers one pending interrupt, if any, per
// the step-2 sequence in spec.md §4.3: push PC, jump to the target. No flag
// is cleared automatically; user code CLIs if it wants to.
func (c *CPU) serviceInterrupt() {
	if c.flags&FlagInterruptsEnabled == 0 || len(c.pending) == 0 {
		return
	}
	target := c.pending[0]
	c.pending = c.pending[1:]
	c.push(Word(c.pc))
	c.pc = target
}

// Cycle runs up to budget instructions, stopping earlier on a trap or on
// running out of instructions. completed is true only if the full budget
// retired without a terminal condition.
func (c *CPU) Cycle(budget int) (status Status, completed bool) {
	for i := 0; i < budget; i++ {
		if c.latchedTrap != Undefined {
			return c.latchedTrap, false
		}

		c.serviceInterrupt()
		if c.latchedTrap != Undefined {
			return c.latchedTrap, false
		}

		if c.pc >= uint32(len(c.program)) {
			c.latchedTrap = OutOfInstructions
			return OutOfInstructions, false
		}
		word := c.program[c.pc]
		c.pc++

		d := Decode(word)

		if imm := d.ImmediateOperand(); imm != nil && imm.NeedsExtension(d.ImmWidth) {
			if c.pc >= uint32(len(c.program)) {
				c.latchedTrap = OutOfInstructions
				return OutOfInstructions, false
			}
			imm.Imm = c.program[c.pc]
			c.pc++
		}

		if !d.Cond.Eval(c.flags) {
			continue
		}

		if s := c.execute(d); s.IsTrap() {
			c.latchedTrap = s
			return s, false
		}
	}
	return Success, true
}
