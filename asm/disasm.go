package asm

import (
	"fmt"
	"strings"

	"github.com/ktstephano/rvm/vm"
)

// Disassemble renders a packed word stream back into one text line per
// instruction, address-prefixed, consuming extension words the same way
// the CPU's fetch stage does.
func Disassemble(program []vm.Word) []string {
	var lines []string
	pc := 0
	for pc < len(program) {
		addr := pc
		d := vm.Decode(program[pc])
		pc++
		if imm := d.ImmediateOperand(); imm != nil && imm.NeedsExtension(d.ImmWidth) && pc < len(program) {
			imm.Imm = program[pc]
			pc++
		}
		lines = append(lines, fmt.Sprintf("%04x: %s", addr, formatInstruction(d)))
	}
	return lines
}

func formatInstruction(d vm.Decoded) string {
	mnemonic := d.Opcode.String()
	if d.Cond != vm.CondAL {
		mnemonic += "." + d.Cond.String()
	}

	ops := [3]vm.Operand{d.Op1, d.Op2, d.Op3}
	n := int(d.Opcode.Arity())
	if n > len(ops) {
		n = len(ops)
	}

	var parts []string
	for i := 0; i < n; i++ {
		parts = append(parts, formatOperand(ops[i]))
	}
	if len(parts) == 0 {
		return mnemonic
	}
	return mnemonic + " " + strings.Join(parts, " ")
}

func formatOperand(op vm.Operand) string {
	if op.IsRegister {
		return fmt.Sprintf("r%d", op.Reg)
	}
	return fmt.Sprintf("%#x", op.Imm.Uint())
}
