package asm

import "github.com/ktstephano/rvm/vm"

// ImmOperand is an IR instruction's optional immediate: either a forward
// reference to a label (resolved by the code generator) or an already
// literal 32-bit value (an integer bit pattern or a float bit pattern).
type ImmOperand struct {
	IsLabel   bool
	IsFloat   bool
	LabelName string
	Value     vm.Word
}

// Instruction is one parsed statement bound to a real opcode: condition,
// register operands in encoding order, and at most one immediate. The
// distinction between "register operand" and "immediate" is carried here,
// not inferred later, so the generator can pack bits and decide
// extension-word presence without re-parsing anything.
type Instruction struct {
	Line      int
	Opcode    vm.Opcode
	Cond      vm.Condition
	Registers []uint8
	Imm       *ImmOperand
	// ImmSlot is the 1-based operand position the immediate occupies; 0
	// means "the opcode's own last slot" (every fixed-arity opcode). LDR
	// and STR's 2-operand shorthand sets this to 2 explicitly.
	ImmSlot int

	// Populated by the code generator.
	Address     uint32
	Extra       int
	ExtPayload  vm.Word
	InlineValue uint32
}

// DataWord is one `.word NAME VALUE` directive: it reserves 4 bytes in the
// data image and binds NAME to the byte address those bytes start at.
type DataWord struct {
	Name  string
	Value vm.Word
	Line  int
}

// ISRDirective is one `.isr TARGET REPLACEMENT` directive, applied in Pass
// C after every label has a final address.
type ISRDirective struct {
	Target      string
	Replacement string
	Line        int
}

// Program is the parser's output: the full instruction IR, the data image
// layout, pending ISR rewrites, and the symbol table they all share.
type Program struct {
	Instructions []*Instruction
	DataWords    []*DataWord
	ISRs         []*ISRDirective
	Symbols      *SymbolTable
}
