package asm

import "github.com/ktstephano/rvm/vm"

// SymbolKind classifies an entry in the symbol table.
type SymbolKind int

const (
	SymLabel SymbolKind = iota
	SymLiteral
	SymConstant
	SymRegister
)

func (k SymbolKind) String() string {
	switch k {
	case SymLabel:
		return "label"
	case SymLiteral:
		return "literal"
	case SymConstant:
		return "constant"
	case SymRegister:
		return "register"
	default:
		return "unknown"
	}
}

// Symbol is one entry in the symbol table: a name bound to a kind and a
// value. Labels carry their IR index until code generation assigns them a
// final word-stream address, at which point Value holds that address and
// LabelIndex is no longer consulted.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Value      vm.Word
	LabelIndex int // valid iff Kind == SymLabel, before codegen resolves Value
}

// SymbolTable resolves identifiers during parsing and code generation.
type SymbolTable struct {
	symbols map[string]*Symbol
}

// NewSymbolTable builds a table pre-populated with R0..R63, SP, and BP, so
// register names resolve exactly like any other symbol.
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{symbols: make(map[string]*Symbol)}
	for r := 0; r < vm.NumRegisters; r++ {
		t.symbols[registerName(r)] = &Symbol{
			Name: registerName(r), Kind: SymRegister, Value: vm.Word(r),
		}
	}
	t.symbols["sp"] = &Symbol{Name: "sp", Kind: SymRegister, Value: vm.Word(vm.SPIndex)}
	t.symbols["bp"] = &Symbol{Name: "bp", Kind: SymRegister, Value: vm.Word(vm.BPIndex)}
	return t
}

func registerName(r int) string {
	const digits = "0123456789"
	if r < 10 {
		return "r" + string(digits[r])
	}
	return "r" + string(digits[r/10]) + string(digits[r%10])
}

// Lookup returns the symbol bound to name, if any.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	s, ok := t.symbols[name]
	return s, ok
}

// Define binds name to a new symbol, failing if the name is already bound
// to anything (register, label, constant, or data word), whatever the kind
// of the new symbol.
func (t *SymbolTable) Define(sym *Symbol) error {
	if existing, ok := t.symbols[sym.Name]; ok {
		return &Error{Message: "symbol '" + sym.Name + "' already defined as " + existing.Kind.String()}
	}
	t.symbols[sym.Name] = sym
	return nil
}

// All returns every defined symbol, for debugger/disassembler use.
func (t *SymbolTable) All() map[string]*Symbol {
	return t.symbols
}
