package asm

import (
	"strconv"
	"strings"

	"github.com/ktstephano/rvm/vm"
)

// Parse runs both parser passes over source text: the first assigns every
// label its IR index, the second materializes directives and instructions
// against the resulting (and pre-populated) symbol table. It never stops
// at the first problem; every error found is returned together.
func Parse(src string) (*Program, []*Error) {
	lines := Tokenize(src)
	syms := NewSymbolTable()

	var errs []*Error
	errs = append(errs, passOneLabels(lines, syms)...)

	prog := &Program{Symbols: syms}
	dataCursor := uint32(0)

	for _, l := range lines {
		label, rest := splitLabel(l.Tokens)
		_ = label // already bound in pass one
		if len(rest) == 0 {
			continue
		}

		if IsDirective(rest[0]) {
			errs = append(errs, applyDirective(l, rest, syms, prog, &dataCursor)...)
			continue
		}

		instr, ierrs := parseInstruction(l, rest, syms)
		errs = append(errs, ierrs...)
		if instr != nil {
			prog.Instructions = append(prog.Instructions, instr)
		}
	}

	if _, ok := syms.Lookup("main"); !ok {
		errs = append(errs, &Error{Message: "program has no 'main' label"})
	}

	return prog, errs
}

// splitLabel peels a leading "name:" token off a tokenized line, if
// present, returning the bare label name and the remaining tokens.
func splitLabel(tokens []string) (label string, rest []string) {
	if len(tokens) == 0 || !IsLabel(tokens[0]) {
		return "", tokens
	}
	return strings.TrimSuffix(tokens[0], ":"), tokens[1:]
}

// passOneLabels assigns each label symbol its IR index: the count of real
// instructions (not directives) seen before it.
func passOneLabels(lines []SourceLine, syms *SymbolTable) []*Error {
	var errs []*Error
	instrIndex := 0
	for _, l := range lines {
		label, rest := splitLabel(l.Tokens)
		if label != "" {
			if err := syms.Define(&Symbol{Name: label, Kind: SymLabel, LabelIndex: instrIndex}); err != nil {
				errs = append(errs, &Error{Line: l.Line, Message: err.Error()})
			}
		}
		if len(rest) == 0 || IsDirective(rest[0]) {
			continue
		}
		instrIndex++
	}
	return errs
}

func applyDirective(l SourceLine, rest []string, syms *SymbolTable, prog *Program, dataCursor *uint32) []*Error {
	switch rest[0] {
	case ".const":
		if len(rest) != 3 {
			return []*Error{{Line: l.Line, Message: ".const requires a name and a value"}}
		}
		v, errs := parseLiteral(l, rest[2])
		if len(errs) > 0 {
			return errs
		}
		if err := syms.Define(&Symbol{Name: rest[1], Kind: SymConstant, Value: v}); err != nil {
			return []*Error{{Line: l.Line, Message: err.Error()}}
		}
		return nil

	case ".word":
		if len(rest) != 3 {
			return []*Error{{Line: l.Line, Message: ".word requires a name and a value"}}
		}
		v, errs := parseLiteral(l, rest[2])
		if len(errs) > 0 {
			return errs
		}
		addr := *dataCursor
		*dataCursor += vm.WordBytes
		prog.DataWords = append(prog.DataWords, &DataWord{Name: rest[1], Value: v, Line: l.Line})
		if err := syms.Define(&Symbol{Name: rest[1], Kind: SymLiteral, Value: vm.Word(addr)}); err != nil {
			return []*Error{{Line: l.Line, Message: err.Error()}}
		}
		return nil

	case ".isr":
		if len(rest) != 3 {
			return []*Error{{Line: l.Line, Message: ".isr requires a target label and a replacement label"}}
		}
		prog.ISRs = append(prog.ISRs, &ISRDirective{Target: rest[1], Replacement: rest[2], Line: l.Line})
		return nil

	default:
		return []*Error{{Line: l.Line, Message: "unknown directive '" + rest[0] + "'"}}
	}
}

func parseLiteral(l SourceLine, tok string) (vm.Word, []*Error) {
	switch {
	case IsIntLiteral(tok):
		v, err := ParseIntLiteral(tok)
		if err != nil {
			return 0, []*Error{{Line: l.Line, Message: "malformed integer literal '" + tok + "'"}}
		}
		return v, nil
	case IsFloatLiteral(tok):
		v, err := ParseFloatLiteral(tok)
		if err != nil {
			return 0, []*Error{{Line: l.Line, Message: "malformed float literal '" + tok + "'"}}
		}
		return v, nil
	default:
		return 0, []*Error{{Line: l.Line, Message: "expected a literal, got '" + tok + "'"}}
	}
}

func parseInstruction(l SourceLine, rest []string, syms *SymbolTable) (*Instruction, []*Error) {
	mnemonic, condName := SplitMnemonic(rest[0])
	opcode, ok := vm.OpcodeByName(mnemonic)
	if !ok {
		return nil, []*Error{{Line: l.Line, Message: "unknown mnemonic '" + mnemonic + "'"}}
	}
	cond := vm.CondAL
	if condName != "" {
		c, ok := vm.ConditionByName(condName)
		if !ok {
			return nil, []*Error{{Line: l.Line, Message: "unknown condition suffix '" + condName + "'"}}
		}
		cond = c
	}

	operandTokens := rest[1:]
	expected := int(opcode.Arity())
	shorthand := (opcode == vm.OpLdr || opcode == vm.OpStr) && len(operandTokens) == 2
	if !shorthand && len(operandTokens) != expected {
		return nil, []*Error{{Line: l.Line, Message: "'" + mnemonic + "' expects " + strconv.Itoa(expected) + " operand(s)"}}
	}

	instr := &Instruction{Line: l.Line, Opcode: opcode, Cond: cond}
	var errs []*Error

	for i, tok := range operandTokens {
		last := i == len(operandTokens)-1
		if !last {
			sym, ok := syms.Lookup(tok)
			if !ok || sym.Kind != SymRegister {
				errs = append(errs, &Error{Line: l.Line, Message: "operand " + strconv.Itoa(i+1) + " of '" + mnemonic + "' must be a register"})
				continue
			}
			instr.Registers = append(instr.Registers, uint8(sym.Value))
			continue
		}

		switch {
		case IsIntLiteral(tok):
			v, err := ParseIntLiteral(tok)
			if err != nil {
				errs = append(errs, &Error{Line: l.Line, Message: "malformed integer literal '" + tok + "'"})
				continue
			}
			instr.Imm = &ImmOperand{Value: v}
		case IsFloatLiteral(tok):
			v, err := ParseFloatLiteral(tok)
			if err != nil {
				errs = append(errs, &Error{Line: l.Line, Message: "malformed float literal '" + tok + "'"})
				continue
			}
			instr.Imm = &ImmOperand{Value: v, IsFloat: true}
		default:
			sym, ok := syms.Lookup(tok)
			if !ok {
				errs = append(errs, &Error{Line: l.Line, Message: "undefined symbol '" + tok + "'"})
				continue
			}
			switch sym.Kind {
			case SymRegister:
				instr.Registers = append(instr.Registers, uint8(sym.Value))
			case SymLabel:
				instr.Imm = &ImmOperand{IsLabel: true, LabelName: tok}
			case SymConstant, SymLiteral:
				instr.Imm = &ImmOperand{Value: sym.Value}
			}
		}
	}

	if shorthand {
		if instr.Imm == nil {
			errs = append(errs, &Error{Line: l.Line, Message: "'" + mnemonic + "' with 2 operands requires an immediate address"})
		} else {
			instr.ImmSlot = 2
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return instr, nil
}
