package asm

import "github.com/ktstephano/rvm/vm"

// Assembled is the code generator's output: a packed instruction word
// stream, the initial data image, the entry address, and the symbol table
// (labels now carrying final addresses), ready to hand to vm.CPU.Load.
type Assembled struct {
	Program   []vm.Word
	DataImage []byte
	Entry     uint32
	Symbols   *SymbolTable
}

// Assemble runs the full pipeline: parse, then code generation, against a
// target memory size (used only to reject a data image that wouldn't fit).
func Assemble(src string, memSize int) (*Assembled, []*Error) {
	prog, errs := Parse(src)
	if len(errs) > 0 {
		return nil, errs
	}
	return Generate(prog, memSize)
}

// immSlot is the 1-based operand slot an instruction's immediate occupies:
// explicit on the IR (LDR/STR's 2-operand shorthand) or the opcode's own
// last slot otherwise.
func immSlot(instr *Instruction) int {
	if instr.ImmSlot != 0 {
		return instr.ImmSlot
	}
	return int(instr.Opcode.Arity())
}

// Generate runs the code generator's three passes plus emission.
//
// Pass A lays out a conservative address for every instruction, deciding
// extension-word presence for every immediate whose value is already known
// (literals and floats); label immediates are deferred (treated as
// zero-extra) since their targets aren't addressed yet.
//
// Pass B resolves label immediates. Rather than the single monotone-growth
// sweep sketched as the base case, this iterates address assignment to a
// fixed point: each round recomputes every instruction's final address
// from the current extra-word decisions, then re-checks whether any label
// immediate's resolved target address now needs (or no longer needs) an
// extension word. Extra only ever flips 0→1, so the loop is bounded by the
// number of label-immediate instructions and always terminates — this is
// the "iterate to a fixed point" alternative the design notes call out as
// the safe option once cascading growth is a possibility (a backward jump
// whose target sits beyond an extension word introduced later in the same
// pass is exactly the case a single forward sweep would mis-resolve).
//
// Pass C applies `.isr` rewrites once every label has its final address.
func Generate(prog *Program, memSize int) (*Assembled, []*Error) {
	var errs []*Error
	n := len(prog.Instructions)
	extra := make([]int, n)

	labelIndex := func(name string) (int, bool) {
		sym, ok := prog.Symbols.Lookup(name)
		if !ok || sym.Kind != SymLabel {
			return 0, false
		}
		return sym.LabelIndex, true
	}

	// Pass A.
	for i, instr := range prog.Instructions {
		if instr.Imm == nil || instr.Imm.IsLabel {
			continue
		}
		mask := vm.InlineMask(vm.ImmWidthForSlot(immSlot(instr)))
		if instr.Imm.IsFloat || instr.Imm.Value.Uint() >= mask {
			extra[i] = 1
		}
	}

	// finalAddr has n+1 entries: one per instruction plus a sentinel at
	// index n holding the total word-stream length, so a label that falls
	// after the last instruction (a common "end of program" marker) still
	// resolves to a valid address instead of panicking on an out-of-range
	// lookup.
	finalAddr := make([]uint32, n+1)
	recomputeAddrs := func() {
		addr := uint32(0)
		for i := 0; i < n; i++ {
			finalAddr[i] = addr
			addr += uint32(1 + extra[i])
		}
		finalAddr[n] = addr
	}
	recomputeAddrs()

	// Pass B.
	for round := 0; round <= n; round++ {
		changed := false
		for i, instr := range prog.Instructions {
			if instr.Imm == nil || !instr.Imm.IsLabel {
				continue
			}
			idx, ok := labelIndex(instr.Imm.LabelName)
			if !ok {
				continue // reported once, below
			}
			mask := vm.InlineMask(vm.ImmWidthForSlot(immSlot(instr)))
			want := 0
			if finalAddr[idx] >= mask {
				want = 1
			}
			if want != extra[i] {
				extra[i] = want
				changed = true
			}
		}
		recomputeAddrs()
		if !changed {
			break
		}
	}

	for _, instr := range prog.Instructions {
		if instr.Imm != nil && instr.Imm.IsLabel {
			if _, ok := labelIndex(instr.Imm.LabelName); !ok {
				errs = append(errs, &Error{Line: instr.Line, Message: "undefined label '" + instr.Imm.LabelName + "'"})
			}
		}
	}

	for name, sym := range prog.Symbols.All() {
		if sym.Kind != SymLabel {
			continue
		}
		if idx, ok := labelIndex(name); ok && idx < len(finalAddr) {
			sym.Value = vm.Word(finalAddr[idx])
		}
	}

	// Pass C: ISR rewrites.
	for _, isr := range prog.ISRs {
		tIdx, ok := labelIndex(isr.Target)
		if !ok {
			errs = append(errs, &Error{Line: isr.Line, Message: "undefined isr target '" + isr.Target + "'"})
			continue
		}
		if extra[tIdx] == 1 {
			errs = append(errs, &Error{Line: isr.Line, Message: "isr stub '" + isr.Target + "' address too large"})
			continue
		}
		rIdx, ok := labelIndex(isr.Replacement)
		if !ok {
			errs = append(errs, &Error{Line: isr.Line, Message: "undefined isr replacement '" + isr.Replacement + "'"})
			continue
		}
		replAddr := finalAddr[rIdx]
		mask := vm.InlineMask(vm.ImmWidthForSlot(immSlot(prog.Instructions[tIdx])))
		if replAddr >= mask {
			errs = append(errs, &Error{Line: isr.Line, Message: "isr replacement '" + isr.Replacement + "' address too far"})
			continue
		}
		prog.Instructions[tIdx].Imm = &ImmOperand{Value: vm.Word(replAddr)}
	}

	// Data image.
	dataImage := make([]byte, len(prog.DataWords)*vm.WordBytes)
	for i, dw := range prog.DataWords {
		dw.Value.PutBytes(dataImage[i*vm.WordBytes : (i+1)*vm.WordBytes])
	}
	if memSize > 0 && len(dataImage) > memSize {
		errs = append(errs, &Error{Message: "data image exceeds memory size"})
	}

	entryIdx, ok := labelIndex("main")
	if !ok {
		errs = append(errs, &Error{Message: "program has no 'main' label"})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	entry := finalAddr[entryIdx]

	// Emission.
	var words []vm.Word
	for i, instr := range prog.Instructions {
		instr.Address = finalAddr[i]
		instr.Extra = extra[i]
		args := vm.EncodeArgs{Cond: instr.Cond, Opcode: instr.Opcode}
		copy(args.Registers[:], instr.Registers)

		if instr.Imm != nil {
			args.ImmSet = true
			args.ImmSlot = instr.ImmSlot
			width := vm.ImmWidthForSlot(immSlot(instr))
			mask := vm.InlineMask(width)

			var resolved uint32
			if instr.Imm.IsLabel {
				idx, _ := labelIndex(instr.Imm.LabelName)
				resolved = finalAddr[idx]
			} else {
				resolved = instr.Imm.Value.Uint()
			}

			if extra[i] == 1 {
				args.Imm = mask
				instr.ExtPayload = vm.Word(resolved)
				words = append(words, vm.Encode(args), vm.Word(resolved))
			} else {
				args.Imm = resolved
				words = append(words, vm.Encode(args))
			}
			instr.InlineValue = args.Imm
			continue
		}

		words = append(words, vm.Encode(args))
	}

	return &Assembled{Program: words, DataImage: dataImage, Entry: entry, Symbols: prog.Symbols}, nil
}
