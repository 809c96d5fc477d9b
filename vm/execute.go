package vm

import "math"

// execute dispatches one already-decoded, already-condition-passed
// instruction. Its return value is the *immediate* stop condition
// (everything except Segfault, which is latched via c.latchedTrap so the
// fault surfaces one cycle boundary later, per spec.md §4.6/§7).
func (c *CPU) execute(d Decoded) Status {
	switch d.Opcode.Arity() {
	case Arity0:
		return c.executeArity0(d.Opcode)
	case Arity1:
		return c.executeArity1(d.Opcode, d.Op1)
	case Arity2:
		return c.executeArity2(d.Opcode, d.Op1, d.Op2)
	case Arity3:
		return c.executeArity3(d.Opcode, d.Op1, d.Op2, d.Op3)
	default:
		return MissingInstruction
	}
}

// value resolves an operand to its 32-bit value: the register's contents,
// or the inline/extension immediate.
func (c *CPU) value(op Operand) Word {
	if op.IsRegister {
		return c.registers[op.Reg]
	}
	return op.Imm
}

func (c *CPU) executeArity0(op Opcode) Status {
	switch op {
	case OpNop:
	case OpRet:
		c.pc = c.pop().Uint()
	case OpCli:
		c.flags &^= FlagInterruptsEnabled
	case OpSei:
		c.flags |= FlagInterruptsEnabled
	default:
		return MissingInstruction
	}
	return Success
}

func (c *CPU) executeArity1(op Opcode, a1 Operand) Status {
	// JMP/CALL/PUSH read arg1 as a register-or-immediate value; the rest
	// write into a register and therefore require op1 to be one.
	switch op {
	case OpJmp:
		c.pc = c.value(a1).Uint()
		return Success
	case OpCall:
		c.push(Word(c.pc))
		c.pc = c.value(a1).Uint()
		return Success
	case OpPush:
		c.push(c.value(a1))
		return Success
	}

	if !a1.IsRegister {
		return BadInstruction
	}
	switch op {
	case OpPop:
		c.registers[a1.Reg] = c.pop()
	case OpItof:
		v := c.registers[a1.Reg]
		c.registers[a1.Reg] = WordFromFloat(float32(v.Int()))
	case OpFtoi:
		v := c.registers[a1.Reg]
		c.registers[a1.Reg] = WordFromInt(int32(v.Float()))
	case OpRngi:
		c.registers[a1.Reg] = Word(c.rng.Uint32())
	case OpRngf:
		c.registers[a1.Reg] = WordFromFloat(float32(c.rng.Float64()))
	default:
		return MissingInstruction
	}
	return Success
}

func (c *CPU) executeArity2(op Opcode, a1, a2 Operand) Status {
	if !a1.IsRegister {
		return BadInstruction
	}
	switch op {
	case OpMov:
		c.registers[a1.Reg] = c.value(a2)
	case OpCmpi:
		c.setCompareFlags(compareSigned(c.registers[a1.Reg].Int(), c.value(a2).Int()))
	case OpCmpu:
		c.setCompareFlags(compareUnsigned(c.registers[a1.Reg].Uint(), c.value(a2).Uint()))
	case OpCmpf:
		c.setCompareFlags(compareFloat(c.registers[a1.Reg].Float(), c.value(a2).Float()))
	default:
		return MissingInstruction
	}
	return Success
}

func (c *CPU) executeArity3(op Opcode, a1, a2, a3 Operand) Status {
	switch op {
	case OpLdr:
		// arg2 and arg3 are both register-or-immediate: the common 3-operand
		// form treats arg2 as a base register and arg3 as a signed offset;
		// the 2-operand assembly shorthand leaves arg3 unencoded, which
		// decodes to the zero operand, so it falls out as offset 0.
		if !a1.IsRegister {
			return BadInstruction
		}
		addr := c.effectiveAddress(a2, a3)
		c.registers[a1.Reg] = c.readWord(addr)
		return Success
	case OpStr:
		if !a1.IsRegister {
			return BadInstruction
		}
		addr := c.effectiveAddress(a2, a3)
		c.writeWord(addr, c.registers[a1.Reg])
		return Success
	}

	if !a1.IsRegister || !a2.IsRegister {
		return BadInstruction
	}
	x := c.registers[a2.Reg]
	y := c.value(a3)

	switch op {
	case OpShrs:
		c.registers[a1.Reg] = WordFromInt(x.Int() >> (y.Uint() & 31))
	case OpShru:
		c.registers[a1.Reg] = Word(x.Uint() >> (y.Uint() & 31))
	case OpShl:
		c.registers[a1.Reg] = Word(x.Uint() << (y.Uint() & 31))
	case OpAnd:
		c.registers[a1.Reg] = Word(x.Uint() & y.Uint())
	case OpOr:
		c.registers[a1.Reg] = Word(x.Uint() | y.Uint())
	case OpXor:
		c.registers[a1.Reg] = Word(x.Uint() ^ y.Uint())
	case OpNot:
		c.registers[a1.Reg] = Word(^x.Uint())
	case OpAdd:
		c.registers[a1.Reg] = WordFromInt(x.Int() + y.Int())
	case OpSub:
		c.registers[a1.Reg] = WordFromInt(x.Int() - y.Int())
	case OpMul:
		c.registers[a1.Reg] = WordFromInt(x.Int() * y.Int())
	case OpDiv:
		if y.Int() == 0 {
			return DivisionByZero
		}
		c.registers[a1.Reg] = WordFromInt(x.Int() / y.Int())
	case OpMod:
		if y.Int() == 0 {
			return DivisionByZero
		}
		c.registers[a1.Reg] = WordFromInt(x.Int() % y.Int())
	case OpAddf:
		c.registers[a1.Reg] = WordFromFloat(x.Float() + y.Float())
	case OpSubf:
		c.registers[a1.Reg] = WordFromFloat(x.Float() - y.Float())
	case OpMulf:
		c.registers[a1.Reg] = WordFromFloat(x.Float() * y.Float())
	case OpDivf:
		if y.Float() == 0 {
			return DivisionByZero
		}
		c.registers[a1.Reg] = WordFromFloat(x.Float() / y.Float())
	case OpModf:
		if y.Float() == 0 {
			return DivisionByZero
		}
		c.registers[a1.Reg] = WordFromFloat(float32(math.Mod(float64(x.Float()), float64(y.Float()))))
	default:
		return MissingInstruction
	}
	return Success
}

// effectiveAddress computes base + signed offset, where both are resolved
// as register-or-immediate values. The 2-operand LDR/STR shorthand encodes
// no separate offset slot at all; that decodes as the zero Operand, which
// resolves to 0 here, leaving the shorthand's address unmodified.
func (c *CPU) effectiveAddress(base, offset Operand) uint32 {
	return c.value(base).Uint() + uint32(c.value(offset).Int())
}

type compareResult struct {
	equal, greater, less bool
}

func compareSigned(x, y int32) compareResult {
	return compareResult{equal: x == y, greater: x > y, less: x < y}
}

func compareUnsigned(x, y uint32) compareResult {
	return compareResult{equal: x == y, greater: x > y, less: x < y}
}

func compareFloat(x, y float32) compareResult {
	return compareResult{equal: x == y, greater: x > y, less: x < y}
}

func (c *CPU) setCompareFlags(r compareResult) {
	c.flags &^= FlagEqual | FlagGreaterThan | FlagLessThan
	if r.equal {
		c.flags |= FlagEqual
	}
	if r.greater {
		c.flags |= FlagGreaterThan
	}
	if r.less {
		c.flags |= FlagLessThan
	}
}
