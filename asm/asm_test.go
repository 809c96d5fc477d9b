package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktstephano/rvm/vm"
)

const testMemSize = 1024

func assembleOK(t *testing.T, src string) *Assembled {
	t.Helper()
	a, errs := Assemble(src, testMemSize)
	require.Empty(t, errs, "%v", errs)
	require.NotNil(t, a)
	return a
}

func runAssembled(t *testing.T, a *Assembled, budget int) (vm.Status, *vm.CPU) {
	t.Helper()
	mem := vm.NewMemory(testMemSize, 0x80000000, &stubPeripheral{})
	cpu := vm.NewCPU(mem)
	cpu.Load(a.Program, a.DataImage, a.Entry)
	status, _ := cpu.Cycle(budget)
	return status, cpu
}

type stubPeripheral struct {
	lastWrite vm.Word
	writes    int
	readValue vm.Word
}

func (p *stubPeripheral) Read(addr uint32) vm.Word { return p.readValue }
func (p *stubPeripheral) Write(addr uint32, w vm.Word) {
	p.lastWrite = w
	p.writes++
}

func TestAssembleRejectsMissingMain(t *testing.T) {
	_, errs := Assemble("nop\n", testMemSize)
	require.NotEmpty(t, errs)
}

func TestScenario1BranchesNeverTaken(t *testing.T) {
	src := `
main:
  mov r0 42
  cmpi r0 42
  jmp.ne 1001
  mov r0 -1
  mov r1 2
  cmpi r0 r1
  jmp.ge 1005
`
	a := assembleOK(t, src)
	status, cpu := runAssembled(t, a, 1000)
	assert.Equal(t, vm.OutOfInstructions, status)
	assert.GreaterOrEqual(t, cpu.PC(), uint32(len(a.Program)))
}

func TestScenario2WordLoad(t *testing.T) {
	src := `
.word x 33
main:
  ldr r0 x
  cmpi r0 33
  jmp.ne 1003
`
	a := assembleOK(t, src)
	status, cpu := runAssembled(t, a, 1000)
	assert.Equal(t, vm.OutOfInstructions, status)
	assert.Equal(t, vm.Word(33), cpu.Register(0))
}

func TestScenario3FloatAdd(t *testing.T) {
	src := `
main:
  mov r0 0.25
  mov r1 0.5
  addf r2 r0 r1
  cmpf r2 0.75
  jmp.ne 1010
`
	a := assembleOK(t, src)
	status, cpu := runAssembled(t, a, 1000)
	assert.Equal(t, vm.OutOfInstructions, status)
	assert.InDelta(t, float32(0.75), cpu.Register(2).Float(), 1e-9)
}

func TestScenario4PeripheralRoundTrip(t *testing.T) {
	src := `
main:
  mov r0 0xdeadbeef
  str r0 0x80001000
  ldr r1 0x80001000
`
	a := assembleOK(t, src)
	per := &stubPeripheral{readValue: 0xdeadbeef}
	mem := vm.NewMemory(testMemSize, 0x80000000, per)
	cpu := vm.NewCPU(mem)
	cpu.Load(a.Program, a.DataImage, a.Entry)
	status, _ := cpu.Cycle(1000)
	assert.Equal(t, vm.OutOfInstructions, status)
	assert.Equal(t, 1, per.writes)
	assert.Equal(t, vm.Word(0xdeadbeef), per.lastWrite)
	assert.Equal(t, vm.Word(0xdeadbeef), cpu.Register(1))
}

func TestScenario5ISRRedirect(t *testing.T) {
	src := `
isr_entry:
  jmp isr_stub
isr_stub:
  ret
.isr isr_entry my_handler
my_handler:
  mov r0 0x12345678
  ret
main:
  nop
`
	a := assembleOK(t, src)
	mem := vm.NewMemory(testMemSize, 0x80000000, &stubPeripheral{})
	cpu := vm.NewCPU(mem)
	cpu.Load(a.Program, a.DataImage, a.Entry)

	entrySym, ok := a.Symbols.Lookup("isr_entry")
	require.True(t, ok)
	require.True(t, cpu.Interrupt(entrySym.Value.Uint()))

	status, _ := cpu.Cycle(10)
	assert.Equal(t, vm.Word(0x12345678), cpu.Register(0))
	assert.Equal(t, vm.OutOfInstructions, status)
}

func TestScenario6DivisionByZero(t *testing.T) {
	src := `
main:
  mov r0 5
  mov r1 0
  div r2 r0 r1
`
	a := assembleOK(t, src)
	status, _ := runAssembled(t, a, 1000)
	assert.Equal(t, vm.DivisionByZero, status)
}

func TestForwardJumpResolvesPastIntermediateInstructions(t *testing.T) {
	src := `
main:
  jmp skip
` + repeatNops(5) + `
skip:
  mov r0 7
`
	a := assembleOK(t, src)
	status, cpu := runAssembled(t, a, 1000)
	assert.Equal(t, vm.OutOfInstructions, status)
	assert.Equal(t, vm.Word(7), cpu.Register(0))
}

func repeatNops(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += "nop\n"
	}
	return s
}

func TestConstAndWordDirectives(t *testing.T) {
	src := `
.const answer 42
.word counter 0
main:
  mov r0 answer
  str r0 counter
  ldr r1 counter
  cmpi r1 answer
  jmp.ne 1099
`
	a := assembleOK(t, src)
	status, cpu := runAssembled(t, a, 1000)
	assert.Equal(t, vm.OutOfInstructions, status)
	assert.Equal(t, vm.Word(42), cpu.Register(1))
}

func TestDisassembleRoundTrip(t *testing.T) {
	src := `
main:
  mov r0 42
  add r1 r0 r0
  ret
`
	a := assembleOK(t, src)
	lines := Disassemble(a.Program)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "mov")
	assert.Contains(t, lines[1], "add")
	assert.Contains(t, lines[2], "ret")
}

func TestImageRoundTrip(t *testing.T) {
	src := "main:\n  mov r0 1\n  ret\n"
	a := assembleOK(t, src)
	encoded := EncodeImage(a)
	program, dataImage, entry, err := DecodeImage(encoded)
	require.NoError(t, err)
	assert.Equal(t, a.Program, program)
	assert.Equal(t, a.DataImage, dataImage)
	assert.Equal(t, a.Entry, entry)
}
