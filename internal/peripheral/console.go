// Package peripheral provides ready-to-wire implementations of vm.Peripheral
// for the CLI and debugger's default run configuration.
package peripheral

import (
	"bufio"
	"io"

	"github.com/ktstephano/rvm/vm"
)

// Console is a minimal memory-mapped character device: writing a word to
// its single register prints the low byte as a rune to Out; reading always
// yields zero (this device is write-only, matching spec.md's scenario 4
// shape of "one register, no addressing within the peripheral window").
type Console struct {
	w *bufio.Writer
}

// NewConsole wraps an io.Writer (os.Stdout in the CLI) as a Console.
func NewConsole(w io.Writer) *Console {
	return &Console{w: bufio.NewWriter(w)}
}

// Read always returns 0; Console exposes no readable state.
func (c *Console) Read(addr uint32) vm.Word {
	return 0
}

// Write prints the low byte of w as a character and flushes immediately,
// so output interleaves correctly with a debugger's own terminal writes.
func (c *Console) Write(addr uint32, w vm.Word) {
	c.w.WriteByte(byte(w.Uint()))
	c.w.Flush()
}
