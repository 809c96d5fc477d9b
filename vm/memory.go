package vm

// Peripheral is the contract for the single memory-mapped I/O device
// sitting behind the peripheral window. Addresses passed in are absolute;
// it's up to the device to interpret them.
type Peripheral interface {
	Read(addr uint32) Word
	Write(addr uint32, w Word)
}

// Memory is the linear byte-addressed store backing a CPU: a fixed-size
// byte vector below the peripheral base, and a single redirector above it.
type Memory struct {
	bytes          []byte
	peripheralBase uint32
	peripheral     Peripheral
}

// NewMemory allocates a zeroed byte vector of the given size and wires it
// to a peripheral routed at addresses >= base.
func NewMemory(size int, base uint32, p Peripheral) *Memory {
	return &Memory{
		bytes:          make([]byte, size),
		peripheralBase: base,
		peripheral:     p,
	}
}

// Size is the number of addressable bytes below the peripheral window.
func (m *Memory) Size() int { return len(m.bytes) }

// Reset zeroes the memory vector; the peripheral is untouched (resetting
// the peripheral, if desired, is the CPU/host's job).
func (m *Memory) Reset() {
	clear(m.bytes)
}

// Load copies an initial data image into the start of memory, as the
// linker/loader does with the .word-initialized region.
func (m *Memory) Load(data []byte) {
	copy(m.bytes, data)
}

func (m *Memory) isPeripheral(addr uint32) bool {
	return addr >= m.peripheralBase
}

// ReadWord reads 4 little-endian bytes from addr, routed to the peripheral
// or the byte vector depending on the peripheral base. ok is false if the
// access falls outside memory (reads as zero) or if it straddles the end
// of the byte vector.
func (m *Memory) ReadWord(addr uint32) (Word, bool) {
	if m.isPeripheral(addr) {
		return m.peripheral.Read(addr), true
	}
	if uint64(addr)+WordBytes > uint64(len(m.bytes)) {
		return 0, false
	}
	return WordFromBytes(m.bytes[addr : addr+WordBytes]), true
}

// WriteWord writes w as 4 little-endian bytes at addr, routed the same way
// as ReadWord. ok is false on an out-of-range write (no bytes are written).
func (m *Memory) WriteWord(addr uint32, w Word) bool {
	if m.isPeripheral(addr) {
		m.peripheral.Write(addr, w)
		return true
	}
	if uint64(addr)+WordBytes > uint64(len(m.bytes)) {
		return false
	}
	w.PutBytes(m.bytes[addr : addr+WordBytes])
	return true
}

// ReadByte reads a single byte at addr. A peripheral access is promoted to
// a full word Read and truncated to the low byte.
func (m *Memory) ReadByte(addr uint32) (byte, bool) {
	if m.isPeripheral(addr) {
		return byte(m.peripheral.Read(addr).Uint()), true
	}
	if uint64(addr) >= uint64(len(m.bytes)) {
		return 0, false
	}
	return m.bytes[addr], true
}

// WriteByte writes a single byte at addr. A peripheral access zero-extends
// the byte into a full word and issues one Write.
func (m *Memory) WriteByte(addr uint32, b byte) bool {
	if m.isPeripheral(addr) {
		m.peripheral.Write(addr, Word(uint32(b)))
		return true
	}
	if uint64(addr) >= uint64(len(m.bytes)) {
		return false
	}
	m.bytes[addr] = b
	return true
}
