package vm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Word is the atomic 32-bit value of the machine: a union view that can be
// reinterpreted as a signed int, unsigned int, float, or little-endian byte
// tuple without conversion. There is exactly one underlying bit pattern;
// the view functions below only change how it's read.
type Word uint32

// WordBytes is the width of a Word in bytes.
const WordBytes = 4

// WordFromInt reinterprets a signed int32 bit pattern as a Word.
func WordFromInt(v int32) Word { return Word(uint32(v)) }

// WordFromFloat reinterprets a float32 bit pattern as a Word.
func WordFromFloat(v float32) Word { return Word(math.Float32bits(v)) }

// WordFromBytes decodes 4 little-endian bytes into a Word. Panics if fewer
// than 4 bytes are given; callers are expected to have bounds-checked.
func WordFromBytes(b []byte) Word {
	return Word(binary.LittleEndian.Uint32(b))
}

// Int reinterprets the Word as a signed 32-bit integer.
func (w Word) Int() int32 { return int32(w) }

// Uint reinterprets the Word as an unsigned 32-bit integer.
func (w Word) Uint() uint32 { return uint32(w) }

// Float reinterprets the Word as an IEEE-754 float32.
func (w Word) Float() float32 { return math.Float32frombits(uint32(w)) }

// Bytes returns the little-endian 4-byte encoding of the Word; byte 0 is
// the least significant byte.
func (w Word) Bytes() [WordBytes]byte {
	var b [WordBytes]byte
	binary.LittleEndian.PutUint32(b[:], uint32(w))
	return b
}

// PutBytes writes the little-endian encoding of the Word into dst, which
// must have length >= WordBytes.
func (w Word) PutBytes(dst []byte) {
	binary.LittleEndian.PutUint32(dst, uint32(w))
}

func (w Word) String() string {
	return fmt.Sprintf("%#08x (int=%d float=%g)", uint32(w), w.Int(), w.Float())
}
