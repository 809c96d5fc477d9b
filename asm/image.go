package asm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ktstephano/rvm/vm"
)

var imageMagic = [4]byte{'R', 'V', 'M', '1'}

const imageHeaderSize = 4 + 4 + 4 + 4 // magic, word count, data size, entry

// EncodeImage serializes an assembled program to the on-disk image format:
// a fixed little-endian header (magic, word count, data size, entry
// address) followed by the packed word stream and the data image.
func EncodeImage(a *Assembled) []byte {
	var buf bytes.Buffer
	buf.Write(imageMagic[:])
	binary.Write(&buf, binary.LittleEndian, uint32(len(a.Program))) //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint32(len(a.DataImage))) //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, a.Entry) //nolint:errcheck
	for _, w := range a.Program {
		binary.Write(&buf, binary.LittleEndian, uint32(w)) //nolint:errcheck
	}
	buf.Write(a.DataImage)
	return buf.Bytes()
}

// DecodeImage parses bytes produced by EncodeImage.
func DecodeImage(data []byte) (program []vm.Word, dataImage []byte, entry uint32, err error) {
	if len(data) < imageHeaderSize || !bytes.Equal(data[:4], imageMagic[:]) {
		return nil, nil, 0, fmt.Errorf("not an rvm image")
	}
	wordCount := binary.LittleEndian.Uint32(data[4:8])
	dataSize := binary.LittleEndian.Uint32(data[8:12])
	entry = binary.LittleEndian.Uint32(data[12:16])

	off := imageHeaderSize
	need := off + int(wordCount)*vm.WordBytes + int(dataSize)
	if len(data) < need {
		return nil, nil, 0, fmt.Errorf("truncated rvm image")
	}

	program = make([]vm.Word, wordCount)
	for i := range program {
		program[i] = vm.WordFromBytes(data[off : off+vm.WordBytes])
		off += vm.WordBytes
	}
	dataImage = append([]byte(nil), data[off:off+int(dataSize)]...)
	return program, dataImage, entry, nil
}
