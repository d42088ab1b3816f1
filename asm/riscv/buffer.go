package riscv

import "encoding/binary"

// CodeBuffer is the RISC-V Code Buffer (spec §4.3). RISC-V instructions are
// 2 or 4 bytes wide (the C extension permits 2-byte alignment for branch
// targets), so, unlike Xtensa, writes are plain little-endian byte writes
// with no sub-word accumulator: the alignment policy for this ISA is "every
// instruction starts on a 2-byte boundary", enforced once here rather than
// scattered through each encoder (spec §9, "the alignment policy must be
// expressed once per ISA in the code buffer").
type CodeBuffer struct {
	buf   []byte
	err   error // sticky error flag (spec §4.3 failure semantics)
	limit int
}

func NewCodeBuffer(capacity int) *CodeBuffer {
	return &CodeBuffer{buf: make([]byte, 0, capacity), limit: capacity}
}

func (b *CodeBuffer) Len() int { return len(b.buf) }

func (b *CodeBuffer) Bytes() []byte { return b.buf }

func (b *CodeBuffer) Err() error { return b.err }

func (b *CodeBuffer) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Emit2 writes a 2-byte compressed instruction.
func (b *CodeBuffer) Emit2(v uint16) {
	if b.err != nil {
		return
	}
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.append(tmp[:])
}

// Emit4 writes a 4-byte standard instruction.
func (b *CodeBuffer) Emit4(v uint32) {
	if b.err != nil {
		return
	}
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.append(tmp[:])
}

func (b *CodeBuffer) append(p []byte) {
	if len(b.buf)+len(p) > cap(b.buf) {
		b.fail(errString("riscv: code buffer overflow"))
		return
	}
	b.buf = append(b.buf, p...)
}

// AlignWord pads with a compressed NOP (C.NOP, 0x0001) until the cursor is
// word-aligned. RISC-V has no hard requirement that arbitrary instructions
// be word-aligned, but the function epilogue and any literal placement is
// kept word-aligned for uniformity with the Xtensa backend's contract.
func (b *CodeBuffer) AlignWord() {
	for len(b.buf)%4 != 0 {
		b.Emit2(0x0001) // c.nop
	}
}

// PatchU32 overwrites 4 bytes at offset in place (used by branch fixup
// resolution); unlike Xtensa this never needs read-modify-write semantics
// because RISC-V permits ordinary byte-granular stores.
func (b *CodeBuffer) PatchU32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(b.buf[offset:offset+4], v)
}

// PatchU16 overwrites 2 bytes at offset in place.
func (b *CodeBuffer) PatchU16(offset int, v uint16) {
	binary.LittleEndian.PutUint16(b.buf[offset:offset+2], v)
}
