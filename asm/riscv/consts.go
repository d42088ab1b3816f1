// Package riscv implements the RV32IMAC instruction encoders, code buffer,
// and literal-pool-free PC-relative addressing for the ESPB native
// compiler's RISC-V backend (spec §4.2-§4.3).
//
// Encoding style follows the teacher's internal/asm/arm64 and
// internal/asm/amd64 packages (tetratelabs/wazero): each encoder is a pure
// function writing a fixed number of bytes directly into a little-endian
// byte cursor, with bitfields packed by hand rather than through a
// table-driven instruction-format abstraction. Register and immediate range
// checks live in the encoder, exactly as in asm/arm64/impl.go's
// validateMemoryOffset.
package riscv

import "github.com/espb/native/asm"

// Reg is a 5-bit RISC-V integer register number.
type Reg uint8

const (
	X0 Reg = iota // zero
	X1            // ra
	X2            // sp
	X3            // gp
	X4            // tp
	X5            // t0
	X6            // t1
	X7            // t2
	X8            // s0/fp
	X9            // s1
	X10           // a0
	X11           // a1
	X12           // a2
	X13           // a3
	X14           // a4
	X15           // a5
	X16           // a6
	X17           // a7
	X18           // s2
	X19           // s3
	X20           // s4
	X21           // s5
	X22           // s6
	X23           // s7
	X24           // s8
	X25           // s9
	X26           // s10
	X27           // s11
	X28           // t3
	X29           // t4
	X30           // t5
	X31           // t6
)

// ABI register roles used by the dispatcher and helper bridge.
const (
	RegFrameBase   = X18 // s2: holds &vreg.Frame.Slots[0] for the function's lifetime (callee-saved)
	RegInstance    = X19 // s3: holds the instance pointer argument (callee-saved)
	RegScratch0    = X5  // t0: caller-saved scratch, free across opcodes
	RegScratch1    = X6  // t1: caller-saved scratch, free across opcodes
	RegHelperAddr  = X7  // t2: holds a helper's absolute address immediately before jalr
	RegCacheTemp0  = X28 // t3: register-cache hot pair, slot 0
	RegCacheTemp1  = X29 // t4: register-cache hot pair, slot 1
	RegI64CacheLo  = X30 // t5: I64 cache low word
	RegI64CacheHi  = X31 // t6: I64 cache high word
	RegA0          = X10
	RegA1          = X11
	RegA2          = X12
	RegA3          = X13
	RegA4          = X14
	RegA5          = X15
	RegA6          = X16
	RegA7          = X17
	RegReturnAddr  = X1
	RegStackPtr    = X2
)

// errInvalid reports an out-of-range operand, per spec §4.2's encoder
// failure semantics ("fails ... when an operand is out of range").
func errInvalid(kind asm.ErrorKind, bcOffset int, op byte, msg string) *asm.CompileError {
	return asm.NewError(kind, bcOffset, op, errString(msg))
}

type errString string

func (e errString) Error() string { return string(e) }

// fitsSigned reports whether v fits in a signed field of the given bit width.
func fitsSigned(v int64, bits uint) bool {
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return v >= lo && v <= hi
}
