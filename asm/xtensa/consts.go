// Package xtensa implements the Xtensa LX instruction encoders, the
// accumulator-backed Code Buffer required by IRAM's no-byte-store
// restriction, and the literal pool, for the ESPB native compiler's Xtensa
// backend (spec §4.2-§4.4).
//
// No Xtensa-specific reference assembler was present in the retrieval pack
// (the teacher and the rest of the example corpus target amd64/arm64/riscv);
// the instruction formats below follow the field shapes Xtensa's own
// documentation describes (RRR / RRI8 / BRI / CALLX / entry / retw, plus the
// .n narrow forms) in the same encode-a-fixed-byte-layout style the teacher
// uses for arm64 and amd64 (internal/asm/arm64/impl.go,
// internal/asm/amd64/impl.go): each encoder packs register and immediate
// fields into a little-endian byte array by hand. See DESIGN.md for the
// explicit note that these layouts are structurally modeled rather than
// verified byte-for-byte against a vendor toolchain.
package xtensa

import "github.com/espb/native/asm"

// AR is a windowed address register number, AR0-AR15 as seen through the
// current window (the physical register it maps to depends on the window
// base, which the caller never manipulates directly: CALLX8 and ENTRY/RETW
// are the only window-rotating instructions this backend emits).
type AR uint8

const (
	A0 AR = iota
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	A8
	A9
	A10
	A11
	A12
	A13
	A14
	A15
)

// ABI register roles, per spec §4.8 (windowed ABI argument marshalling).
//
// A compiled function is itself a windowed-ABI callee: whatever called it
// did so via call8, so ENTRY's window rotation exposes the caller's outgoing
// a2/a3 here as this function's incoming a2/a3 (instance, frame). Prologue
// copies both into the permanently-live RegInstance/RegFrameBase before any
// opcode touches a2/a3 for anything else, freeing a2/a3 for general scratch
// use for the rest of the function body.
//
// RegCacheTemp0/1, RegI64CacheLo/Hi, RegLiteral, and RegArg5 double as the
// outgoing helper-call argument staging registers: a10-a15 become the
// callee's a2-a7 after callx8's 8-register window rotation (callee ar_i ==
// caller ar_(i+8)), which is exactly the six slots a helper call ever needs
// (instance, frame, and up to four vreg indices/predicates). RegHelperAddr
// is deliberately placed below the rotation window, at a6: since callee
// ar_i only aliases caller registers a8 and up, a6 is invisible to the
// callee and safe to hold the callx8 target right through the call, with no
// risk of the helper address leaking into the callee's view as a bogus
// seventh argument (which caller a15 would, if it doubled as the call
// target). See DESIGN.md.
const (
	RegReturnAddr    = A0
	RegStackPtr      = A1
	RegIncomingInst  = A2 // instance pointer, valid only before Prologue copies it out
	RegIncomingFrame = A3 // &vreg.Frame.Slots[0], valid only before Prologue copies it out
	RegScratch0      = A2 // free once Prologue has copied RegIncomingInst out
	RegScratch1      = A3 // free once Prologue has copied RegIncomingFrame out
	RegHelperAddr    = A6 // holds a helper's absolute address before callx8; below the window, invisible to the callee
	RegFrameBase     = A8 // holds &vreg.Frame.Slots[0] across the function body
	RegInstance      = A9 // holds the instance pointer
	RegCacheTemp0    = A10
	RegCacheTemp1    = A11
	RegI64CacheLo    = A12
	RegI64CacheHi    = A13
	RegLiteral       = A14 // scratch used to hold a just-loaded literal-pool value
	RegArg5          = A15 // sixth outgoing helper argument slot
)

// HelperArgRegs are the outgoing argument registers for a helper call, in
// order: a10 becomes the callee's a2, a11 becomes a3, ..., a15 becomes a7.
// A call passes at most six arguments (instance, frame, and up to four vreg
// indices/predicates), which is exactly this array's length.
var HelperArgRegs = [...]AR{RegCacheTemp0, RegCacheTemp1, RegI64CacheLo, RegI64CacheHi, RegLiteral, RegArg5}

type errString string

func (e errString) Error() string { return string(e) }

func errInvalid(kind asm.ErrorKind, bcOffset int, op byte, msg string) *asm.CompileError {
	return asm.NewError(kind, bcOffset, op, errString(msg))
}

func fitsSigned(v int64, bits uint) bool {
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return v >= lo && v <= hi
}
