// Package riscv is the RV32IMAC Backend (spec §4, §6): the Opcode
// Dispatcher and Patching & Finalization stages for the RISC-V ISA, built on
// top of asm/riscv's encoders and buffer and asm.Labels' fixup table.
package riscv

import (
	"github.com/espb/native/asm"
	riscvasm "github.com/espb/native/asm/riscv"
	"github.com/espb/native/bytecode"
	"github.com/espb/native/compiler"
	"github.com/espb/native/helper"
)

func init() {
	compiler.RegisterBackend(compiler.ISARiscV, func(helpers *helper.Table, instance uintptr, funcIndex int) compiler.Backend {
		return newCompiler(helpers, instance, funcIndex)
	})
}

type errString string

func (e errString) Error() string { return string(e) }

// epilogueSentinel is an out-of-band TargetBC value meaning "the shared
// epilogue", since valid bytecode offsets are always >= 0.
const epilogueSentinel = -1

const (
	fixupJal asm.FixupKind = iota
	fixupBranch
)

// pendingFixup carries the ISA-specific information asm.Labels' generic
// Fixup does not: which registers (and therefore which instruction word
// shape) a forward branch needs once its displacement is known.
type pendingFixup struct {
	encode func(disp int32) (uint32, error)
}

// Compiler implements compiler.Backend for RV32IMAC. One Compiler is used
// for exactly one compile() call (spec §9, never reused across functions).
type Compiler struct {
	buf       *riscvasm.CodeBuffer
	labels    *asm.Labels
	cache     *RegCache
	helpers   *helper.Table
	instance  uintptr
	funcIndex int
	body      *bytecode.Body
	pending   map[int]pendingFixup
	err       error
}

func newCompiler(helpers *helper.Table, instance uintptr, funcIndex int) *Compiler {
	buf := riscvasm.NewCodeBuffer(64 * 1024)
	c := &Compiler{
		buf:       buf,
		labels:    asm.NewLabels(),
		helpers:   helpers,
		instance:  instance,
		funcIndex: funcIndex,
		pending:   make(map[int]pendingFixup),
	}
	c.cache = NewRegCache(buf)
	return c
}

func (c *Compiler) Labels() *asm.Labels { return c.labels }

func (c *Compiler) fail(kind asm.ErrorKind, bcOffset int, op byte, err error) error {
	if c.err == nil {
		c.err = asm.NewError(kind, bcOffset, op, err)
	}
	return c.err
}

// Prologue emits the function entry sequence: allocate a 16-byte frame,
// save ra and the two callee-saved registers the dispatcher treats as
// permanently live (RegFrameBase, RegInstance), then populate them from the
// incoming argument registers. s0 is not saved: nothing in this backend
// uses a dedicated frame pointer, only sp-relative spill slots.
func (c *Compiler) Prologue(body *bytecode.Body) error {
	c.body = body
	b := c.buf
	must := func(err error) {
		if err != nil {
			c.fail(asm.ErrEncoding, 0, 0, err)
		}
	}
	must(b.Addi(riscvasm.RegStackPtr, riscvasm.RegStackPtr, -16))
	must(b.Sw(riscvasm.RegReturnAddr, riscvasm.RegStackPtr, 12))
	must(b.Sw(riscvasm.RegFrameBase, riscvasm.RegStackPtr, 8))
	must(b.Sw(riscvasm.RegInstance, riscvasm.RegStackPtr, 4))
	b.Add(riscvasm.RegFrameBase, riscvasm.RegA1, riscvasm.X0) // frame ptr arrives in a1
	b.Add(riscvasm.RegInstance, riscvasm.RegA0, riscvasm.X0)  // instance arrives in a0
	return c.err
}

// loadImm32 materializes a 32-bit constant into rd via lui+addi (or a bare
// addi when it fits the 12-bit immediate), the same two-instruction sequence
// the helper call bridge uses for absolute addresses.
func (c *Compiler) loadImm32(rd riscvasm.Reg, v int32) {
	if fitsSigned12(v) {
		c.mustEnc(c.buf.Addi(rd, riscvasm.X0, v))
		return
	}
	hi := (uint32(v) + 0x800) >> 12
	lo := int32(v) - int32(hi<<12)
	c.buf.Lui(rd, hi)
	c.mustEnc(c.buf.Addi(rd, rd, lo))
}

func fitsSigned12(v int32) bool { return v >= -2048 && v <= 2047 }

func (c *Compiler) mustEnc(err error) {
	if err != nil {
		c.fail(asm.ErrEncoding, 0, 0, err)
	}
}

func (c *Compiler) flushCache() {
	if err := c.cache.FlushAll(); err != nil {
		c.fail(asm.ErrEncoding, 0, 0, err)
	}
}

func (c *Compiler) slotOff(v uint8) int32 { return int32(v) * 8 }

func (c *Compiler) loadSlotLo(rd riscvasm.Reg, v uint8) {
	c.mustEnc(c.buf.Lw(rd, riscvasm.RegFrameBase, c.slotOff(v)))
}
func (c *Compiler) loadSlotHi(rd riscvasm.Reg, v uint8) {
	c.mustEnc(c.buf.Lw(rd, riscvasm.RegFrameBase, c.slotOff(v)+4))
}
func (c *Compiler) storeSlotLo(v uint8, rs riscvasm.Reg) {
	c.mustEnc(c.buf.Sw(rs, riscvasm.RegFrameBase, c.slotOff(v)))
}
func (c *Compiler) storeSlotHi(v uint8, rs riscvasm.Reg) {
	c.mustEnc(c.buf.Sw(rs, riscvasm.RegFrameBase, c.slotOff(v)+4))
}

// zeroSlotHi clears the high word of a frame slot. Every write of a
// 32-bit-or-narrower result must call this alongside storeSlotLo: spec §3
// requires the high 32 bits of a 32-bit-typed slot to always read back as
// zero, the same invariant vreg.Frame's SetI32/SetU32/etc. honor by
// construction and the reference interpreter relies on for the
// compile-vs-interpret round trip (spec §8).
func (c *Compiler) zeroSlotHi(v uint8) {
	c.mustEnc(c.buf.Sw(riscvasm.X0, riscvasm.RegFrameBase, c.slotOff(v)+4))
}

// CompileOp decodes and emits exactly one opcode, per compiler.Backend.
func (c *Compiler) CompileOp(r *bytecode.Reader) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	bcOff := r.Offset()
	op := r.Opcode()
	o := r.ReadOperands(op)

	// Invariant (spec §3): a label for this opcode's bytecode offset is
	// recorded at the first native byte emitted for it, before any of that
	// emission happens.
	c.labels.Record(bcOff, c.buf.Len())

	c.dispatch(bcOff, op, o)

	if err := c.buf.Err(); err != nil {
		return false, c.fail(asm.ErrEncoding, bcOff, byte(op), err)
	}
	if c.err != nil {
		return false, c.err
	}
	return op != bytecode.OpEnd, nil
}

func (c *Compiler) dispatch(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	switch {
	case op == bytecode.OpConstI8 || op == bytecode.OpConstI16 || op == bytecode.OpConstI32 || op == bytecode.OpConstPtr:
		rd, err := c.cache.Claim(o.Dst)
		if err != nil {
			c.fail(asm.ErrEncoding, bcOff, byte(op), err)
			return
		}
		c.loadImm32(rd, int32(o.ImmI64))

	case op == bytecode.OpConstI64:
		c.flushCache()
		c.loadImm32(riscvasm.RegScratch0, int32(o.ImmI64))
		c.loadImm32(riscvasm.RegScratch1, int32(o.ImmI64>>32))
		c.storeSlotLo(o.Dst, riscvasm.RegScratch0)
		c.storeSlotHi(o.Dst, riscvasm.RegScratch1)

	case op == bytecode.OpConstF32:
		c.flushCache()
		c.loadImm32(riscvasm.RegScratch0, int32(o.ImmF32Bits))
		c.storeSlotLo(o.Dst, riscvasm.RegScratch0)
		c.zeroSlotHi(o.Dst)

	case op == bytecode.OpConstF64:
		c.flushCache()
		c.loadImm32(riscvasm.RegScratch0, int32(o.ImmF64Bits))
		c.loadImm32(riscvasm.RegScratch1, int32(o.ImmF64Bits>>32))
		c.storeSlotLo(o.Dst, riscvasm.RegScratch0)
		c.storeSlotHi(o.Dst, riscvasm.RegScratch1)

	case op >= bytecode.OpMove8 && op <= bytecode.OpMove32:
		r1, err := c.cache.Load(o.Src1)
		if err != nil {
			c.fail(asm.ErrEncoding, bcOff, byte(op), err)
			return
		}
		rd, err := c.cache.Claim(o.Dst)
		if err != nil {
			c.fail(asm.ErrEncoding, bcOff, byte(op), err)
			return
		}
		c.buf.Add(rd, r1, riscvasm.X0)

	case op == bytecode.OpMove64:
		c.flushCache()
		c.loadSlotLo(riscvasm.RegScratch0, o.Src1)
		c.loadSlotHi(riscvasm.RegScratch1, o.Src1)
		c.storeSlotLo(o.Dst, riscvasm.RegScratch0)
		c.storeSlotHi(o.Dst, riscvasm.RegScratch1)

	case op >= bytecode.OpI32Add && op <= bytecode.OpI32ShrU && op != bytecode.OpI32Not:
		c.emitI32Binary(bcOff, op, o)
	case op == bytecode.OpI32Not:
		r1, err := c.cache.Load(o.Src1)
		if err != nil {
			c.fail(asm.ErrEncoding, bcOff, byte(op), err)
			return
		}
		rd, err := c.cache.Claim(o.Dst)
		if err != nil {
			c.fail(asm.ErrEncoding, bcOff, byte(op), err)
			return
		}
		c.mustEnc(c.buf.Xori(rd, r1, -1))

	case op >= bytecode.OpI64Add && op <= bytecode.OpI64ShrU, op == bytecode.OpI64Not:
		c.emitI64ViaHelper(bcOff, op, o)

	case op >= bytecode.OpF32Add && op <= bytecode.OpF64Sqrt:
		c.emitFloatViaHelper(bcOff, op, o)

	case op >= bytecode.OpF32FromI32S && op <= bytecode.OpI64FromF64U:
		c.emitFloatConvertViaHelper(bcOff, op, o)

	case op >= bytecode.OpI32Eq && op <= bytecode.OpI32GeU:
		c.emitI32Compare(bcOff, op, o)
	case op >= bytecode.OpI64Eq && op <= bytecode.OpI64GeU:
		c.emitCompareViaHelper(c.helpers.I64Compare, bcOff, op, o)
	case op >= bytecode.OpF32Eq && op <= bytecode.OpF64Ge:
		c.emitFloatCompareViaHelper(bcOff, op, o)

	case op >= bytecode.OpLoad8S && op <= bytecode.OpLoadF64:
		c.emitLoad(bcOff, op, o)
	case op >= bytecode.OpStore8 && op <= bytecode.OpStoreF64:
		c.emitStore(bcOff, op, o)

	case op == bytecode.OpBr:
		c.emitBr(bcOff, o)
	case op == bytecode.OpBrIf:
		c.emitBrIf(bcOff, o)
	case op == bytecode.OpBrTable:
		c.emitBrTable(bcOff, o)
	case op == bytecode.OpEnd:
		c.emitEnd()
	case op == bytecode.OpUnreachable:
		c.emitUnreachable()

	case op == bytecode.OpCallDirect:
		c.emitCallDirect(bcOff, o)
	case op == bytecode.OpCallIndirect:
		c.emitCallIndirect(bcOff, o)
	case op == bytecode.OpCallImport:
		c.emitCallImport(bcOff, o)

	case op == bytecode.OpI32ExtendI8S:
		c.emitExtend(bcOff, o, 24)
	case op == bytecode.OpI32ExtendI16S:
		c.emitExtend(bcOff, o, 16)
	case op == bytecode.OpI64ExtendI8S:
		c.emitExtend64(bcOff, o, 24, true)
	case op == bytecode.OpI64ExtendI16S:
		c.emitExtend64(bcOff, o, 16, true)
	case op == bytecode.OpI64ExtendI32S:
		c.emitExtend64(bcOff, o, 0, true)
	case op == bytecode.OpI64ExtendI32U:
		c.emitExtend64(bcOff, o, 0, false)
	case op == bytecode.OpI32WrapI64:
		r1, err := c.cache.Load(o.Src1)
		if err != nil {
			c.fail(asm.ErrEncoding, bcOff, byte(op), err)
			return
		}
		rd, err := c.cache.Claim(o.Dst)
		if err != nil {
			c.fail(asm.ErrEncoding, bcOff, byte(op), err)
			return
		}
		c.buf.Add(rd, r1, riscvasm.X0)
	case op == bytecode.OpF64PromoteF32:
		c.emitHelper1(c.helpers.F64FromI32S, bcOff, op, o) // soft-float promote, same calling shape
	case op == bytecode.OpF32DemoteF64:
		c.emitHelper1(c.helpers.F32FromI32S, bcOff, op, o)
	case op == bytecode.OpPtrFromI32, op == bytecode.OpI32FromPtr:
		r1, err := c.cache.Load(o.Src1)
		if err != nil {
			c.fail(asm.ErrEncoding, bcOff, byte(op), err)
			return
		}
		rd, err := c.cache.Claim(o.Dst)
		if err != nil {
			c.fail(asm.ErrEncoding, bcOff, byte(op), err)
			return
		}
		c.buf.Add(rd, r1, riscvasm.X0)

	case op == bytecode.OpGlobalGetAddr:
		c.emitGlobal(bcOff, c.helpers.LdGlobalAddr, o, true)
	case op == bytecode.OpGlobalGet:
		c.emitGlobal(bcOff, c.helpers.LdGlobal, o, true)
	case op == bytecode.OpGlobalSet:
		c.emitGlobal(bcOff, c.helpers.StGlobal, o, false)

	case op >= bytecode.OpMemoryInit && op <= bytecode.OpElemDrop:
		c.emitExtended3(bcOff, op, o)
	case op >= bytecode.OpHeapMalloc && op <= bytecode.OpHeapFree:
		c.emitExtended3(bcOff, op, o)

	case op == bytecode.OpAtomicLoad32:
		c.emitAtomicLoad(bcOff, o, false)
	case op == bytecode.OpAtomicLoad64:
		c.emitAtomicLoad(bcOff, o, true)
	case op == bytecode.OpAtomicStore32:
		c.emitAtomicStore(bcOff, o, false)
	case op == bytecode.OpAtomicStore64:
		c.emitAtomicStore(bcOff, o, true)
	case op >= bytecode.OpAtomicAdd32 && op <= bytecode.OpAtomicXor32:
		c.emitAtomicRMW32(bcOff, op, o)
	case op >= bytecode.OpAtomicAdd64 && op <= bytecode.OpAtomicXor64:
		c.emitAtomic64ViaHelper(bcOff, op, o)
	case op == bytecode.OpAtomicExchange32:
		c.emitAtomicExchange32(bcOff, o)
	case op == bytecode.OpAtomicExchange64:
		c.emitHelperExtended(c.helpers.AtomicExchange64, bcOff, o)
	case op == bytecode.OpAtomicCmpExchange32:
		c.emitHelperCmpExchange(c.helpers.AtomicCmpExchange32, bcOff, o)
	case op == bytecode.OpAtomicCmpExchange64:
		c.emitHelperCmpExchange(c.helpers.AtomicCmpExchange64, bcOff, o)
	case op == bytecode.OpAtomicFence:
		c.flushCache()
		c.emitHelperCall(c.helpers.AtomicFence)

	case op == bytecode.OpAlloca:
		c.emitAlloca(bcOff, o)

	default:
		c.fail(asm.ErrUnsupportedOpcode, bcOff, byte(op), errString("riscv: opcode not implemented"))
	}
}

func (c *Compiler) emitI32Binary(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	r1, err := c.cache.Load(o.Src1)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, byte(op), err)
		return
	}
	r2, err := c.cache.Load(o.Src2)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, byte(op), err)
		return
	}
	// The fixed-victim RegCache eviction policy guarantees Claim(dst) below
	// reuses r1's physical register whenever dst differs from both
	// operands: rs1 is read before rd is written within one instruction, so
	// this is always correct even though rd may alias r1 (spec §4.6).
	rd, err := c.cache.Claim(o.Dst)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, byte(op), err)
		return
	}
	switch op {
	case bytecode.OpI32Add:
		c.buf.Add(rd, r1, r2)
	case bytecode.OpI32Sub:
		c.buf.Sub(rd, r1, r2)
	case bytecode.OpI32Mul:
		c.buf.Mul(rd, r1, r2)
	case bytecode.OpI32DivS:
		c.buf.Div(rd, r1, r2)
	case bytecode.OpI32DivU:
		c.buf.Divu(rd, r1, r2)
	case bytecode.OpI32RemS:
		c.buf.Rem(rd, r1, r2)
	case bytecode.OpI32RemU:
		c.buf.Remu(rd, r1, r2)
	case bytecode.OpI32And:
		c.buf.And(rd, r1, r2)
	case bytecode.OpI32Or:
		c.buf.Or(rd, r1, r2)
	case bytecode.OpI32Xor:
		c.buf.Xor(rd, r1, r2)
	case bytecode.OpI32Shl:
		c.buf.Sll(rd, r1, r2)
	case bytecode.OpI32ShrS:
		c.buf.Sra(rd, r1, r2)
	case bytecode.OpI32ShrU:
		c.buf.Srl(rd, r1, r2)
	}
}

func (c *Compiler) emitI32Compare(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	r1, err := c.cache.Load(o.Src1)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, byte(op), err)
		return
	}
	r2, err := c.cache.Load(o.Src2)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, byte(op), err)
		return
	}
	rd, err := c.cache.Claim(o.Dst)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, byte(op), err)
		return
	}
	switch op {
	case bytecode.OpI32LtS:
		c.buf.Slt(rd, r1, r2)
	case bytecode.OpI32LtU:
		c.buf.Sltu(rd, r1, r2)
	case bytecode.OpI32GtS:
		c.buf.Slt(rd, r2, r1)
	case bytecode.OpI32GtU:
		c.buf.Sltu(rd, r2, r1)
	case bytecode.OpI32GeS:
		c.buf.Slt(rd, r1, r2)
		c.mustEnc(c.buf.Xori(rd, rd, 1))
	case bytecode.OpI32GeU:
		c.buf.Sltu(rd, r1, r2)
		c.mustEnc(c.buf.Xori(rd, rd, 1))
	case bytecode.OpI32LeS:
		c.buf.Slt(rd, r2, r1)
		c.mustEnc(c.buf.Xori(rd, rd, 1))
	case bytecode.OpI32LeU:
		c.buf.Sltu(rd, r2, r1)
		c.mustEnc(c.buf.Xori(rd, rd, 1))
	case bytecode.OpI32Eq:
		c.buf.Xor(rd, r1, r2)
		c.buf.Sltu(rd, riscvasm.X0, rd)
		c.mustEnc(c.buf.Xori(rd, rd, 1))
	case bytecode.OpI32Ne:
		c.buf.Xor(rd, r1, r2)
		c.buf.Sltu(rd, riscvasm.X0, rd)
	}
}
