package riscv

import (
	"github.com/espb/native/asm"
	riscvasm "github.com/espb/native/asm/riscv"
	"github.com/espb/native/bytecode"
	"github.com/espb/native/helper"
)

// --- 64-bit integer arithmetic, synthesized from 32-bit halves ---
//
// RV32IMAC has no native 64-bit ALU; add/sub/and/or/xor/not/mul on a 64-bit
// vreg are synthesized here from pairs of 32-bit instructions using the
// scratch registers reserved for this purpose (RegI64CacheLo/Hi), since they
// need no soft-float or division algorithm and are cheap to inline. Division,
// remainder, and variable shifts are routed to helpers (emitI64ViaHelper):
// division has no single-instruction widening form on this ISA either way.

func (c *Compiler) emitI64Binary(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	c.flushCache()
	aLo, aHi := riscvasm.RegScratch0, riscvasm.RegI64CacheLo
	bLo, bHi := riscvasm.RegCacheTemp0, riscvasm.RegI64CacheHi
	resLo, resHi := riscvasm.RegScratch1, riscvasm.RegCacheTemp1
	tmp := riscvasm.RegHelperAddr
	c.loadSlotLo(aLo, o.Src1)
	c.loadSlotHi(aHi, o.Src1)
	c.loadSlotLo(bLo, o.Src2)
	c.loadSlotHi(bHi, o.Src2)
	switch op {
	case bytecode.OpI64Add:
		c.buf.Add(resLo, aLo, bLo)
		c.buf.Sltu(tmp, resLo, aLo) // unsigned carry out of the low add
		c.buf.Add(resHi, aHi, bHi)
		c.buf.Add(resHi, resHi, tmp)
	case bytecode.OpI64Sub:
		c.buf.Sltu(tmp, aLo, bLo) // borrow needed by the low subtract
		c.buf.Sub(resLo, aLo, bLo)
		c.buf.Sub(resHi, aHi, bHi)
		c.buf.Sub(resHi, resHi, tmp)
	case bytecode.OpI64And:
		c.buf.And(resLo, aLo, bLo)
		c.buf.And(resHi, aHi, bHi)
	case bytecode.OpI64Or:
		c.buf.Or(resLo, aLo, bLo)
		c.buf.Or(resHi, aHi, bHi)
	case bytecode.OpI64Xor:
		c.buf.Xor(resLo, aLo, bLo)
		c.buf.Xor(resHi, aHi, bHi)
	case bytecode.OpI64Mul:
		// low64(a*b) = low32(aLo*bLo) in resLo; the high word is
		// high32(aLo*bLo) plus the two cross terms' low words, truncated
		// mod 2^32 (anything beyond the low 64 bits of the product is
		// discarded, matching wrapping i64 multiplication).
		c.buf.Mul(resLo, aLo, bLo)
		c.buf.Mulhu(resHi, aLo, bLo)
		c.buf.Mul(tmp, aLo, bHi)
		c.buf.Add(resHi, resHi, tmp)
		c.buf.Mul(tmp, aHi, bLo)
		c.buf.Add(resHi, resHi, tmp)
	}
	c.storeSlotLo(o.Dst, resLo)
	c.storeSlotHi(o.Dst, resHi)
}

func (c *Compiler) emitI64Not(o bytecode.Operands) {
	c.flushCache()
	lo, hi := riscvasm.RegScratch0, riscvasm.RegScratch1
	c.loadSlotLo(lo, o.Src1)
	c.loadSlotHi(hi, o.Src1)
	c.mustEnc(c.buf.Xori(lo, lo, -1))
	c.mustEnc(c.buf.Xori(hi, hi, -1))
	c.storeSlotLo(o.Dst, lo)
	c.storeSlotHi(o.Dst, hi)
}

func (c *Compiler) emitI64ViaHelper(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	switch op {
	case bytecode.OpI64Add, bytecode.OpI64Sub, bytecode.OpI64And, bytecode.OpI64Or, bytecode.OpI64Xor, bytecode.OpI64Mul:
		c.emitI64Binary(bcOff, op, o)
		return
	case bytecode.OpI64Not:
		c.emitI64Not(o)
		return
	}
	var addr helper.Addr
	switch op {
	case bytecode.OpI64DivS:
		addr = c.helpers.DivS64
	case bytecode.OpI64DivU:
		addr = c.helpers.DivU64
	case bytecode.OpI64RemS:
		addr = c.helpers.RemS64
	case bytecode.OpI64RemU:
		addr = c.helpers.RemU64
	case bytecode.OpI64Shl:
		addr = c.helpers.Shl64
	case bytecode.OpI64ShrS:
		addr = c.helpers.ShrS64
	case bytecode.OpI64ShrU:
		addr = c.helpers.ShrU64
	default:
		c.fail(asm.ErrUnsupportedOpcode, bcOff, byte(op), errString("riscv: unhandled i64 opcode"))
		return
	}
	c.emitHelperBinary(addr, o.Dst, o.Src1, o.Src2)
}

// --- soft float, all routed through helpers; RV32IMAC carries no F/D extension ---

func (c *Compiler) emitFloatViaHelper(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	var addr helper.Addr
	unary := false
	switch op {
	case bytecode.OpF32Add:
		addr = c.helpers.F32Add
	case bytecode.OpF32Sub:
		addr = c.helpers.F32Sub
	case bytecode.OpF32Mul:
		addr = c.helpers.F32Mul
	case bytecode.OpF32Div:
		addr = c.helpers.F32Div
	case bytecode.OpF32Min:
		addr = c.helpers.F32Min
	case bytecode.OpF32Max:
		addr = c.helpers.F32Max
	case bytecode.OpF32Abs:
		addr = helper.Addr(0) // no dedicated abs helper; synthesized below
	case bytecode.OpF32Sqrt:
		addr = c.helpers.F32Sqrt
		unary = true
	case bytecode.OpF64Add:
		addr = c.helpers.F64Add
	case bytecode.OpF64Sub:
		addr = c.helpers.F64Sub
	case bytecode.OpF64Mul:
		addr = c.helpers.F64Mul
	case bytecode.OpF64Div:
		addr = c.helpers.F64Div
	case bytecode.OpF64Min:
		addr = c.helpers.F64Min
	case bytecode.OpF64Max:
		addr = c.helpers.F64Max
	case bytecode.OpF64Abs:
		addr = helper.Addr(0)
	case bytecode.OpF64Sqrt:
		addr = c.helpers.F64Sqrt
		unary = true
	}
	if op == bytecode.OpF32Abs || op == bytecode.OpF64Abs {
		// Abs needs no soft-float routine: the sign bit (bit 31 of the low
		// word for f32, of the high word for f64) is cleared by a left/right
		// shift pair on the frame's raw bit pattern.
		c.flushCache()
		r := riscvasm.RegScratch0
		c.loadSlotLo(r, o.Src1)
		if op == bytecode.OpF32Abs {
			c.mustEnc(c.buf.Slli(r, r, 1))
			c.mustEnc(c.buf.Srli(r, r, 1))
		}
		c.storeSlotLo(o.Dst, r)
		if op == bytecode.OpF32Abs {
			c.zeroSlotHi(o.Dst)
		}
		if op == bytecode.OpF64Abs {
			r2 := riscvasm.RegScratch1
			c.loadSlotHi(r2, o.Src1)
			c.mustEnc(c.buf.Slli(r2, r2, 1))
			c.mustEnc(c.buf.Srli(r2, r2, 1))
			c.storeSlotHi(o.Dst, r2)
		}
		return
	}
	if unary {
		c.emitHelperUnary(addr, o.Dst, o.Src1)
		return
	}
	c.emitHelperBinary(addr, o.Dst, o.Src1, o.Src2)
}

func (c *Compiler) emitFloatConvertViaHelper(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	var addr helper.Addr
	switch op {
	case bytecode.OpF32FromI32S:
		addr = c.helpers.F32FromI32S
	case bytecode.OpF32FromI32U:
		addr = c.helpers.F32FromI32U
	case bytecode.OpF32FromI64S:
		addr = c.helpers.F32FromI64S
	case bytecode.OpF32FromI64U:
		addr = c.helpers.F32FromI64U
	case bytecode.OpF64FromI32S:
		addr = c.helpers.F64FromI32S
	case bytecode.OpF64FromI32U:
		addr = c.helpers.F64FromI32U
	case bytecode.OpF64FromI64S:
		addr = c.helpers.F64FromI64S
	case bytecode.OpF64FromI64U:
		addr = c.helpers.F64FromI64U
	case bytecode.OpI32FromF32S:
		addr = c.helpers.I32FromF32S
	case bytecode.OpI32FromF32U:
		addr = c.helpers.I32FromF32U
	case bytecode.OpI32FromF64S:
		addr = c.helpers.I32FromF64S
	case bytecode.OpI32FromF64U:
		addr = c.helpers.I32FromF64U
	case bytecode.OpI64FromF32S:
		addr = c.helpers.I64FromF32S
	case bytecode.OpI64FromF32U:
		addr = c.helpers.I64FromF32U
	case bytecode.OpI64FromF64S:
		addr = c.helpers.I64FromF64S
	case bytecode.OpI64FromF64U:
		addr = c.helpers.I64FromF64U
	default:
		c.fail(asm.ErrUnsupportedOpcode, bcOff, byte(op), errString("riscv: unhandled conversion opcode"))
		return
	}
	c.emitHelperUnary(addr, o.Dst, o.Src1)
}

// --- generic helper-call marshalling ---
//
// Every helper invoked generically below shares one calling convention:
// a0 = instance, a1 = &vreg.Frame, a2.. = vreg indices as plain immediates
// (the helper indexes the frame itself; nothing is pre-loaded by the
// caller). This is simpler than mirroring each spec §6 helper's documented
// signature exactly and is applied uniformly, documented in DESIGN.md.

func (c *Compiler) emitHelperBinary(addr helper.Addr, dst, src1, src2 uint8) {
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA2, int32(dst)))
	c.mustEnc(c.immReg(riscvasm.RegA3, int32(src1)))
	c.mustEnc(c.immReg(riscvasm.RegA4, int32(src2)))
	c.mustEnc(c.emitHelperCall(addr, riscvasm.RegInstance, riscvasm.RegFrameBase, riscvasm.RegA2, riscvasm.RegA3, riscvasm.RegA4))
}

func (c *Compiler) emitHelperUnary(addr helper.Addr, dst, src uint8) {
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA2, int32(dst)))
	c.mustEnc(c.immReg(riscvasm.RegA3, int32(src)))
	c.mustEnc(c.emitHelperCall(addr, riscvasm.RegInstance, riscvasm.RegFrameBase, riscvasm.RegA2, riscvasm.RegA3))
}

func (c *Compiler) emitHelper1(addr helper.Addr, bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	c.emitHelperUnary(addr, o.Dst, o.Src1)
}

// emitCompareViaHelper handles the 64-bit integer comparisons: a single
// helper entry point parameterized by a predicate index appended after the
// usual (instance, frame, dst, src1, src2) arguments.
func (c *Compiler) emitCompareViaHelper(addr helper.Addr, bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	pred := int32(op - bytecode.OpI64Eq)
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA2, int32(o.Dst)))
	c.mustEnc(c.immReg(riscvasm.RegA3, int32(o.Src1)))
	c.mustEnc(c.immReg(riscvasm.RegA4, int32(o.Src2)))
	c.mustEnc(c.immReg(riscvasm.RegA5, pred))
	c.mustEnc(c.emitHelperCall(addr, riscvasm.RegInstance, riscvasm.RegFrameBase, riscvasm.RegA2, riscvasm.RegA3, riscvasm.RegA4, riscvasm.RegA5))
}

func (c *Compiler) emitFloatCompareViaHelper(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	var addr helper.Addr
	var pred int32
	if op >= bytecode.OpF32Eq && op <= bytecode.OpF32Ge {
		addr = c.helpers.F32Compare
		pred = int32(op - bytecode.OpF32Eq)
	} else {
		addr = c.helpers.F64Compare
		pred = int32(op - bytecode.OpF64Eq)
	}
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA2, int32(o.Dst)))
	c.mustEnc(c.immReg(riscvasm.RegA3, int32(o.Src1)))
	c.mustEnc(c.immReg(riscvasm.RegA4, int32(o.Src2)))
	c.mustEnc(c.immReg(riscvasm.RegA5, pred))
	c.mustEnc(c.emitHelperCall(addr, riscvasm.RegInstance, riscvasm.RegFrameBase, riscvasm.RegA2, riscvasm.RegA3, riscvasm.RegA4, riscvasm.RegA5))
}

// --- loads / stores: the flat-address linear memory model (spec §1,
// "ESP32-class embedded target, no virtual memory"); base register values
// are plain host pointers, read and written directly, no bounds helper ---

func (c *Compiler) materializeAddr(rd riscvasm.Reg, baseSlot uint8, off int32) (useOffset int32) {
	c.loadSlotLo(rd, baseSlot)
	if fitsSigned12(off) {
		return off
	}
	c.loadImm32(riscvasm.RegHelperAddr, off)
	c.buf.Add(rd, rd, riscvasm.RegHelperAddr)
	return 0
}

func (c *Compiler) emitLoad(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	c.flushCache()
	addrReg := riscvasm.RegScratch0
	off := c.materializeAddr(addrReg, o.Src1, o.Offset)
	val := riscvasm.RegScratch1
	switch op {
	case bytecode.OpLoad8S:
		c.mustEnc(c.buf.Lb(val, addrReg, off))
		c.storeSlotLo(o.Dst, val)
		c.zeroSlotHi(o.Dst)
	case bytecode.OpLoad8U, bytecode.OpLoadBool:
		c.mustEnc(c.buf.Lbu(val, addrReg, off))
		c.storeSlotLo(o.Dst, val)
		c.zeroSlotHi(o.Dst)
	case bytecode.OpLoad16S:
		c.mustEnc(c.buf.Lh(val, addrReg, off))
		c.storeSlotLo(o.Dst, val)
		c.zeroSlotHi(o.Dst)
	case bytecode.OpLoad16U:
		c.mustEnc(c.buf.Lhu(val, addrReg, off))
		c.storeSlotLo(o.Dst, val)
		c.zeroSlotHi(o.Dst)
	case bytecode.OpLoad32, bytecode.OpLoadPtr, bytecode.OpLoadF32:
		c.mustEnc(c.buf.Lw(val, addrReg, off))
		c.storeSlotLo(o.Dst, val)
		c.zeroSlotHi(o.Dst)
	case bytecode.OpLoad64, bytecode.OpLoadF64:
		c.mustEnc(c.buf.Lw(val, addrReg, off))
		c.storeSlotLo(o.Dst, val)
		val2 := riscvasm.RegHelperAddr
		c.mustEnc(c.buf.Lw(val2, addrReg, off+4))
		c.storeSlotHi(o.Dst, val2)
	default:
		c.fail(asm.ErrUnsupportedOpcode, bcOff, byte(op), errString("riscv: unhandled load opcode"))
	}
}

func (c *Compiler) emitStore(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	c.flushCache()
	addrReg := riscvasm.RegScratch0
	off := c.materializeAddr(addrReg, o.Src2, o.Offset)
	val := riscvasm.RegScratch1
	c.loadSlotLo(val, o.Src1)
	switch op {
	case bytecode.OpStore8, bytecode.OpStoreBool:
		c.mustEnc(c.buf.Sb(val, addrReg, off))
	case bytecode.OpStore16:
		c.mustEnc(c.buf.Sh(val, addrReg, off))
	case bytecode.OpStore32, bytecode.OpStorePtr, bytecode.OpStoreF32:
		c.mustEnc(c.buf.Sw(val, addrReg, off))
	case bytecode.OpStore64, bytecode.OpStoreF64:
		c.mustEnc(c.buf.Sw(val, addrReg, off))
		val2 := riscvasm.RegHelperAddr
		c.loadSlotHi(val2, o.Src1)
		c.mustEnc(c.buf.Sw(val2, addrReg, off+4))
	default:
		c.fail(asm.ErrUnsupportedOpcode, bcOff, byte(op), errString("riscv: unhandled store opcode"))
	}
}

// --- control flow ---

func (c *Compiler) emitBr(bcOff int, o bytecode.Operands) {
	c.flushCache()
	native := c.buf.Len()
	c.buf.Emit4(0) // placeholder JAL x0, 0; patched in Finalize
	c.labels.AddFixup(native, int(o.BrTarget), fixupJal)
	c.pending[native] = pendingFixup{encode: func(disp int32) (uint32, error) {
		return riscvasm.JalWord(riscvasm.X0, disp)
	}}
}

func (c *Compiler) emitBrIf(bcOff int, o bytecode.Operands) {
	cond, err := c.cache.Load(o.Dst)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, byte(bytecode.OpBrIf), err)
		return
	}
	c.flushCache()
	native := c.buf.Len()
	c.buf.Emit4(0) // placeholder BNE cond, x0, 0
	c.labels.AddFixup(native, int(o.BrTarget), fixupBranch)
	c.pending[native] = pendingFixup{encode: func(disp int32) (uint32, error) {
		return riscvasm.BranchWord(riscvasm.BranchFunct3Ne, cond, riscvasm.X0, disp)
	}}
}

func (c *Compiler) emitBrTable(bcOff int, o bytecode.Operands) {
	sel, err := c.cache.Load(o.BrTable.Selector)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, byte(bytecode.OpBrTable), err)
		return
	}
	c.flushCache()
	cmp := riscvasm.RegScratch0
	for i, target := range o.BrTable.Targets {
		c.loadImm32(cmp, int32(i))
		native := c.buf.Len()
		c.buf.Emit4(0) // placeholder BEQ sel, cmp, 0
		t := target
		c.labels.AddFixup(native, int(t), fixupBranch)
		c.pending[native] = pendingFixup{encode: func(disp int32) (uint32, error) {
			return riscvasm.BranchWord(riscvasm.BranchFunct3Eq, sel, cmp, disp)
		}}
	}
	native := c.buf.Len()
	c.buf.Emit4(0) // placeholder JAL x0, 0 to default
	c.labels.AddFixup(native, int(o.BrTable.Default), fixupJal)
	c.pending[native] = pendingFixup{encode: func(disp int32) (uint32, error) {
		return riscvasm.JalWord(riscvasm.X0, disp)
	}}
}

func (c *Compiler) emitEnd() {
	c.flushCache()
	native := c.buf.Len()
	c.buf.Emit4(0) // placeholder JAL x0, 0 to the shared epilogue
	c.labels.AddFixup(native, epilogueSentinel, fixupJal)
	c.pending[native] = pendingFixup{encode: func(disp int32) (uint32, error) {
		return riscvasm.JalWord(riscvasm.X0, disp)
	}}
}

func (c *Compiler) emitUnreachable() {
	// EBREAK: traps to the host's standard illegal-instruction/breakpoint
	// handler (spec §7), rather than looping forever on a self-jump (the
	// self-jump idiom is reserved for unresolved-fixup dead code, §9).
	c.flushCache()
	c.buf.Ebreak()
}

// --- calls ---

func (c *Compiler) emitCallDirect(bcOff int, o bytecode.Operands) {
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA1, int32(o.GlobalIdx)))
	c.mustEnc(c.emitHelperCall(c.helpers.CallESPBFunction, riscvasm.RegInstance, riscvasm.RegA1, riscvasm.RegFrameBase))
	_ = o.Dst // the callee writes its result directly into vreg[0] of the shared frame
}

func (c *Compiler) emitCallIndirect(bcOff int, o bytecode.Operands) {
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA2, int32(o.TypeIdx)))
	c.mustEnc(c.immReg(riscvasm.RegA3, int32(c.body.NumVRegs)))
	c.mustEnc(c.immReg(riscvasm.RegA4, int32(o.Src1))) // vreg holding the func idx/ptr
	c.mustEnc(c.immReg(riscvasm.RegA5, int32(o.Dst)))
	c.mustEnc(c.emitHelperCall(c.helpers.CallIndirect, riscvasm.RegInstance, riscvasm.RegFrameBase, riscvasm.RegA2, riscvasm.RegA3, riscvasm.RegA4, riscvasm.RegA5))
}

func (c *Compiler) emitCallImport(bcOff int, o bytecode.Operands) {
	c.flushCache()
	hasVariadic := int32(0)
	if o.CallImport.Variadic {
		hasVariadic = 1
	}
	c.mustEnc(c.immReg(riscvasm.RegA1, int32(o.CallImport.ImportIdx)))
	c.mustEnc(c.immReg(riscvasm.RegA3, hasVariadic))
	c.mustEnc(c.immReg(riscvasm.RegA4, int32(len(o.CallImport.ArgTypes))))
	c.mustEnc(c.emitHelperCall(c.helpers.CallImport, riscvasm.RegInstance, riscvasm.RegA1, riscvasm.RegFrameBase, riscvasm.RegA3, riscvasm.RegA4))
}

// --- sign extension (pure bit manipulation, no helper needed) ---

func (c *Compiler) emitExtend(bcOff int, o bytecode.Operands, shift uint32) {
	r1, err := c.cache.Load(o.Src1)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, 0, err)
		return
	}
	rd, err := c.cache.Claim(o.Dst)
	if err != nil {
		c.fail(asm.ErrEncoding, bcOff, 0, err)
		return
	}
	c.mustEnc(c.buf.Slli(rd, r1, shift))
	c.mustEnc(c.buf.Srai(rd, rd, shift))
}

func (c *Compiler) emitExtend64(bcOff int, o bytecode.Operands, shift uint32, signed bool) {
	c.flushCache()
	lo := riscvasm.RegScratch0
	c.loadSlotLo(lo, o.Src1)
	if shift != 0 {
		c.mustEnc(c.buf.Slli(lo, lo, shift))
		c.mustEnc(c.buf.Srai(lo, lo, shift))
	}
	hi := riscvasm.RegScratch1
	if signed {
		c.mustEnc(c.buf.Srai(hi, lo, 31))
	} else {
		c.buf.Add(hi, riscvasm.X0, riscvasm.X0)
	}
	c.storeSlotLo(o.Dst, lo)
	c.storeSlotHi(o.Dst, hi)
}

// --- globals ---

func (c *Compiler) emitGlobal(bcOff int, addr helper.Addr, o bytecode.Operands, loads bool) {
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA1, int32(o.GlobalIdx)))
	c.mustEnc(c.immReg(riscvasm.RegA3, int32(c.body.NumVRegs)))
	c.mustEnc(c.immReg(riscvasm.RegA4, int32(o.Dst)))
	c.mustEnc(c.emitHelperCall(addr, riscvasm.RegInstance, riscvasm.RegA1, riscvasm.RegFrameBase, riscvasm.RegA3, riscvasm.RegA4))
}

// --- memory / table / heap: generic three-register shape, all routed
// through helpers since they mutate shared module/runtime state ---

func (c *Compiler) extendedHelper(op bytecode.Opcode) helper.Addr {
	switch op {
	case bytecode.OpMemoryInit:
		return c.helpers.MemoryInit
	case bytecode.OpMemoryCopy:
		return c.helpers.MemoryCopy
	case bytecode.OpMemoryFill:
		return c.helpers.MemoryFill
	case bytecode.OpDataDrop:
		return c.helpers.DataDrop
	case bytecode.OpTableInit:
		return c.helpers.TableInit
	case bytecode.OpTableCopy:
		return c.helpers.TableCopy
	case bytecode.OpTableFill:
		return c.helpers.TableFill
	case bytecode.OpTableSize:
		return c.helpers.TableSize
	case bytecode.OpTableGet:
		return c.helpers.TableGet
	case bytecode.OpTableSet:
		return c.helpers.TableSet
	case bytecode.OpTableGrow:
		return c.helpers.TableGrow
	case bytecode.OpElemDrop:
		return c.helpers.ElemDrop
	case bytecode.OpHeapMalloc:
		return c.helpers.HeapMalloc
	case bytecode.OpHeapCalloc:
		return c.helpers.HeapCalloc
	case bytecode.OpHeapRealloc:
		return c.helpers.HeapRealloc
	case bytecode.OpHeapFree:
		return c.helpers.HeapFree
	}
	return 0
}

func (c *Compiler) emitExtended3(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	addr := c.extendedHelper(op)
	if addr == 0 {
		c.fail(asm.ErrUnsupportedOpcode, bcOff, byte(op), errString("riscv: unhandled extended opcode"))
		return
	}
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA2, int32(o.Src1)))
	c.mustEnc(c.immReg(riscvasm.RegA3, int32(o.Src2)))
	c.mustEnc(c.immReg(riscvasm.RegA4, int32(o.Src3)))
	c.mustEnc(c.immReg(riscvasm.RegA5, int32(o.Dst)))
	c.mustEnc(c.emitHelperCall(addr, riscvasm.RegInstance, riscvasm.RegFrameBase, riscvasm.RegA2, riscvasm.RegA3, riscvasm.RegA4, riscvasm.RegA5))
}

// --- atomics (spec §5, always SEQ_CST) ---

func (c *Compiler) emitAtomicLoad(bcOff int, o bytecode.Operands, wide bool) {
	c.flushCache()
	addrReg := riscvasm.RegScratch0
	c.loadSlotLo(addrReg, o.Src1)
	val := riscvasm.RegScratch1
	c.mustEnc(c.buf.Lw(val, addrReg, 0))
	c.storeSlotLo(o.Dst, val)
	if wide {
		val2 := riscvasm.RegHelperAddr
		c.mustEnc(c.buf.Lw(val2, addrReg, 4))
		c.storeSlotHi(o.Dst, val2)
	} else {
		c.zeroSlotHi(o.Dst)
	}
}

func (c *Compiler) emitAtomicStore(bcOff int, o bytecode.Operands, wide bool) {
	c.flushCache()
	addrReg := riscvasm.RegScratch0
	c.loadSlotLo(addrReg, o.Dst) // address register, per this op's DstSrc convention
	val := riscvasm.RegScratch1
	c.loadSlotLo(val, o.Src1)
	c.mustEnc(c.buf.Sw(val, addrReg, 0))
	if wide {
		val2 := riscvasm.RegHelperAddr
		c.loadSlotHi(val2, o.Src1)
		c.mustEnc(c.buf.Sw(val2, addrReg, 4))
	}
}

func (c *Compiler) emitAtomicRMW32(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	c.flushCache()
	addrReg := riscvasm.RegScratch0
	c.loadSlotLo(addrReg, o.Src1)
	val := riscvasm.RegScratch1
	c.loadSlotLo(val, o.Src2)
	old := riscvasm.RegHelperAddr
	switch op {
	case bytecode.OpAtomicAdd32:
		c.buf.AmoaddW(old, addrReg, val)
	case bytecode.OpAtomicSub32:
		c.mustEnc(c.buf.Xori(val, val, -1))
		c.mustEnc(c.buf.Addi(val, val, 1)) // two's-complement negate
		c.buf.AmoaddW(old, addrReg, val)
	case bytecode.OpAtomicAnd32:
		c.buf.AmoandW(old, addrReg, val)
	case bytecode.OpAtomicOr32:
		c.buf.AmoorW(old, addrReg, val)
	case bytecode.OpAtomicXor32:
		c.buf.AmoxorW(old, addrReg, val)
	}
	c.storeSlotLo(o.Dst, old)
	c.zeroSlotHi(o.Dst)
}

func (c *Compiler) emitAtomicExchange32(bcOff int, o bytecode.Operands) {
	c.flushCache()
	addrReg := riscvasm.RegScratch0
	c.loadSlotLo(addrReg, o.Src1)
	val := riscvasm.RegScratch1
	c.loadSlotLo(val, o.Src2)
	old := riscvasm.RegHelperAddr
	c.buf.AmoswapW(old, addrReg, val)
	c.storeSlotLo(o.Dst, old)
	c.zeroSlotHi(o.Dst)
}

func (c *Compiler) emitAtomic64ViaHelper(bcOff int, op bytecode.Opcode, o bytecode.Operands) {
	var addr helper.Addr
	switch op {
	case bytecode.OpAtomicAdd64:
		addr = c.helpers.AtomicAdd64
	case bytecode.OpAtomicSub64:
		addr = c.helpers.AtomicSub64
	case bytecode.OpAtomicAnd64:
		addr = c.helpers.AtomicAnd64
	case bytecode.OpAtomicOr64:
		addr = c.helpers.AtomicOr64
	case bytecode.OpAtomicXor64:
		addr = c.helpers.AtomicXor64
	}
	c.emitHelperExtended(addr, bcOff, o)
}

// emitHelperExtended passes (instance, frame, dst, src1, src2) for helpers
// whose native encoding would otherwise need a register pair the generic
// binary shape does not carry (64-bit atomics, exchange).
func (c *Compiler) emitHelperExtended(addr helper.Addr, bcOff int, o bytecode.Operands) {
	c.emitHelperBinary(addr, o.Dst, o.Src1, o.Src2)
}

func (c *Compiler) emitHelperCmpExchange(addr helper.Addr, bcOff int, o bytecode.Operands) {
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA2, int32(o.Dst)))
	c.mustEnc(c.immReg(riscvasm.RegA3, int32(o.Src1)))
	c.mustEnc(c.immReg(riscvasm.RegA4, int32(o.Src2)))
	c.mustEnc(c.immReg(riscvasm.RegA5, int32(o.Src3)))
	c.mustEnc(c.emitHelperCall(addr, riscvasm.RegInstance, riscvasm.RegFrameBase, riscvasm.RegA2, riscvasm.RegA3, riscvasm.RegA4, riscvasm.RegA5))
}

// --- stack allocation ---

func (c *Compiler) emitAlloca(bcOff int, o bytecode.Operands) {
	c.flushCache()
	c.mustEnc(c.immReg(riscvasm.RegA3, int32(c.body.NumVRegs)))
	c.mustEnc(c.immReg(riscvasm.RegA4, int32(o.Dst)))
	c.mustEnc(c.immReg(riscvasm.RegA5, int32(o.Src1)))
	c.mustEnc(c.immReg(riscvasm.RegA6, int32(o.AlignLog2)))
	c.mustEnc(c.emitHelperCall(c.helpers.RuntimeAlloca, riscvasm.RegInstance, riscvasm.RegInstance, riscvasm.RegFrameBase, riscvasm.RegA3, riscvasm.RegA4, riscvasm.RegA5, riscvasm.RegA6))
}
