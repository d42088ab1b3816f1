package bytecode

// Shape classifies an opcode's fixed operand layout. This table is the
// single place that defines "how many bytes follow this opcode and what they
// mean" — both native backends and the reference interpreter decode through
// it, so the layout can never drift between them.
type Shape uint8

const (
	ShapeNone      Shape = iota // no operands (END, UNREACHABLE, atomic fence)
	ShapeDst                    // dst reg only (unused directly, reserved)
	ShapeDstSrc                 // dst, src (moves, unary ops, conversions, extensions)
	ShapeDstSrc1Src2            // dst, src1, src2 (binary ALU/compare ops)
	ShapeConstI8                // dst, int8 literal
	ShapeConstI16                // dst, int16 literal
	ShapeConstI32                // dst, int32 literal
	ShapeConstI64                // dst, int64 literal
	ShapeConstF32                // dst, float32 literal (bit pattern)
	ShapeConstF64                // dst, float64 literal (bit pattern)
	ShapeLoad                    // dst, base reg, int32 offset
	ShapeStore                    // src, base reg, int32 offset
	ShapeBr                        // int32 bytecode-relative target
	ShapeBrIf                      // cond reg, int32 bytecode-relative target
	ShapeBrTable                   // variable length, see Reader.BrTable
	ShapeCallDirect                 // uint16 local func index, dst reg
	ShapeCallIndirect                // func idx/ptr reg, uint16 type index, dst reg
	ShapeCallImport                    // variable length, see Reader.CallImport
	ShapeGlobal                        // uint16 global or symbol index, dst/src reg
	ShapeExtended3Reg                   // three generic registers (a, b, c) plus a
	                                      // dst reg, used by memory/table/heap/atomic
	                                      // ops that route through a helper and only
	                                      // need register operands, not inline semantics
	ShapeAtomicCmpExchange                 // dst, addr, expected, desired (4 regs)
	ShapeAlloca                             // dst, size reg, uint8 align-log2
)

// OperandShape returns the fixed operand layout for op. Opcodes with
// variable-length operands (BR_TABLE, CALL_IMPORT) are still listed here so
// callers can branch on the shape before falling into the specialized
// decode method.
func OperandShape(op Opcode) Shape {
	switch {
	case op == OpConstI8:
		return ShapeConstI8
	case op == OpConstI16:
		return ShapeConstI16
	case op == OpConstI32 || op == OpConstPtr:
		return ShapeConstI32
	case op == OpConstI64:
		return ShapeConstI64
	case op == OpConstF32:
		return ShapeConstF32
	case op == OpConstF64:
		return ShapeConstF64
	case op >= OpMove8 && op <= OpMove64:
		return ShapeDstSrc
	case op >= OpI32Add && op <= OpI32ShrU && op != OpI32Not:
		return ShapeDstSrc1Src2
	case op == OpI32Not:
		return ShapeDstSrc
	case op >= OpI64Add && op <= OpI64ShrU && op != OpI64Not:
		return ShapeDstSrc1Src2
	case op == OpI64Not:
		return ShapeDstSrc
	case op >= OpF32Add && op <= OpF32Max:
		return ShapeDstSrc1Src2
	case op == OpF32Abs || op == OpF32Sqrt:
		return ShapeDstSrc
	case op >= OpF64Add && op <= OpF64Max:
		return ShapeDstSrc1Src2
	case op == OpF64Abs || op == OpF64Sqrt:
		return ShapeDstSrc
	case op >= OpF32FromI32S && op <= OpI64FromF64U:
		return ShapeDstSrc
	case op >= OpI32Eq && op <= OpF64Ge:
		return ShapeDstSrc1Src2
	case op == OpLoad8S || op == OpLoad8U || op == OpLoad16S || op == OpLoad16U ||
		op == OpLoad32 || op == OpLoad64 || op == OpLoadBool || op == OpLoadPtr ||
		op == OpLoadF32 || op == OpLoadF64:
		return ShapeLoad
	case op == OpStore8 || op == OpStore16 || op == OpStore32 || op == OpStore64 ||
		op == OpStoreBool || op == OpStorePtr || op == OpStoreF32 || op == OpStoreF64:
		return ShapeStore
	case op == OpBr:
		return ShapeBr
	case op == OpBrIf:
		return ShapeBrIf
	case op == OpBrTable:
		return ShapeBrTable
	case op == OpEnd || op == OpUnreachable:
		return ShapeNone
	case op == OpCallDirect:
		return ShapeCallDirect
	case op == OpCallIndirect:
		return ShapeCallIndirect
	case op == OpCallImport:
		return ShapeCallImport
	case op == OpI32ExtendI8S || op == OpI32ExtendI16S || op == OpI64ExtendI8S ||
		op == OpI64ExtendI16S || op == OpI64ExtendI32S || op == OpI64ExtendI32U ||
		op == OpI32WrapI64 || op == OpF64PromoteF32 || op == OpF32DemoteF64 ||
		op == OpPtrFromI32 || op == OpI32FromPtr:
		return ShapeDstSrc
	case op == OpGlobalGetAddr || op == OpGlobalGet:
		return ShapeGlobal
	case op == OpGlobalSet:
		return ShapeGlobal
	case op >= OpMemoryInit && op <= OpElemDrop:
		return ShapeExtended3Reg
	case op >= OpHeapMalloc && op <= OpHeapFree:
		return ShapeExtended3Reg
	case op == OpAtomicLoad32 || op == OpAtomicLoad64:
		return ShapeDstSrc
	case op == OpAtomicStore32 || op == OpAtomicStore64:
		return ShapeDstSrc
	case op >= OpAtomicAdd32 && op <= OpAtomicXor64:
		return ShapeDstSrc1Src2
	case op == OpAtomicExchange32 || op == OpAtomicExchange64:
		return ShapeDstSrc1Src2
	case op == OpAtomicCmpExchange32 || op == OpAtomicCmpExchange64:
		return ShapeAtomicCmpExchange
	case op == OpAtomicFence:
		return ShapeNone
	case op == OpAlloca:
		return ShapeAlloca
	default:
		return ShapeNone
	}
}

// Operands is the generic decoded-operand bag populated by
// Reader.ReadOperands according to OperandShape(op).
type Operands struct {
	Dst, Src1, Src2, Src3 uint8
	ImmI64                int64
	ImmF32Bits            uint32
	ImmF64Bits            uint64
	Offset                int32
	GlobalIdx             uint16
	TypeIdx               uint16
	AlignLog2             uint8
	BrTarget              int32
	BrTable               BrTableOperands
	CallImport            CallImportOperands
}

// ReadOperands decodes op's fixed operand block (or variable-length block,
// for BR_TABLE/CALL_IMPORT) starting at the reader's current position.
func (r *Reader) ReadOperands(op Opcode) Operands {
	var o Operands
	switch OperandShape(op) {
	case ShapeNone:
	case ShapeDst:
		o.Dst = r.U8()
	case ShapeDstSrc:
		o.Dst = r.U8()
		o.Src1 = r.U8()
	case ShapeDstSrc1Src2:
		o.Dst = r.U8()
		o.Src1 = r.U8()
		o.Src2 = r.U8()
	case ShapeConstI8:
		o.Dst = r.U8()
		o.ImmI64 = int64(r.I8())
	case ShapeConstI16:
		o.Dst = r.U8()
		o.ImmI64 = int64(r.I16())
	case ShapeConstI32:
		o.Dst = r.U8()
		o.ImmI64 = int64(r.I32())
	case ShapeConstI64:
		o.Dst = r.U8()
		o.ImmI64 = r.I64()
	case ShapeConstF32:
		o.Dst = r.U8()
		o.ImmF32Bits = r.U32()
	case ShapeConstF64:
		o.Dst = r.U8()
		o.ImmF64Bits = r.U64()
	case ShapeLoad:
		o.Dst = r.U8()
		o.Src1 = r.U8()
		o.Offset = r.I32()
	case ShapeStore:
		o.Src1 = r.U8()
		o.Src2 = r.U8()
		o.Offset = r.I32()
	case ShapeBr:
		o.BrTarget = r.I32()
	case ShapeBrIf:
		o.Dst = r.U8()
		o.BrTarget = r.I32()
	case ShapeBrTable:
		o.BrTable = r.BrTable()
	case ShapeCallDirect:
		o.GlobalIdx = r.U16() // reused as local func index
		o.Dst = r.U8()
	case ShapeCallIndirect:
		o.Src1 = r.U8() // func idx/ptr register
		o.TypeIdx = r.U16()
		o.Dst = r.U8()
	case ShapeCallImport:
		o.CallImport = r.CallImport()
	case ShapeGlobal:
		o.GlobalIdx = r.U16()
		o.Dst = r.U8()
	case ShapeExtended3Reg:
		o.Src1 = r.U8()
		o.Src2 = r.U8()
		o.Src3 = r.U8()
		o.Dst = r.U8()
	case ShapeAtomicCmpExchange:
		o.Dst = r.U8()
		o.Src1 = r.U8() // address
		o.Src2 = r.U8() // expected
		o.Src3 = r.U8() // desired
	case ShapeAlloca:
		o.Dst = r.U8()
		o.Src1 = r.U8()
		o.AlignLog2 = r.U8()
	}
	return o
}
