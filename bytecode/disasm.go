package bytecode

import "fmt"

// Disassemble renders a function body's opcode stream as one text line per
// instruction: bytecode offset, mnemonic, and decoded operands. It exists
// purely as a development aid for inspecting a compiled-against body from
// the command line; it is never used by the compiler or interpreter.
func Disassemble(b *Body) []string {
	r := NewReader(b.Code)
	var lines []string
	for !r.Done() {
		off := r.Offset()
		op := r.Opcode()
		if !op.IsValid() {
			lines = append(lines, fmt.Sprintf("%04x: <invalid opcode %#02x>", off, byte(op)))
			break
		}
		o := r.ReadOperands(op)
		lines = append(lines, fmt.Sprintf("%04x: %s%s", off, op, formatOperands(op, o)))
	}
	return lines
}

func formatOperands(op Opcode, o Operands) string {
	switch OperandShape(op) {
	case ShapeNone:
		return ""
	case ShapeDst:
		return fmt.Sprintf(" r%d", o.Dst)
	case ShapeDstSrc:
		return fmt.Sprintf(" r%d, r%d", o.Dst, o.Src1)
	case ShapeDstSrc1Src2:
		return fmt.Sprintf(" r%d, r%d, r%d", o.Dst, o.Src1, o.Src2)
	case ShapeConstI8, ShapeConstI16, ShapeConstI32, ShapeConstI64:
		return fmt.Sprintf(" r%d, #%d", o.Dst, o.ImmI64)
	case ShapeConstF32:
		return fmt.Sprintf(" r%d, #%#08x", o.Dst, o.ImmF32Bits)
	case ShapeConstF64:
		return fmt.Sprintf(" r%d, #%#016x", o.Dst, o.ImmF64Bits)
	case ShapeLoad:
		return fmt.Sprintf(" r%d, [r%d+%d]", o.Dst, o.Src1, o.Offset)
	case ShapeStore:
		return fmt.Sprintf(" [r%d+%d], r%d", o.Src1, o.Offset, o.Src2)
	case ShapeBr:
		return fmt.Sprintf(" ->%04x", o.BrTarget)
	case ShapeBrIf:
		return fmt.Sprintf(" r%d, ->%04x", o.Dst, o.BrTarget)
	case ShapeBrTable:
		return fmt.Sprintf(" r%d, %d targets, default ->%04x", o.BrTable.Selector, len(o.BrTable.Targets), o.BrTable.Default)
	case ShapeCallDirect:
		return fmt.Sprintf(" func#%d -> r%d", o.GlobalIdx, o.Dst)
	case ShapeCallIndirect:
		return fmt.Sprintf(" r%d, type#%d -> r%d", o.Src1, o.TypeIdx, o.Dst)
	case ShapeCallImport:
		return fmt.Sprintf(" import#%d -> r%d", o.CallImport.ImportIdx, o.CallImport.DstReg)
	case ShapeGlobal:
		return fmt.Sprintf(" global#%d, r%d", o.GlobalIdx, o.Dst)
	case ShapeExtended3Reg:
		return fmt.Sprintf(" r%d, r%d, r%d, r%d", o.Src1, o.Src2, o.Src3, o.Dst)
	case ShapeAtomicCmpExchange:
		return fmt.Sprintf(" r%d, [r%d], r%d, r%d", o.Dst, o.Src1, o.Src2, o.Src3)
	case ShapeAlloca:
		return fmt.Sprintf(" r%d, r%d, align=2^%d", o.Dst, o.Src1, o.AlignLog2)
	default:
		return ""
	}
}
