package bytecode

import (
	"fmt"
	"math"

	"github.com/espb/native/vreg"
)

// Interpreter is the reference interpreter used only as the test oracle for
// the native backends (spec §1 places the production interpreter out of
// scope; spec §8 nonetheless requires comparing compiled execution against
// "interpret(body)" for round-trip testing). It understands the same
// opcode set and operand shapes as both native dispatchers, decoded through
// the same bytecode.Reader, so there is exactly one definition of "what an
// opcode means" in this repository.
//
// Calls, imports, globals, memory/table operations, heap operations, and
// atomics are not executable by this interpreter in isolation (they depend
// on collaborators explicitly out of scope per spec §1); Run returns
// ErrUnsupported for them. Tests exercise those opcodes against the native
// backends' emitted byte shape instead of through this oracle.
type Interpreter struct {
	Frame *vreg.Frame
}

// ErrUnsupported is returned for any opcode that requires a collaborator
// (module loader, heap, import table) outside this package's scope.
type ErrUnsupported struct{ Op Opcode }

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("bytecode: interpreter does not support opcode %d outside native backend scope", e.Op)
}

func NewInterpreter(f *vreg.Frame) *Interpreter { return &Interpreter{Frame: f} }

// Run executes body to completion (an OpEnd/OpUnreachable terminates it) or
// until an unsupported/trap condition is hit.
func (ip *Interpreter) Run(body *Body) error {
	r := NewReader(body.Code)
	for !r.Done() {
		op := r.Opcode()
		o := r.ReadOperands(op)
		cont, err := ip.step(r, op, o)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (ip *Interpreter) step(r *Reader, op Opcode, o Operands) (cont bool, err error) {
	f := ip.Frame
	switch op {
	case OpEnd:
		return false, nil
	case OpUnreachable:
		return false, fmt.Errorf("bytecode: reached UNREACHABLE opcode")

	case OpConstI8, OpConstI16, OpConstI32, OpConstPtr:
		f.SetI32(o.Dst, int32(o.ImmI64))
	case OpConstI64:
		f.SetI64(o.Dst, o.ImmI64)
	case OpConstF32:
		f.SetF32(o.Dst, math.Float32frombits(o.ImmF32Bits))
	case OpConstF64:
		f.SetF64(o.Dst, math.Float64frombits(o.ImmF64Bits))

	case OpMove8, OpMove16, OpMove32, OpMove64:
		f.Slots[o.Dst] = f.Slots[o.Src1]

	case OpI32Add:
		f.SetI32(o.Dst, f.I32(o.Src1)+f.I32(o.Src2))
	case OpI32Sub:
		f.SetI32(o.Dst, f.I32(o.Src1)-f.I32(o.Src2))
	case OpI32Mul:
		f.SetI32(o.Dst, f.I32(o.Src1)*f.I32(o.Src2))
	case OpI32DivS:
		f.SetI32(o.Dst, f.I32(o.Src1)/f.I32(o.Src2))
	case OpI32DivU:
		f.SetU32(o.Dst, f.U32(o.Src1)/f.U32(o.Src2))
	case OpI32RemS:
		f.SetI32(o.Dst, f.I32(o.Src1)%f.I32(o.Src2))
	case OpI32RemU:
		f.SetU32(o.Dst, f.U32(o.Src1)%f.U32(o.Src2))
	case OpI32And:
		f.SetI32(o.Dst, f.I32(o.Src1)&f.I32(o.Src2))
	case OpI32Or:
		f.SetI32(o.Dst, f.I32(o.Src1)|f.I32(o.Src2))
	case OpI32Xor:
		f.SetI32(o.Dst, f.I32(o.Src1)^f.I32(o.Src2))
	case OpI32Not:
		f.SetI32(o.Dst, ^f.I32(o.Src1))
	case OpI32Shl:
		f.SetI32(o.Dst, f.I32(o.Src1)<<uint(f.U32(o.Src2)&31))
	case OpI32ShrS:
		f.SetI32(o.Dst, f.I32(o.Src1)>>uint(f.U32(o.Src2)&31))
	case OpI32ShrU:
		f.SetU32(o.Dst, f.U32(o.Src1)>>uint(f.U32(o.Src2)&31))

	case OpI64Add:
		f.SetI64(o.Dst, f.I64(o.Src1)+f.I64(o.Src2))
	case OpI64Sub:
		f.SetI64(o.Dst, f.I64(o.Src1)-f.I64(o.Src2))
	case OpI64Mul:
		f.SetI64(o.Dst, f.I64(o.Src1)*f.I64(o.Src2))
	case OpI64DivS:
		f.SetI64(o.Dst, f.I64(o.Src1)/f.I64(o.Src2))
	case OpI64DivU:
		f.SetU64(o.Dst, f.U64(o.Src1)/f.U64(o.Src2))
	case OpI64RemS:
		f.SetI64(o.Dst, f.I64(o.Src1)%f.I64(o.Src2))
	case OpI64RemU:
		f.SetU64(o.Dst, f.U64(o.Src1)%f.U64(o.Src2))
	case OpI64And:
		f.SetI64(o.Dst, f.I64(o.Src1)&f.I64(o.Src2))
	case OpI64Or:
		f.SetI64(o.Dst, f.I64(o.Src1)|f.I64(o.Src2))
	case OpI64Xor:
		f.SetI64(o.Dst, f.I64(o.Src1)^f.I64(o.Src2))
	case OpI64Not:
		f.SetI64(o.Dst, ^f.I64(o.Src1))
	case OpI64Shl:
		f.SetI64(o.Dst, f.I64(o.Src1)<<uint(f.U64(o.Src2)&63))
	case OpI64ShrS:
		f.SetI64(o.Dst, f.I64(o.Src1)>>uint(f.U64(o.Src2)&63))
	case OpI64ShrU:
		f.SetU64(o.Dst, f.U64(o.Src1)>>uint(f.U64(o.Src2)&63))

	case OpF32Add:
		f.SetF32(o.Dst, f.F32(o.Src1)+f.F32(o.Src2))
	case OpF32Sub:
		f.SetF32(o.Dst, f.F32(o.Src1)-f.F32(o.Src2))
	case OpF32Mul:
		f.SetF32(o.Dst, f.F32(o.Src1)*f.F32(o.Src2))
	case OpF32Div:
		f.SetF32(o.Dst, f.F32(o.Src1)/f.F32(o.Src2))
	case OpF32Min:
		f.SetF32(o.Dst, float32(math.Min(float64(f.F32(o.Src1)), float64(f.F32(o.Src2)))))
	case OpF32Max:
		f.SetF32(o.Dst, float32(math.Max(float64(f.F32(o.Src1)), float64(f.F32(o.Src2)))))
	case OpF32Abs:
		f.SetF32(o.Dst, float32(math.Abs(float64(f.F32(o.Src1)))))
	case OpF32Sqrt:
		f.SetF32(o.Dst, float32(math.Sqrt(float64(f.F32(o.Src1)))))

	case OpF64Add:
		f.SetF64(o.Dst, f.F64(o.Src1)+f.F64(o.Src2))
	case OpF64Sub:
		f.SetF64(o.Dst, f.F64(o.Src1)-f.F64(o.Src2))
	case OpF64Mul:
		f.SetF64(o.Dst, f.F64(o.Src1)*f.F64(o.Src2))
	case OpF64Div:
		f.SetF64(o.Dst, f.F64(o.Src1)/f.F64(o.Src2))
	case OpF64Min:
		f.SetF64(o.Dst, math.Min(f.F64(o.Src1), f.F64(o.Src2)))
	case OpF64Max:
		f.SetF64(o.Dst, math.Max(f.F64(o.Src1), f.F64(o.Src2)))
	case OpF64Abs:
		f.SetF64(o.Dst, math.Abs(f.F64(o.Src1)))
	case OpF64Sqrt:
		f.SetF64(o.Dst, math.Sqrt(f.F64(o.Src1)))

	case OpF32FromI32S:
		f.SetF32(o.Dst, float32(f.I32(o.Src1)))
	case OpF32FromI32U:
		f.SetF32(o.Dst, float32(f.U32(o.Src1)))
	case OpF32FromI64S:
		f.SetF32(o.Dst, float32(f.I64(o.Src1)))
	case OpF32FromI64U:
		f.SetF32(o.Dst, float32(f.U64(o.Src1)))
	case OpF64FromI32S:
		f.SetF64(o.Dst, float64(f.I32(o.Src1)))
	case OpF64FromI32U:
		f.SetF64(o.Dst, float64(f.U32(o.Src1)))
	case OpF64FromI64S:
		f.SetF64(o.Dst, float64(f.I64(o.Src1)))
	case OpF64FromI64U:
		f.SetF64(o.Dst, float64(f.U64(o.Src1)))
	case OpI32FromF32S:
		f.SetI32(o.Dst, int32(f.F32(o.Src1)))
	case OpI32FromF32U:
		f.SetU32(o.Dst, uint32(f.F32(o.Src1)))
	case OpI32FromF64S:
		f.SetI32(o.Dst, int32(f.F64(o.Src1)))
	case OpI32FromF64U:
		f.SetU32(o.Dst, uint32(f.F64(o.Src1)))
	case OpI64FromF32S:
		f.SetI64(o.Dst, int64(f.F32(o.Src1)))
	case OpI64FromF32U:
		f.SetU64(o.Dst, uint64(f.F32(o.Src1)))
	case OpI64FromF64S:
		f.SetI64(o.Dst, int64(f.F64(o.Src1)))
	case OpI64FromF64U:
		f.SetU64(o.Dst, uint64(f.F64(o.Src1)))

	case OpI32Eq:
		f.SetBool(o.Dst, f.I32(o.Src1) == f.I32(o.Src2))
	case OpI32Ne:
		f.SetBool(o.Dst, f.I32(o.Src1) != f.I32(o.Src2))
	case OpI32LtS:
		f.SetBool(o.Dst, f.I32(o.Src1) < f.I32(o.Src2))
	case OpI32LtU:
		f.SetBool(o.Dst, f.U32(o.Src1) < f.U32(o.Src2))
	case OpI32GtS:
		f.SetBool(o.Dst, f.I32(o.Src1) > f.I32(o.Src2))
	case OpI32GtU:
		f.SetBool(o.Dst, f.U32(o.Src1) > f.U32(o.Src2))
	case OpI32LeS:
		f.SetBool(o.Dst, f.I32(o.Src1) <= f.I32(o.Src2))
	case OpI32LeU:
		f.SetBool(o.Dst, f.U32(o.Src1) <= f.U32(o.Src2))
	case OpI32GeS:
		f.SetBool(o.Dst, f.I32(o.Src1) >= f.I32(o.Src2))
	case OpI32GeU:
		f.SetBool(o.Dst, f.U32(o.Src1) >= f.U32(o.Src2))
	case OpI64Eq:
		f.SetBool(o.Dst, f.I64(o.Src1) == f.I64(o.Src2))
	case OpI64Ne:
		f.SetBool(o.Dst, f.I64(o.Src1) != f.I64(o.Src2))
	case OpI64LtS:
		f.SetBool(o.Dst, f.I64(o.Src1) < f.I64(o.Src2))
	case OpI64LtU:
		f.SetBool(o.Dst, f.U64(o.Src1) < f.U64(o.Src2))
	case OpI64GtS:
		f.SetBool(o.Dst, f.I64(o.Src1) > f.I64(o.Src2))
	case OpI64GtU:
		f.SetBool(o.Dst, f.U64(o.Src1) > f.U64(o.Src2))
	case OpI64LeS:
		f.SetBool(o.Dst, f.I64(o.Src1) <= f.I64(o.Src2))
	case OpI64LeU:
		f.SetBool(o.Dst, f.U64(o.Src1) <= f.U64(o.Src2))
	case OpI64GeS:
		f.SetBool(o.Dst, f.I64(o.Src1) >= f.I64(o.Src2))
	case OpI64GeU:
		f.SetBool(o.Dst, f.U64(o.Src1) >= f.U64(o.Src2))
	case OpF32Eq:
		f.SetBool(o.Dst, f.F32(o.Src1) == f.F32(o.Src2))
	case OpF32Ne:
		f.SetBool(o.Dst, f.F32(o.Src1) != f.F32(o.Src2))
	case OpF32Lt:
		f.SetBool(o.Dst, f.F32(o.Src1) < f.F32(o.Src2))
	case OpF32Gt:
		f.SetBool(o.Dst, f.F32(o.Src1) > f.F32(o.Src2))
	case OpF32Le:
		f.SetBool(o.Dst, f.F32(o.Src1) <= f.F32(o.Src2))
	case OpF32Ge:
		f.SetBool(o.Dst, f.F32(o.Src1) >= f.F32(o.Src2))
	case OpF64Eq:
		f.SetBool(o.Dst, f.F64(o.Src1) == f.F64(o.Src2))
	case OpF64Ne:
		f.SetBool(o.Dst, f.F64(o.Src1) != f.F64(o.Src2))
	case OpF64Lt:
		f.SetBool(o.Dst, f.F64(o.Src1) < f.F64(o.Src2))
	case OpF64Gt:
		f.SetBool(o.Dst, f.F64(o.Src1) > f.F64(o.Src2))
	case OpF64Le:
		f.SetBool(o.Dst, f.F64(o.Src1) <= f.F64(o.Src2))
	case OpF64Ge:
		f.SetBool(o.Dst, f.F64(o.Src1) >= f.F64(o.Src2))

	case OpI32ExtendI8S:
		f.SetI32(o.Dst, int32(int8(f.I32(o.Src1))))
	case OpI32ExtendI16S:
		f.SetI32(o.Dst, int32(int16(f.I32(o.Src1))))
	case OpI64ExtendI8S:
		f.SetI64(o.Dst, int64(int8(f.I32(o.Src1))))
	case OpI64ExtendI16S:
		f.SetI64(o.Dst, int64(int16(f.I32(o.Src1))))
	case OpI64ExtendI32S:
		f.SetI64(o.Dst, int64(f.I32(o.Src1)))
	case OpI64ExtendI32U:
		f.SetU64(o.Dst, uint64(f.U32(o.Src1)))
	case OpI32WrapI64:
		f.SetI32(o.Dst, int32(f.I64(o.Src1)))
	case OpF64PromoteF32:
		f.SetF64(o.Dst, float64(f.F32(o.Src1)))
	case OpF32DemoteF64:
		f.SetF32(o.Dst, float32(f.F64(o.Src1)))
	case OpPtrFromI32:
		f.SetPtr(o.Dst, f.U32(o.Src1))
	case OpI32FromPtr:
		f.SetU32(o.Dst, f.Ptr(o.Src1))

	case OpBr:
		r.Pos = int(o.BrTarget)
	case OpBrIf:
		if f.U32(o.Dst) != 0 {
			r.Pos = int(o.BrTarget)
		}
	case OpBrTable:
		sel := int(f.U32(o.BrTable.Selector))
		target := o.BrTable.Default
		if sel >= 0 && sel < len(o.BrTable.Targets) {
			target = o.BrTable.Targets[sel]
		}
		r.Pos = int(target)

	default:
		return false, &ErrUnsupported{Op: op}
	}
	return true, nil
}
