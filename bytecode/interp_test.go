package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/bytecode"
	"github.com/espb/native/vreg"
)

// program is a tiny assembler used only by tests: it lets each case build a
// Body's Code by appending one opcode-plus-operands entry at a time, the way
// a real translator would emit bytecode.
type program struct{ code []byte }

func (p *program) op(op bytecode.Opcode, operands ...byte) *program {
	p.code = append(p.code, byte(op))
	p.code = append(p.code, operands...)
	return p
}

func (p *program) i32(op bytecode.Opcode, dst uint8, v int32) *program {
	p.code = append(p.code, byte(op), dst)
	p.code = appendI32(p.code, v)
	return p
}

func (p *program) body() *bytecode.Body {
	return &bytecode.Body{NumVRegs: 16, Code: p.code}
}

func runInterp(t *testing.T, p *program) *vreg.Frame {
	t.Helper()
	f := &vreg.Frame{}
	ip := bytecode.NewInterpreter(f)
	require.NoError(t, ip.Run(p.body()))
	return f
}

func TestInterpreterI32Arithmetic(t *testing.T) {
	p := new(program).
		i32(bytecode.OpConstI32, 0, 7).
		i32(bytecode.OpConstI32, 1, 35).
		op(bytecode.OpI32Add, 2, 0, 1).
		op(bytecode.OpI32Mul, 3, 2, 1).
		op(bytecode.OpEnd)

	f := runInterp(t, p)
	require.Equal(t, int32(42), f.I32(2))
	require.Equal(t, int32(42*35), f.I32(3))
}

func TestInterpreterI64Arithmetic(t *testing.T) {
	f := &vreg.Frame{}
	f.SetI64(0, 1<<40)
	f.SetI64(1, 3)
	ip := bytecode.NewInterpreter(f)

	p := new(program).op(bytecode.OpI64Mul, 2, 0, 1).op(bytecode.OpEnd)
	require.NoError(t, ip.Run(p.body()))
	require.Equal(t, int64(3<<40), f.I64(2))
}

func TestInterpreterCompares(t *testing.T) {
	p := new(program).
		i32(bytecode.OpConstI32, 0, 10).
		i32(bytecode.OpConstI32, 1, 20).
		op(bytecode.OpI32LtS, 2, 0, 1).
		op(bytecode.OpI32GeS, 3, 0, 1).
		op(bytecode.OpEnd)

	f := runInterp(t, p)
	require.True(t, f.Bool(2))
	require.False(t, f.Bool(3))
}

func TestInterpreterBrIfSkipsFollowingInstruction(t *testing.T) {
	// reg0 = 1 (true); BR_IF reg0 -> skip the next const, landing on the
	// instruction that sets reg1 = 99 directly.
	p := &program{}
	p.i32(bytecode.OpConstI32, 0, 1)
	brIfOff := len(p.code)
	p.code = append(p.code, byte(bytecode.OpBrIf), 0)
	brIfOperandsOff := len(p.code)
	p.code = appendI32(p.code, 0) // placeholder target, patched below

	skippedOff := len(p.code)
	p.i32(bytecode.OpConstI32, 1, 7)

	targetOff := len(p.code)
	p.i32(bytecode.OpConstI32, 1, 99)
	p.op(bytecode.OpEnd)

	patchI32(p.code, brIfOperandsOff, int32(targetOff))

	f := runInterp(t, p)
	require.Equal(t, int32(99), f.I32(1))
	_ = brIfOff
	_ = skippedOff
}

func TestInterpreterBrTableDefault(t *testing.T) {
	p := &program{}
	p.i32(bytecode.OpConstI32, 0, 5) // selector, out of range -> default

	brTableOff := len(p.code)
	p.code = append(p.code, byte(bytecode.OpBrTable), 0)
	p.code = appendU16(p.code, 1)
	target0Off := len(p.code)
	p.code = appendI32(p.code, 0)
	defaultOff := len(p.code)
	p.code = appendI32(p.code, 0)

	case0Off := len(p.code)
	p.i32(bytecode.OpConstI32, 1, 111)
	p.op(bytecode.OpEnd)

	defaultTargetOff := len(p.code)
	p.i32(bytecode.OpConstI32, 1, 222)
	p.op(bytecode.OpEnd)

	patchI32(p.code, target0Off, int32(case0Off))
	patchI32(p.code, defaultOff, int32(defaultTargetOff))

	f := runInterp(t, p)
	require.Equal(t, int32(222), f.I32(1))
	_ = brTableOff
}

func TestInterpreterUnsupportedOpcodeReturnsErrUnsupported(t *testing.T) {
	f := &vreg.Frame{}
	ip := bytecode.NewInterpreter(f)
	body := &bytecode.Body{Code: []byte{byte(bytecode.OpCallDirect), 0, 0, 0}}
	err := ip.Run(body)
	require.Error(t, err)
	var unsupported *bytecode.ErrUnsupported
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, bytecode.OpCallDirect, unsupported.Op)
}

func patchI32(code []byte, off int, v int32) {
	tmp := appendI32(nil, v)
	copy(code[off:off+4], tmp)
}
