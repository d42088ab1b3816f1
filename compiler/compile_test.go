package compiler_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/bytecode"
	"github.com/espb/native/compiler"
	_ "github.com/espb/native/compiler/riscv"  // registers compiler.ISARiscV
	_ "github.com/espb/native/compiler/xtensa" // registers compiler.ISAXtensa
	"github.com/espb/native/helper"
)

// program is a minimal test-only bytecode assembler, mirroring the shape
// bytecode_test's own helper uses.
type program struct{ code []byte }

func (p *program) op(op bytecode.Opcode, operands ...byte) *program {
	p.code = append(p.code, byte(op))
	p.code = append(p.code, operands...)
	return p
}

func (p *program) i32(op bytecode.Opcode, dst uint8, v int32) *program {
	p.code = append(p.code, byte(op), dst)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	p.code = append(p.code, b[:]...)
	return p
}

func (p *program) body(numVRegs uint8) *bytecode.Body {
	return &bytecode.Body{NumVRegs: numVRegs, Code: p.code}
}

func arithmeticProgram() *bytecode.Body {
	p := new(program).
		i32(bytecode.OpConstI32, 0, 7).
		i32(bytecode.OpConstI32, 1, 35).
		op(bytecode.OpI32Add, 2, 0, 1).
		op(bytecode.OpEnd)
	return p.body(8)
}

func TestCompileRiscVProducesExecutableFunction(t *testing.T) {
	fn, err := compiler.Compile(compiler.ISARiscV, &helper.Table{}, 0, 0, arithmeticProgram())
	require.NoError(t, err)
	require.NotNil(t, fn)
	defer fn.Release()

	require.NotZero(t, fn.CodePtr())
	require.NotEmpty(t, fn.Bytes())
	require.Equal(t, fn.Size, len(fn.Bytes()))
}

func TestCompileXtensaProducesExecutableFunction(t *testing.T) {
	fn, err := compiler.Compile(compiler.ISAXtensa, &helper.Table{}, 0, 0, arithmeticProgram())
	require.NoError(t, err)
	require.NotNil(t, fn)
	defer fn.Release()

	require.NotZero(t, fn.CodePtr())
	require.NotEmpty(t, fn.Bytes())
}

func TestCompileUnknownISAIsAnError(t *testing.T) {
	_, err := compiler.Compile(compiler.ISA(99), &helper.Table{}, 0, 0, arithmeticProgram())
	require.Error(t, err)
}

func TestCompileUnsupportedOpcodeFallsBackWithError(t *testing.T) {
	body := &bytecode.Body{NumVRegs: 4, Code: []byte{0xFD}}
	_, err := compiler.Compile(compiler.ISARiscV, &helper.Table{}, 0, 0, body)
	require.Error(t, err, "an unsupported opcode must be fatal for this compilation so the caller falls back to the interpreter")
}

func TestCompileIsIdempotentAcrossDistinctBuffers(t *testing.T) {
	body := arithmeticProgram()
	fn1, err := compiler.Compile(compiler.ISARiscV, &helper.Table{}, 0, 0, body)
	require.NoError(t, err)
	defer fn1.Release()

	fn2, err := compiler.Compile(compiler.ISARiscV, &helper.Table{}, 0, 0, body)
	require.NoError(t, err)
	defer fn2.Release()

	require.Equal(t, fn1.Bytes(), fn2.Bytes())
	require.NotEqual(t, fn1.CodePtr(), fn2.CodePtr(), "each compile() call owns a distinct allocation")
}

func TestISAStringer(t *testing.T) {
	require.Equal(t, "riscv", compiler.ISARiscV.String())
	require.Equal(t, "xtensa", compiler.ISAXtensa.String())
}
