package riscv

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	riscvasm "github.com/espb/native/asm/riscv"
	"github.com/espb/native/bytecode"
	"github.com/espb/native/helper"
)

// asmProgram is a tiny test-only assembler for building bytecode.Body.Code
// one opcode at a time, the same shape bytecode_test's "program" helper
// uses, kept local since this package's tests exercise the Compiler
// directly rather than going through compiler.Compile.
type asmProgram struct{ code []byte }

func (p *asmProgram) op(op bytecode.Opcode, operands ...byte) *asmProgram {
	p.code = append(p.code, byte(op))
	p.code = append(p.code, operands...)
	return p
}

func (p *asmProgram) i32(op bytecode.Opcode, dst uint8, v int32) *asmProgram {
	p.code = append(p.code, byte(op), dst)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	p.code = append(p.code, b[:]...)
	return p
}

func (p *asmProgram) br(target int32) *asmProgram {
	p.code = append(p.code, byte(bytecode.OpBr))
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(target))
	p.code = append(p.code, b[:]...)
	return p
}

func (p *asmProgram) brIf(cond uint8, target int32) *asmProgram {
	p.code = append(p.code, byte(bytecode.OpBrIf), cond)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(target))
	p.code = append(p.code, b[:]...)
	return p
}

func (p *asmProgram) body(numVRegs uint8) *bytecode.Body {
	return &bytecode.Body{NumVRegs: numVRegs, Code: p.code}
}

func compileBody(t *testing.T, body *bytecode.Body) *Compiler {
	t.Helper()
	c := newCompiler(&helper.Table{}, 0, 0)
	require.NoError(t, c.Prologue(body))
	r := bytecode.NewReader(body.Code)
	for !r.Done() {
		cont, err := c.CompileOp(r)
		require.NoError(t, err)
		if !cont {
			break
		}
	}
	return c
}

func TestPrologueEmitsFrameSetup(t *testing.T) {
	c := newCompiler(&helper.Table{}, 0, 0)
	require.NoError(t, c.Prologue(&bytecode.Body{NumVRegs: 4}))
	require.Greater(t, c.buf.Len(), 0)
}

func TestLabelRecordedAtFirstNativeByteOfEachOpcode(t *testing.T) {
	p := new(asmProgram).
		i32(bytecode.OpConstI32, 0, 7).
		i32(bytecode.OpConstI32, 1, 35).
		op(bytecode.OpI32Add, 2, 0, 1).
		op(bytecode.OpEnd)

	c := compileBody(t, p.body(8))
	_, err := c.Finalize()
	require.NoError(t, err)

	// Every bytecode offset that was ever Record()-ed must resolve.
	for _, off := range []int{0, 6, 12} {
		_, ok := c.labels.Lookup(off)
		require.True(t, ok, "expected a label at bytecode offset %d", off)
	}
}

func TestForwardBranchFixupResolves(t *testing.T) {
	// BR_IF reg0 -> skip one CONST_I32, landing on END.
	p := new(asmProgram).
		i32(bytecode.OpConstI32, 0, 1).
		brIf(0, 0) // target patched below once offsets are known
	skipTarget := len(p.code)
	p.i32(bytecode.OpConstI32, 1, 99).
		op(bytecode.OpEnd)
	endOffset := skipTarget + 6

	// Patch the real branch target into the placeholder now that offsets
	// are known (mirrors the pattern bytecode/interp_test.go uses).
	binary.LittleEndian.PutUint32(p.code[8:12], uint32(endOffset))

	c := compileBody(t, p.body(8))
	code, err := c.Finalize()
	require.NoError(t, err)
	require.NotEmpty(t, code)
	require.Empty(t, c.labels.TrapLog(), "a resolvable forward branch must never be logged as a self-trap")
}

func TestUnresolvedForwardBranchPatchedToSelfTrapAndLogged(t *testing.T) {
	p := new(asmProgram).br(9999). // a target that is never reached
					op(bytecode.OpEnd)

	c := compileBody(t, p.body(4))
	_, err := c.Finalize()
	require.NoError(t, err)
	require.Len(t, c.labels.TrapLog(), 1)
	require.Equal(t, 9999, c.labels.TrapLog()[0].TargetBC)
}

func TestUnreachableEmitsEbreakNotASelfLoop(t *testing.T) {
	p := new(asmProgram).op(bytecode.OpUnreachable)
	c := compileBody(t, p.body(4))
	code := c.buf.Bytes()
	require.GreaterOrEqual(t, len(code), 4)
	ebreak := code[len(code)-4:]
	require.Equal(t, []byte{0x73, 0x00, 0x10, 0x00}, ebreak, "UNREACHABLE must trap via EBREAK, not loop forever")
}

// TestLoad32ZeroesSlotHighWord guards spec §3's "high 32 bits of a
// 32-bit-typed slot are always zero" invariant for a direct (non-cache)
// frame write: LOAD32 dst=2, src1=1, offset=0.
func TestLoad32ZeroesSlotHighWord(t *testing.T) {
	c := newCompiler(&helper.Table{}, 0, 0)
	require.NoError(t, c.Prologue(&bytecode.Body{NumVRegs: 4}))

	code := []byte{byte(bytecode.OpLoad32), 2, 1, 0, 0, 0, 0}
	r := bytecode.NewReader(code)
	_, err := c.CompileOp(r)
	require.NoError(t, err)

	want := riscvasm.NewCodeBuffer(4)
	require.NoError(t, want.Sw(riscvasm.X0, riscvasm.RegFrameBase, 2*8+4))
	wantBytes := want.Bytes()

	got := c.buf.Bytes()
	require.Equal(t, wantBytes, got[len(got)-len(wantBytes):], "LOAD32 must zero the destination slot's high word")
}

func TestUnsupportedOpcodeIsFatal(t *testing.T) {
	c := newCompiler(&helper.Table{}, 0, 0)
	require.NoError(t, c.Prologue(&bytecode.Body{NumVRegs: 4}))
	r := bytecode.NewReader([]byte{0xFD}) // not a defined opcode
	_, err := c.CompileOp(r)
	require.Error(t, err)
}

func TestFinalizeAlignsAndEmitsSingleEpilogue(t *testing.T) {
	p := new(asmProgram).
		i32(bytecode.OpConstI32, 0, 1).
		op(bytecode.OpEnd)
	c := compileBody(t, p.body(4))
	code, err := c.Finalize()
	require.NoError(t, err)
	require.Zero(t, len(code)%4, "final buffer length must be word-aligned")
}

func TestCompilingSameBodyTwiceIsIdempotent(t *testing.T) {
	p := new(asmProgram).
		i32(bytecode.OpConstI32, 0, 7).
		i32(bytecode.OpConstI32, 1, 35).
		op(bytecode.OpI32Add, 2, 0, 1).
		op(bytecode.OpEnd)
	body := p.body(8)

	c1 := compileBody(t, body)
	code1, err := c1.Finalize()
	require.NoError(t, err)

	c2 := compileBody(t, body)
	code2, err := c2.Finalize()
	require.NoError(t, err)

	require.Equal(t, code1, code2)
}
