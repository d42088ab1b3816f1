package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/bytecode"
)

func TestDisassembleRendersOneLinePerInstruction(t *testing.T) {
	code := []byte{byte(bytecode.OpConstI32), 1, 7, 0, 0, 0}
	code = append(code, byte(bytecode.OpI32Add), 0, 1, 1)
	code = append(code, byte(bytecode.OpEnd))

	lines := bytecode.Disassemble(&bytecode.Body{Code: code})
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "CONST_I32")
	require.Contains(t, lines[0], "#7")
	require.Contains(t, lines[1], "I32_ADD")
	require.Contains(t, lines[2], "END")
}

func TestDisassembleStopsAtInvalidOpcode(t *testing.T) {
	lines := bytecode.Disassemble(&bytecode.Body{Code: []byte{0xFF}})
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "invalid opcode")
}
