package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/bytecode"
)

func TestOpcodeIsValid(t *testing.T) {
	require.True(t, bytecode.OpConstI8.IsValid())
	require.True(t, bytecode.OpAlloca.IsValid())
	require.False(t, bytecode.Opcode(0xFF).IsValid())
}

func TestReservedPaddingNeverAValidOpcode(t *testing.T) {
	require.False(t, bytecode.Opcode(bytecode.ReservedPadding).IsValid())
}
