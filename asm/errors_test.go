package asm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/asm"
)

func TestCompileErrorMessageIncludesUnderlying(t *testing.T) {
	underlying := errors.New("immediate out of range")
	err := asm.NewError(asm.ErrEncoding, 42, 0x07, underlying)

	require.Contains(t, err.Error(), "encoding error")
	require.Contains(t, err.Error(), "42")
	require.Contains(t, err.Error(), "immediate out of range")
}

func TestCompileErrorUnwrap(t *testing.T) {
	underlying := errors.New("boom")
	err := asm.NewError(asm.ErrInvalidOperand, 0, 0, underlying)

	require.ErrorIs(t, err, underlying)
}

func TestErrorKindStrings(t *testing.T) {
	cases := map[asm.ErrorKind]string{
		asm.ErrOutOfMemory:       "out of memory",
		asm.ErrUnsupportedOpcode: "unsupported opcode",
		asm.ErrInvalidOperand:    "invalid operand",
		asm.ErrEncoding:          "encoding error",
		asm.ErrInvalidState:      "invalid internal state",
	}
	for kind, want := range cases {
		require.Equal(t, want, kind.String())
	}
}

func TestCompileErrorWithoutUnderlying(t *testing.T) {
	err := asm.NewError(asm.ErrInvalidState, 1, 2, nil)
	require.NoError(t, err.Unwrap())
	require.Contains(t, err.Error(), "invalid internal state")
}
