package riscv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	riscvasm "github.com/espb/native/asm/riscv"
)

func TestAddEncodesRType(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	b.Add(riscvasm.X10, riscvasm.X11, riscvasm.X12)
	require.NoError(t, b.Err())
	require.Equal(t, 4, b.Len())

	word := uint32(b.Bytes()[0]) | uint32(b.Bytes()[1])<<8 | uint32(b.Bytes()[2])<<16 | uint32(b.Bytes()[3])<<24
	require.Equal(t, uint32(0b0000000_01100_01011_000_01010_0110011), word)
}

func TestAddiEncodesIType(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	require.NoError(t, b.Addi(riscvasm.X5, riscvasm.X6, -1))
	require.Equal(t, 4, b.Len())
}

func TestAddiRejectsOutOfRangeImmediate(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	err := b.Addi(riscvasm.X5, riscvasm.X6, 4096)
	require.Error(t, err)
}

func TestLuiPacks20BitImmediate(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	b.Lui(riscvasm.X7, 0xABCDE)
	require.NoError(t, b.Err())
	require.Equal(t, 4, b.Len())
}

func TestBeqEncodesWithinRange(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	require.NoError(t, b.Beq(riscvasm.X10, riscvasm.X11, 4092))
	require.Error(t, b.Beq(riscvasm.X10, riscvasm.X11, 4093)) // odd displacement, misaligned
}

func TestBeqRejectsOutOfRangeDisplacement(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	err := b.Beq(riscvasm.X10, riscvasm.X11, 4096) // exceeds the 13-bit signed range
	require.Error(t, err)
}

func TestBranchWordMatchesEmittedBranch(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	require.NoError(t, b.Blt(riscvasm.X10, riscvasm.X11, 16))
	emitted := b.Bytes()
	emittedWord := uint32(emitted[0]) | uint32(emitted[1])<<8 | uint32(emitted[2])<<16 | uint32(emitted[3])<<24

	word, err := riscvasm.BranchWord(riscvasm.BranchFunct3Lt, riscvasm.X10, riscvasm.X11, 16)
	require.NoError(t, err)
	require.Equal(t, emittedWord, word)
}

func TestJalWordMatchesEmittedJal(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	require.NoError(t, b.Jal(riscvasm.X1, 1024))
	emitted := b.Bytes()
	emittedWord := uint32(emitted[0]) | uint32(emitted[1])<<8 | uint32(emitted[2])<<16 | uint32(emitted[3])<<24

	word, err := riscvasm.JalWord(riscvasm.X1, 1024)
	require.NoError(t, err)
	require.Equal(t, emittedWord, word)
}

func TestJalrEncodes(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	require.NoError(t, b.Jalr(riscvasm.X1, riscvasm.X7, 0))
	require.Equal(t, 4, b.Len())
}

func TestAmoaddWEncodesWithSeqCstOrdering(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	b.AmoaddW(riscvasm.X10, riscvasm.X11, riscvasm.X12)
	require.NoError(t, b.Err())
	require.Equal(t, 4, b.Len())
}

func TestCompressedFormsEncodeTwoBytes(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	b.CNop()
	b.CMv(riscvasm.X10, riscvasm.X11)
	require.NoError(t, b.CLi(riscvasm.X10, 5))
	require.NoError(t, b.CAddi(riscvasm.X10, -1))
	require.NoError(t, b.Err())
	require.Equal(t, 8, b.Len())
}

func TestCLwCSwRangeCheck(t *testing.T) {
	b := riscvasm.NewCodeBuffer(64)
	require.Error(t, b.CLw(riscvasm.X10, riscvasm.X11, 5)) // must be word-aligned
	require.NoError(t, b.CLw(riscvasm.X10, riscvasm.X11, 4))
	require.NoError(t, b.CSw(riscvasm.X10, riscvasm.X11, 4))
}
