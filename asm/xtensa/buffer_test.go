package xtensa_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	xtensaasm "github.com/espb/native/asm/xtensa"
)

func TestCodeBufferAccumulatesPartialWord(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	b.WriteByte(1)
	b.WriteByte(2)
	require.Equal(t, 2, b.Len())
	require.Empty(t, b.Bytes()) // nothing committed yet
}

func TestCodeBufferCommitsOnFourthByte(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	b.WriteByte(1)
	b.WriteByte(2)
	b.WriteByte(3)
	b.WriteByte(4)
	require.Equal(t, 4, b.Len())
	require.Equal(t, []byte{1, 2, 3, 4}, b.Bytes())
}

func TestCodeBufferFlushPadsPartialWordWithRealNops(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	b.WriteByte(1)
	b.WriteByte(2)
	b.Flush()
	bs := b.Bytes()
	require.Equal(t, 0, len(bs)%4)
	require.Equal(t, byte(1), bs[0])
	require.Equal(t, byte(2), bs[1])
	require.NotEqual(t, []byte{0, 0}, bs[2:4], "padding must be real NOP bytes, not zero filler")
}

func TestCodeBufferFlushIsIdempotent(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	b.WriteByte(1)
	b.Flush()
	first := append([]byte(nil), b.Bytes()...)
	b.Flush()
	require.Equal(t, first, b.Bytes())
}

func TestCodeBufferFlushThenWriteByteDoesNotSpliceDeadBytes(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	b.WriteByte(1)
	b.WriteByte(2)
	b.Flush()
	lenAfterFlush := len(b.Bytes())
	b.WriteByte(9)
	b.WriteByte(9)
	b.WriteByte(9)
	b.WriteByte(9)
	require.Equal(t, []byte{9, 9, 9, 9}, b.Bytes()[lenAfterFlush:lenAfterFlush+4],
		"bytes written after Flush must be new instructions, not revisions of padding")
}

func TestCodeBufferAlignWordUsesRealNop(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	b.WriteByte(0xAB)
	b.AlignWord()
	require.Equal(t, 0, b.Len()%4)
	require.NoError(t, b.Err())
}

func TestCodeBufferPatchU24(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	b.EmitRawWord(0)
	b.PatchU24(0, 0x00ABCDEF)
	bs := b.Bytes()
	require.Equal(t, byte(0xEF), bs[0])
	require.Equal(t, byte(0xCD), bs[1])
	require.Equal(t, byte(0xAB), bs[2])
}

func TestCodeBufferPatchU32(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	b.EmitRawWord(0)
	b.PatchU32(0, 0xcafef00d)
	require.Equal(t, []byte{0x0d, 0xf0, 0xfe, 0xca}, b.Bytes())
}

func TestCodeBufferEmitRawWordRejectsPendingAccumulator(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	b.WriteByte(1)
	b.EmitRawWord(0)
	require.Error(t, b.Err())
}
