package xtensa_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	xtensaasm "github.com/espb/native/asm/xtensa"
)

func TestPoolDeduplicatesOnFindOrAdd(t *testing.T) {
	p := xtensaasm.NewPool()
	i1 := p.FindOrAdd(0xDEADBEEF)
	i2 := p.FindOrAdd(0xCAFEBABE)
	i3 := p.FindOrAdd(0xDEADBEEF)
	require.Equal(t, i1, i3)
	require.NotEqual(t, i1, i2)
	require.Equal(t, 2, p.Len())
}

func TestPoolOffsetUnknownUntilFlushed(t *testing.T) {
	p := xtensaasm.NewPool()
	idx := p.FindOrAdd(0x11223344)
	_, ok := p.Offset(idx)
	require.False(t, ok)
}

func TestPoolFullAtMaxEntries(t *testing.T) {
	p := xtensaasm.NewPool()
	for i := 0; i < xtensaasm.MaxPoolEntries; i++ {
		p.FindOrAdd(uint32(i))
	}
	require.True(t, p.Full())
}

func TestFlushPoolRecordsOffsetsAndAlignsNextInstruction(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(256)
	p := xtensaasm.NewPool()
	idx0 := p.FindOrAdd(0x12345678)
	idx1 := p.FindOrAdd(0x9ABCDEF0)

	// Misalign the buffer by one byte before flushing, as a real function
	// body would after an odd-length narrow instruction sequence.
	b.WriteByte(0xAA)

	require.NoError(t, b.FlushPool(p))

	off0, ok0 := p.Offset(idx0)
	require.True(t, ok0)
	off1, ok1 := p.Offset(idx1)
	require.True(t, ok1)
	require.NotEqual(t, off0, off1)

	require.Zero(t, b.Len()%4, "the instruction following a pool flush must land word-aligned")

	word0 := uint32(b.Bytes()[off0]) | uint32(b.Bytes()[off0+1])<<8 |
		uint32(b.Bytes()[off0+2])<<16 | uint32(b.Bytes()[off0+3])<<24
	require.Equal(t, uint32(0x12345678), word0)

	word1 := uint32(b.Bytes()[off1]) | uint32(b.Bytes()[off1+1])<<8 |
		uint32(b.Bytes()[off1+2])<<16 | uint32(b.Bytes()[off1+3])<<24
	require.Equal(t, uint32(0x9ABCDEF0), word1)
}

func TestFlushPoolIsNoOpWhenEmpty(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(64)
	p := xtensaasm.NewPool()
	require.NoError(t, b.FlushPool(p))
	require.Equal(t, 0, b.Len())
}

func TestFlushPoolBeginsFreshEmptyPool(t *testing.T) {
	b := xtensaasm.NewCodeBuffer(256)
	p := xtensaasm.NewPool()
	p.FindOrAdd(0x1)
	require.NoError(t, b.FlushPool(p))
	require.Equal(t, 0, p.Len(), "a flush starts a new, empty pool")

	// A second flush immediately after must be a no-op: nothing pending.
	lenBefore := b.Len()
	require.NoError(t, b.FlushPool(p))
	require.Equal(t, lenBefore, b.Len())
}
