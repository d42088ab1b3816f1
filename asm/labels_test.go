package asm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/asm"
)

func TestLabelsRecordFirstWriteWins(t *testing.T) {
	l := asm.NewLabels()
	l.Record(10, 100)
	l.Record(10, 200) // must be ignored: invariant 1, first native byte wins

	v, ok := l.Lookup(10)
	require.True(t, ok)
	require.Equal(t, 100, v)
}

func TestLabelsLookupMiss(t *testing.T) {
	l := asm.NewLabels()
	_, ok := l.Lookup(99)
	require.False(t, ok)
}

func TestLabelsFixupsAccumulate(t *testing.T) {
	l := asm.NewLabels()
	l.AddFixup(4, 40, asm.FixupKind(0))
	l.AddFixup(8, 80, asm.FixupKind(1))

	fx := l.Fixups()
	require.Len(t, fx, 2)
	require.Equal(t, asm.Fixup{NativeOffset: 4, TargetBC: 40, Kind: asm.FixupKind(0)}, fx[0])
	require.Equal(t, asm.Fixup{NativeOffset: 8, TargetBC: 80, Kind: asm.FixupKind(1)}, fx[1])
}

func TestLabelsTrapLog(t *testing.T) {
	l := asm.NewLabels()
	require.Empty(t, l.TrapLog())

	fx := asm.Fixup{NativeOffset: 16, TargetBC: 160}
	l.TrapLogged(fx)

	log := l.TrapLog()
	require.Len(t, log, 1)
	require.Equal(t, asm.TrapLogEntry{NativeOffset: 16, TargetBC: 160}, log[0])
}
