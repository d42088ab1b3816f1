package vreg_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/vreg"
)

func TestFrameI32RoundTrip(t *testing.T) {
	f := &vreg.Frame{}
	f.SetI32(3, -42)
	require.Equal(t, int32(-42), f.I32(3))
	// High word must be zeroed so a stale 64-bit read of the same slot never
	// observes sign-extended garbage from a prior kind.
	require.Equal(t, vreg.Slot(0xffffffd6), f.Slots[3])
}

func TestFrameU32RoundTrip(t *testing.T) {
	f := &vreg.Frame{}
	f.SetU32(5, 0xdeadbeef)
	require.Equal(t, uint32(0xdeadbeef), f.U32(5))
}

func TestFrameI64RoundTrip(t *testing.T) {
	f := &vreg.Frame{}
	f.SetI64(1, -1)
	require.Equal(t, int64(-1), f.I64(1))
	require.Equal(t, vreg.Slot(math.MaxUint64), f.Slots[1])
}

func TestFrameF32RoundTrip(t *testing.T) {
	f := &vreg.Frame{}
	f.SetF32(2, 3.5)
	require.Equal(t, float32(3.5), f.F32(2))
}

func TestFrameF64RoundTrip(t *testing.T) {
	f := &vreg.Frame{}
	f.SetF64(2, math.Pi)
	require.Equal(t, math.Pi, f.F64(2))
}

func TestFrameBoolNormalizes(t *testing.T) {
	f := &vreg.Frame{}
	f.SetBool(0, true)
	require.Equal(t, vreg.Slot(1), f.Slots[0])
	require.True(t, f.Bool(0))

	f.SetBool(0, false)
	require.Equal(t, vreg.Slot(0), f.Slots[0])
	require.False(t, f.Bool(0))
}

func TestFramePtrRoundTrip(t *testing.T) {
	f := &vreg.Frame{}
	f.SetPtr(4, 0x2000100)
	require.Equal(t, uint32(0x2000100), f.Ptr(4))
}

func TestFrameResultIsSlotZero(t *testing.T) {
	f := &vreg.Frame{}
	f.SetI64(0, 12345)
	require.Equal(t, vreg.Slot(12345), f.Result())
}

func TestFrameSlotsAreIndependent(t *testing.T) {
	f := &vreg.Frame{}
	for i := 0; i < vreg.MaxRegisters; i++ {
		f.SetI32(uint8(i), int32(i))
	}
	for i := 0; i < vreg.MaxRegisters; i++ {
		require.Equal(t, int32(i), f.I32(uint8(i)))
	}
}
