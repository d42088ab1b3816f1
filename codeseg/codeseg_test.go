package codeseg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/codeseg"
)

func TestAllocSizesUpToPage(t *testing.T) {
	seg, err := codeseg.Alloc(37)
	require.NoError(t, err)
	defer seg.Free()

	require.Equal(t, 37, seg.Size())
	require.Len(t, seg.Bytes(), 37)
	require.NotZero(t, seg.Addr())
}

func TestAllocZeroSizeDefaultsToOnePage(t *testing.T) {
	seg, err := codeseg.Alloc(0)
	require.NoError(t, err)
	defer seg.Free()

	require.Equal(t, 4096, seg.Size())
}

func TestAllocBytesIsWritable(t *testing.T) {
	seg, err := codeseg.Alloc(16)
	require.NoError(t, err)
	defer seg.Free()

	b := seg.Bytes()
	for i := range b {
		b[i] = byte(i + 1)
	}
	for i, v := range seg.Bytes() {
		require.Equal(t, byte(i+1), v)
	}
}

func TestReallocShrinks(t *testing.T) {
	seg, err := codeseg.Alloc(8192)
	require.NoError(t, err)
	defer seg.Free()

	shrunk, err := seg.Realloc(100)
	require.NoError(t, err)
	require.Equal(t, 100, shrunk.Size())
}

func TestReallocRefusesToGrow(t *testing.T) {
	seg, err := codeseg.Alloc(16)
	require.NoError(t, err)
	defer seg.Free()

	before := seg.Size()
	grown, err := seg.Realloc(1 << 20)
	require.NoError(t, err)
	require.Equal(t, before, grown.Size())
}

func TestFreeIsIdempotentOnZeroValue(t *testing.T) {
	seg := &codeseg.Segment{}
	require.NoError(t, seg.Free())
}

func TestSyncIsSafeNoOp(t *testing.T) {
	seg, err := codeseg.Alloc(64)
	require.NoError(t, err)
	defer seg.Free()
	seg.Sync(0, seg.Size())
}
