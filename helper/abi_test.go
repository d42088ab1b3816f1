package helper_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/helper"
)

func TestFromFuncPtrRoundTripsAddress(t *testing.T) {
	var x int
	p := unsafe.Pointer(&x)
	addr := helper.FromFuncPtr(p)
	require.Equal(t, helper.Addr(uintptr(p)), addr)
}

func TestTableFieldsAreIndependentAddresses(t *testing.T) {
	tbl := &helper.Table{
		CallESPBFunction: helper.Addr(0x1000),
		CallImport:       helper.Addr(0x2000),
		DivS32:           helper.Addr(0x3000),
	}
	require.NotEqual(t, tbl.CallESPBFunction, tbl.CallImport)
	require.Equal(t, helper.Addr(0x3000), tbl.DivS32)
	require.Zero(t, tbl.AtomicFence, "unset helper addresses default to zero, a never-valid function address")
}
