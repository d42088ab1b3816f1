package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/espb/native/bytecode"
)

func TestLoadBodyParsesHeaderAndCode(t *testing.T) {
	raw := append([]byte{16, byte(bytecode.FlagIsLeaf), 3}, byte(bytecode.OpEnd))
	body, err := loadBody(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, uint8(16), body.NumVRegs)
	require.True(t, body.IsLeaf())
	require.Equal(t, uint8(3), body.MaxRegUsed)
	require.Equal(t, []byte{byte(bytecode.OpEnd)}, body.Code)
}

func TestLoadBodyRejectsTruncatedHeader(t *testing.T) {
	_, err := loadBody(bytes.NewReader([]byte{1, 2}))
	require.Error(t, err)
}
