package main

import (
	"fmt"
	"io"

	"github.com/espb/native/bytecode"
)

// loadBody reads a bytecode function body from r. The on-disk layout is
// deliberately minimal, since the module/loader format this body would
// normally arrive from (spec §1's bytecode loader) is an out-of-scope
// external collaborator: a 3-byte header (NumVRegs, Flags, MaxRegUsed)
// followed directly by the opcode stream, with no surrounding container.
func loadBody(r io.Reader) (*bytecode.Body, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("espbc: reading body header: %w", err)
	}
	code, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("espbc: reading opcode stream: %w", err)
	}
	return &bytecode.Body{
		NumVRegs:   hdr[0],
		Flags:      bytecode.Flags(hdr[1]),
		MaxRegUsed: hdr[2],
		Code:       code,
	}, nil
}
