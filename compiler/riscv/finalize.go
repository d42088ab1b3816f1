package riscv

import (
	"github.com/espb/native/asm"
	riscvasm "github.com/espb/native/asm/riscv"
)

// Finalize implements Patching & Finalization (spec §4.9): flush any
// residual cache state, align, emit the single shared epilogue, then
// resolve every forward-branch fixup now that every label is known. A
// fixup whose target bytecode offset was never recorded (dead code a
// structured control-flow translator should never emit, but which a
// malformed or adversarial body stream could still reference) is patched to
// a self-branch and logged rather than left dangling (spec §4.5, §9).
func (c *Compiler) Finalize() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.flushCache()
	c.buf.AlignWord()

	epilogueOff := c.buf.Len()
	must := func(err error) {
		if err != nil {
			c.fail(asm.ErrEncoding, 0, 0, err)
		}
	}
	must(c.buf.Lw(riscvasm.RegFrameBase, riscvasm.RegStackPtr, 8))
	must(c.buf.Lw(riscvasm.RegInstance, riscvasm.RegStackPtr, 4))
	must(c.buf.Lw(riscvasm.RegReturnAddr, riscvasm.RegStackPtr, 12))
	must(c.buf.Addi(riscvasm.RegStackPtr, riscvasm.RegStackPtr, 16))
	must(c.buf.Jalr(riscvasm.X0, riscvasm.RegReturnAddr, 0))

	if err := c.buf.Err(); err != nil {
		return nil, c.fail(asm.ErrEncoding, 0, 0, err)
	}
	if c.err != nil {
		return nil, c.err
	}

	for _, fx := range c.labels.Fixups() {
		info, ok := c.pending[fx.NativeOffset]
		if !ok {
			continue
		}
		target, resolved := epilogueOff, true
		if fx.TargetBC != epilogueSentinel {
			target, resolved = c.labels.Lookup(fx.TargetBC)
		}
		if !resolved {
			target = fx.NativeOffset
			c.labels.TrapLogged(fx)
		}
		disp := int32(target - fx.NativeOffset)
		word, err := info.encode(disp)
		if err != nil {
			return nil, c.fail(asm.ErrEncoding, 0, 0, err)
		}
		c.buf.PatchU32(fx.NativeOffset, word)
	}

	c.buf.FenceI() // synchronize the instruction cache after emission (spec §5)
	if err := c.buf.Err(); err != nil {
		return nil, c.fail(asm.ErrEncoding, 0, 0, err)
	}
	return c.buf.Bytes(), c.err
}
