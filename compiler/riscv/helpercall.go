package riscv

import (
	"github.com/espb/native/asm/riscv"
	"github.com/espb/native/helper"
)

// emitHelperCall materializes addr as an absolute 32-bit constant in
// RegHelperAddr and calls through it. Spec §4.8 describes a PC-relative
// auipc+jalr form when the helper is "in range"; that form only works when
// the offset between the call site and the callee is known at emission
// time. Here it is not: codeseg.Alloc (and therefore the function's final
// load address) runs after Finalize has already produced the complete byte
// image, so no native offset in this buffer has a resolved absolute address
// until the bytes are copied into their mmap allocation. A helper's address
// is always known up front (it is baked into the helper.Table passed to
// Compile), so lui+addi+jalr — materializing it as an absolute constant
// rather than a PC-relative one — is always correct and needs no
// post-allocation patch pass. See DESIGN.md for the spec §9 Open Question
// this resolves.
func (c *Compiler) emitHelperCall(addr helper.Addr, args ...riscv.Reg) error {
	if err := c.cache.FlushAll(); err != nil {
		return err
	}
	argRegs := []riscv.Reg{riscv.RegA0, riscv.RegA1, riscv.RegA2, riscv.RegA3, riscv.RegA4, riscv.RegA5, riscv.RegA6, riscv.RegA7}
	if len(args) > len(argRegs) {
		return errString("riscv: too many helper call arguments")
	}
	for i, a := range args {
		if a == argRegs[i] {
			continue
		}
		c.buf.Add(argRegs[i], a, riscv.X0)
	}

	v := uint32(addr)
	hi := (v + 0x800) >> 12
	lo := int32(int32(v) - int32(hi<<12))
	c.buf.Lui(riscv.RegHelperAddr, hi)
	if err := c.buf.Addi(riscv.RegHelperAddr, riscv.RegHelperAddr, lo); err != nil {
		return err
	}
	return c.buf.Jalr(riscv.RegReturnAddr, riscv.RegHelperAddr, 0)
}

// immReg materializes an immediate (a vreg index, global/type/import index,
// or similar operand) into a scratch register, since helper arguments are
// passed as raw values, not as frame offsets. Global/type/import indices are
// u16 and can exceed addi's 12-bit range, so this always goes through
// loadImm32 rather than emitting addi directly.
func (c *Compiler) immReg(dst riscv.Reg, imm int32) error {
	c.loadImm32(dst, imm)
	return nil
}
