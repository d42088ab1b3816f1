package riscv

import "github.com/espb/native/asm/riscv"

// RegCache implements the Register Cache / peephole optimization of spec
// §4.6: a two-entry "hot pair" holding up to two vreg slots in riscv.RegCacheTemp0/RegCacheTemp1, avoiding a load-from-frame
// immediately followed by a store-to-frame when consecutive opcodes touch
// the same register. Each entry tracks which vreg index it holds and
// whether it has been written since it was loaded (dirty); a dirty entry
// must be flushed back to the frame before the cache slot is reused for a
// different vreg, before any control-flow opcode, and before any helper
// call (spec §4.6, "the cache must not survive a call or branch").
type RegCache struct {
	vreg  [2]int  // vreg index resident in slot i, or -1 if empty
	dirty [2]bool
	buf   *riscv.CodeBuffer
}

func NewRegCache(buf *riscv.CodeBuffer) *RegCache {
	return &RegCache{vreg: [2]int{-1, -1}, buf: buf}
}

func (c *RegCache) physReg(slot int) riscv.Reg {
	if slot == 0 {
		return riscv.RegCacheTemp0
	}
	return riscv.RegCacheTemp1
}

// slotFor returns the cache slot (0 or 1) currently assigned to v, or -1.
func (c *RegCache) slotFor(v uint8) int {
	for i, r := range c.vreg {
		if r == int(v) {
			return i
		}
	}
	return -1
}

// evictSlot picks a cache slot to reuse: prefer an empty one, else evict
// slot 0 (a simple fixed-victim policy, adequate for a two-entry cache
// where "least recently used" tracking would cost more than it saves).
func (c *RegCache) evictSlot() int {
	if c.vreg[0] == -1 {
		return 0
	}
	if c.vreg[1] == -1 {
		return 1
	}
	return 0
}

// flushSlot writes a dirty cache entry back to its frame slot. The cache
// only ever holds 32-bit results (every Claim site stages one), so the
// write-back also zeroes the slot's high word, matching the invariant
// vreg.Frame's SetI32/SetU32 honor and spec §3 requires of every 32-bit-typed
// slot.
func (c *RegCache) flushSlot(slot int) error {
	if c.vreg[slot] == -1 || !c.dirty[slot] {
		return nil
	}
	off := int32(c.vreg[slot]) * 8
	if err := c.buf.Sw(c.physReg(slot), riscv.RegFrameBase, off); err != nil {
		return err
	}
	if err := c.buf.Sw(riscv.X0, riscv.RegFrameBase, off+4); err != nil {
		return err
	}
	c.dirty[slot] = false
	return nil
}

// Load ensures v's current value is resident in a cache register and
// returns that register, loading it from the frame on a cache miss.
func (c *RegCache) Load(v uint8) (riscv.Reg, error) {
	if s := c.slotFor(v); s != -1 {
		return c.physReg(s), nil
	}
	s := c.evictSlot()
	if err := c.flushSlot(s); err != nil {
		return 0, err
	}
	c.vreg[s] = int(v)
	c.dirty[s] = false
	r := c.physReg(s)
	if err := c.buf.Lw(r, riscv.RegFrameBase, int32(v)*8); err != nil {
		return 0, err
	}
	return r, nil
}

// Claim assigns a cache slot to v for a value about to be written (the
// dispatcher computed a result and wants to defer the store-back), without
// first loading v's old contents.
func (c *RegCache) Claim(v uint8) (riscv.Reg, error) {
	if s := c.slotFor(v); s != -1 {
		c.dirty[s] = true
		return c.physReg(s), nil
	}
	s := c.evictSlot()
	if err := c.flushSlot(s); err != nil {
		return 0, err
	}
	c.vreg[s] = int(v)
	c.dirty[s] = true
	return c.physReg(s), nil
}

// FlushAll writes back every dirty entry and empties the cache. Called
// before any control-flow opcode, helper call, or function boundary (spec
// §4.6): the frame is the only state a label, branch target, or helper call
// is allowed to observe.
func (c *RegCache) FlushAll() error {
	for s := range c.vreg {
		if err := c.flushSlot(s); err != nil {
			return err
		}
		c.vreg[s] = -1
		c.dirty[s] = false
	}
	return nil
}
