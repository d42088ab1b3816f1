package riscv

// Bit layouts below follow the standard RV32I/M/A/C encodings. Each function
// writes exactly one instruction and performs only the range checks its
// immediate field requires; wider sequences (e.g. a 32-bit constant that does
// not fit in a 12-bit I-immediate) are the dispatcher's responsibility to
// synthesize from these primitives (lui+addi), per spec §4.2.

const (
	opLoad   = 0b0000011
	opOpImm  = 0b0010011
	opAuipc  = 0b0010111
	opStore  = 0b0100011
	opOp     = 0b0110011
	opLui    = 0b0110111
	opBranch = 0b1100011
	opJalr   = 0b1100111
	opJal    = 0b1101111
	opAmo    = 0b0101111
	opSystem = 0b1110011
)

func rtype(funct7 uint32, rs2, rs1 Reg, funct3 uint32, rd Reg, opcode uint32) uint32 {
	return funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

func itype(imm int32, rs1 Reg, funct3 uint32, rd Reg, opcode uint32) uint32 {
	return uint32(imm&0xfff)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

func stype(imm int32, rs2, rs1 Reg, funct3 uint32, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7f)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | (u&0x1f)<<7 | opcode
}

func btype(imm int32, rs2, rs1 Reg, funct3 uint32, opcode uint32) uint32 {
	u := uint32(imm)
	b12 := (u >> 12) & 1
	b11 := (u >> 11) & 1
	b10_5 := (u >> 5) & 0x3f
	b4_1 := (u >> 1) & 0xf
	return b12<<31 | b10_5<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | b4_1<<8 | b11<<7 | opcode
}

func utype(imm20 uint32, rd Reg, opcode uint32) uint32 {
	return imm20<<12 | uint32(rd)<<7 | opcode
}

func jtype(imm int32, rd Reg, opcode uint32) uint32 {
	u := uint32(imm)
	b20 := (u >> 20) & 1
	b19_12 := (u >> 12) & 0xff
	b11 := (u >> 11) & 1
	b10_1 := (u >> 1) & 0x3ff
	return b20<<31 | b10_1<<21 | b11<<20 | b19_12<<12 | uint32(rd)<<7 | opcode
}

// --- integer ALU reg-reg ---

func (b *CodeBuffer) Add(rd, rs1, rs2 Reg)  { b.Emit4(rtype(0, rs2, rs1, 0b000, rd, opOp)) }
func (b *CodeBuffer) Sub(rd, rs1, rs2 Reg)  { b.Emit4(rtype(0b0100000, rs2, rs1, 0b000, rd, opOp)) }
func (b *CodeBuffer) And(rd, rs1, rs2 Reg)  { b.Emit4(rtype(0, rs2, rs1, 0b111, rd, opOp)) }
func (b *CodeBuffer) Or(rd, rs1, rs2 Reg)   { b.Emit4(rtype(0, rs2, rs1, 0b110, rd, opOp)) }
func (b *CodeBuffer) Xor(rd, rs1, rs2 Reg)  { b.Emit4(rtype(0, rs2, rs1, 0b100, rd, opOp)) }
func (b *CodeBuffer) Sll(rd, rs1, rs2 Reg)  { b.Emit4(rtype(0, rs2, rs1, 0b001, rd, opOp)) }
func (b *CodeBuffer) Sra(rd, rs1, rs2 Reg)  { b.Emit4(rtype(0b0100000, rs2, rs1, 0b101, rd, opOp)) }
func (b *CodeBuffer) Srl(rd, rs1, rs2 Reg)  { b.Emit4(rtype(0, rs2, rs1, 0b101, rd, opOp)) }
func (b *CodeBuffer) Slt(rd, rs1, rs2 Reg)  { b.Emit4(rtype(0, rs2, rs1, 0b010, rd, opOp)) }
func (b *CodeBuffer) Sltu(rd, rs1, rs2 Reg) { b.Emit4(rtype(0, rs2, rs1, 0b011, rd, opOp)) }

// M extension
const mFunct7 = 0b0000001

func (b *CodeBuffer) Mul(rd, rs1, rs2 Reg)   { b.Emit4(rtype(mFunct7, rs2, rs1, 0b000, rd, opOp)) }
func (b *CodeBuffer) Mulhu(rd, rs1, rs2 Reg) { b.Emit4(rtype(mFunct7, rs2, rs1, 0b011, rd, opOp)) }
func (b *CodeBuffer) Div(rd, rs1, rs2 Reg)  { b.Emit4(rtype(mFunct7, rs2, rs1, 0b100, rd, opOp)) }
func (b *CodeBuffer) Divu(rd, rs1, rs2 Reg) { b.Emit4(rtype(mFunct7, rs2, rs1, 0b101, rd, opOp)) }
func (b *CodeBuffer) Rem(rd, rs1, rs2 Reg)  { b.Emit4(rtype(mFunct7, rs2, rs1, 0b110, rd, opOp)) }
func (b *CodeBuffer) Remu(rd, rs1, rs2 Reg) { b.Emit4(rtype(mFunct7, rs2, rs1, 0b111, rd, opOp)) }

// --- integer ALU imm ---

func (b *CodeBuffer) Addi(rd, rs1 Reg, imm int32) error {
	if !fitsSigned(int64(imm), 12) {
		return errString("riscv: addi immediate out of 12-bit range")
	}
	b.Emit4(itype(imm, rs1, 0b000, rd, opOpImm))
	return nil
}

func (b *CodeBuffer) Andi(rd, rs1 Reg, imm int32) error {
	if !fitsSigned(int64(imm), 12) {
		return errString("riscv: andi immediate out of 12-bit range")
	}
	b.Emit4(itype(imm, rs1, 0b111, rd, opOpImm))
	return nil
}

func (b *CodeBuffer) Ori(rd, rs1 Reg, imm int32) error {
	if !fitsSigned(int64(imm), 12) {
		return errString("riscv: ori immediate out of 12-bit range")
	}
	b.Emit4(itype(imm, rs1, 0b110, rd, opOpImm))
	return nil
}

func (b *CodeBuffer) Xori(rd, rs1 Reg, imm int32) error {
	if !fitsSigned(int64(imm), 12) {
		return errString("riscv: xori immediate out of 12-bit range")
	}
	b.Emit4(itype(imm, rs1, 0b100, rd, opOpImm))
	return nil
}

func (b *CodeBuffer) Slli(rd, rs1 Reg, shamt uint32) error {
	if shamt > 31 {
		return errString("riscv: slli shift amount out of range")
	}
	b.Emit4(itype(int32(shamt), rs1, 0b001, rd, opOpImm))
	return nil
}

func (b *CodeBuffer) Srli(rd, rs1 Reg, shamt uint32) error {
	if shamt > 31 {
		return errString("riscv: srli shift amount out of range")
	}
	b.Emit4(itype(int32(shamt), rs1, 0b101, rd, opOpImm))
	return nil
}

func (b *CodeBuffer) Srai(rd, rs1 Reg, shamt uint32) error {
	if shamt > 31 {
		return errString("riscv: srai shift amount out of range")
	}
	b.Emit4(itype(int32(shamt)|0b0100000<<5, rs1, 0b101, rd, opOpImm))
	return nil
}

// Lui writes the Load Upper Immediate instruction; imm20 holds bits[31:12].
func (b *CodeBuffer) Lui(rd Reg, imm20 uint32) { b.Emit4(utype(imm20&0xfffff, rd, opLui)) }

// Auipc writes Add Upper Immediate to PC, used for PC-relative helper calls.
func (b *CodeBuffer) Auipc(rd Reg, imm20 uint32) { b.Emit4(utype(imm20&0xfffff, rd, opAuipc)) }

// --- loads / stores ---

func (b *CodeBuffer) Lw(rd, rs1 Reg, off int32) error  { return b.load(rd, rs1, off, 0b010) }
func (b *CodeBuffer) Lh(rd, rs1 Reg, off int32) error  { return b.load(rd, rs1, off, 0b001) }
func (b *CodeBuffer) Lhu(rd, rs1 Reg, off int32) error { return b.load(rd, rs1, off, 0b101) }
func (b *CodeBuffer) Lb(rd, rs1 Reg, off int32) error  { return b.load(rd, rs1, off, 0b000) }
func (b *CodeBuffer) Lbu(rd, rs1 Reg, off int32) error { return b.load(rd, rs1, off, 0b100) }

func (b *CodeBuffer) load(rd, rs1 Reg, off int32, funct3 uint32) error {
	if !fitsSigned(int64(off), 12) {
		return errString("riscv: load offset out of 12-bit range")
	}
	b.Emit4(itype(off, rs1, funct3, rd, opLoad))
	return nil
}

func (b *CodeBuffer) Sw(rs2, rs1 Reg, off int32) error { return b.store(rs2, rs1, off, 0b010) }
func (b *CodeBuffer) Sh(rs2, rs1 Reg, off int32) error { return b.store(rs2, rs1, off, 0b001) }
func (b *CodeBuffer) Sb(rs2, rs1 Reg, off int32) error { return b.store(rs2, rs1, off, 0b000) }

func (b *CodeBuffer) store(rs2, rs1 Reg, off int32, funct3 uint32) error {
	if !fitsSigned(int64(off), 12) {
		return errString("riscv: store offset out of 12-bit range")
	}
	b.Emit4(stype(off, rs2, rs1, funct3, opStore))
	return nil
}

// --- branches / jumps ---

func (b *CodeBuffer) Beq(rs1, rs2 Reg, off int32) error  { return b.branch(rs1, rs2, off, 0b000) }
func (b *CodeBuffer) Bne(rs1, rs2 Reg, off int32) error  { return b.branch(rs1, rs2, off, 0b001) }
func (b *CodeBuffer) Blt(rs1, rs2 Reg, off int32) error  { return b.branch(rs1, rs2, off, 0b100) }
func (b *CodeBuffer) Bge(rs1, rs2 Reg, off int32) error  { return b.branch(rs1, rs2, off, 0b101) }
func (b *CodeBuffer) Bltu(rs1, rs2 Reg, off int32) error { return b.branch(rs1, rs2, off, 0b110) }
func (b *CodeBuffer) Bgeu(rs1, rs2 Reg, off int32) error { return b.branch(rs1, rs2, off, 0b111) }

func (b *CodeBuffer) branch(rs1, rs2 Reg, off int32, funct3 uint32) error {
	if !fitsSigned(int64(off), 13) || off%2 != 0 {
		return errString("riscv: branch displacement out of range or misaligned")
	}
	b.Emit4(btype(off, rs2, rs1, funct3, opBranch))
	return nil
}

func (b *CodeBuffer) Jal(rd Reg, off int32) error {
	w, err := JalWord(rd, off)
	if err != nil {
		return err
	}
	b.Emit4(w)
	return nil
}

// JalWord computes the instruction word for a JAL without emitting it,
// for callers that need to patch a previously-reserved placeholder once a
// forward branch's displacement becomes known (spec §4.5 fixup resolution).
func JalWord(rd Reg, off int32) (uint32, error) {
	if !fitsSigned(int64(off), 21) || off%2 != 0 {
		return 0, errString("riscv: jal displacement out of range or misaligned")
	}
	return jtype(off, rd, opJal), nil
}

// BranchFunct3 maps a conditional-branch opcode's predicate to its B-type
// funct3 field, for fixup re-encoding (see BranchWord).
const (
	BranchFunct3Eq  = 0b000
	BranchFunct3Ne  = 0b001
	BranchFunct3Lt  = 0b100
	BranchFunct3Ge  = 0b101
	BranchFunct3Ltu = 0b110
	BranchFunct3Geu = 0b111
)

// BranchWord computes the instruction word for a conditional branch without
// emitting it, mirroring JalWord's role for B-type fixups.
func BranchWord(funct3 uint32, rs1, rs2 Reg, off int32) (uint32, error) {
	if !fitsSigned(int64(off), 13) || off%2 != 0 {
		return 0, errString("riscv: branch displacement out of range or misaligned")
	}
	return btype(off, rs2, rs1, funct3, opBranch), nil
}

func (b *CodeBuffer) Jalr(rd, rs1 Reg, off int32) error {
	if !fitsSigned(int64(off), 12) {
		return errString("riscv: jalr offset out of 12-bit range")
	}
	b.Emit4(itype(off, rs1, 0b000, rd, opJalr))
	return nil
}

// Ebreak encodes EBREAK, the standard RV32I trap instruction: rd=rs1=x0,
// funct3=0, funct12=1. Used to terminate execution at the host's normal
// illegal-instruction/breakpoint trap rather than looping forever.
func (b *CodeBuffer) Ebreak() { b.Emit4(itype(1, X0, 0b000, X0, opSystem)) }

// --- atomics (A extension) ---

const (
	amoFunct3 = 0b010
	aq        = uint32(1) // sequentially-consistent lowering always sets both
	rl        = uint32(1)
)

func amo(funct5 uint32, rd, rs1, rs2 Reg) uint32 {
	// aq and rl are both set for every ESPB atomic opcode: spec §5 requires
	// SEQ_CST ordering for all atomic opcodes, so there is no weaker-ordering
	// path to lower to.
	return funct5<<27 | 1<<26 | 1<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | amoFunct3<<12 | uint32(rd)<<7 | opAmo
}

func (b *CodeBuffer) LrW(rd, rs1 Reg)           { b.Emit4(amo(0b00010, rd, rs1, X0)) }
func (b *CodeBuffer) ScW(rd, rs1, rs2 Reg)      { b.Emit4(amo(0b00011, rd, rs1, rs2)) }
func (b *CodeBuffer) AmoaddW(rd, rs1, rs2 Reg)  { b.Emit4(amo(0b00000, rd, rs1, rs2)) }
func (b *CodeBuffer) AmoandW(rd, rs1, rs2 Reg)  { b.Emit4(amo(0b01100, rd, rs1, rs2)) }
func (b *CodeBuffer) AmoorW(rd, rs1, rs2 Reg)   { b.Emit4(amo(0b01000, rd, rs1, rs2)) }
func (b *CodeBuffer) AmoxorW(rd, rs1, rs2 Reg)  { b.Emit4(amo(0b00100, rd, rs1, rs2)) }
func (b *CodeBuffer) AmoswapW(rd, rs1, rs2 Reg) { b.Emit4(amo(0b00001, rd, rs1, rs2)) }

// Fence.i, used to synchronize the instruction cache after emission on
// RISC-V hosts where the I-cache is not automatically coherent (spec §5).
func (b *CodeBuffer) FenceI() { b.Emit4(itype(0, X0, 0b001, X0, 0b0001111)) }

// --- compressed (C extension) forms, a representative subset ---

func creg(r Reg) uint32 {
	// C.* register forms using the 3-bit "popular register" encoding address
	// x8-x15 only; callers must only request compressed forms for registers
	// in that range, which the dispatcher's register-cache hot pair and
	// scratch registers are chosen to satisfy where compression is used.
	return uint32(r-8) & 0x7
}

// CNop emits the canonical compressed NOP (C.ADDI x0, x0, 0).
func (b *CodeBuffer) CNop() { b.Emit2(0x0001) }

// CMv emits C.MV rd, rs (CR format): rd <- rs, rd != x0.
func (b *CodeBuffer) CMv(rd, rs Reg) {
	b.Emit2(uint16(0b1000_0000_0000_0010 | uint32(rd)<<7 | uint32(rs)<<2))
}

// CLi emits C.LI rd, imm (CI format, 6-bit signed immediate).
func (b *CodeBuffer) CLi(rd Reg, imm int8) error {
	if !fitsSigned(int64(imm), 6) {
		return errString("riscv: c.li immediate out of 6-bit range")
	}
	u := uint32(imm) & 0x3f
	hi := (u >> 5) & 1
	lo := u & 0x1f
	b.Emit2(uint16(0b010<<13 | hi<<12 | uint32(rd)<<7 | lo<<2 | 0b01))
	return nil
}

// CAddi emits C.ADDI rd, rd, imm (CI format, 6-bit signed immediate, rd != x0).
func (b *CodeBuffer) CAddi(rd Reg, imm int8) error {
	if !fitsSigned(int64(imm), 6) || imm == 0 {
		return errString("riscv: c.addi immediate out of range")
	}
	u := uint32(imm) & 0x3f
	hi := (u >> 5) & 1
	lo := u & 0x1f
	b.Emit2(uint16(0b000<<13 | hi<<12 | uint32(rd)<<7 | lo<<2 | 0b01))
	return nil
}

// CLw emits C.LW rd', off(rs1') (CL format, rd/rs1 in x8-x15, off in [0,124] step 4).
func (b *CodeBuffer) CLw(rd, rs1 Reg, off uint32) error {
	if off > 124 || off%4 != 0 {
		return errString("riscv: c.lw offset out of range")
	}
	b.Emit2(uint16(0b010<<13 | (off>>3&0x7)<<10 | creg(rs1)<<7 | (off>>2&1)<<6 | (off>>6&1)<<5 | creg(rd)<<2 | 0b00))
	return nil
}

// CSw emits C.SW rs2', off(rs1') (CS format, rs2/rs1 in x8-x15, off in [0,124] step 4).
func (b *CodeBuffer) CSw(rs2, rs1 Reg, off uint32) error {
	if off > 124 || off%4 != 0 {
		return errString("riscv: c.sw offset out of range")
	}
	b.Emit2(uint16(0b110<<13 | (off>>3&0x7)<<10 | creg(rs1)<<7 | (off>>2&1)<<6 | (off>>6&1)<<5 | creg(rs2)<<2 | 0b00))
	return nil
}

// CJr emits C.JR rs1 (CR format, unconditional jump through register).
func (b *CodeBuffer) CJr(rs1 Reg) { b.Emit2(uint16(0b1000_0000_0000_0010 | uint32(rs1)<<7)) }
