package asm

// Labels implements §4.5, the Label & Fixup Table: a map from bytecode
// offset to native offset, built on the fly as the dispatcher decodes each
// opcode, plus a pending list of forward-branch fixups resolved once, at the
// end of compilation.
//
// This is deliberately a flat map rather than the teacher's linked list of
// jump-target nodes (internal/asm.Node / AssignJumpTarget): single-pass
// dispatch means every label is known to be a simple (bytecode offset,
// native offset) pair recorded exactly once, and every fixup references a
// bytecode offset rather than a node pointer. A map is the natural fit and
// avoids threading a parallel node graph through the dispatcher.
type Labels struct {
	native  map[int]int // bytecode offset -> native offset
	fixups  []Fixup
	trapLog []TrapLogEntry
}

// Fixup is a deferred patch of a branch instruction whose target bytecode
// offset had no recorded label at emission time.
type Fixup struct {
	NativeOffset int // offset of the incomplete branch instruction
	TargetBC     int // target bytecode offset
	Kind         FixupKind
}

// FixupKind distinguishes branch encodings so Resolve can dispatch to the
// right ISA-specific patch routine.
type FixupKind uint8

// TrapLogEntry records a fixup that had to be patched to a self-trap because
// its target bytecode offset never got a label (spec §4.5, §9: "the original
// source contains a dead code path where a compile error patches a branch to
// a self-trap and logs... retain this behavior").
type TrapLogEntry struct {
	NativeOffset int
	TargetBC     int
}

func NewLabels() *Labels {
	return &Labels{native: make(map[int]int, 64)}
}

// Record records bcOffset -> nativeOffset if, and only if, bcOffset has no
// label yet (first-write-wins, invariant 1 in spec §3).
func (l *Labels) Record(bcOffset, nativeOffset int) {
	if _, ok := l.native[bcOffset]; ok {
		return
	}
	l.native[bcOffset] = nativeOffset
}

// Lookup returns the native offset recorded for bcOffset, if any.
func (l *Labels) Lookup(bcOffset int) (int, bool) {
	v, ok := l.native[bcOffset]
	return v, ok
}

// AddFixup enqueues a forward-branch fixup to be resolved at Resolve time.
func (l *Labels) AddFixup(nativeOffset, targetBC int, kind FixupKind) {
	l.fixups = append(l.fixups, Fixup{NativeOffset: nativeOffset, TargetBC: targetBC, Kind: kind})
}

// Fixups returns the pending fixup list for ISA-specific resolution. The
// caller (the ISA's Finalize step) is responsible for patching bytes and
// calling TrapLogged for unresolved ones.
func (l *Labels) Fixups() []Fixup { return l.fixups }

// TrapLogged records that a fixup was patched to a self-trap because its
// target was unreachable (no label was ever recorded for it).
func (l *Labels) TrapLogged(f Fixup) {
	l.trapLog = append(l.trapLog, TrapLogEntry{NativeOffset: f.NativeOffset, TargetBC: f.TargetBC})
}

// TrapLog returns every fixup that was patched to a self-trap instead of a
// real branch, for the caller to log via its configured logger.
func (l *Labels) TrapLog() []TrapLogEntry { return l.trapLog }
