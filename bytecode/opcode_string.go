package bytecode

// opcodeNames mirrors the const block in opcode.go exactly, in iota order;
// it exists only for disassembly/diagnostics, never for decoding.
var opcodeNames = [...]string{
	"CONST_I8", "CONST_I16", "CONST_I32", "CONST_I64", "CONST_F32", "CONST_F64", "CONST_PTR",

	"MOVE8", "MOVE16", "MOVE32", "MOVE64",

	"I32_ADD", "I32_SUB", "I32_MUL", "I32_DIV_S", "I32_DIV_U", "I32_REM_S", "I32_REM_U",
	"I32_AND", "I32_OR", "I32_XOR", "I32_NOT", "I32_SHL", "I32_SHR_S", "I32_SHR_U",

	"I64_ADD", "I64_SUB", "I64_MUL", "I64_DIV_S", "I64_DIV_U", "I64_REM_S", "I64_REM_U",
	"I64_AND", "I64_OR", "I64_XOR", "I64_NOT", "I64_SHL", "I64_SHR_S", "I64_SHR_U",

	"F32_ADD", "F32_SUB", "F32_MUL", "F32_DIV", "F32_MIN", "F32_MAX", "F32_ABS", "F32_SQRT",
	"F64_ADD", "F64_SUB", "F64_MUL", "F64_DIV", "F64_MIN", "F64_MAX", "F64_ABS", "F64_SQRT",

	"F32_FROM_I32_S", "F32_FROM_I32_U", "F32_FROM_I64_S", "F32_FROM_I64_U",
	"F64_FROM_I32_S", "F64_FROM_I32_U", "F64_FROM_I64_S", "F64_FROM_I64_U",
	"I32_FROM_F32_S", "I32_FROM_F32_U", "I32_FROM_F64_S", "I32_FROM_F64_U",
	"I64_FROM_F32_S", "I64_FROM_F32_U", "I64_FROM_F64_S", "I64_FROM_F64_U",

	"I32_EQ", "I32_NE", "I32_LT_S", "I32_LT_U", "I32_GT_S", "I32_GT_U",
	"I32_LE_S", "I32_LE_U", "I32_GE_S", "I32_GE_U",
	"I64_EQ", "I64_NE", "I64_LT_S", "I64_LT_U", "I64_GT_S", "I64_GT_U",
	"I64_LE_S", "I64_LE_U", "I64_GE_S", "I64_GE_U",
	"F32_EQ", "F32_NE", "F32_LT", "F32_GT", "F32_LE", "F32_GE",
	"F64_EQ", "F64_NE", "F64_LT", "F64_GT", "F64_LE", "F64_GE",

	"LOAD8_S", "LOAD8_U", "LOAD16_S", "LOAD16_U", "LOAD32", "LOAD64", "LOAD_BOOL", "LOAD_PTR",
	"LOAD_F32", "LOAD_F64",
	"STORE8", "STORE16", "STORE32", "STORE64", "STORE_BOOL", "STORE_PTR", "STORE_F32", "STORE_F64",

	"BR", "BR_IF", "BR_TABLE", "END", "UNREACHABLE",

	"CALL_DIRECT", "CALL_INDIRECT", "CALL_IMPORT",

	"I32_EXTEND_I8_S", "I32_EXTEND_I16_S", "I64_EXTEND_I8_S", "I64_EXTEND_I16_S",
	"I64_EXTEND_I32_S", "I64_EXTEND_I32_U", "I32_WRAP_I64", "F64_PROMOTE_F32",
	"F32_DEMOTE_F64", "PTR_FROM_I32", "I32_FROM_PTR",

	"GLOBAL_GET_ADDR", "GLOBAL_GET", "GLOBAL_SET",

	"EXTENDED_PREFIX", "MEMORY_INIT", "MEMORY_COPY", "MEMORY_FILL", "DATA_DROP",
	"TABLE_INIT", "TABLE_COPY", "TABLE_FILL", "TABLE_SIZE", "TABLE_GET", "TABLE_SET",
	"TABLE_GROW", "ELEM_DROP",

	"HEAP_MALLOC", "HEAP_CALLOC", "HEAP_REALLOC", "HEAP_FREE",

	"ATOMIC_LOAD32", "ATOMIC_LOAD64", "ATOMIC_STORE32", "ATOMIC_STORE64",
	"ATOMIC_ADD32", "ATOMIC_SUB32", "ATOMIC_AND32", "ATOMIC_OR32", "ATOMIC_XOR32",
	"ATOMIC_ADD64", "ATOMIC_SUB64", "ATOMIC_AND64", "ATOMIC_OR64", "ATOMIC_XOR64",
	"ATOMIC_EXCHANGE32", "ATOMIC_EXCHANGE64", "ATOMIC_CMPEXCHANGE32", "ATOMIC_CMPEXCHANGE64",
	"ATOMIC_FENCE",

	"ALLOCA",
}

// String renders op's mnemonic, for disassembly and diagnostics only.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "INVALID_OPCODE"
}
