// Package vm implements the bytecode compiler and virtual machine for Fizz.
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // Push constant from pool (2-byte index)
	OP_POP                 // Discard top of stack

	// Arithmetic
	OP_ADD // +
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /
	OP_MOD // %
	OP_NEG // Unary minus

	// Lists
	OP_CONS // :: (head on stack below tail)

	// Comparison
	OP_EQ // ==
	OP_NE // !=
	OP_LT // <
	OP_LE // <=
	OP_GT // >
	OP_GE // >=

	// Variables
	OP_GET_LOCAL  // Get local by slot (1 byte)
	OP_SET_LOCAL  // Set local by slot (1 byte)
	OP_GET_GLOBAL // Get global by name constant (2 bytes)
	OP_DEF_GLOBAL // Define global from top of stack (2-byte name constant)

	// Control flow
	OP_JUMP          // Unconditional forward jump (2-byte offset)
	OP_JUMP_IF_FALSE // Pop condition, jump if false (2-byte offset)

	// Functions
	OP_CALL   // Call: stack is [fn, arg], every script function is unary
	OP_RETURN // Return from function

	// Closures
	OP_CLOSURE     // Create closure (2-byte fn constant + per-upvalue pairs)
	OP_GET_UPVALUE // Get captured variable (1 byte)

	// Data structures
	OP_MAKE_LIST    // Pop n elements, push list (2-byte count)
	OP_MAKE_TUPLE   // Pop n elements, push tuple (2-byte count)
	OP_MAKE_RECORD  // Pop n name/value pairs, push record (2-byte count)
	OP_MAKE_VARIANT // Pop n fields, push variant (2-byte type, 2-byte tag, 1-byte count)
	OP_GET_FIELD    // Pop record, push field value (2-byte name constant)

	// Pattern matching
	OP_CHECK_TAG         // Pop value, push whether it is a variant with the given tag (2-byte tag constant)
	OP_GET_VARIANT_FIELD // Pop variant, push field at index (1 byte)
	OP_CHECK_TUPLE_LEN   // Pop value, push whether it is a tuple of the given arity (1 byte)
	OP_GET_TUPLE_ELEM    // Pop tuple, push element at index (1 byte)
	OP_MATCH_FAIL        // No arm matched the popped scrutinee

	// Scope management
	OP_CLOSE_SCOPE // Pop n locals below the result, keep result (1 byte)

	// Literals
	OP_UNIT  // Push unit
	OP_TRUE  // Push true
	OP_FALSE // Push false
)

// OpcodeNames maps opcodes to their string names (for disassembly)
var OpcodeNames = map[Opcode]string{
	OP_CONST: "CONST",
	OP_POP:   "POP",

	OP_ADD: "ADD",
	OP_SUB: "SUB",
	OP_MUL: "MUL",
	OP_DIV: "DIV",
	OP_MOD: "MOD",
	OP_NEG: "NEG",

	OP_CONS: "CONS",

	OP_EQ: "EQ",
	OP_NE: "NE",
	OP_LT: "LT",
	OP_LE: "LE",
	OP_GT: "GT",
	OP_GE: "GE",

	OP_GET_LOCAL:  "GET_LOCAL",
	OP_SET_LOCAL:  "SET_LOCAL",
	OP_GET_GLOBAL: "GET_GLOBAL",
	OP_DEF_GLOBAL: "DEF_GLOBAL",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",

	OP_CALL:   "CALL",
	OP_RETURN: "RETURN",

	OP_CLOSURE:     "CLOSURE",
	OP_GET_UPVALUE: "GET_UPVALUE",

	OP_MAKE_LIST:    "MAKE_LIST",
	OP_MAKE_TUPLE:   "MAKE_TUPLE",
	OP_MAKE_RECORD:  "MAKE_RECORD",
	OP_MAKE_VARIANT: "MAKE_VARIANT",
	OP_GET_FIELD:    "GET_FIELD",

	OP_CHECK_TAG:         "CHECK_TAG",
	OP_GET_VARIANT_FIELD: "GET_VARIANT_FIELD",
	OP_CHECK_TUPLE_LEN:   "CHECK_TUPLE_LEN",
	OP_GET_TUPLE_ELEM:    "GET_TUPLE_ELEM",
	OP_MATCH_FAIL:        "MATCH_FAIL",

	OP_CLOSE_SCOPE: "CLOSE_SCOPE",

	OP_UNIT:  "UNIT",
	OP_TRUE:  "TRUE",
	OP_FALSE: "FALSE",
}
