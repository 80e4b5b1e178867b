package compiler

import (
	"encoding/binary"
	"fmt"
)

// Bytecode is the unit of compiled output handed from the compiler to the
// VM: a flat instruction stream plus the constant pool the instructions
// index into.
//
// Fields:
//   - Instructions: An array of instructions defined by opcodes and
//     their operands
//   - ConstantsPool: An array containing all the constant values from the source code.
type Bytecode struct {
	Instructions Instructions
	// ConstantsPool holds literal values (Real, Bool, Null, String) indexed
	// by Constant's one-byte operand, deduplicated by semantic equality.
	ConstantsPool []any
	// NameConstants holds variable names referenced by DefineGlobal /
	// GetGlobal / SetGlobal, indexed by those opcodes' one-byte operand.
	// Kept separate from ConstantsPool so that a global named the same as
	// a string literal does not collide in either pool.
	NameConstants []string
}

type Opcode byte

type Instructions []byte

// opcodes
// iota generates a distinct byte for each bytecode.
const (
	// Return halts execution of the current chunk.
	OP_RETURN Opcode = iota

	// Constant pushes constants[operand] onto the stack. The operand is a
	// single byte, capping the constant pool at 256 entries (see §4.4).
	OP_CONSTANT

	// Negate and Not pop TOS, apply the unary operator, and push the result.
	OP_NEGATE
	OP_NOT

	// Add, Sub, Mul, Div, Greater, Less pop b then a and push a⊕b.
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_GREATER
	OP_LESS

	// Pop discards TOS.
	OP_POP

	// Print pops TOS and renders it to stdout.
	OP_PRINT

	// NewObject allocates an empty table and pushes it.
	OP_NEW_OBJECT

	// ObjectSet pops a value then a key-string and sets it on the table
	// left beneath them; the table itself is retained on the stack.
	OP_OBJECT_SET

	// DefineGlobal binds the popped TOS to the NameConstants entry at the
	// given index.
	OP_DEFINE_GLOBAL

	// GetGlobal pushes the value bound to the NameConstants entry at the
	// given index, or raises an UndefinedVariableError.
	OP_GET_GLOBAL

	// SetGlobal overwrites an already-defined global with TOS; it does
	// not create a new binding.
	OP_SET_GLOBAL

	// GetLocal pushes stack[slot].
	OP_GET_LOCAL

	// SetLocal overwrites stack[slot] with TOS (TOS is retained; an
	// assignment expression's value).
	OP_SET_LOCAL

	// JumpIfFalse jumps to a 4-byte absolute offset when TOS is falsey.
	// The condition is left on the stack; callers pair this with an
	// explicit Pop on whichever branch they take.
	OP_JUMP_IF_FALSE

	// Jump unconditionally sets ip to a 4-byte absolute offset.
	OP_JUMP
)

var opcodeNames = map[Opcode]string{
	OP_RETURN:        "Return",
	OP_CONSTANT:      "Constant",
	OP_NEGATE:        "Negate",
	OP_NOT:           "Not",
	OP_ADD:           "Add",
	OP_SUB:           "Sub",
	OP_MUL:           "Mul",
	OP_DIV:           "Div",
	OP_GREATER:       "Greater",
	OP_LESS:          "Less",
	OP_POP:           "Pop",
	OP_PRINT:         "Print",
	OP_NEW_OBJECT:    "NewObject",
	OP_OBJECT_SET:    "ObjectSet",
	OP_DEFINE_GLOBAL: "DefineGlobal",
	OP_GET_GLOBAL:    "GetGlobal",
	OP_SET_GLOBAL:    "SetGlobal",
	OP_GET_LOCAL:     "GetLocal",
	OP_SET_LOCAL:     "SetLocal",
	OP_JUMP_IF_FALSE: "JumpIfFalse",
	OP_JUMP:          "Jump",
}

// OpCodeDefinition describes one opcode's disassembly name and operand
// layout.
//
// Fields:
//   - Name: The human-readable name for the opcode e.g "Constant"
//   - OperandWidths: The number of bytes each operand takes up, in order.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

// JumpOperandWidth is the byte width of Jump/JumpIfFalse's absolute
// offset operand (§4.4: "4-byte absolute").
const JumpOperandWidth = 4

// byteOperand is the byte width shared by every index/slot operand
// (Constant, DefineGlobal, GetGlobal, SetGlobal, GetLocal, SetLocal): a
// single byte, capping each of those tables at 256 entries.
const byteOperand = 1

var definitions = map[Opcode]*OpCodeDefinition{
	OP_RETURN:        {Name: opcodeNames[OP_RETURN], OperandWidths: []int{}},
	OP_CONSTANT:      {Name: opcodeNames[OP_CONSTANT], OperandWidths: []int{byteOperand}},
	OP_NEGATE:        {Name: opcodeNames[OP_NEGATE], OperandWidths: []int{}},
	OP_NOT:           {Name: opcodeNames[OP_NOT], OperandWidths: []int{}},
	OP_ADD:           {Name: opcodeNames[OP_ADD], OperandWidths: []int{}},
	OP_SUB:           {Name: opcodeNames[OP_SUB], OperandWidths: []int{}},
	OP_MUL:           {Name: opcodeNames[OP_MUL], OperandWidths: []int{}},
	OP_DIV:           {Name: opcodeNames[OP_DIV], OperandWidths: []int{}},
	OP_GREATER:       {Name: opcodeNames[OP_GREATER], OperandWidths: []int{}},
	OP_LESS:          {Name: opcodeNames[OP_LESS], OperandWidths: []int{}},
	OP_POP:           {Name: opcodeNames[OP_POP], OperandWidths: []int{}},
	OP_PRINT:         {Name: opcodeNames[OP_PRINT], OperandWidths: []int{}},
	OP_NEW_OBJECT:    {Name: opcodeNames[OP_NEW_OBJECT], OperandWidths: []int{}},
	OP_OBJECT_SET:    {Name: opcodeNames[OP_OBJECT_SET], OperandWidths: []int{}},
	OP_DEFINE_GLOBAL: {Name: opcodeNames[OP_DEFINE_GLOBAL], OperandWidths: []int{byteOperand}},
	OP_GET_GLOBAL:    {Name: opcodeNames[OP_GET_GLOBAL], OperandWidths: []int{byteOperand}},
	OP_SET_GLOBAL:    {Name: opcodeNames[OP_SET_GLOBAL], OperandWidths: []int{byteOperand}},
	OP_GET_LOCAL:     {Name: opcodeNames[OP_GET_LOCAL], OperandWidths: []int{byteOperand}},
	OP_SET_LOCAL:     {Name: opcodeNames[OP_SET_LOCAL], OperandWidths: []int{byteOperand}},
	OP_JUMP_IF_FALSE: {Name: opcodeNames[OP_JUMP_IF_FALSE], OperandWidths: []int{JumpOperandWidth}},
	OP_JUMP:          {Name: opcodeNames[OP_JUMP], OperandWidths: []int{JumpOperandWidth}},
}

func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode: '%d' undefined", op)
	}
	return def, nil
}

// MakeInstruction constructs a bytecode instruction from an opcode and its
// operands. Operands are encoded in big-endian order, each at the width
// its opcode definition declares.
//
// The resulting byte slice always begins with the opcode, followed by each
// operand encoded according to its defined width in Big-Endian order. For
// example, a one-byte-operand Constant instruction with operand 42 is
// encoded as [<opcode for Constant>, 0x2A].
//
// Parameters:
//   - op: The opcode representing the instruction to encode.
//   - operands: A variadic list of integers providing the operand values
//     corresponding to the opcode's expected operand widths.
//
// Returns:
//   - A byte slice containing the encoded instruction. If the opcode is not
//     recognized, an empty slice is returned.
func MakeInstruction(op Opcode, operands ...int) []byte {
	def, err := Get(op)
	if err != nil {
		return []byte{}
	}

	offset := 1
	instructionLength := offset // starts at one for the opcode
	for _, width := range def.OperandWidths {
		instructionLength += width
	}

	instruction := make([]byte, instructionLength)
	instruction[0] = byte(op)

	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case byteOperand:
			instruction[offset] = byte(o)
		case JumpOperandWidth:
			binary.BigEndian.PutUint32(instruction[offset:], uint32(o))
		}
		offset += width
	}
	return instruction
}

// ReadUint8 reads a single-byte operand at ins[offset].
func ReadUint8(ins Instructions, offset int) int {
	return int(ins[offset])
}

// ReadUint32 reads a 4-byte big-endian absolute offset operand at
// ins[offset], as used by Jump and JumpIfFalse.
func ReadUint32(ins Instructions, offset int) int {
	return int(binary.BigEndian.Uint32(ins[offset:]))
}

// PatchJump overwrites the 4-byte absolute operand at offset (the byte
// immediately after the opcode) with target. Used to back-patch the
// placeholder 0xFFFFFFFF emitted for forward jumps once the jump's
// destination is known.
func PatchJump(ins Instructions, offset int, target int) {
	binary.BigEndian.PutUint32(ins[offset:], uint32(target))
}
