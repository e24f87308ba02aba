package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, chunk, offset)
	}

	// Nested functions follow their parent.
	for _, c := range chunk.Constants {
		if fn, ok := c.(*CompiledFunction); ok {
			sb.WriteString(Disassemble(fn.Chunk, fn.Name))
		}
	}

	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])
	name, known := OpcodeNames[op]
	if !known {
		sb.WriteString(fmt.Sprintf("UNKNOWN %d\n", op))
		return offset + 1
	}

	switch op {
	case OP_CONST, OP_GET_GLOBAL, OP_DEF_GLOBAL, OP_GET_FIELD, OP_CHECK_TAG:
		return constantInstruction(sb, name, chunk, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE,
		OP_GET_VARIANT_FIELD, OP_CHECK_TUPLE_LEN, OP_GET_TUPLE_ELEM, OP_CLOSE_SCOPE:
		return byteInstruction(sb, name, chunk, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE:
		jump := chunk.ReadUint16(offset + 1)
		sb.WriteString(fmt.Sprintf("%-18s %4d -> %d\n", name, offset, offset+3+jump))
		return offset + 3

	case OP_MAKE_LIST, OP_MAKE_TUPLE, OP_MAKE_RECORD:
		n := chunk.ReadUint16(offset + 1)
		sb.WriteString(fmt.Sprintf("%-18s %4d\n", name, n))
		return offset + 3

	case OP_MAKE_VARIANT:
		typeIdx := chunk.ReadUint16(offset + 1)
		tagIdx := chunk.ReadUint16(offset + 3)
		n := int(chunk.Code[offset+5])
		sb.WriteString(fmt.Sprintf("%-18s %s.%s/%d\n", name,
			chunk.Constants[typeIdx].Inspect(), chunk.Constants[tagIdx].Inspect(), n))
		return offset + 6

	case OP_CLOSURE:
		idx := chunk.ReadUint16(offset + 1)
		fn, _ := chunk.Constants[idx].(*CompiledFunction)
		end := offset + 3
		if fn != nil {
			sb.WriteString(fmt.Sprintf("%-18s %4d %s\n", name, idx, fn.Inspect()))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := chunk.Code[end] == 1
				index := chunk.Code[end+1]
				kind := "upvalue"
				if isLocal {
					kind = "local"
				}
				sb.WriteString(fmt.Sprintf("%04d    |   capture %s %d\n", end, kind, index))
				end += 2
			}
		} else {
			sb.WriteString(fmt.Sprintf("%-18s %4d <bad fn>\n", name, idx))
		}
		return end

	default:
		sb.WriteString(name + "\n")
		return offset + 1
	}
}

func constantInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	idx := chunk.ReadUint16(offset + 1)
	value := "<bad constant>"
	if idx < len(chunk.Constants) {
		value = chunk.Constants[idx].Inspect()
	}
	sb.WriteString(fmt.Sprintf("%-18s %4d %s\n", name, idx, value))
	return offset + 3
}

func byteInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	operand := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-18s %4d\n", name, operand))
	return offset + 2
}
