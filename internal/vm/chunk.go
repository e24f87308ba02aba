package vm

import "github.com/fizz-lang/fizz/internal/object"

// Chunk represents a sequence of bytecode instructions
type Chunk struct {
	// Code is the bytecode instructions
	Code []byte

	// Constants pool - literals, names, nested functions
	Constants []object.Object

	// Lines maps bytecode offset to source line number (for errors)
	Lines []int

	// Columns maps bytecode offset to source column number (for errors)
	Columns []int

	// File is the source file name
	File string
}

// NewChunk creates a new empty chunk
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 256),
		Constants: make([]object.Object, 0, 64),
		Lines:     make([]int, 0, 256),
		Columns:   make([]int, 0, 256),
	}
}

// Write adds a byte to the chunk with position info
func (c *Chunk) Write(b byte, line, col int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	c.Columns = append(c.Columns, col)
}

// WriteOp writes an opcode to the chunk
func (c *Chunk) WriteOp(op Opcode, line, col int) {
	c.Write(byte(op), line, col)
}

// AddConstant adds a constant to the pool and returns its index.
// Interns strings so repeated names share one slot.
func (c *Chunk) AddConstant(value object.Object) int {
	if s, ok := value.(*object.String); ok {
		for i, existing := range c.Constants {
			if es, ok := existing.(*object.String); ok && es.Value == s.Value {
				return i
			}
		}
	}
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// WriteUint16 writes a 2-byte big-endian operand
func (c *Chunk) WriteUint16(v int, line, col int) {
	c.Write(byte(v>>8), line, col)
	c.Write(byte(v), line, col)
}

// ReadUint16 reads a 2-byte operand at offset
func (c *Chunk) ReadUint16(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

// Len returns the number of bytes in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}
