package vm

import (
	"github.com/fizz-lang/fizz/internal/object"
	"github.com/fizz-lang/fizz/internal/token"
)

func (c *Compiler) currentChunk() *Chunk {
	return c.function.Chunk
}

// beginScope starts a new scope
func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScopeKeepTop closes the current scope, emitting one OP_CLOSE_SCOPE
// that discards the scope's locals below the result value. The VM closes
// any captured upvalues before the slots are dropped.
func (c *Compiler) endScopeKeepTop(tok token.Token) {
	c.scopeDepth--
	count := 0
	for c.localCount > 0 && c.locals[c.localCount-1].Depth > c.scopeDepth {
		c.localCount--
		count++
	}
	c.slotCount -= count
	if count > 0 {
		c.emit(OP_CLOSE_SCOPE, tok.Line, tok.Column)
		c.emitByte(byte(count), tok.Line, tok.Column)
	}
}

// addLocal adds a local variable to the current scope
func (c *Compiler) addLocal(name string, slot int) {
	if c.localCount >= 256 {
		panic("too many local variables in function")
	}
	c.locals[c.localCount] = Local{
		Name:  name,
		Depth: c.scopeDepth,
		Slot:  slot,
	}
	c.localCount++
}

// resolveLocal looks up a local variable by name
func (c *Compiler) resolveLocal(name string) int {
	for i := c.localCount - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			return c.locals[i].Slot
		}
	}
	return -1
}

// resolveLocalIndex returns both the slot AND the local's index
func (c *Compiler) resolveLocalIndex(name string) (slot int, localIdx int) {
	for i := c.localCount - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			return c.locals[i].Slot, i
		}
	}
	return -1, -1
}

// resolveUpvalue looks for a variable in enclosing function scopes
func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}

	slot, _ := c.enclosing.resolveLocalIndex(name)
	if slot != -1 {
		return c.addUpvalue(uint8(slot), true)
	}

	upvalue := c.enclosing.resolveUpvalue(name)
	if upvalue != -1 {
		return c.addUpvalue(uint8(upvalue), false)
	}

	return -1
}

// addUpvalue adds an upvalue to this function's upvalue list
func (c *Compiler) addUpvalue(index uint8, isLocal bool) int {
	for i := 0; i < c.upvalueCount; i++ {
		if c.upvalues[i].Index == index && c.upvalues[i].IsLocal == isLocal {
			return i
		}
	}

	if c.upvalueCount >= 256 {
		panic("too many closure variables in function")
	}

	c.upvalues[c.upvalueCount] = Upvalue{
		Index:   index,
		IsLocal: isLocal,
	}
	c.upvalueCount++
	return c.upvalueCount - 1
}

// emit helpers

func (c *Compiler) emit(op Opcode, line, col int) {
	c.currentChunk().WriteOp(op, line, col)
}

func (c *Compiler) emitByte(b byte, line, col int) {
	c.currentChunk().Write(b, line, col)
}

func (c *Compiler) emitConstant(value object.Object, tok token.Token) {
	idx := c.currentChunk().AddConstant(value)
	c.emit(OP_CONST, tok.Line, tok.Column)
	c.emitUint16(idx, tok)
}

func (c *Compiler) emitJump(op Opcode, tok token.Token) int {
	c.emit(op, tok.Line, tok.Column)
	c.emitByte(0xff, tok.Line, tok.Column)
	c.emitByte(0xff, tok.Line, tok.Column)
	return c.currentChunk().Len() - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := c.currentChunk().Len() - offset - 2

	if jump > 0xffff {
		panic("jump too far")
	}

	c.currentChunk().Code[offset] = byte(jump >> 8)
	c.currentChunk().Code[offset+1] = byte(jump)
}
