package vm

import (
	"fmt"

	"github.com/fizz-lang/fizz/internal/ast"
	"github.com/fizz-lang/fizz/internal/object"
)

// pathStep is one destructuring hop from the scrutinee to a subvalue.
type pathStep struct {
	op      Opcode
	operand int // field/element index, or name constant for OP_GET_FIELD
}

// compileMatch lowers a match expression into per-arm test and bind code.
// The scrutinee is stored in a hidden local; each arm first runs a
// stack-neutral test chain (tag checks, literal equality, tuple arity)
// and only on success re-walks the value to bind its variables, then
// runs the body. Arms are tried in source order and the first match wins.
func (c *Compiler) compileMatch(e *ast.Match) error {
	if err := c.compileExpr(e.Scrutinee); err != nil {
		return err
	}
	c.beginScope()
	slot := c.slotCount - 1
	c.addLocal("(match)", slot)

	var endJumps []int
	for _, arm := range e.Arms {
		savedLocals := c.localCount
		savedSlots := c.slotCount

		var failJumps []int
		if err := c.compileArmTest(arm.Pattern, slot, nil, &failJumps); err != nil {
			return err
		}

		c.beginScope()
		binds := 0
		c.bindPattern(arm.Pattern, slot, nil, &binds)
		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}
		c.scopeDepth--
		if binds > 0 {
			c.emit(OP_CLOSE_SCOPE, arm.Token.Line, arm.Token.Column)
			c.emitByte(byte(binds), arm.Token.Line, arm.Token.Column)
		}
		endJumps = append(endJumps, c.emitJump(OP_JUMP, arm.Token))

		for _, fj := range failJumps {
			c.patchJump(fj)
		}
		c.localCount = savedLocals
		c.slotCount = savedSlots
	}

	// No arm matched: report the scrutinee value.
	c.emit(OP_GET_LOCAL, e.Token.Line, e.Token.Column)
	c.emitByte(byte(slot), e.Token.Line, e.Token.Column)
	c.emit(OP_MATCH_FAIL, e.Token.Line, e.Token.Column)

	for _, ej := range endJumps {
		c.patchJump(ej)
	}
	c.slotCount++ // arm result
	c.endScopeKeepTop(e.Token)
	return nil
}

// emitPath loads the scrutinee local and walks the destructuring path.
func (c *Compiler) emitPath(slot int, path []pathStep, line, col int) {
	c.emit(OP_GET_LOCAL, line, col)
	c.emitByte(byte(slot), line, col)
	for _, step := range path {
		c.emit(step.op, line, col)
		switch step.op {
		case OP_GET_FIELD:
			c.currentChunk().WriteUint16(step.operand, line, col)
		default:
			c.emitByte(byte(step.operand), line, col)
		}
	}
}

// compileArmTest emits the stack-neutral tests for one pattern. Every test
// loads the subvalue fresh, consumes it, and leaves only a bool that the
// following OP_JUMP_IF_FALSE pops, so a failed arm leaves the stack as it
// found it.
func (c *Compiler) compileArmTest(pat ast.Pattern, slot int, path []pathStep, failJumps *[]int) error {
	switch p := pat.(type) {
	case *ast.WildcardPattern, *ast.VarPattern:
		return nil

	case *ast.LiteralPattern:
		line, col := p.Token.Line, p.Token.Column
		c.emitPath(slot, path, line, col)
		switch lit := p.Value.(type) {
		case *ast.IntLit:
			c.emitConstant(&object.Integer{Value: lit.Value}, p.Token)
		case *ast.FloatLit:
			c.emitConstant(&object.Float{Value: lit.Value}, p.Token)
		case *ast.StringLit:
			c.emitConstant(&object.String{Value: lit.Value}, p.Token)
		case *ast.BoolLit:
			if lit.Value {
				c.emit(OP_TRUE, line, col)
			} else {
				c.emit(OP_FALSE, line, col)
			}
		case *ast.UnitLit:
			c.emit(OP_UNIT, line, col)
		default:
			return &CompileError{Line: line, Column: col, Msg: fmt.Sprintf("invalid literal pattern %T", p.Value)}
		}
		c.emit(OP_EQ, line, col)
		*failJumps = append(*failJumps, c.emitJump(OP_JUMP_IF_FALSE, p.Token))
		return nil

	case *ast.TuplePattern:
		line, col := p.Token.Line, p.Token.Column
		c.emitPath(slot, path, line, col)
		c.emit(OP_CHECK_TUPLE_LEN, line, col)
		c.emitByte(byte(len(p.Elements)), line, col)
		*failJumps = append(*failJumps, c.emitJump(OP_JUMP_IF_FALSE, p.Token))
		for i, sub := range p.Elements {
			subPath := append(append([]pathStep{}, path...), pathStep{op: OP_GET_TUPLE_ELEM, operand: i})
			if err := c.compileArmTest(sub, slot, subPath, failJumps); err != nil {
				return err
			}
		}
		return nil

	case *ast.VariantPattern:
		info, ok := c.constructors[p.Tag]
		if !ok {
			return &CompileError{
				Line: p.Token.Line, Column: p.Token.Column,
				Msg: fmt.Sprintf("unknown constructor %s in pattern", p.Tag),
			}
		}
		if len(p.Args) != info.Fields {
			return &CompileError{
				Line: p.Token.Line, Column: p.Token.Column,
				Msg: fmt.Sprintf("constructor %s has %d fields, pattern has %d", p.Tag, info.Fields, len(p.Args)),
			}
		}
		line, col := p.Token.Line, p.Token.Column
		c.emitPath(slot, path, line, col)
		c.emit(OP_CHECK_TAG, line, col)
		c.emitName(p.Tag, line, col)
		*failJumps = append(*failJumps, c.emitJump(OP_JUMP_IF_FALSE, p.Token))
		for i, sub := range p.Args {
			subPath := append(append([]pathStep{}, path...), pathStep{op: OP_GET_VARIANT_FIELD, operand: i})
			if err := c.compileArmTest(sub, slot, subPath, failJumps); err != nil {
				return err
			}
		}
		return nil

	case *ast.RecordPattern:
		for _, f := range p.Fields {
			nameIdx := c.currentChunk().AddConstant(&object.String{Value: f.Name})
			subPath := append(append([]pathStep{}, path...), pathStep{op: OP_GET_FIELD, operand: nameIdx})
			if err := c.compileArmTest(f.Pattern, slot, subPath, failJumps); err != nil {
				return err
			}
		}
		return nil
	}

	tok := pat.GetToken()
	return &CompileError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("cannot compile pattern %T", pat)}
}

// bindPattern declares locals for every variable in the pattern, loading
// each bound subvalue onto the stack. Runs only after the arm's tests
// passed, so every destructuring access is safe.
func (c *Compiler) bindPattern(pat ast.Pattern, slot int, path []pathStep, binds *int) {
	switch p := pat.(type) {
	case *ast.VarPattern:
		c.emitPath(slot, path, p.Token.Line, p.Token.Column)
		c.addLocal(p.Name, c.slotCount)
		c.slotCount++
		*binds++

	case *ast.TuplePattern:
		for i, sub := range p.Elements {
			subPath := append(append([]pathStep{}, path...), pathStep{op: OP_GET_TUPLE_ELEM, operand: i})
			c.bindPattern(sub, slot, subPath, binds)
		}

	case *ast.VariantPattern:
		for i, sub := range p.Args {
			subPath := append(append([]pathStep{}, path...), pathStep{op: OP_GET_VARIANT_FIELD, operand: i})
			c.bindPattern(sub, slot, subPath, binds)
		}

	case *ast.RecordPattern:
		for _, f := range p.Fields {
			nameIdx := c.currentChunk().AddConstant(&object.String{Value: f.Name})
			subPath := append(append([]pathStep{}, path...), pathStep{op: OP_GET_FIELD, operand: nameIdx})
			c.bindPattern(f.Pattern, slot, subPath, binds)
		}
	}
}
