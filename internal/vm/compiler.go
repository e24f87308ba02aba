package vm

import (
	"fmt"

	"github.com/fizz-lang/fizz/internal/ast"
	"github.com/fizz-lang/fizz/internal/modules"
	"github.com/fizz-lang/fizz/internal/object"
	"github.com/fizz-lang/fizz/internal/token"
)

// Local represents a local variable during compilation
type Local struct {
	Name  string
	Depth int // scope depth where this local was declared
	Slot  int // stack slot relative to frame.base
}

// Upvalue represents a captured variable from an enclosing scope
type Upvalue struct {
	Index   uint8 // index of the local slot / upvalue in the enclosing function
	IsLocal bool  // true if it captures an enclosing local, false for a transitive upvalue
}

// FunctionType distinguishes top-level code from functions
type FunctionType int

const (
	TYPE_SCRIPT FunctionType = iota
	TYPE_FUNCTION
)

// ctorInfo is what the compiler needs to know about an ADT constructor.
type ctorInfo struct {
	TypeName string
	Fields   int
}

// Compiler compiles AST to bytecode in a single depth-first pass.
// It maintains a scope stack mapping names to stack slots; free variables
// of nested functions become upvalues captured by index.
type Compiler struct {
	function *CompiledFunction
	funcType FunctionType

	locals     []Local
	localCount int
	scopeDepth int
	slotCount  int // simulated stack height relative to frame.base

	upvalues     []Upvalue
	upvalueCount int

	// Enclosing compiler (for nested functions)
	enclosing *Compiler

	// Constructors declared by the program's type declarations
	constructors map[string]ctorInfo

	// Module names defined in the program plus registered host modules
	moduleNames map[string]bool

	// Names bound at module level while compiling inside `module N = ... end`
	modulePrefix string
	moduleLocals map[string]bool

	registry *modules.Registry

	// Name hint for the next compiled lambda
	pendingName string
}

// NewCompiler creates a new compiler for top-level code
func NewCompiler() *Compiler {
	return &Compiler{
		function: &CompiledFunction{
			Chunk: NewChunk(),
			Name:  "<script>",
		},
		funcType:     TYPE_SCRIPT,
		locals:       make([]Local, 256),
		upvalues:     make([]Upvalue, 256),
		constructors: make(map[string]ctorInfo),
		moduleNames:  make(map[string]bool),
	}
}

// SetRegistry provides host modules so qualified names against them compile.
func (c *Compiler) SetRegistry(r *modules.Registry) {
	c.registry = r
	if r != nil {
		for _, name := range r.Names() {
			c.moduleNames[name] = true
		}
	}
}

// SetFile records the source file name on the output chunk.
func (c *Compiler) SetFile(file string) {
	c.function.Chunk.File = file
}

// Compile compiles a single expression into a chunk ending in OP_RETURN.
func (c *Compiler) Compile(expr ast.Expr) (*Chunk, error) {
	if err := c.compileExpr(expr); err != nil {
		return nil, err
	}
	tok := expr.GetToken()
	c.emit(OP_RETURN, tok.Line, tok.Column)
	return c.function.Chunk, nil
}

// CompileProgram compiles a whole program: type declarations register
// constructors, modules and top-level bindings become globals, and the
// optional final expression produces the chunk's result.
func (c *Compiler) CompileProgram(prog *ast.Program) (*Chunk, error) {
	for _, decl := range prog.TypeDecls {
		c.registerConstructors(decl)
	}
	for _, mod := range prog.Modules {
		c.moduleNames[mod.Name] = true
		for _, decl := range mod.TypeDecls {
			c.registerConstructors(decl)
		}
	}

	for _, mod := range prog.Modules {
		if err := c.compileModule(mod); err != nil {
			return nil, err
		}
	}

	for _, open := range prog.Opens {
		if err := c.compileOpen(prog, open); err != nil {
			return nil, err
		}
	}

	for _, binding := range prog.Bindings {
		if err := c.compileTopBinding(binding, ""); err != nil {
			return nil, err
		}
	}

	var line, col int
	if prog.Expr != nil {
		if err := c.compileExpr(prog.Expr); err != nil {
			return nil, err
		}
		tok := prog.Expr.GetToken()
		line, col = tok.Line, tok.Column
	} else {
		c.emit(OP_UNIT, 0, 0)
	}
	c.emit(OP_RETURN, line, col)
	return c.function.Chunk, nil
}

func (c *Compiler) registerConstructors(decl *ast.TypeDecl) {
	for _, v := range decl.Variants {
		c.constructors[v.Tag] = ctorInfo{TypeName: decl.Name, Fields: len(v.Fields)}
	}
}

func (c *Compiler) compileModule(mod *ast.Module) error {
	c.modulePrefix = mod.Name + "."
	c.moduleLocals = make(map[string]bool)
	defer func() {
		c.modulePrefix = ""
		c.moduleLocals = nil
	}()

	for _, binding := range mod.Bindings {
		// Names become visible to the rest of the module before their
		// values compile, since globals resolve by name at call time.
		for _, b := range binding.Bindings {
			c.moduleLocals[b.Name] = true
		}
		if err := c.compileTopBinding(binding, c.modulePrefix); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileOpen(prog *ast.Program, open *ast.Open) error {
	name := open.Path[0]
	for _, seg := range open.Path[1:] {
		name += "." + seg
	}
	if !c.moduleNames[name] {
		return &CompileError{
			Line: open.Token.Line, Column: open.Token.Column,
			Msg: fmt.Sprintf("unknown module %s", name),
		}
	}

	var exported []string
	for _, mod := range prog.Modules {
		if mod.Name != name {
			continue
		}
		for _, binding := range mod.Bindings {
			for _, b := range binding.Bindings {
				exported = append(exported, b.Name)
			}
		}
	}
	if exported == nil && c.registry != nil {
		if mod, ok := c.registry.Get(name); ok {
			exported = mod.ExportedNames()
		}
	}

	line, col := open.Token.Line, open.Token.Column
	for _, member := range exported {
		c.emit(OP_GET_GLOBAL, line, col)
		c.emitName(name+"."+member, line, col)
		c.emit(OP_DEF_GLOBAL, line, col)
		c.emitName(member, line, col)
	}
	return nil
}

func (c *Compiler) compileTopBinding(binding *ast.TopBinding, prefix string) error {
	for _, b := range binding.Bindings {
		c.pendingName = prefix + b.Name
		if err := c.compileExpr(b.Value); err != nil {
			return err
		}
		c.emit(OP_DEF_GLOBAL, b.Token.Line, b.Token.Column)
		c.emitName(prefix+b.Name, b.Token.Line, b.Token.Column)
		c.slotCount--
	}
	return nil
}

// compileExpr compiles one expression. Every expression nets exactly one
// value on the runtime stack; the simulated height is normalized here so
// that locals declared by nested lets land on the right slots.
func (c *Compiler) compileExpr(expr ast.Expr) error {
	depth := c.slotCount
	if err := c.emitExpr(expr); err != nil {
		return err
	}
	c.slotCount = depth + 1
	return nil
}

func (c *Compiler) emitExpr(expr ast.Expr) error {
	// Name hints only apply to a directly bound lambda.
	if _, isLambda := expr.(*ast.Lambda); !isLambda {
		c.pendingName = ""
	}

	switch e := expr.(type) {
	case *ast.IntLit:
		c.emitConstant(&object.Integer{Value: e.Value}, e.Token)
	case *ast.FloatLit:
		c.emitConstant(&object.Float{Value: e.Value}, e.Token)
	case *ast.StringLit:
		c.emitConstant(&object.String{Value: e.Value}, e.Token)
	case *ast.BoolLit:
		if e.Value {
			c.emit(OP_TRUE, e.Token.Line, e.Token.Column)
		} else {
			c.emit(OP_FALSE, e.Token.Line, e.Token.Column)
		}
	case *ast.UnitLit:
		c.emit(OP_UNIT, e.Token.Line, e.Token.Column)

	case *ast.Identifier:
		return c.compileIdentifier(e)

	case *ast.QualifiedIdent:
		if !c.moduleNames[e.Module] {
			return &CompileError{
				Line: e.Token.Line, Column: e.Token.Column,
				Msg: fmt.Sprintf("unresolved module %s in %s.%s", e.Module, e.Module, e.Name),
			}
		}
		c.emit(OP_GET_GLOBAL, e.Token.Line, e.Token.Column)
		c.emitName(e.Module+"."+e.Name, e.Token.Line, e.Token.Column)

	case *ast.Lambda:
		return c.compileLambda(e)

	case *ast.Apply:
		if err := c.compileExpr(e.Fn); err != nil {
			return err
		}
		if err := c.compileExpr(e.Arg); err != nil {
			return err
		}
		c.emit(OP_CALL, e.Token.Line, e.Token.Column)

	case *ast.Let:
		return c.compileLet(e)

	case *ast.LetRec:
		return c.compileLetRec(e)

	case *ast.If:
		return c.compileIf(e)

	case *ast.Binary:
		return c.compileBinary(e)

	case *ast.Unary:
		if err := c.compileExpr(e.Operand); err != nil {
			return err
		}
		c.emit(OP_NEG, e.Token.Line, e.Token.Column)

	case *ast.Match:
		return c.compileMatch(e)

	case *ast.ListLit:
		for _, el := range e.Elements {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		c.emit(OP_MAKE_LIST, e.Token.Line, e.Token.Column)
		c.emitUint16(len(e.Elements), e.Token)

	case *ast.TupleLit:
		for _, el := range e.Elements {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		c.emit(OP_MAKE_TUPLE, e.Token.Line, e.Token.Column)
		c.emitUint16(len(e.Elements), e.Token)

	case *ast.RecordLit:
		for _, f := range e.Fields {
			c.emitConstant(&object.String{Value: f.Name}, f.Token)
			if err := c.compileExpr(f.Value); err != nil {
				return err
			}
		}
		c.emit(OP_MAKE_RECORD, e.Token.Line, e.Token.Column)
		c.emitUint16(len(e.Fields), e.Token)

	case *ast.Construct:
		return c.compileConstruct(e)

	case *ast.FieldAccess:
		if err := c.compileExpr(e.Record); err != nil {
			return err
		}
		c.emit(OP_GET_FIELD, e.Token.Line, e.Token.Column)
		c.emitName(e.Field, e.Token.Line, e.Token.Column)

	default:
		tok := expr.GetToken()
		return &CompileError{
			Line: tok.Line, Column: tok.Column,
			Msg: fmt.Sprintf("cannot compile %T", expr),
		}
	}
	return nil
}

func (c *Compiler) compileIdentifier(e *ast.Identifier) error {
	line, col := e.Token.Line, e.Token.Column
	if slot := c.resolveLocal(e.Name); slot != -1 {
		c.emit(OP_GET_LOCAL, line, col)
		c.emitByte(byte(slot), line, col)
		return nil
	}
	if idx := c.resolveUpvalue(e.Name); idx != -1 {
		c.emit(OP_GET_UPVALUE, line, col)
		c.emitByte(byte(idx), line, col)
		return nil
	}
	name := e.Name
	if c.moduleLocalName(e.Name) {
		name = c.rootModulePrefix() + e.Name
	}
	c.emit(OP_GET_GLOBAL, line, col)
	c.emitName(name, line, col)
	return nil
}

// moduleLocalName reports whether name is a sibling binding of the module
// currently being compiled, walking up through enclosing function compilers.
func (c *Compiler) moduleLocalName(name string) bool {
	for comp := c; comp != nil; comp = comp.enclosing {
		if comp.moduleLocals != nil {
			return comp.moduleLocals[name]
		}
	}
	return false
}

func (c *Compiler) rootModulePrefix() string {
	for comp := c; comp != nil; comp = comp.enclosing {
		if comp.modulePrefix != "" {
			return comp.modulePrefix
		}
	}
	return ""
}

func (c *Compiler) compileLambda(e *ast.Lambda) error {
	name := c.pendingName
	c.pendingName = ""
	if name == "" {
		name = "<anonymous>"
	}

	sub := &Compiler{
		function: &CompiledFunction{
			Chunk: NewChunk(),
			Name:  name,
		},
		funcType:     TYPE_FUNCTION,
		locals:       make([]Local, 256),
		upvalues:     make([]Upvalue, 256),
		enclosing:    c,
		constructors: c.constructors,
		moduleNames:  c.moduleNames,
		registry:     c.registry,
		scopeDepth:   1,
	}
	sub.function.Chunk.File = c.function.Chunk.File
	sub.addLocal(e.Param, 0)
	sub.slotCount = 1

	if err := sub.compileExpr(e.Body); err != nil {
		return err
	}
	tok := e.Body.GetToken()
	sub.emit(OP_RETURN, tok.Line, tok.Column)
	sub.function.UpvalueCount = sub.upvalueCount

	line, col := e.Token.Line, e.Token.Column
	idx := c.currentChunk().AddConstant(sub.function)
	c.emit(OP_CLOSURE, line, col)
	c.emitUint16(idx, e.Token)
	for i := 0; i < sub.upvalueCount; i++ {
		uv := sub.upvalues[i]
		if uv.IsLocal {
			c.emitByte(1, line, col)
		} else {
			c.emitByte(0, line, col)
		}
		c.emitByte(uv.Index, line, col)
	}
	return nil
}

func (c *Compiler) compileLet(e *ast.Let) error {
	c.beginScope()
	c.pendingName = e.Name
	if err := c.compileExpr(e.Value); err != nil {
		return err
	}
	c.addLocal(e.Name, c.slotCount-1)
	if err := c.compileExpr(e.Body); err != nil {
		return err
	}
	c.endScopeKeepTop(e.Token)
	return nil
}

func (c *Compiler) compileLetRec(e *ast.LetRec) error {
	c.beginScope()
	slots := make([]int, len(e.Bindings))
	for i, b := range e.Bindings {
		c.emit(OP_UNIT, b.Token.Line, b.Token.Column)
		slots[i] = c.slotCount
		c.addLocal(b.Name, c.slotCount)
		c.slotCount++
	}
	for i, b := range e.Bindings {
		c.pendingName = b.Name
		if err := c.compileExpr(b.Value); err != nil {
			return err
		}
		c.emit(OP_SET_LOCAL, b.Token.Line, b.Token.Column)
		c.emitByte(byte(slots[i]), b.Token.Line, b.Token.Column)
		c.emit(OP_POP, b.Token.Line, b.Token.Column)
		c.slotCount--
	}
	if err := c.compileExpr(e.Body); err != nil {
		return err
	}
	c.endScopeKeepTop(e.Token)
	return nil
}

func (c *Compiler) compileIf(e *ast.If) error {
	if err := c.compileExpr(e.Cond); err != nil {
		return err
	}
	elseJump := c.emitJump(OP_JUMP_IF_FALSE, e.Token)
	c.slotCount-- // condition consumed

	if err := c.compileExpr(e.Then); err != nil {
		return err
	}
	endJump := c.emitJump(OP_JUMP, e.Token)
	c.patchJump(elseJump)
	c.slotCount-- // else branch starts without the then value

	if err := c.compileExpr(e.Else); err != nil {
		return err
	}
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) compileBinary(e *ast.Binary) error {
	line, col := e.Token.Line, e.Token.Column

	switch e.Op {
	case "&&":
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		falseJump := c.emitJump(OP_JUMP_IF_FALSE, e.Token)
		c.slotCount--
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		endJump := c.emitJump(OP_JUMP, e.Token)
		c.patchJump(falseJump)
		c.emit(OP_FALSE, line, col)
		c.patchJump(endJump)
		return nil

	case "||":
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		rightJump := c.emitJump(OP_JUMP_IF_FALSE, e.Token)
		c.slotCount--
		c.emit(OP_TRUE, line, col)
		endJump := c.emitJump(OP_JUMP, e.Token)
		c.patchJump(rightJump)
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		c.patchJump(endJump)
		return nil
	}

	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}

	var op Opcode
	switch e.Op {
	case "+":
		op = OP_ADD
	case "-":
		op = OP_SUB
	case "*":
		op = OP_MUL
	case "/":
		op = OP_DIV
	case "%":
		op = OP_MOD
	case "==":
		op = OP_EQ
	case "!=":
		op = OP_NE
	case "<":
		op = OP_LT
	case "<=":
		op = OP_LE
	case ">":
		op = OP_GT
	case ">=":
		op = OP_GE
	case "::":
		op = OP_CONS
	default:
		return &CompileError{Line: line, Column: col, Msg: fmt.Sprintf("unknown operator %s", e.Op)}
	}
	c.emit(op, line, col)
	return nil
}

func (c *Compiler) compileConstruct(e *ast.Construct) error {
	info, ok := c.constructors[e.Tag]
	if !ok {
		return &CompileError{
			Line: e.Token.Line, Column: e.Token.Column,
			Msg: fmt.Sprintf("unknown constructor %s", e.Tag),
		}
	}
	if len(e.Args) != info.Fields {
		return &CompileError{
			Line: e.Token.Line, Column: e.Token.Column,
			Msg: fmt.Sprintf("constructor %s expects %d arguments, got %d", e.Tag, info.Fields, len(e.Args)),
		}
	}
	for _, arg := range e.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	line, col := e.Token.Line, e.Token.Column
	c.emit(OP_MAKE_VARIANT, line, col)
	c.emitUint16(c.currentChunk().AddConstant(&object.String{Value: info.TypeName}), e.Token)
	c.emitUint16(c.currentChunk().AddConstant(&object.String{Value: e.Tag}), e.Token)
	c.emitByte(byte(len(e.Args)), line, col)
	return nil
}

// emit helpers that need the token type live in compiler_scope.go; these
// two wrap operand emission with position info from a token.

func (c *Compiler) emitUint16(v int, tok token.Token) {
	c.currentChunk().WriteUint16(v, tok.Line, tok.Column)
}

func (c *Compiler) emitName(name string, line, col int) {
	idx := c.currentChunk().AddConstant(&object.String{Value: name})
	c.currentChunk().WriteUint16(idx, line, col)
}
