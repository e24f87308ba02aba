package pipeline

import (
	"github.com/fizz-lang/fizz/internal/lexer"
	"github.com/fizz-lang/fizz/internal/parser"
	"github.com/fizz-lang/fizz/internal/typesystem"
	"github.com/fizz-lang/fizz/internal/vm"
)

// LexProcessor turns ctx.Source into a token stream.
type LexProcessor struct{}

func (p *LexProcessor) Process(ctx *Context) *Context {
	toks, err := lexer.Tokenize(ctx.Source)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Tokens = toks
	return ctx
}

// ParseProcessor turns ctx.Tokens into an AST.
type ParseProcessor struct{}

func (p *ParseProcessor) Process(ctx *Context) *Context {
	if ctx.Tokens == nil {
		return ctx
	}
	prog, err := parser.New(ctx.Tokens).Parse()
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Program = prog
	return ctx
}

// InferProcessor type-checks ctx.Program and records the program type.
type InferProcessor struct{}

func (p *InferProcessor) Process(ctx *Context) *Context {
	if ctx.Program == nil {
		return ctx
	}
	env := ctx.TypeEnv
	if env == nil {
		env = typesystem.NewTypeEnv()
	}
	typ, err := typesystem.InferProgram(ctx.Program, env)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Type = typ
	return ctx
}

// CompileProcessor lowers ctx.Program to a bytecode chunk. Compilation
// still runs when inference failed so that one pass surfaces both kinds
// of diagnostics.
type CompileProcessor struct{}

func (p *CompileProcessor) Process(ctx *Context) *Context {
	if ctx.Program == nil {
		return ctx
	}
	c := vm.NewCompiler()
	if ctx.Registry != nil {
		c.SetRegistry(ctx.Registry)
	}
	if ctx.FilePath != "" {
		c.SetFile(ctx.FilePath)
	}
	chunk, err := c.CompileProgram(ctx.Program)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Chunk = chunk
	return ctx
}
