// Package pipeline composes the lex, parse, infer and compile stages into
// a single staged run with per-phase error collection.
package pipeline

import (
	"github.com/fizz-lang/fizz/internal/ast"
	"github.com/fizz-lang/fizz/internal/modules"
	"github.com/fizz-lang/fizz/internal/token"
	"github.com/fizz-lang/fizz/internal/typesystem"
	"github.com/fizz-lang/fizz/internal/vm"
)

// Context carries one source unit through the stages. Each stage reads
// the fields of the previous one and fills in its own; errors are
// collected as values, never panics.
type Context struct {
	Source   string
	FilePath string

	Tokens  []token.Token
	Program *ast.Program
	Type    typesystem.Type
	Chunk   *vm.Chunk

	// TypeEnv seeds inference with host bindings; optional.
	TypeEnv *typesystem.TypeEnv

	// Registry provides host modules to the compiler; optional.
	Registry *modules.Registry

	Errors []error
}

// Failed reports whether any stage recorded an error.
func (ctx *Context) Failed() bool {
	return len(ctx.Errors) > 0
}

// FirstError returns the first recorded error, or nil.
func (ctx *Context) FirstError() error {
	if len(ctx.Errors) == 0 {
		return nil
	}
	return ctx.Errors[0]
}

// Processor is a single pipeline stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the stages in order. A stage that finds its input missing
// (because an earlier stage failed) passes the context through untouched,
// so one Run collects every phase's diagnostics without cascading.
func (p *Pipeline) Run(initial *Context) *Context {
	ctx := initial
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}

// Default returns the full source-to-bytecode pipeline.
func Default() *Pipeline {
	return New(
		&LexProcessor{},
		&ParseProcessor{},
		&InferProcessor{},
		&CompileProcessor{},
	)
}
