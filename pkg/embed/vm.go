// Package fizz provides the high-level embedding API: bind Go values
// and functions, evaluate script source, and call script functions.
package fizz

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fizz-lang/fizz/internal/config"
	"github.com/fizz-lang/fizz/internal/modules"
	"github.com/fizz-lang/fizz/internal/object"
	"github.com/fizz-lang/fizz/internal/pipeline"
	"github.com/fizz-lang/fizz/internal/typesystem"
	"github.com/fizz-lang/fizz/internal/vm"
)

// VM wraps the underlying bytecode machine and provides a high-level
// embedding API. Globals persist across Eval calls.
type VM struct {
	machine    *vm.VM
	marshaller *Marshaller
	registry   *modules.Registry
	typeEnv    *typesystem.TypeEnv
}

// New creates a fresh engine with no bindings.
func New() *VM {
	return &VM{
		machine:    vm.New(),
		marshaller: NewMarshaller(),
		registry:   modules.NewRegistry(),
		typeEnv:    typesystem.NewTypeEnv(),
	}
}

// Bind registers a Go value or function under name, making it visible
// to every script this VM runs. Functions are exposed curried, like
// every script function.
func (v *VM) Bind(name string, val interface{}) error {
	if val != nil && reflect.TypeOf(val).Kind() == reflect.Func {
		host, scheme, err := v.wrapFunc(name, val)
		if err != nil {
			return err
		}
		v.machine.DefineGlobal(name, host)
		v.typeEnv.Define(name, scheme)
		return nil
	}

	obj, err := v.marshaller.ToObject(val)
	if err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	v.machine.DefineGlobal(name, obj)
	v.typeEnv.Define(name, objectScheme(obj))
	return nil
}

// RegisterFunc registers a host function at the runtime-object level,
// for callers that want to handle marshalling themselves. fn runs only
// once arity arguments have been applied; script code may apply them
// one at a time, but Call rejects argument counts that do not match.
func (v *VM) RegisterFunc(name string, arity int, fn func(args []object.Object) (object.Object, error)) {
	v.machine.DefineGlobal(name, &object.HostFunction{Name: name, Arity: arity, Fn: fn})
	v.typeEnv.Define(name, opaqueFuncScheme(arity))
}

// RegisterModule exposes a named collection of host bindings to
// scripts, reachable via qualified names or `open`. Only names listed
// in exports resolve from script code.
func (v *VM) RegisterModule(name string, bindings map[string]object.Object, exports []string) {
	v.registry.Register(name, bindings, exports)
	for member, obj := range bindings {
		v.machine.DefineGlobal(name+"."+member, obj)
		v.typeEnv.Define(name+"."+member, objectScheme(obj))
	}
	v.typeEnv.DefineModule(name, exports)
}

// Set defines a global directly, without recording a type. Scripts
// compiled later still see it; prefer Bind for anything a script should
// typecheck against.
func (v *VM) Set(name string, val interface{}) error {
	obj, err := v.marshaller.ToObject(val)
	if err != nil {
		return err
	}
	v.machine.DefineGlobal(name, obj)
	return nil
}

// Get retrieves a global by name, converted to its Go representation.
func (v *VM) Get(name string) (interface{}, error) {
	obj, ok := v.machine.GetGlobal(name)
	if !ok {
		return nil, fmt.Errorf("variable %q not found", name)
	}
	return v.marshaller.FromObject(obj)
}

// Eval compiles and executes source, returning the final expression's
// value converted to Go.
func (v *VM) Eval(source string) (interface{}, error) {
	return v.run(source, "<eval>")
}

// LoadFile executes a script or compiled bundle from disk.
func (v *VM) LoadFile(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, config.BundleExt) {
		chunk, err := vm.DecodeBundle(data)
		if err != nil {
			return nil, err
		}
		result, err := v.machine.Execute(chunk)
		if err != nil {
			return nil, err
		}
		return v.marshaller.FromObject(result)
	}
	return v.run(string(data), path)
}

// Compile builds a chunk from source without executing it.
func (v *VM) Compile(source, file string) (*vm.Chunk, error) {
	ctx := v.pipelineContext(source, file)
	out := pipeline.Default().Run(ctx)
	if out.Failed() {
		return nil, combineErrors(out.Errors)
	}
	return out.Chunk, nil
}

// Execute runs a previously compiled chunk.
func (v *VM) Execute(chunk *vm.Chunk) (interface{}, error) {
	result, err := v.machine.Execute(chunk)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromObject(result)
}

// Call applies a script (or bound host) function by global name. The
// arguments are marshalled and applied one at a time; a partial
// application of a script function comes back opaque and can be passed
// to Call again. Host functions are stricter: the argument count must
// match the declared arity exactly, or Call fails without running the
// native body.
func (v *VM) Call(name string, args ...interface{}) (interface{}, error) {
	target, ok := v.machine.GetGlobal(name)
	if !ok {
		return nil, fmt.Errorf("function %q not found", name)
	}
	if err := checkHostArity(name, target, len(args)); err != nil {
		return nil, err
	}

	chunk := vm.NewChunk()
	chunk.File = "<call>"
	chunk.WriteOp(vm.OP_GET_GLOBAL, 0, 0)
	chunk.WriteUint16(chunk.AddConstant(&object.String{Value: name}), 0, 0)
	for _, arg := range args {
		obj, err := v.marshaller.ToObject(arg)
		if err != nil {
			return nil, err
		}
		chunk.WriteOp(vm.OP_CONST, 0, 0)
		chunk.WriteUint16(chunk.AddConstant(obj), 0, 0)
		chunk.WriteOp(vm.OP_CALL, 0, 0)
	}
	chunk.WriteOp(vm.OP_RETURN, 0, 0)

	result, err := v.machine.Execute(chunk)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromObject(result)
}

// checkHostArity rejects a Call whose argument count does not saturate
// a host function (or the remainder of a partially applied one). Script
// closures are curried and carry no declared arity, so they pass
// through untouched.
func checkHostArity(name string, target object.Object, given int) error {
	var want int
	switch fn := target.(type) {
	case *object.HostFunction:
		want = fn.Arity
	case *object.PartialApplication:
		want = fn.Fn.Arity - len(fn.Args)
	default:
		return nil
	}
	if given != want {
		return &vm.VMError{
			Kind: vm.ArityMismatch,
			Name: name,
			Msg:  fmt.Sprintf("%s expects %d arguments, got %d", name, want, given),
		}
	}
	return nil
}

func (v *VM) run(source, file string) (interface{}, error) {
	ctx := v.pipelineContext(source, file)
	out := pipeline.Default().Run(ctx)
	if out.Failed() {
		return nil, combineErrors(out.Errors)
	}
	if out.Chunk == nil {
		return nil, nil
	}
	result, err := v.machine.Execute(out.Chunk)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromObject(result)
}

func (v *VM) pipelineContext(source, file string) *pipeline.Context {
	return &pipeline.Context{
		Source:   source,
		FilePath: file,
		TypeEnv:  v.typeEnv,
		Registry: v.registry,
	}
}

func combineErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors:", len(errs)))
	for _, e := range errs {
		sb.WriteString("\n\t")
		sb.WriteString(e.Error())
	}
	return fmt.Errorf("%s", sb.String())
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// wrapFunc turns a Go function into a host function object plus the
// curried type scheme scripts see. A trailing error return becomes a
// runtime error instead of a value; zero-argument functions take unit.
func (v *VM) wrapFunc(name string, fn interface{}) (*object.HostFunction, *typesystem.Scheme, error) {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.IsVariadic() {
		return nil, nil, fmt.Errorf("bind %s: variadic functions are not supported", name)
	}

	numIn := fnType.NumIn()
	arity := numIn
	if arity == 0 {
		arity = 1
	}

	marshaller := v.marshaller
	host := &object.HostFunction{
		Name:  name,
		Arity: arity,
		Fn: func(args []object.Object) (object.Object, error) {
			goArgs := make([]reflect.Value, numIn)
			for i := 0; i < numIn; i++ {
				converted, err := marshaller.FromObjectAs(args[i], fnType.In(i))
				if err != nil {
					return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
				}
				goArgs[i] = converted
			}

			results := fnVal.Call(goArgs)
			if n := len(results); n > 0 && fnType.Out(n-1) == errorType {
				if !results[n-1].IsNil() {
					return nil, results[n-1].Interface().(error)
				}
				results = results[:n-1]
			}

			switch len(results) {
			case 0:
				return &object.Unit{}, nil
			case 1:
				return marshaller.ToObject(results[0].Interface())
			default:
				elements := make([]object.Object, len(results))
				for i, res := range results {
					obj, err := marshaller.ToObject(res.Interface())
					if err != nil {
						return nil, err
					}
					elements[i] = obj
				}
				return &object.Tuple{Elements: elements}, nil
			}
		},
	}

	return host, funcScheme(fnType), nil
}

// funcScheme builds the curried script type of a Go function. Parameter
// and result types without a script equivalent become quantified
// variables, so they unify with any use site.
func funcScheme(fnType reflect.Type) *typesystem.Scheme {
	gen := newVarGen()

	numOut := fnType.NumOut()
	if numOut > 0 && fnType.Out(numOut-1) == errorType {
		numOut--
	}
	var ret typesystem.Type
	switch numOut {
	case 0:
		ret = typesystem.UnitType
	case 1:
		ret = goTypeToType(fnType.Out(0), gen)
	default:
		elems := make([]typesystem.Type, numOut)
		for i := 0; i < numOut; i++ {
			elems[i] = goTypeToType(fnType.Out(i), gen)
		}
		ret = typesystem.TTuple{Elements: elems}
	}

	t := ret
	if fnType.NumIn() == 0 {
		t = typesystem.TFunc{Param: typesystem.UnitType, Return: t}
	}
	for i := fnType.NumIn() - 1; i >= 0; i-- {
		t = typesystem.TFunc{Param: goTypeToType(fnType.In(i), gen), Return: t}
	}
	return &typesystem.Scheme{Vars: gen.names, Type: t}
}

// opaqueFuncScheme types an n-ary host function as a fully polymorphic
// curried chain.
func opaqueFuncScheme(arity int) *typesystem.Scheme {
	gen := newVarGen()
	t := gen.fresh()
	for i := 0; i < arity; i++ {
		t = typesystem.TFunc{Param: gen.fresh(), Return: t}
	}
	return &typesystem.Scheme{Vars: gen.names, Type: t}
}

// objectScheme types a runtime object for script type checking.
func objectScheme(obj object.Object) *typesystem.Scheme {
	gen := newVarGen()
	t := objectType(obj, gen)
	return &typesystem.Scheme{Vars: gen.names, Type: t}
}

func objectType(obj object.Object, gen *varGen) typesystem.Type {
	switch o := obj.(type) {
	case *object.Unit:
		return typesystem.UnitType
	case *object.Boolean:
		return typesystem.BoolType
	case *object.Integer:
		return typesystem.IntType
	case *object.Float:
		return typesystem.FloatType
	case *object.String:
		return typesystem.StringType
	case *object.Tuple:
		elems := make([]typesystem.Type, len(o.Elements))
		for i, el := range o.Elements {
			elems[i] = objectType(el, gen)
		}
		return typesystem.TTuple{Elements: elems}
	case *object.List:
		if o.IsEmpty() {
			return typesystem.ListOf(gen.fresh())
		}
		return typesystem.ListOf(objectType(o.Head, gen))
	case *object.Record:
		fields := make(map[string]typesystem.Type, len(o.Fields))
		for name, field := range o.Fields {
			fields[name] = objectType(field, gen)
		}
		return typesystem.TRecord{Fields: fields}
	case *object.HostFunction:
		t := gen.fresh()
		for i := 0; i < o.Arity; i++ {
			t = typesystem.TFunc{Param: gen.fresh(), Return: t}
		}
		return t
	default:
		return gen.fresh()
	}
}

func goTypeToType(t reflect.Type, gen *varGen) typesystem.Type {
	switch t.Kind() {
	case reflect.Bool:
		return typesystem.BoolType
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return typesystem.IntType
	case reflect.Float32, reflect.Float64:
		return typesystem.FloatType
	case reflect.String:
		return typesystem.StringType
	case reflect.Slice, reflect.Array:
		return typesystem.ListOf(goTypeToType(t.Elem(), gen))
	case reflect.Struct:
		fields := make(map[string]typesystem.Type)
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			fields[f.Name] = goTypeToType(f.Type, gen)
		}
		return typesystem.TRecord{Fields: fields}
	case reflect.Ptr:
		return goTypeToType(t.Elem(), gen)
	default:
		return gen.fresh()
	}
}

// varGen hands out quantified type variables for one scheme.
type varGen struct {
	names []string
}

func newVarGen() *varGen { return &varGen{} }

func (g *varGen) fresh() typesystem.Type {
	name := fmt.Sprintf("h%d", len(g.names))
	g.names = append(g.names, name)
	return typesystem.TVar{Name: name}
}
