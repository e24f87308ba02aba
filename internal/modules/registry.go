package modules

import (
	"sort"

	"github.com/fizz-lang/fizz/internal/object"
)

// Module is a named collection of runtime bindings with an export set.
// Only exported names resolve through qualified lookup.
type Module struct {
	Name     string
	Bindings map[string]object.Object
	Exports  map[string]bool
}

// ExportedNames returns the export set in sorted order.
func (m *Module) ExportedNames() []string {
	names := make([]string, 0, len(m.Exports))
	for name := range m.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry is a pure lookup structure mapping module names to modules.
// It never executes code; resolution failures are reported as a false
// second return, never an error, so callers decide what is fatal.
type Registry struct {
	modules map[string]*Module
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register adds a module under name. Registration is idempotent within one
// program build: a second registration of the same name is ignored.
func (r *Registry) Register(name string, bindings map[string]object.Object, exports []string) *Module {
	if existing, ok := r.modules[name]; ok {
		return existing
	}
	mod := &Module{
		Name:     name,
		Bindings: make(map[string]object.Object, len(bindings)),
		Exports:  make(map[string]bool, len(exports)),
	}
	for k, v := range bindings {
		mod.Bindings[k] = v
	}
	for _, e := range exports {
		mod.Exports[e] = true
	}
	r.modules[name] = mod
	return mod
}

func (r *Registry) Has(name string) bool {
	_, ok := r.modules[name]
	return ok
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (*Module, bool) {
	mod, ok := r.modules[name]
	return mod, ok
}

// ResolveQualified looks up name inside module. Unknown module, unexported
// name, or unknown name all return false.
func (r *Registry) ResolveQualified(module, name string) (object.Object, bool) {
	mod, ok := r.modules[module]
	if !ok {
		return nil, false
	}
	if !mod.Exports[name] {
		return nil, false
	}
	binding, ok := mod.Bindings[name]
	return binding, ok
}

// Names returns the registered module names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
