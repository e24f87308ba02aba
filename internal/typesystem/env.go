package typesystem

// TypeEnv maps names to type schemes. Child environments extend their
// parent without mutating it.
type TypeEnv struct {
	parent   *TypeEnv
	bindings map[string]*Scheme
	modules  map[string][]string
}

// NewTypeEnv creates an empty root environment.
func NewTypeEnv() *TypeEnv {
	return &TypeEnv{bindings: make(map[string]*Scheme)}
}

// Child creates a scoped extension of env.
func (env *TypeEnv) Child() *TypeEnv {
	return &TypeEnv{parent: env, bindings: make(map[string]*Scheme)}
}

// Define binds name to scheme in this scope.
func (env *TypeEnv) Define(name string, scheme *Scheme) {
	env.bindings[name] = scheme
}

// DefineModule records the exported names of a host-provided module so
// that `open` can resolve it. The member schemes themselves are defined
// under their qualified names ("Mod.member").
func (env *TypeEnv) DefineModule(name string, exported []string) {
	if env.modules == nil {
		env.modules = make(map[string][]string)
	}
	env.modules[name] = exported
}

// ModuleExports resolves a host module's export list through the chain.
func (env *TypeEnv) ModuleExports(name string) ([]string, bool) {
	for e := env; e != nil; e = e.parent {
		if names, ok := e.modules[name]; ok {
			return names, true
		}
	}
	return nil, false
}

// Lookup resolves name through the scope chain.
func (env *TypeEnv) Lookup(name string) (*Scheme, bool) {
	for e := env; e != nil; e = e.parent {
		if s, ok := e.bindings[name]; ok {
			return s, true
		}
	}
	return nil, false
}

// ApplySubst returns an environment whose schemes have s applied. Quantified
// variables are shielded from substitution.
func (env *TypeEnv) ApplySubst(s Subst) *TypeEnv {
	out := &TypeEnv{bindings: make(map[string]*Scheme), modules: env.modules}
	if env.parent != nil {
		out.parent = env.parent.ApplySubst(s)
	}
	for name, scheme := range env.bindings {
		out.bindings[name] = applyToScheme(scheme, s)
	}
	return out
}

func applyToScheme(scheme *Scheme, s Subst) *Scheme {
	if len(scheme.Vars) == 0 {
		return &Scheme{Type: scheme.Type.Apply(s)}
	}
	shielded := Subst{}
	bound := make(map[string]bool, len(scheme.Vars))
	for _, v := range scheme.Vars {
		bound[v] = true
	}
	for k, v := range s {
		if !bound[k] {
			shielded[k] = v
		}
	}
	return &Scheme{Vars: scheme.Vars, Type: scheme.Type.Apply(shielded)}
}

// FreeTypeVariables collects variables free in any scheme of the chain.
func (env *TypeEnv) FreeTypeVariables() []TVar {
	var vars []TVar
	for e := env; e != nil; e = e.parent {
		for _, scheme := range e.bindings {
			bound := make(map[string]bool, len(scheme.Vars))
			for _, v := range scheme.Vars {
				bound[v] = true
			}
			for _, v := range scheme.Type.FreeTypeVariables() {
				if !bound[v.Name] {
					vars = append(vars, v)
				}
			}
		}
	}
	return uniqueTVars(vars)
}
