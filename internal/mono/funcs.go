package mono

import (
	"ember/internal/diag"
	"ember/internal/hir"
	"ember/internal/source"
	"ember/internal/types"
)

// MethodName is the specialized name of a method on a specialized type.
func MethodName(typeName, method string) string {
	return typeName + "_" + method
}

// Queue registers a non-generic body for lowering. Returns false if a body
// with that name is already known.
func (r *Registry) Queue(inst *FuncInstance) bool {
	if _, ok := r.funcs[inst.Name]; ok {
		return false
	}
	r.funcs[inst.Name] = inst
	r.funcQueue = append(r.funcQueue, inst)
	return true
}

// NextFunc pops the next body waiting to be lowered.
func (r *Registry) NextFunc() (*FuncInstance, bool) {
	if len(r.funcQueue) == 0 {
		return nil, false
	}
	inst := r.funcQueue[0]
	r.funcQueue = r.funcQueue[1:]
	return inst, true
}

// Pending reports the number of queued bodies.
func (r *Registry) Pending() int { return len(r.funcQueue) }

// RequireFunc returns the specialized name of a generic function applied
// to args and queues its body on first use.
func (r *Registry) RequireFunc(decl *hir.Func, args []*types.Type, span source.Span) string {
	if !decl.IsGeneric() {
		name := Mangle(decl.Name, nil)
		r.Queue(&FuncInstance{Name: name, Decl: decl})
		return name
	}
	args = r.resolveAll(args)
	name := Mangle(decl.Name, args)
	if _, ok := r.funcs[name]; ok {
		return name
	}
	for _, a := range args {
		if a.ContainsParam() {
			diag.Warnf(r.rep, diag.CgUnresolvedGeneric, span,
				"call to %s with unresolved type arguments", name).Emit()
			r.deferred = append(r.deferred, Deferred{Base: decl.Name, Args: args, Span: span})
			break
		}
	}
	r.records[name] = &Record{Name: name, Base: decl.Name, Args: args, Kind: KindFunc, Generated: true, Span: span}
	r.Queue(&FuncInstance{
		Name:    name,
		Decl:    decl,
		Subst:   types.Bind(decl.TypeParams, args),
		Generic: true,
	})
	return name
}

// RequireMethod returns the specialized name of self.method and queues the
// impl body on first use. The bool is false when no impl declares the method.
func (r *Registry) RequireMethod(self *types.Type, method string, span source.Span) (string, bool) {
	self = r.Resolve(self)
	if self == nil || self.Kind != types.KindNamed {
		return "", false
	}
	decl, impl, ok := r.env.LookupMethod(self.Name, method)
	if !ok {
		return "", false
	}
	typeName := r.Require(self.Name, self.Args, span)
	name := MethodName(typeName, method)
	if _, ok := r.funcs[name]; ok {
		return name, true
	}
	subst := types.Subst{}
	generic := len(impl.TypeParams) > 0
	if generic && !types.Match(impl.Target, self, subst) {
		diag.Errorf(r.rep, diag.CgUnknownMethod, span,
			"impl target %s does not match %s", impl.Target, self).Emit()
		return name, false
	}
	if generic {
		r.records[name] = &Record{Name: name, Base: self.Name + "." + method, Args: self.Args, Kind: KindMethod, Generated: true, Span: span}
	}
	r.Queue(&FuncInstance{
		Name:    name,
		Decl:    decl,
		Impl:    impl,
		Subst:   subst,
		Self:    self,
		Generic: generic,
	})
	return name, true
}
