package syntax

// Clone returns a deep copy of t. Nil slices stay nil so that a clone
// compares equal to its source with reflect.DeepEqual.
func Clone(t Type) Type {
	switch t := t.(type) {
	case nil:
		return nil
	case *Array:
		return &Array{Elem: Clone(t.Elem), Len: t.Len}
	case *BareFn:
		fn := &BareFn{Unsafe: t.Unsafe, Abi: t.Abi, Output: Clone(t.Output)}
		if t.Lifetimes != nil {
			fn.Lifetimes = append([]string(nil), t.Lifetimes...)
		}
		if t.Inputs != nil {
			fn.Inputs = make([]FnArg, len(t.Inputs))
			for i, in := range t.Inputs {
				fn.Inputs[i] = FnArg{Name: in.Name, Type: Clone(in.Type)}
			}
		}
		return fn
	case *Path:
		return clonePath(t)
	case *Ptr:
		return &Ptr{Mutable: t.Mutable, Elem: Clone(t.Elem)}
	case *Reference:
		return &Reference{Lifetime: t.Lifetime, Mutable: t.Mutable, Elem: Clone(t.Elem)}
	case *Slice:
		return &Slice{Elem: Clone(t.Elem)}
	case *Tuple:
		tup := &Tuple{}
		if t.Elems != nil {
			tup.Elems = make([]Type, len(t.Elems))
			for i, e := range t.Elems {
				tup.Elems[i] = Clone(e)
			}
		}
		return tup
	case *Other:
		return &Other{Text: t.Text}
	}
	panic("syntax: clone of unknown type shape")
}

// ClonePath returns a deep copy of p.
func ClonePath(p *Path) *Path {
	if p == nil {
		return nil
	}
	return clonePath(p)
}

func clonePath(p *Path) *Path {
	out := &Path{Global: p.Global}
	if p.Segments != nil {
		out.Segments = make([]PathSegment, len(p.Segments))
		for i, seg := range p.Segments {
			out.Segments[i] = PathSegment{Ident: seg.Ident, Args: CloneArgs(seg.Args)}
		}
	}
	return out
}

// CloneArgs deep copies a generic argument list.
func CloneArgs(args []GenericArg) []GenericArg {
	if args == nil {
		return nil
	}
	out := make([]GenericArg, len(args))
	for i, arg := range args {
		switch a := arg.(type) {
		case *TypeArg:
			out[i] = &TypeArg{Type: Clone(a.Type)}
		case *LifetimeArg:
			out[i] = &LifetimeArg{Name: a.Name}
		case *ConstArg:
			out[i] = &ConstArg{Expr: a.Expr}
		case *BindingArg:
			out[i] = &BindingArg{Name: a.Name, Type: Clone(a.Type)}
		default:
			panic("syntax: clone of unknown generic argument")
		}
	}
	return out
}
