package syntax

import "strings"

// The printer emits the spelling rustfmt would give the same tree, so
// generated declarations read like hand written bridge code.

func (t *Array) String() string {
	return "[" + t.Elem.String() + "; " + t.Len + "]"
}

func (t *BareFn) String() string {
	var b strings.Builder
	if len(t.Lifetimes) > 0 {
		b.WriteString("for<" + strings.Join(t.Lifetimes, ", ") + "> ")
	}
	if t.Unsafe {
		b.WriteString("unsafe ")
	}
	if t.Abi != "" {
		b.WriteString(`extern "` + t.Abi + `" `)
	}
	b.WriteString("fn(")
	for i, in := range t.Inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		if in.Name != "" {
			b.WriteString(in.Name + ": ")
		}
		b.WriteString(in.Type.String())
	}
	b.WriteString(")")
	if t.Output != nil {
		b.WriteString(" -> " + t.Output.String())
	}
	return b.String()
}

func (t *Path) String() string {
	var b strings.Builder
	if t.Global {
		b.WriteString("::")
	}
	for i, seg := range t.Segments {
		if i > 0 {
			b.WriteString("::")
		}
		b.WriteString(seg.Ident)
		if len(seg.Args) > 0 {
			b.WriteString("<")
			for j, arg := range seg.Args {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(arg.String())
			}
			b.WriteString(">")
		}
	}
	return b.String()
}

func (t *Ptr) String() string {
	if t.Mutable {
		return "*mut " + t.Elem.String()
	}
	return "*const " + t.Elem.String()
}

func (t *Reference) String() string {
	var b strings.Builder
	b.WriteString("&")
	if t.Lifetime != "" {
		b.WriteString(t.Lifetime + " ")
	}
	if t.Mutable {
		b.WriteString("mut ")
	}
	b.WriteString(t.Elem.String())
	return b.String()
}

func (t *Slice) String() string {
	return "[" + t.Elem.String() + "]"
}

func (t *Tuple) String() string {
	switch len(t.Elems) {
	case 0:
		return "()"
	case 1:
		return "(" + t.Elems[0].String() + ",)"
	}
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *Other) String() string {
	return t.Text
}

func (a *TypeArg) String() string     { return a.Type.String() }
func (a *LifetimeArg) String() string { return a.Name }
func (a *ConstArg) String() string    { return a.Expr }
func (a *BindingArg) String() string  { return a.Name + " = " + a.Type.String() }
