// Package cxxtype rewrites and classifies types that cross a cxx bridge.
//
// Inside a bridge block cxx resolves shorthand names such as UniquePtr or Pin
// on its own. Code emitted outside the block needs those names spelled out,
// which is what Qualify does. IsUnsafe decides whether a declaration carrying
// a type must be marked unsafe.
package cxxtype

import "github.com/jward/qbridge/internal/syntax"

// QualifiedMappings maps a bridge local identifier to the path that names
// it from outside the bridge, e.g. MyObject -> qobject::MyObject.
type QualifiedMappings map[string]*syntax.Path

// qualifiedPrefixes is the fixed table of bridge shorthand names and the
// module path that exports them.
var qualifiedPrefixes = map[string][]string{
	"CxxString": {"cxx"},
	"CxxVector": {"cxx"},
	"SharedPtr": {"cxx"},
	"UniquePtr": {"cxx"},
	"WeakPtr":   {"cxx"},
	"Pin":       {"core", "pin"},
}

// QualifiedPrefix returns the module path segments that Qualify inserts in
// front of the shorthand name ident.
func QualifiedPrefix(ident string) ([]string, bool) {
	prefix, ok := qualifiedPrefixes[ident]
	if !ok {
		return nil, false
	}
	out := make([]string, len(prefix))
	copy(out, prefix)
	return out, true
}

// QualifyIdent returns the mapped path for ident, or a single segment path
// of ident itself when no mapping exists. Used for impl targets.
func QualifyIdent(ident string, mappings QualifiedMappings) *syntax.Path {
	if p, ok := mappings[ident]; ok {
		return syntax.ClonePath(p)
	}
	return syntax.NewPath(ident)
}

// Qualify returns a copy of ty in which every bridge shorthand name is
// replaced by its fully qualified path and every mapped identifier by its
// mapped path. The input is never modified.
func Qualify(ty syntax.Type, mappings QualifiedMappings) syntax.Type {
	switch t := ty.(type) {
	case *syntax.Array:
		return &syntax.Array{Elem: Qualify(t.Elem, mappings), Len: t.Len}
	case *syntax.BareFn:
		fn := &syntax.BareFn{Unsafe: t.Unsafe, Abi: t.Abi}
		if t.Lifetimes != nil {
			fn.Lifetimes = append([]string(nil), t.Lifetimes...)
		}
		if t.Output != nil {
			fn.Output = Qualify(t.Output, mappings)
		}
		if t.Inputs != nil {
			fn.Inputs = make([]syntax.FnArg, len(t.Inputs))
			for i, in := range t.Inputs {
				fn.Inputs[i] = syntax.FnArg{Name: in.Name, Type: Qualify(in.Type, mappings)}
			}
		}
		return fn
	case *syntax.Path:
		return qualifyPath(t, mappings)
	case *syntax.Ptr:
		return &syntax.Ptr{Mutable: t.Mutable, Elem: Qualify(t.Elem, mappings)}
	case *syntax.Reference:
		return &syntax.Reference{Lifetime: t.Lifetime, Mutable: t.Mutable, Elem: Qualify(t.Elem, mappings)}
	case *syntax.Slice:
		return &syntax.Slice{Elem: Qualify(t.Elem, mappings)}
	case *syntax.Tuple:
		tup := &syntax.Tuple{}
		if t.Elems != nil {
			tup.Elems = make([]syntax.Type, len(t.Elems))
			for i, e := range t.Elems {
				tup.Elems[i] = Qualify(e, mappings)
			}
		}
		return tup
	default:
		// Remaining shapes never carry bridge shorthand names.
		return syntax.Clone(ty)
	}
}

func qualifyPath(p *syntax.Path, mappings QualifiedMappings) *syntax.Path {
	out := &syntax.Path{Global: p.Global}
	if p.Segments != nil {
		out.Segments = make([]syntax.PathSegment, len(p.Segments))
		for i, seg := range p.Segments {
			out.Segments[i] = syntax.PathSegment{Ident: seg.Ident, Args: qualifyArgs(seg.Args, mappings)}
		}
	}

	if len(out.Segments) > 0 {
		if prefix, ok := qualifiedPrefixes[out.Segments[0].Ident]; ok {
			segs := make([]syntax.PathSegment, 0, len(prefix)+len(out.Segments))
			for _, ident := range prefix {
				segs = append(segs, syntax.PathSegment{Ident: ident})
			}
			out.Segments = append(segs, out.Segments...)
		}
	}

	// A bare identifier resolves through the mappings instead. Shorthand
	// names are never bare here because they already gained a prefix above.
	if ident, ok := out.Ident(); ok {
		return QualifyIdent(ident, mappings)
	}
	return out
}

func qualifyArgs(args []syntax.GenericArg, mappings QualifiedMappings) []syntax.GenericArg {
	if args == nil {
		return nil
	}
	out := make([]syntax.GenericArg, len(args))
	for i, arg := range args {
		if ta, ok := arg.(*syntax.TypeArg); ok {
			out[i] = &syntax.TypeArg{Type: Qualify(ta.Type, mappings)}
			continue
		}
		out[i] = syntax.CloneArgs([]syntax.GenericArg{arg})[0]
	}
	return out
}
