package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/qbridge/internal/syntax"
)

// converter maps tree-sitter Rust CST nodes onto syntax.Type.
type converter struct {
	src []byte
}

func (c converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func (c converter) typ(n *sitter.Node) syntax.Type {
	switch n.Type() {
	case "primitive_type", "type_identifier":
		return syntax.NewPath(c.text(n))
	case "scoped_type_identifier", "scoped_identifier", "generic_type":
		return c.path(n)
	case "reference_type":
		return c.reference(n)
	case "pointer_type":
		ptr := &syntax.Ptr{Elem: c.field(n, "type")}
		ptr.Mutable = hasNamedChild(n, "mutable_specifier")
		return ptr
	case "array_type":
		elem := c.field(n, "element")
		if length := n.ChildByFieldName("length"); length != nil {
			return &syntax.Array{Elem: elem, Len: c.text(length)}
		}
		return &syntax.Slice{Elem: elem}
	case "tuple_type":
		if n.NamedChildCount() == 1 && !hasChild(n, ",") {
			// (A) only groups A. It is not a 1-tuple.
			return &syntax.Other{Text: c.text(n)}
		}
		tup := &syntax.Tuple{}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			tup.Elems = append(tup.Elems, c.typ(n.NamedChild(i)))
		}
		return tup
	case "unit_type":
		return &syntax.Tuple{}
	case "function_type":
		if n.ChildByFieldName("trait") != nil {
			// Fn(A) -> B is a trait bound, not a function pointer.
			return &syntax.Other{Text: c.text(n)}
		}
		return c.bareFn(n)
	default:
		return &syntax.Other{Text: c.text(n)}
	}
}

func (c converter) field(n *sitter.Node, name string) syntax.Type {
	child := n.ChildByFieldName(name)
	if child == nil {
		return &syntax.Other{Text: ""}
	}
	return c.typ(child)
}

func (c converter) reference(n *sitter.Node) syntax.Type {
	ref := &syntax.Reference{Elem: c.field(n, "type")}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "lifetime":
			ref.Lifetime = c.text(child)
		case "mutable_specifier":
			ref.Mutable = true
		}
	}
	return ref
}

func (c converter) bareFn(n *sitter.Node) syntax.Type {
	fn := &syntax.BareFn{}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "for_lifetimes" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if lt := child.NamedChild(j); lt.Type() == "lifetime" {
					fn.Lifetimes = append(fn.Lifetimes, c.text(lt))
				}
			}
			continue
		}
		if child.Type() != "function_modifiers" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			mod := child.Child(j)
			switch mod.Type() {
			case "unsafe":
				fn.Unsafe = true
			case "extern_modifier":
				abi := strings.TrimSpace(strings.TrimPrefix(c.text(mod), "extern"))
				fn.Abi = strings.Trim(abi, `"`)
				if fn.Abi == "" {
					fn.Abi = "C"
				}
			}
		}
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param := params.NamedChild(i)
			switch param.Type() {
			case "attribute_item", "variadic_parameter", "self_parameter":
				continue
			case "parameter":
				arg := syntax.FnArg{Type: c.field(param, "type")}
				if pat := param.ChildByFieldName("pattern"); pat != nil {
					arg.Name = c.text(pat)
				}
				fn.Inputs = append(fn.Inputs, arg)
			default:
				fn.Inputs = append(fn.Inputs, syntax.FnArg{Type: c.typ(param)})
			}
		}
	}

	if ret := n.ChildByFieldName("return_type"); ret != nil {
		fn.Output = c.typ(ret)
	}
	return fn
}

// path flattens scoped and generic identifiers into one syntax.Path.
func (c converter) path(n *sitter.Node) *syntax.Path {
	p := &syntax.Path{}
	c.appendPath(p, n)
	return p
}

func (c converter) appendPath(p *syntax.Path, n *sitter.Node) {
	switch n.Type() {
	case "generic_type":
		if base := n.ChildByFieldName("type"); base != nil {
			c.appendPath(p, base)
		}
		if args := n.ChildByFieldName("type_arguments"); args != nil && len(p.Segments) > 0 {
			p.Segments[len(p.Segments)-1].Args = c.genericArgs(args)
		}
	case "scoped_type_identifier", "scoped_identifier":
		if prefix := n.ChildByFieldName("path"); prefix != nil {
			c.appendPath(p, prefix)
		} else if n.ChildCount() > 0 && n.Child(0).Type() == "::" {
			p.Global = true
		}
		if name := n.ChildByFieldName("name"); name != nil {
			p.Segments = append(p.Segments, syntax.PathSegment{Ident: c.text(name)})
		}
	default:
		p.Segments = append(p.Segments, syntax.PathSegment{Ident: c.text(n)})
	}
}

func (c converter) genericArgs(n *sitter.Node) []syntax.GenericArg {
	var args []syntax.GenericArg
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "lifetime":
			args = append(args, &syntax.LifetimeArg{Name: c.text(child)})
		case "type_binding":
			name := ""
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				name = c.text(nameNode)
			}
			args = append(args, &syntax.BindingArg{Name: name, Type: c.field(child, "type")})
		case "block", "integer_literal", "float_literal", "string_literal",
			"char_literal", "boolean_literal", "negative_literal", "raw_string_literal":
			args = append(args, &syntax.ConstArg{Expr: c.text(child)})
		default:
			args = append(args, &syntax.TypeArg{Type: c.typ(child)})
		}
	}
	return args
}

func hasNamedChild(n *sitter.Node, kind string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == kind {
			return true
		}
	}
	return false
}

func hasChild(n *sitter.Node, kind string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == kind {
			return true
		}
	}
	return false
}
