// Package syntax models the type expressions that can appear in a bridge
// declaration. The model is a closed set of shapes: every Type is one of
// *Array, *BareFn, *Path, *Ptr, *Reference, *Slice, *Tuple or *Other.
//
// Trees are treated as immutable once built. Rewrites (see internal/cxxtype)
// build new trees instead of editing an input in place.
package syntax

import "fmt"

// Kind identifies the shape of a Type.
type Kind int

const (
	KindOther Kind = iota
	KindArray
	KindBareFn
	KindPath
	KindPtr
	KindReference
	KindSlice
	KindTuple
)

var kindNames = [...]string{
	KindOther:     "other",
	KindArray:     "array",
	KindBareFn:    "bare_fn",
	KindPath:      "path",
	KindPtr:       "ptr",
	KindReference: "reference",
	KindSlice:     "slice",
	KindTuple:     "tuple",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Type is a node of a type expression tree.
type Type interface {
	fmt.Stringer
	Kind() Kind
	isType()
}

// Array is a fixed size array, [Elem; Len]. Len is kept as source text.
type Array struct {
	Elem Type
	Len  string
}

// BareFn is a function pointer type, for<'a> fn(A, B) -> R. Output is nil
// when the function returns unit implicitly.
type BareFn struct {
	Lifetimes []string // higher-ranked lifetimes of a for<...> binder
	Unsafe    bool
	Abi       string // without quotes, "" when no extern qualifier
	Inputs    []FnArg
	Output    Type
}

// FnArg is a single parameter of a BareFn. Name is empty for unnamed
// parameters.
type FnArg struct {
	Name string
	Type Type
}

// Path is a possibly generic type path such as cxx::UniquePtr<T>.
type Path struct {
	Global   bool // leading ::
	Segments []PathSegment
}

// PathSegment is one identifier of a Path with its angle bracketed
// arguments, if any.
type PathSegment struct {
	Ident string
	Args  []GenericArg
}

// Ptr is a raw pointer, *const Elem or *mut Elem.
type Ptr struct {
	Mutable bool
	Elem    Type
}

// Reference is &'lifetime mut Elem. Lifetime includes the leading quote.
type Reference struct {
	Lifetime string
	Mutable  bool
	Elem     Type
}

// Slice is [Elem].
type Slice struct {
	Elem Type
}

// Tuple is (A, B, ...). The unit type is a Tuple with no elements.
type Tuple struct {
	Elems []Type
}

// Other holds any shape that bridge code never rewrites (never type, trait
// objects, impl Trait, qualified self paths, macros, parenthesized types).
// Text is the source spelling.
type Other struct {
	Text string
}

func (*Array) Kind() Kind     { return KindArray }
func (*BareFn) Kind() Kind    { return KindBareFn }
func (*Path) Kind() Kind      { return KindPath }
func (*Ptr) Kind() Kind       { return KindPtr }
func (*Reference) Kind() Kind { return KindReference }
func (*Slice) Kind() Kind     { return KindSlice }
func (*Tuple) Kind() Kind     { return KindTuple }
func (*Other) Kind() Kind     { return KindOther }

func (*Array) isType()     {}
func (*BareFn) isType()    {}
func (*Path) isType()      {}
func (*Ptr) isType()       {}
func (*Reference) isType() {}
func (*Slice) isType()     {}
func (*Tuple) isType()     {}
func (*Other) isType()     {}

// GenericArg is one argument inside angle brackets. Only *TypeArg carries a
// nested Type; the other arguments are opaque to rewrites.
type GenericArg interface {
	fmt.Stringer
	isGenericArg()
}

// TypeArg is a type argument, the T in Vec<T>.
type TypeArg struct {
	Type Type
}

// LifetimeArg is a lifetime argument such as 'a.
type LifetimeArg struct {
	Name string
}

// ConstArg is a const generic argument kept as source text.
type ConstArg struct {
	Expr string
}

// BindingArg is an associated type binding, Item = T.
type BindingArg struct {
	Name string
	Type Type
}

func (*TypeArg) isGenericArg()     {}
func (*LifetimeArg) isGenericArg() {}
func (*ConstArg) isGenericArg()    {}
func (*BindingArg) isGenericArg()  {}

// NewPath builds a non generic path from its segment identifiers.
func NewPath(idents ...string) *Path {
	segs := make([]PathSegment, len(idents))
	for i, ident := range idents {
		segs[i] = PathSegment{Ident: ident}
	}
	return &Path{Segments: segs}
}

// Generic builds a single segment path with type arguments, e.g.
// Generic("Pin", &Reference{...}) for Pin<&mut T>.
func Generic(ident string, args ...Type) *Path {
	seg := PathSegment{Ident: ident}
	for _, a := range args {
		seg.Args = append(seg.Args, &TypeArg{Type: a})
	}
	return &Path{Segments: []PathSegment{seg}}
}

// PinMut returns Pin<&mut elem>, the receiver shape used for mutable access
// to a foreign object.
func PinMut(elem Type) *Path {
	return Generic("Pin", &Reference{Mutable: true, Elem: elem})
}

// Ident returns the identifier when the path is a single bare identifier
// with no leading colon and no generic arguments.
func (p *Path) Ident() (string, bool) {
	if p.Global || len(p.Segments) != 1 || len(p.Segments[0].Args) != 0 {
		return "", false
	}
	return p.Segments[0].Ident, true
}

// Last returns the final segment identifier, or "" for an empty path.
func (p *Path) Last() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1].Ident
}
