package generator

import (
	"github.com/jward/qbridge/internal/cxxtype"
	"github.com/jward/qbridge/internal/fragment"
	"github.com/jward/qbridge/internal/naming"
	"github.com/jward/qbridge/internal/syntax"
)

type setterData struct {
	implNames
	SetterCpp  string
	SetterRust string
	Ident      string
	Notify     string
	Unsafe     bool
	RustStruct string
	CppClass   string
	Type       string
	ImplType   string
}

// GenerateSetter returns the setter of a property: one extern "Rust"
// declaration, a wrapper on the Rust struct that forwards to the C++ object,
// and the mutator on the C++ object. The mutator returns early when the new
// value equals the stored one, so notify fires once per distinct value.
//
// The declaration is marked unsafe when ty holds a raw pointer.
func GenerateSetter(idents naming.PropertyName, obj naming.ObjectName, ty syntax.Type, mappings cxxtype.QualifiedMappings) fragment.Pair {
	checkProperty(idents, obj)

	data := setterData{
		implNames:  qualifiedNames(obj, mappings),
		SetterCpp:  idents.Setter.Cpp,
		SetterRust: idents.Setter.Rust,
		Ident:      idents.Name.Rust,
		Notify:     idents.Notify.Rust,
		Unsafe:     cxxtype.IsUnsafe(ty),
		RustStruct: obj.RustStruct.Rust,
		CppClass:   obj.CppClass.Rust,
		Type:       ty.String(),
		ImplType:   cxxtype.Qualify(ty, mappings).String(),
	}

	return fragment.NewPair(
		render("setter_bridge", data),
		render("setter_wrapper", data),
		render("setter_mutator", data),
	)
}
