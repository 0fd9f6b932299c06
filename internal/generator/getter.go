package generator

import (
	"github.com/jward/qbridge/internal/cxxtype"
	"github.com/jward/qbridge/internal/fragment"
	"github.com/jward/qbridge/internal/naming"
	"github.com/jward/qbridge/internal/syntax"
)

type getterData struct {
	implNames
	GetterCpp  string
	GetterRust string
	Ident      string
	RustStruct string
	CppClass   string
	Type       string
	ImplType   string
}

// GenerateGetter returns the getter of a property. The bridge declaration
// returns a reference tied to both receivers and is always unsafe.
func GenerateGetter(idents naming.PropertyName, obj naming.ObjectName, ty syntax.Type, mappings cxxtype.QualifiedMappings) fragment.Pair {
	checkProperty(idents, obj)

	data := getterData{
		implNames:  qualifiedNames(obj, mappings),
		GetterCpp:  idents.Getter.Cpp,
		GetterRust: idents.Getter.Rust,
		Ident:      idents.Name.Rust,
		RustStruct: obj.RustStruct.Rust,
		CppClass:   obj.CppClass.Rust,
		Type:       ty.String(),
		ImplType:   cxxtype.Qualify(ty, mappings).String(),
	}

	return fragment.NewPair(
		render("getter_bridge", data),
		render("getter_wrapper", data),
		render("getter_accessor", data),
	)
}
