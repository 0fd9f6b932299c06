// Package generator produces the Rust fragments for QObject properties and
// their notify signals.
//
// Every function here is a pure transform of its inputs. Inputs are assumed
// to be validated by the caller; an inconsistent input is a defect and
// panics with a *DefectError naming the object and property involved.
package generator

import (
	"fmt"

	"github.com/jward/qbridge/internal/cxxtype"
	"github.com/jward/qbridge/internal/fragment"
	"github.com/jward/qbridge/internal/naming"
	"github.com/jward/qbridge/internal/syntax"
)

// Property is one declared property ready for generation.
type Property struct {
	Name naming.PropertyName
	Type syntax.Type
}

// DefectError is the panic value raised when generation meets input that
// validation should have rejected.
type DefectError struct {
	Object   string
	Property string
	Reason   string
}

func (e *DefectError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("generator: object %s: %s", e.Object, e.Reason)
	}
	return fmt.Sprintf("generator: object %s property %s: %s", e.Object, e.Property, e.Reason)
}

func defect(obj naming.ObjectName, prop, reason string) {
	panic(&DefectError{Object: obj.Ident, Property: prop, Reason: reason})
}

func checkProperty(idents naming.PropertyName, obj naming.ObjectName) {
	if obj.CppClass.Rust == "" || obj.RustStruct.Rust == "" {
		defect(obj, idents.Name.Rust, "object names are incomplete")
	}
	if idents.Name.Rust == "" {
		defect(obj, "", "property has no identifier")
	}
	for _, id := range []naming.CombinedIdent{idents.Getter, idents.Setter, idents.Notify} {
		if id.Cpp == "" || id.Rust == "" {
			defect(obj, idents.Name.Rust, "derived identifiers are incomplete")
		}
	}
}

// Output is everything generated for one object. Properties holds the
// getter and setter fragments of each property, in the order the properties
// were given. Declarations holds the bridge declaration of each signal, in
// the order of Signals. Blocks is the concatenation of both.
type Output struct {
	Blocks       fragment.Blocks
	Properties   []fragment.Blocks
	Signals      []Signal
	Declarations []string
}

// GenerateProperties runs the getter, setter and notify generators for each
// property in declaration order, then emits the declarations of the notify
// signals followed by the given declared signals.
func GenerateProperties(obj naming.ObjectName, props []Property, declared []Signal, mappings cxxtype.QualifiedMappings) Output {
	out := Output{Properties: make([]fragment.Blocks, 0, len(props))}
	for _, p := range props {
		if p.Type == nil {
			defect(obj, p.Name.Name.Rust, "property has no type")
		}
		var blocks fragment.Blocks
		blocks.Append(GenerateGetter(p.Name, obj, p.Type, mappings))
		blocks.Append(GenerateSetter(p.Name, obj, p.Type, mappings))
		out.Properties = append(out.Properties, blocks)
		out.Blocks.AppendBridge(blocks.Bridge...)
		out.Blocks.Implementation = append(out.Blocks.Implementation, blocks.Implementation...)
		out.Signals = append(out.Signals, GenerateNotifySignal(p.Name, obj))
	}
	out.Signals = append(out.Signals, declared...)
	out.Declarations = GenerateSignals(out.Signals, obj)
	out.Blocks.AppendBridge(out.Declarations...)
	return out
}

// implNames are the object names as spelled outside the bridge module.
type implNames struct {
	ImplRustStruct string
	ImplCppClass   string
	ImplPinCpp     string
	ImplPinSelf    string
}

func qualifiedNames(obj naming.ObjectName, mappings cxxtype.QualifiedMappings) implNames {
	return implNames{
		ImplRustStruct: cxxtype.QualifyIdent(obj.RustStruct.Rust, mappings).String(),
		ImplCppClass:   cxxtype.QualifyIdent(obj.CppClass.Rust, mappings).String(),
		ImplPinCpp:     cxxtype.Qualify(syntax.PinMut(syntax.NewPath(obj.CppClass.Rust)), mappings).String(),
		ImplPinSelf:    cxxtype.Qualify(syntax.PinMut(syntax.NewPath("Self")), nil).String(),
	}
}
