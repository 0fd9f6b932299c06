package generator

import (
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/jward/qbridge/internal/naming"
	"github.com/jward/qbridge/internal/syntax"
)

// SignalOrigin tells where a signal was declared.
type SignalOrigin int

const (
	SignalDeclared SignalOrigin = iota
	SignalFromProperty
)

func (o SignalOrigin) String() string {
	switch o {
	case SignalFromProperty:
		return "property"
	default:
		return "declared"
	}
}

// ParseSignalOrigin is the inverse of SignalOrigin.String.
func ParseSignalOrigin(s string) SignalOrigin {
	if s == "property" {
		return SignalFromProperty
	}
	return SignalDeclared
}

// ForeignMethod is a method declared on the C++ object.
type ForeignMethod struct {
	Docs     []string
	Ident    string
	Receiver syntax.Type
	Params   []syntax.FnArg
}

func (m ForeignMethod) String() string {
	var b strings.Builder
	for _, d := range m.Docs {
		b.WriteString("#[doc = " + strconv.Quote(d) + "]\n")
	}
	b.WriteString("fn " + m.Ident + "(self: " + m.Receiver.String())
	for _, p := range m.Params {
		b.WriteString(", " + p.Name + ": " + p.Type.String())
	}
	b.WriteString(");")
	return b.String()
}

// Signal is a signal of a QObject, either declared by the user or
// synthesized for a property. Property is the originating property for
// synthesized signals.
type Signal struct {
	Method   ForeignMethod
	Ident    naming.CombinedIdent
	QObject  string
	Property string
	Origin   SignalOrigin
}

// GenerateNotifySignal builds the zero argument change signal of a property.
func GenerateNotifySignal(idents naming.PropertyName, obj naming.ObjectName) Signal {
	checkProperty(idents, obj)
	return Signal{
		Method: ForeignMethod{
			Docs:     []string{"Notify for the Q_PROPERTY"},
			Ident:    idents.Notify.Rust,
			Receiver: syntax.PinMut(syntax.NewPath(obj.CppClass.Rust)),
		},
		Ident:    idents.Notify,
		QObject:  obj.CppClass.Rust,
		Property: idents.Name.Rust,
		Origin:   SignalFromProperty,
	}
}

// NewDeclaredSignal builds the record of a signal the user declared with
// #[qsignal]. The C++ name is the camel case form of ident unless cppName is
// given.
func NewDeclaredSignal(obj naming.ObjectName, ident, cppName string, params []syntax.FnArg) Signal {
	if ident == "" {
		defect(obj, "", "signal has no identifier")
	}
	if cppName == "" {
		cppName = inflect.CamelizeDownFirst(ident)
	}
	return Signal{
		Method: ForeignMethod{
			Ident:    ident,
			Receiver: syntax.PinMut(syntax.NewPath(obj.CppClass.Rust)),
			Params:   params,
		},
		Ident:   naming.CombinedIdent{Cpp: cppName, Rust: ident},
		QObject: obj.CppClass.Rust,
		Origin:  SignalDeclared,
	}
}

type signalData struct {
	Docs     []string
	Rust     string
	Cpp      string
	Receiver string
	Params   []string
}

// GenerateSignals returns one unsafe extern "C++" declaration per signal,
// naming the C++ method and mapping it back to its Rust identifier.
func GenerateSignals(signals []Signal, obj naming.ObjectName) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		if s.QObject != obj.CppClass.Rust {
			defect(obj, s.Property, "signal "+s.Ident.Rust+" belongs to "+s.QObject)
		}
		data := signalData{
			Docs:     s.Method.Docs,
			Rust:     s.Ident.Rust,
			Cpp:      s.Ident.Cpp,
			Receiver: s.Method.Receiver.String(),
		}
		for _, p := range s.Method.Params {
			data.Params = append(data.Params, p.Name+": "+p.Type.String())
		}
		out = append(out, render("signal_bridge", data))
	}
	return out
}
