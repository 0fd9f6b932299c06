package generator

import (
	"strconv"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"quote": strconv.Quote,
}

var templates = template.Must(template.New("generator").Funcs(funcs).Parse(`
{{define "setter_bridge"}}
extern "Rust" {
    #[cxx_name = {{quote .SetterCpp}}]
    {{if .Unsafe}}unsafe {{end}}fn {{.SetterRust}}(self: &mut {{.RustStruct}}, cpp: Pin<&mut {{.CppClass}}>, value: {{.Type}});
}
{{end}}

{{define "setter_wrapper"}}
impl {{.ImplRustStruct}} {
    #[doc(hidden)]
    pub fn {{.SetterRust}}(&mut self, cpp: {{.ImplPinCpp}}, value: {{.ImplType}}) {
        cpp.{{.SetterRust}}(value);
    }
}
{{end}}

{{define "setter_mutator"}}
impl {{.ImplCppClass}} {
    #[doc = "Setter for the Q_PROPERTY "]
    #[doc = {{quote .Ident}}]
    pub fn {{.SetterRust}}(mut self: {{.ImplPinSelf}}, value: {{.ImplType}}) {
        if self.rust().{{.Ident}} == value {
            return;
        }

        unsafe {
            self.as_mut().rust_mut().{{.Ident}} = value;
        }
        self.as_mut().{{.Notify}}();
    }
}
{{end}}

{{define "getter_bridge"}}
extern "Rust" {
    #[cxx_name = {{quote .GetterCpp}}]
    unsafe fn {{.GetterRust}}<'a>(self: &'a {{.RustStruct}}, cpp: &'a {{.CppClass}}) -> &'a {{.Type}};
}
{{end}}

{{define "getter_wrapper"}}
impl {{.ImplRustStruct}} {
    #[doc(hidden)]
    pub fn {{.GetterRust}}<'a>(&'a self, cpp: &'a {{.ImplCppClass}}) -> &'a {{.ImplType}} {
        cpp.{{.GetterRust}}()
    }
}
{{end}}

{{define "getter_accessor"}}
impl {{.ImplCppClass}} {
    #[doc = "Getter for the Q_PROPERTY "]
    #[doc = {{quote .Ident}}]
    pub fn {{.GetterRust}}(&self) -> &{{.ImplType}} {
        &self.rust().{{.Ident}}
    }
}
{{end}}

{{define "signal_bridge"}}
unsafe extern "C++" {
{{- range .Docs}}
    #[doc = {{quote .}}]
{{- end}}
    #[rust_name = {{quote .Rust}}]
    fn {{.Cpp}}(self: {{.Receiver}}{{range .Params}}, {{.}}{{end}});
}
{{end}}
`))

// render executes the named template. Template failures are generator
// defects, so they panic.
func render(name string, data any) string {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		panic("generator: render " + name + ": " + err.Error())
	}
	return strings.TrimSpace(b.String())
}
