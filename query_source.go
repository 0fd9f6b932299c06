package qbridge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/jward/qbridge/internal/store"
)

// ErrNotGenerated is wrapped by BridgeSource when an object of the file has
// no output for its current inputs.
var ErrNotGenerated = errors.New("qbridge: output is out of date, run generate")

var sourceFuncs = template.FuncMap{
	"quote":  strconv.Quote,
	"indent": indent,
}

var sourceTemplate = template.Must(template.New("source").Funcs(sourceFuncs).Parse(
	`{{range $i, $b := .}}{{if $i}}
{{end}}{{if $b.Namespace}}#[cxx::bridge(namespace = {{quote $b.Namespace}})]{{else}}#[cxx::bridge]{{end}}
pub mod {{$b.Module}} {
{{- range $b.Passthrough}}
{{indent .}}
{{end}}
{{- range $b.Objects}}
    unsafe extern "C++" {
        type {{.Name}};
    }

    extern "Rust" {
        type {{.RustStruct}};
    }
{{range .Bridge}}
{{indent .}}
{{end}}
{{- end}}}
{{range $b.Objects}}{{range .Implementation}}
{{.}}
{{end}}{{end}}{{end}}`))

// indent prefixes every non-empty line of s with four spaces.
func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "    " + l
		}
	}
	return strings.Join(lines, "\n")
}

// dedent removes the indentation of the last line of s from every line
// after the first. Passthrough blocks are stored as they appear in the
// source, where only the first line starts at the item's column.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	last := lines[len(lines)-1]
	n := len(last) - len(strings.TrimLeft(last, " \t"))
	for i := 1; i < len(lines); i++ {
		l := lines[i]
		cut := 0
		for cut < n && cut < len(l) && (l[cut] == ' ' || l[cut] == '\t') {
			cut++
		}
		lines[i] = l[cut:]
	}
	return strings.Join(lines, "\n")
}

type sourceObject struct {
	Name           string
	RustStruct     string
	Bridge         []string
	Implementation []string
}

type sourceBridge struct {
	Module      string
	Namespace   string
	Passthrough []string
	Objects     []sourceObject
}

// BridgeSource renders the generated Rust for every bridge in the file at
// path: the bridge module with its passthrough items, object type
// declarations and generated declarations, followed by the implementation
// blocks. Returns "" with no error when the file is not indexed or declares
// no bridge.
func (q *QueryBuilder) BridgeSource(path string) (string, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return "", fmt.Errorf("bridge source: %w", err)
	}
	if f == nil {
		return "", nil
	}
	bridges, err := q.store.BridgesByFile(f.ID)
	if err != nil {
		return "", fmt.Errorf("bridge source: %w", err)
	}
	if len(bridges) == 0 {
		return "", nil
	}

	data := make([]sourceBridge, 0, len(bridges))
	for _, br := range bridges {
		sb, err := q.sourceBridge(br)
		if err != nil {
			return "", fmt.Errorf("bridge source: %s: %w", br.Module, err)
		}
		data = append(data, sb)
	}

	var b strings.Builder
	if err := sourceTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("bridge source: render: %w", err)
	}
	return b.String(), nil
}

func (q *QueryBuilder) sourceBridge(br *store.Bridge) (sourceBridge, error) {
	sb := sourceBridge{Module: br.Module, Namespace: br.Namespace}

	items, err := q.store.PassthroughByBridge(br.ID)
	if err != nil {
		return sb, err
	}
	for _, it := range items {
		sb.Passthrough = append(sb.Passthrough, dedent(it.Source))
	}

	objs, err := q.store.QObjectsByBridge(br.ID)
	if err != nil {
		return sb, err
	}
	for _, o := range objs {
		if o.GeneratedHash == "" {
			return sb, fmt.Errorf("%s: %w", o.Name, ErrNotGenerated)
		}
		so := sourceObject{Name: o.Name, RustStruct: o.RustStruct}
		frags, err := q.store.FragmentsByQObject(o.ID, "")
		if err != nil {
			return sb, err
		}
		for _, fr := range frags {
			if fr.Section == store.SectionBridge {
				so.Bridge = append(so.Bridge, fr.Source)
			} else {
				so.Implementation = append(so.Implementation, fr.Source)
			}
		}
		sb.Objects = append(sb.Objects, so)
	}
	return sb, nil
}
