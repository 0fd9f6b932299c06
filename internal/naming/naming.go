// Package naming derives the identifiers a property or object needs on
// both sides of the bridge. Rust spellings are snake case; C++ spellings
// follow Qt's camel case convention.
package naming

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"
)

// CombinedIdent pairs the C++ visible name of an item with its Rust
// identifier.
type CombinedIdent struct {
	Cpp  string `json:"cpp" yaml:"cpp"`
	Rust string `json:"rust" yaml:"rust"`
}

// PropertyName holds every identifier derived from one declared property.
type PropertyName struct {
	Name   CombinedIdent `json:"name" yaml:"name"`
	Getter CombinedIdent `json:"getter" yaml:"getter"`
	Setter CombinedIdent `json:"setter" yaml:"setter"`
	Notify CombinedIdent `json:"notify" yaml:"notify"`
}

// NewPropertyName derives the names for the property declared as ident.
// ident must be a non-empty Rust identifier. A raw identifier keeps its r#
// prefix only where the ident itself is spelled.
func NewPropertyName(ident string) PropertyName {
	if ident == "" {
		panic("naming: empty property identifier")
	}
	words := normalizeAcronyms(strings.TrimPrefix(ident, "r#"))
	snake := snakeCase(words)
	camel := camelCase(words)
	pascal := inflect.Camelize(words)
	return PropertyName{
		Name:   CombinedIdent{Cpp: camel, Rust: ident},
		Getter: CombinedIdent{Cpp: "get" + pascal, Rust: ident},
		Setter: CombinedIdent{Cpp: "set" + pascal, Rust: "set_" + snake},
		Notify: CombinedIdent{Cpp: camel + "Changed", Rust: snake + "_changed"},
	}
}

// ObjectName holds the identifiers of a QObject. CppClass is the C++ class
// together with the Rust name of its opaque type; RustStruct is the Rust
// struct backing its data.
type ObjectName struct {
	Ident      string        `json:"ident" yaml:"ident"`
	CppClass   CombinedIdent `json:"cpp_class" yaml:"cpp_class"`
	RustStruct CombinedIdent `json:"rust_struct" yaml:"rust_struct"`
}

// NewObjectName builds the names of the object declared as ident. The
// backing struct defaults to ident followed by "Rust" when rustStruct is
// empty.
func NewObjectName(ident, rustStruct string) ObjectName {
	if ident == "" {
		panic("naming: empty object identifier")
	}
	if rustStruct == "" {
		rustStruct = ident + "Rust"
	}
	return ObjectName{
		Ident:      ident,
		CppClass:   CombinedIdent{Cpp: ident, Rust: ident},
		RustStruct: CombinedIdent{Cpp: rustStruct, Rust: rustStruct},
	}
}

// CollisionError reports C++ visible names derived more than once for the
// same object.
type CollisionError struct {
	Names map[string][]string // C++ name -> declared properties deriving it
}

func (e *CollisionError) Error() string {
	keys := make([]string, 0, len(e.Names))
	for k := range e.Names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s (from %s)", k, strings.Join(e.Names[k], ", "))
	}
	return "naming: colliding C++ names: " + strings.Join(parts, "; ")
}

// CheckCollisions verifies that the C++ visible names derived for one
// object's properties are pairwise distinct. It returns a *CollisionError
// listing every clash.
func CheckCollisions(props []PropertyName) error {
	owners := make(map[string][]string)
	for _, p := range props {
		seen := make(map[string]bool, 4)
		for _, cpp := range []string{p.Name.Cpp, p.Getter.Cpp, p.Setter.Cpp, p.Notify.Cpp} {
			if seen[cpp] {
				continue
			}
			seen[cpp] = true
			owners[cpp] = append(owners[cpp], p.Name.Rust)
		}
	}

	clashes := make(map[string][]string)
	for cpp, from := range owners {
		if len(from) > 1 {
			clashes[cpp] = from
		}
	}
	if len(clashes) == 0 {
		return nil
	}
	return &CollisionError{Names: clashes}
}

// camelCase lower cases the first letter of the Pascal case form, so
// "my_value" becomes "myValue".
func camelCase(ident string) string {
	return inflect.CamelizeDownFirst(ident)
}

// snakeCase converts an identifier to snake case. Identifiers that are
// already snake case come back unchanged.
func snakeCase(ident string) string {
	if strings.ToLower(ident) == ident {
		return ident
	}
	return inflect.Underscore(ident)
}

// normalizeAcronyms rewrites each run of capitals as one capitalized word,
// so "URL" becomes "Url" and "myURLValue" becomes "myUrlValue". inflect
// would otherwise split every capital into its own word.
func normalizeAcronyms(ident string) string {
	b := []byte(ident)
	for i := 0; i < len(b); {
		if !isUpper(b[i]) {
			i++
			continue
		}
		j := i
		for j < len(b) && isUpper(b[j]) {
			j++
		}
		end := j
		if j < len(b) && isLower(b[j]) {
			// The last capital starts the next word.
			end = j - 1
		}
		for k := i + 1; k < end; k++ {
			b[k] += 'a' - 'A'
		}
		i = j
	}
	return string(b)
}

func isUpper(c byte) bool { return 'A' <= c && c <= 'Z' }
func isLower(c byte) bool { return 'a' <= c && c <= 'z' }
