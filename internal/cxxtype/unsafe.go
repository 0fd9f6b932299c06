package cxxtype

import "github.com/jward/qbridge/internal/syntax"

// IsUnsafe reports whether a bridge declaration carrying ty must be marked
// unsafe. Raw pointers always are; references and generic type arguments
// are unsafe when what they contain is. Arrays, function pointers, slices
// and tuples are not inspected.
func IsUnsafe(ty syntax.Type) bool {
	switch t := ty.(type) {
	case *syntax.Ptr:
		return true
	case *syntax.Reference:
		return IsUnsafe(t.Elem)
	case *syntax.Path:
		for _, seg := range t.Segments {
			for _, arg := range seg.Args {
				if ta, ok := arg.(*syntax.TypeArg); ok && IsUnsafe(ta.Type) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}
