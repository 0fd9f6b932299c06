package cxxtype

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/qbridge/internal/syntax"
)

func TestIsUnsafe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src    string
		unsafe bool
	}{
		{"i32", false},
		{"Vec<i32>", false},
		{"Vec<*mut T>", true},
		{"*mut T", true},
		{"*const i32", true},
		{"&i32", false},
		{"&*mut T", true},
		{"&Vec<i32>", false},
		{"&Vec<*mut T>", true},
		{"&mut &*const T", true},
		{"Option<Vec<*mut T>>", true},
		{"cxx::UniquePtr<T>", false},
		{"Cow<'a, str>", false},

		// Shapes that are never inspected.
		{"[*mut T; 2]", false},
		{"&[*mut T]", false},
		{"(*mut T, i32)", false},
		{"fn(*mut T)", false},
		{"dyn Any", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.unsafe, IsUnsafe(mustParse(t, tt.src)))
		})
	}
}

func TestIsUnsafe_NonTypeArgs(t *testing.T) {
	t.Parallel()

	binding := &syntax.Path{Segments: []syntax.PathSegment{{
		Ident: "Iterator",
		Args:  []syntax.GenericArg{&syntax.BindingArg{Name: "Item", Type: &syntax.Ptr{Mutable: true, Elem: syntax.NewPath("T")}}},
	}}}
	assert.False(t, IsUnsafe(binding), "only type arguments are inspected")

	constArg := &syntax.Path{Segments: []syntax.PathSegment{{
		Ident: "Buf",
		Args:  []syntax.GenericArg{&syntax.ConstArg{Expr: "4"}},
	}}}
	assert.False(t, IsUnsafe(constArg))
}

func TestIsUnsafe_Qualified(t *testing.T) {
	t.Parallel()

	// Qualifying never changes the classification.
	for _, src := range []string{"UniquePtr<*mut T>", "Pin<&mut T>", "&CxxVector<*const u8>"} {
		ty := mustParse(t, src)
		assert.Equal(t, IsUnsafe(ty), IsUnsafe(Qualify(ty, nil)), "input %q", src)
	}
}
