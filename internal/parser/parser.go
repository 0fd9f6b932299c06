// Package parser turns Rust type expression text into syntax.Type trees
// using the tree-sitter Rust grammar.
package parser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/jward/qbridge/internal/syntax"
)

// probePrefix wraps a bare type so the grammar sees a complete item.
const probePrefix = "type __QBridgeProbe = "

// DefaultCacheSize is the number of parsed type trees a Parser keeps.
const DefaultCacheSize = 1024

var (
	rustLang     *sitter.Language
	rustLangOnce sync.Once
)

// Language returns the tree-sitter Rust grammar.
func Language() *sitter.Language {
	rustLangOnce.Do(func() {
		rustLang = rust.GetLanguage()
	})
	return rustLang
}

// Parser parses type expressions and caches the results by source text.
// Cached trees are shared between callers and must not be modified. It is
// safe for concurrent use.
type Parser struct {
	cache *lru.Cache[string, syntax.Type]
}

// New creates a Parser holding up to size parsed trees.
func New(size int) (*Parser, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, syntax.Type](size)
	if err != nil {
		return nil, fmt.Errorf("parser: create cache: %w", err)
	}
	return &Parser{cache: cache}, nil
}

// ParseType parses text, serving repeated inputs from the cache.
func (p *Parser) ParseType(ctx context.Context, text string) (syntax.Type, error) {
	key := strings.TrimSpace(text)
	if ty, ok := p.cache.Get(key); ok {
		return ty, nil
	}
	ty, err := ParseType(ctx, key)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, ty)
	return ty, nil
}

// Len reports the number of cached trees.
func (p *Parser) Len() int {
	return p.cache.Len()
}

// ParseType parses a single Rust type expression such as
// "Pin<&mut MyObject>" or "fn(i32) -> bool".
func ParseType(ctx context.Context, text string) (syntax.Type, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("parser: empty type expression")
	}

	src := []byte(probePrefix + text + ";")
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(Language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parser: parse %q: %w", text, err)
	}

	root := tree.RootNode()
	if root.HasError() || root.NamedChildCount() != 1 {
		return nil, fmt.Errorf("parser: invalid type expression %q", text)
	}
	item := root.NamedChild(0)
	if item.Type() != "type_item" {
		return nil, fmt.Errorf("parser: invalid type expression %q", text)
	}
	node := item.ChildByFieldName("type")
	if node == nil {
		return nil, fmt.Errorf("parser: invalid type expression %q", text)
	}

	c := converter{src: src}
	return c.typ(node), nil
}

// MustParseType is ParseType for inputs known to be valid, such as literals
// in generator code and tests. It panics on error.
func MustParseType(text string) syntax.Type {
	ty, err := ParseType(context.Background(), text)
	if err != nil {
		panic(err)
	}
	return ty
}
