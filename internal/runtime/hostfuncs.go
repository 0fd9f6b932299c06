package runtime

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/qbridge/internal/parser"
	"github.com/jward/qbridge/internal/syntax"
)

// sourceStore tracks the source bytes of each parsed tree. node_text and
// query need to recover the source from a Node, but smacker/go-tree-sitter
// doesn't expose Node.Tree(). We store mappings keyed by root node pointer
// (obtained via tree.RootNode() at parse time and by walking up Parent() at
// lookup time).
type sourceStore struct {
	mu      sync.RWMutex
	sources map[uintptr][]byte // root node ptr → original source bytes
}

func newSourceStore() *sourceStore {
	return &sourceStore{sources: make(map[uintptr][]byte)}
}

func (s *sourceStore) store(tree *sitter.Tree, src []byte) {
	key := uintptr(unsafe.Pointer(tree.RootNode()))
	s.mu.Lock()
	s.sources[key] = src
	s.mu.Unlock()
}

// rootOf walks a node up to its root via Parent().
func rootOf(node *sitter.Node) *sitter.Node {
	for node.Parent() != nil {
		node = node.Parent()
	}
	return node
}

func (s *sourceStore) sourceForNode(node *sitter.Node) ([]byte, bool) {
	key := uintptr(unsafe.Pointer(rootOf(node)))
	s.mu.RLock()
	src, ok := s.sources[key]
	s.mu.RUnlock()
	return src, ok
}

// unsafeExtern matches the unsafe qualifier of a foreign block.
var unsafeExtern = regexp.MustCompile(`\bunsafe(\s+extern\s*(?:"[^"]*")?\s*\{)`)

// maskUnsafeExtern blanks out "unsafe" in front of foreign blocks, which the
// grammar does not accept. Byte offsets are preserved so nodes still index
// into the original source.
func maskUnsafeExtern(src []byte) []byte {
	locs := unsafeExtern.FindAllIndex(src, -1)
	if len(locs) == 0 {
		return src
	}
	masked := bytes.Clone(src)
	for _, loc := range locs {
		copy(masked[loc[0]:], "      ")
	}
	return masked
}

// makeParseFn creates the "parse" host function.
//
// parse(path) → *sitter.Tree
func makeParseFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse", 1, len(args))
		}

		pathStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("parse: path must be a string, got %s", args[0].Type())
		}

		src, err := os.ReadFile(pathStr.Value())
		if err != nil {
			return object.Errorf("parse: reading %s: %v", pathStr.Value(), err)
		}

		return parseSource(ctx, ss, src)
	})
}

// makeParseSrcFn creates "parse_src", which accepts a source string directly.
//
// parse_src(source) → *sitter.Tree
func makeParseSrcFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_src", 1, len(args))
		}

		srcStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("parse_src: source must be a string, got %s", args[0].Type())
		}

		return parseSource(ctx, ss, []byte(srcStr.Value()))
	})
}

// parseSource is the shared implementation for parse and parse_src.
func parseSource(ctx context.Context, ss *sourceStore, src []byte) object.Object {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(parser.Language())

	tree, err := p.ParseCtx(ctx, nil, maskUnsafeExtern(src))
	if err != nil {
		return object.Errorf("parse: tree-sitter parse failed: %v", err)
	}

	ss.store(tree, src)

	proxy, err := object.NewProxy(tree)
	if err != nil {
		return object.Errorf("parse: proxy error: %v", err)
	}
	return proxy
}

// nodeArg unwraps a proxied *sitter.Node argument.
func nodeArg(fn string, arg object.Object) (*sitter.Node, *object.Error) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// makeNodeTextFn creates the "node_text" host function.
//
// node_text(node) → string
//
// Exists because Risor's proxy system cannot convert strings to []byte
// for node.Content([]byte).
func makeNodeTextFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}

		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}

		src, found := ss.sourceForNode(node)
		if !found {
			return object.Errorf("node_text: no source found for node's tree")
		}

		return object.NewString(node.Content(src))
	})
}

// makeQueryFn creates the "query" host function.
//
// query(pattern, node) → []map[string]any
//
// Each map has capture names as keys and proxied Nodes as values.
func makeQueryFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}

		patternStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}

		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}

		src, found := ss.sourceForNode(node)
		if !found {
			return object.Errorf("query: no source found for node's tree")
		}

		q, err := sitter.NewQuery([]byte(patternStr.Value()), parser.Language())
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		var results []object.Object
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, src)

			matchMap := make(map[string]object.Object)
			for _, capture := range match.Captures {
				name := q.CaptureNameForId(capture.Index)
				nodeP, err := object.NewProxy(capture.Node)
				if err != nil {
					return object.Errorf("query: proxy error for capture %q: %v", name, err)
				}
				matchMap[name] = nodeP
			}
			results = append(results, object.NewMap(matchMap))
		}

		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// makeNodeChildFn creates "node_child", a nil-safe wrapper for ChildByFieldName
// that returns Risor nil instead of a proxied Go nil pointer.
//
// node_child(node, fieldName) → Node or nil
func makeNodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}

		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}

		fieldStr, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("node_child: field must be a string, got %s", args[1].Type())
		}

		child := node.ChildByFieldName(fieldStr.Value())
		if child == nil {
			return object.Nil
		}

		p, err := object.NewProxy(child)
		if err != nil {
			return object.Errorf("node_child: proxy error: %v", err)
		}
		return p
	})
}

// makeForeignBlockFn creates "foreign_block", which describes an
// extern block node.
//
// foreign_block(node) → {abi, unsafe, text}
//
// text is the original source of the block, unsafe qualifier included.
func makeForeignBlockFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("foreign_block", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("foreign_block", 1, len(args))
		}

		node, errObj := nodeArg("foreign_block", args[0])
		if errObj != nil {
			return errObj
		}
		if node.Type() != "foreign_mod_item" {
			return object.Errorf("foreign_block: expected foreign_mod_item, got %s", node.Type())
		}

		src, found := ss.sourceForNode(node)
		if !found {
			return object.Errorf("foreign_block: no source found for node's tree")
		}

		abi := "C"
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() != "extern_modifier" {
				continue
			}
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if lit := child.NamedChild(j); lit.Type() == "string_literal" {
					abi = strings.Trim(lit.Content(src), `"`)
				}
			}
		}

		start := int(node.StartByte())
		isUnsafe := false
		if bytes.HasPrefix(src[start:], []byte("unsafe")) {
			isUnsafe = true
		} else if i := precedingWord(src, start, "unsafe"); i >= 0 {
			isUnsafe = true
			start = i
		}

		return object.NewMap(map[string]object.Object{
			"abi":    object.NewString(abi),
			"unsafe": object.NewBool(isUnsafe),
			"text":   object.NewString(string(src[start:node.EndByte()])),
		})
	})
}

// precedingWord returns the offset of word when it is the last token before
// end, or -1.
func precedingWord(src []byte, end int, word string) int {
	i := end
	for i > 0 && (src[i-1] == ' ' || src[i-1] == '\t' || src[i-1] == '\n' || src[i-1] == '\r') {
		i--
	}
	start := i - len(word)
	if start < 0 || string(src[start:i]) != word {
		return -1
	}
	if start > 0 && isIdentByte(src[start-1]) {
		return -1
	}
	return start
}

func isIdentByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// makeParseAttributeFn creates "parse_attribute", which splits an outer
// attribute into its path and arguments. It accepts an attribute_item node
// or the attribute text.
//
// parse_attribute(attr) → {path, args, named, value, text, line}
//
// #[qproperty(i32, number)] gives path "qproperty" and args ["i32",
// "number"]; #[cxx_qt::bridge(namespace = "ns")] gives named {namespace:
// "ns"}; #[cxx_name = "x"] gives value "x".
func makeParseAttributeFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("parse_attribute", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_attribute", 1, len(args))
		}

		var (
			attr attribute
			text string
			line int
		)
		switch a := args[0].(type) {
		case *object.String:
			text = a.Value()
			parsed, err := parseAttribute(ctx, text)
			if err != nil {
				return object.Errorf("parse_attribute: %v", err)
			}
			attr = parsed
		default:
			node, errObj := nodeArg("parse_attribute", a)
			if errObj != nil {
				return errObj
			}
			src, found := ss.sourceForNode(node)
			if !found {
				return object.Errorf("parse_attribute: no source found for node's tree")
			}
			inner := findAttribute(node)
			if inner == nil {
				return object.Errorf("parse_attribute: %s node holds no attribute", node.Type())
			}
			text = node.Content(src)
			line = int(node.StartPoint().Row) + 1
			attr = attributeFromNode(inner, src)
		}

		list := make([]object.Object, len(attr.args))
		for i, a := range attr.args {
			list[i] = object.NewString(a)
		}
		named := make(map[string]object.Object, len(attr.named))
		for k, v := range attr.named {
			named[k] = object.NewString(v)
		}
		return object.NewMap(map[string]object.Object{
			"path":  object.NewString(attr.path),
			"args":  object.NewList(list),
			"named": object.NewMap(named),
			"value": object.NewString(attr.value),
			"text":  object.NewString(strings.TrimSpace(text)),
			"line":  object.NewInt(int64(line)),
		})
	})
}

type attribute struct {
	path  string
	args  []string
	named map[string]string
	value string
}

// parseAttribute parses attribute text such as #[qproperty(i32, number)]
// with the Rust grammar.
func parseAttribute(ctx context.Context, text string) (attribute, error) {
	src := []byte(text)
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(parser.Language())

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return attribute{}, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	n := findAttribute(tree.RootNode())
	if n == nil {
		return attribute{}, fmt.Errorf("no attribute in %q", text)
	}
	return attributeFromNode(n, src), nil
}

// findAttribute returns the first attribute node at or below n.
func findAttribute(n *sitter.Node) *sitter.Node {
	if n.Type() == "attribute" {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := findAttribute(n.NamedChild(i)); found != nil {
			return found
		}
	}
	return nil
}

func attributeFromNode(n *sitter.Node, src []byte) attribute {
	attr := attribute{named: map[string]string{}}
	if n.NamedChildCount() > 0 {
		attr.path = n.NamedChild(0).Content(src)
	}
	if v := n.ChildByFieldName("value"); v != nil {
		attr.value = unquote(v.Content(src))
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return attr
	}
	for _, arg := range splitArguments(args) {
		if len(arg) >= 3 && arg[0].Type() == "identifier" && arg[1].Type() == "=" {
			attr.named[arg[0].Content(src)] = unquote(tokenText(arg[2:], src))
			continue
		}
		attr.args = append(attr.args, tokenText(arg, src))
	}
	return attr
}

// splitArguments splits the tokens of an argument token_tree at commas
// outside angle brackets. Parentheses, brackets and braces already nest as
// token_tree children. Empty arguments are dropped.
func splitArguments(tt *sitter.Node) [][]*sitter.Node {
	var (
		args  [][]*sitter.Node
		cur   []*sitter.Node
		depth int
	)
	count := int(tt.ChildCount())
	for i := 0; i < count; i++ {
		tok := tt.Child(i)
		if (i == 0 || i == count-1) && isDelimiter(tok.Type()) {
			continue
		}
		switch tok.Type() {
		case "<":
			depth++
		case "<<":
			depth += 2
		case ">":
			depth--
		case ">>":
			depth -= 2
		case ",":
			if depth <= 0 {
				if len(cur) > 0 {
					args = append(args, cur)
				}
				cur = nil
				continue
			}
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		args = append(args, cur)
	}
	return args
}

func isDelimiter(kind string) bool {
	switch kind {
	case "(", ")", "[", "]", "{", "}":
		return true
	}
	return false
}

// tokenText returns the source spanning toks, original spacing included.
func tokenText(toks []*sitter.Node, src []byte) string {
	return string(src[toks[0].StartByte():toks[len(toks)-1].EndByte()])
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

// makeTypeIdentFn creates "type_ident", which names the type a type
// expression ultimately refers to, looking through references, pointers
// and Pin.
//
// type_ident("Pin<&mut MyObject>") → "MyObject"
// type_ident("super::MyObjectRust") → "MyObjectRust"
func makeTypeIdentFn(p *parser.Parser) *object.Builtin {
	return object.NewBuiltin("type_ident", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("type_ident", 1, len(args))
		}
		text, err := toString(args[0])
		if err != nil {
			return object.Errorf("type_ident: %v", err)
		}
		ty, err := p.ParseType(ctx, text)
		if err != nil {
			return object.Errorf("type_ident: %v", err)
		}
		return object.NewString(typeIdent(ty))
	})
}

func typeIdent(ty syntax.Type) string {
	for {
		switch t := ty.(type) {
		case *syntax.Reference:
			ty = t.Elem
		case *syntax.Ptr:
			ty = t.Elem
		case *syntax.Path:
			if len(t.Segments) == 0 {
				return ""
			}
			last := t.Segments[len(t.Segments)-1]
			if last.Ident == "Pin" && len(last.Args) == 1 {
				if arg, ok := last.Args[0].(*syntax.TypeArg); ok {
					ty = arg.Type
					continue
				}
			}
			return last.Ident
		default:
			return ty.String()
		}
	}
}

// logObject provides log.Debug/Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Debug(msg string) {
	l.logger.Debug(msg)
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
