package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/qbridge/internal/store"
)

const rustTestSource = `#[cxx_qt::bridge(namespace = "demo")]
pub mod qobject {
    unsafe extern "C++" {
        type QString = cxx_qt_lib::QString;
    }

    extern "RustQt" {
        #[qobject]
        #[qproperty(i32, number)]
        type MyObject = super::MyObjectRust;
    }
}

fn helper(a: i32) -> i32 {
    a + 1
}
`

// parseRustSource is a test helper that parses Rust source using tree-sitter
// directly and registers it in a Runtime's source store.
func parseRustSource(t *testing.T, src string) (*sitter.Tree, *Runtime) {
	t.Helper()

	rt := NewRuntime(nil, "")

	lang, ok := ParserForLanguage("rust")
	if !ok {
		t.Fatal("rust language not found")
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, maskUnsafeExtern([]byte(src)))
	if err != nil {
		t.Fatalf("tree-sitter parse: %v", err)
	}

	rt.sources.store(tree, []byte(src))

	return tree, rt
}

func writeRustFile(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lib.rs")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

// --- Language detection tests ---

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"lib.rs", "rust", true},
		{"src/bridge/mod.rs", "rust", true},
		{"path/to/file.RS", "rust", true}, // case insensitive
		{"main.go", "", false},
		{"object.cpp", "", false},
		{"Makefile", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := LanguageForFile(tt.path)
			if ok != tt.ok {
				t.Errorf("LanguageForFile(%q) ok = %v, want %v", tt.path, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("LanguageForFile(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestParserForLanguage(t *testing.T) {
	t.Parallel()

	l, ok := ParserForLanguage("rust")
	assert.True(t, ok)
	assert.NotNil(t, l)

	_, ok = ParserForLanguage("cobol")
	assert.False(t, ok)
}

func TestExtractionScriptPath(t *testing.T) {
	t.Parallel()
	got := ExtractionScriptPath("rust")
	if got != filepath.Join("extract", "rust.risor") {
		t.Errorf("ExtractionScriptPath(\"rust\") = %q", got)
	}
}

// --- unsafe extern masking ---

func TestMaskUnsafeExtern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, want string
	}{
		{"block", `unsafe extern "C++" {}`, `       extern "C++" {}`},
		{"no abi", "unsafe extern {}", "       extern {}"},
		{"newline", "unsafe\nextern \"RustQt\" {", "      \nextern \"RustQt\" {"},
		{"fn pointer untouched", `type F = unsafe extern "C" fn();`, `type F = unsafe extern "C" fn();`},
		{"identifier untouched", `not_unsafe extern "C" {}`, `not_unsafe extern "C" {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := maskUnsafeExtern([]byte(tt.in))
			assert.Equal(t, tt.want, string(got))
			assert.Len(t, got, len(tt.in))
		})
	}
}

func TestMaskUnsafeExtern_DoesNotModifyInput(t *testing.T) {
	t.Parallel()
	src := []byte(`unsafe extern "C++" {}`)
	maskUnsafeExtern(src)
	assert.Equal(t, `unsafe extern "C++" {}`, string(src))
}

// --- Proxied node method tests ---

func TestParse_RootNodeType(t *testing.T) {
	tree, _ := parseRustSource(t, rustTestSource)
	defer tree.Close()

	root := tree.RootNode()
	if root.Type() != "source_file" {
		t.Errorf("root node Type() = %q, want %q", root.Type(), "source_file")
	}
}

func TestParse_UnsafeExternHasNoErrors(t *testing.T) {
	tree, _ := parseRustSource(t, rustTestSource)
	defer tree.Close()

	assert.False(t, tree.RootNode().HasError())
}

func TestNode_ChildByFieldName(t *testing.T) {
	tree, rt := parseRustSource(t, rustTestSource)
	defer tree.Close()

	root := tree.RootNode()
	var mod *sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "mod_item" {
			mod = child
			break
		}
	}
	require.NotNil(t, mod, "no mod_item found")

	nameNode := mod.ChildByFieldName("name")
	require.NotNil(t, nameNode)
	src, ok := rt.sources.sourceForNode(nameNode)
	require.True(t, ok)
	assert.Equal(t, "qobject", nameNode.Content(src))
}

func TestNodeText_RootNodeReturnsOriginalSource(t *testing.T) {
	tree, rt := parseRustSource(t, rustTestSource)
	defer tree.Close()

	root := tree.RootNode()
	srcBytes, ok := rt.sources.sourceForNode(root)
	require.True(t, ok)

	// The original source is kept, unsafe qualifiers included.
	assert.Equal(t, rustTestSource, root.Content(srcBytes))
}

// --- attribute parsing ---

func TestParseAttribute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want attribute
	}{
		{"#[qobject]", attribute{path: "qobject", named: map[string]string{}}},
		{"#[qproperty(i32, number)]", attribute{
			path: "qproperty", args: []string{"i32", "number"}, named: map[string]string{},
		}},
		{"#[qproperty(QMap<i32, QString>, lookup)]", attribute{
			path: "qproperty", args: []string{"QMap<i32, QString>", "lookup"}, named: map[string]string{},
		}},
		{"#[qproperty(fn(i32) -> bool, callback)]", attribute{
			path: "qproperty", args: []string{"fn(i32) -> bool", "callback"}, named: map[string]string{},
		}},
		{`#[cxx_qt::bridge(namespace = "cxx_qt::my_object")]`, attribute{
			path: "cxx_qt::bridge", named: map[string]string{"namespace": "cxx_qt::my_object"},
		}},
		{`#[cxx_name = "dataChanged"]`, attribute{
			path: "cxx_name", value: "dataChanged", named: map[string]string{},
		}},
		{`#[qproperty(Box<dyn Iterator<Item = u8>>, items)]`, attribute{
			path: "qproperty", args: []string{"Box<dyn Iterator<Item = u8>>", "items"}, named: map[string]string{},
		}},
		{`#[doc = "a, b"]`, attribute{path: "doc", value: "a, b", named: map[string]string{}}},
		{"#[qproperty([u8; 1 << 2], bits)]", attribute{
			path: "qproperty", args: []string{"[u8; 1 << 2]", "bits"}, named: map[string]string{},
		}},
		{"#[qproperty((i32, [u8; 2]), pair,)]", attribute{
			path: "qproperty", args: []string{"(i32, [u8; 2])", "pair"}, named: map[string]string{},
		}},
		{`#[qproperty(QString, label, cxx_name = "labelText")]`, attribute{
			path: "qproperty", args: []string{"QString", "label"}, named: map[string]string{"cxx_name": "labelText"},
		}},
		{`#[qproperty(Vec<Vec<u8>>, rows)]`, attribute{
			path: "qproperty", args: []string{"Vec<Vec<u8>>", "rows"}, named: map[string]string{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got, err := parseAttribute(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAttribute_NoAttribute(t *testing.T) {
	t.Parallel()
	_, err := parseAttribute(context.Background(), "fn main() {}")
	assert.Error(t, err)
}

// --- Risor integration tests (via RunSource) ---

func TestRunSource_ParseAndNodeText(t *testing.T) {
	rsFile := writeRustFile(t, rustTestSource)

	rt := NewRuntime(nil, "")
	ctx := context.Background()

	script := `
tree := parse(test_file)
root := tree.RootNode()

assert(root.Type() == "source_file", "expected source_file")

names := []
count := int(root.NamedChildCount())
for i := 0; i < count; i++ {
    child := root.NamedChild(i)
    if child.Type() == "function_item" {
        names.append(node_text(node_child(child, "name")))
    }
}

assert(len(names) == 1, 'expected 1 function, got {len(names)}')
assert(names[0] == "helper", 'expected helper, got {names[0]}')
`

	err := rt.RunSource(ctx, script, map[string]any{
		"test_file": rsFile,
	})
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
}

func TestRunSource_ParseMissingFile(t *testing.T) {
	rt := NewRuntime(nil, "")
	err := rt.RunSource(context.Background(), `parse("/does/not/exist.rs")`, nil)
	require.Error(t, err)
}

func TestRunSource_QueryHostFunction(t *testing.T) {
	rt := NewRuntime(nil, "")

	script := `
tree := parse_src(src)
root := tree.RootNode()

matches := query("(type_item name: (type_identifier) @name)", root)
assert(len(matches) == 2, 'expected 2 matches, got {len(matches)}')

first := node_text(matches[0]["name"])
assert(first == "QString", 'expected QString, got {first}')

second := node_text(matches[1]["name"])
assert(second == "MyObject", 'expected MyObject, got {second}')
`

	err := rt.RunSource(context.Background(), script, map[string]any{"src": rustTestSource})
	require.NoError(t, err)
}

func TestRunSource_QueryInvalidPattern(t *testing.T) {
	rt := NewRuntime(nil, "")

	script := `
tree := parse_src(src)
query("(not_a_real_node_type @x)", tree.RootNode())
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": rustTestSource})
	require.Error(t, err)
}

func TestRunSource_NodeChildMissingFieldIsNil(t *testing.T) {
	rt := NewRuntime(nil, "")

	script := `
tree := parse_src("fn f() {}")
item := tree.RootNode().NamedChild(0)
assert(node_child(item, "return_type") == nil, "expected nil")
assert(node_child(item, "name") != nil, "expected name")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_ForeignBlock(t *testing.T) {
	rt := NewRuntime(nil, "")

	script := `
tree := parse_src(src)
blocks := query("(foreign_mod_item) @block", tree.RootNode())
assert(len(blocks) == 2, 'expected 2 blocks, got {len(blocks)}')

cpp := foreign_block(blocks[0]["block"])
assert(cpp["abi"] == "C++", 'expected C++, got {cpp["abi"]}')
assert(cpp["unsafe"], "expected unsafe block")
assert(cpp["text"].has_prefix("unsafe extern"), "text keeps unsafe")

rustqt := foreign_block(blocks[1]["block"])
assert(rustqt["abi"] == "RustQt", "expected RustQt")
assert(!rustqt["unsafe"], "expected safe block")
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": rustTestSource})
	require.NoError(t, err)
}

func TestRunSource_ParseAttribute(t *testing.T) {
	rt := NewRuntime(nil, "")

	script := `
tree := parse_src(src)
attrs := query("(attribute_item) @attr", tree.RootNode())
assert(len(attrs) == 3, 'expected 3 attributes, got {len(attrs)}')

bridge := parse_attribute(attrs[0]["attr"])
assert(bridge["path"] == "cxx_qt::bridge", "bridge path")
assert(bridge["named"]["namespace"] == "demo", "bridge namespace")
assert(bridge["line"] == 1, "bridge line")

prop := parse_attribute(attrs[2]["attr"])
assert(prop["path"] == "qproperty", "property path")
assert(prop["args"][0] == "i32", "property type")
assert(prop["args"][1] == "number", "property name")

plain := parse_attribute("#[qsignal]")
assert(plain["path"] == "qsignal", "string input")
assert(plain["line"] == 0, "no line for string input")
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": rustTestSource})
	require.NoError(t, err)
}

func TestRunSource_TypeIdent(t *testing.T) {
	rt := NewRuntime(nil, "")

	script := `
assert(type_ident("Pin<&mut MyObject>") == "MyObject", "pinned receiver")
assert(type_ident("&MyObject") == "MyObject", "shared receiver")
assert(type_ident("super::MyObjectRust") == "MyObjectRust", "super path")
assert(type_ident("core::pin::Pin<&mut A>") == "A", "qualified pin")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)

	err = rt.RunSource(context.Background(), `type_ident("Pin<")`, nil)
	require.Error(t, err)
}

func TestRunSource_LogUsesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rt := NewRuntime(nil, "", WithLogger(logger))

	err := rt.RunSource(context.Background(), `log.Warn("something odd")`, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="something odd"`)
	assert.Contains(t, buf.String(), "script=<inline>")
}

// --- store host functions ---

func TestRunSource_StoreFunctions(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	f := &store.File{Path: "/lib.rs"}
	_, err = s.InsertFile(f)
	require.NoError(t, err)

	batch := store.NewBatchedStore(s)
	rt := NewRuntime(batch, "")

	script := `
bridge_id := insert_bridge({"file_id": file_id, "module": "qobject", "line": 1})
obj_id := insert_qobject({"bridge_id": bridge_id, "file_id": file_id, "name": "MyObject"})
insert_property({"qobject_id": obj_id, "name": "number", "type_expr": "i32", "ordinal": 0})
insert_qsignal({
    "qobject_id": obj_id,
    "name": "ready",
    "params": [{"name": "n", "type": "i32"}],
})
insert_passthrough({"bridge_id": bridge_id, "source": "type A;"})

found := qobjects_by_name("MyObject")
assert(len(found) == 1, 'expected 1 object, got {len(found)}')
assert(found[0]["rust_struct"] == "MyObjectRust", "default rust struct")
`
	err = rt.RunSource(context.Background(), script, map[string]any{"file_id": f.ID})
	require.NoError(t, err)

	require.Len(t, batch.Bridges, 1)
	require.Len(t, batch.QObjects, 1)
	require.Len(t, batch.Properties, 1)
	require.Len(t, batch.DeclaredSignals, 1)
	require.Len(t, batch.Passthrough, 1)
	assert.Equal(t, batch.QObjects[0].ID, batch.Properties[0].QObjectID)
	assert.Equal(t, []store.SignalParam{{Name: "n", TypeExpr: "i32"}}, batch.DeclaredSignals[0].Params)
}

func TestRunSource_StoreFunctionsValidate(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	rt := NewRuntime(store.NewBatchedStore(s), "")

	for _, script := range []string{
		`insert_bridge({"file_id": 1})`,
		`insert_qobject({"bridge_id": 1})`,
		`insert_property({"qobject_id": 1, "name": "x"})`,
		`insert_qsignal({"qobject_id": 1})`,
		`insert_qsignal({"qobject_id": 1, "name": "x", "params": "nope"})`,
		`insert_bridge("not a map")`,
	} {
		err := rt.RunSource(context.Background(), script, nil)
		assert.Error(t, err, script)
	}
}

func TestRunSource_NoStoreNoStoreGlobals(t *testing.T) {
	rt := NewRuntime(nil, "")
	err := rt.RunSource(context.Background(), `insert_bridge({})`, nil)
	require.Error(t, err)
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "test.risor")
	if err := os.WriteFile(scriptPath, []byte(`result := 1 + 1`), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	rt := NewRuntime(nil, dir)
	ctx := context.Background()

	err := rt.RunScript(ctx, "test.risor", nil)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(nil, t.TempDir())
	ctx := context.Background()

	err := rt.RunScript(ctx, "nonexistent.risor", nil)
	if err == nil {
		t.Fatal("expected error for missing script, got nil")
	}
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing: %v", err)
	}

	rt := NewRuntime(nil, dir)
	got, err := rt.LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got != content {
		t.Errorf("LoadScript = %q, want %q", got, content)
	}
}

// --- fs.FS-based script loading tests ---

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"extract/rust.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("extract/rust.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "", WithRuntimeFS(fstest.MapFS{}))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	mapFS := fstest.MapFS{
		"extract/rust.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	// Absolute-style path should be resolved within the FS.
	got, err := rt.LoadScript("/extract/rust.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(nil, dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// The log global is always available (provided by buildGlobals).
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func do_log(msg) {
	log.Info(msg)
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	script := `
import helper
helper.do_log("test message")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
	assert.NotNil(t, rt.logger)
	assert.NotNil(t, rt.types)
}
