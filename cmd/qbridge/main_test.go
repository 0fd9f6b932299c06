package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const myObjectSource = `#[cxx_qt::bridge]
pub mod qobject {
    extern "RustQt" {
        #[qobject]
        #[qproperty(i32, number)]
        #[qproperty(*mut QString, raw)]
        type MyObject = super::MyObjectRust;

        #[qsignal]
        fn ready(self: Pin<&mut MyObject>);
    }
}
`

// project is a temporary source tree with its own database path.
type project struct {
	dir string
	db  string
	log string
}

func newProject(t *testing.T) *project {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "lib.rs"), []byte(myObjectSource), 0o644))
	state := t.TempDir()
	return &project{
		dir: dir,
		db:  filepath.Join(state, "index.db"),
		log: filepath.Join(state, "qbridge.log"),
	}
}

func (p *project) libPath() string {
	return filepath.Join(p.dir, "src", "lib.rs")
}

// run executes the CLI with a fresh command tree and config.
func (p *project) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	v := newConfig(p.dir)
	v.Set(logFilenameKey, p.log)
	root := newRootCmd(v)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--db", p.db}, args...))
	err := root.Execute()
	return out.String(), err
}

func decode[T any](t *testing.T, out string) (T, *int) {
	t.Helper()
	var env struct {
		Command    string `json:"command"`
		Results    T      `json:"results"`
		TotalCount *int   `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env.Results, env.TotalCount
}

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestResolveDBPath(t *testing.T) {
	t.Parallel()
	a := &app{v: newConfig(t.TempDir())}
	assert.Equal(t, filepath.Join("/repo", ".qbridge", "index.db"), a.resolveDBPath("/repo"))

	a.v.Set(dbKey, "custom.db")
	assert.Equal(t, filepath.Join("/repo", "custom.db"), a.resolveDBPath("/repo"))

	a.v.Set(dbKey, "/abs/index.db")
	assert.Equal(t, "/abs/index.db", a.resolveDBPath("/repo"))
}

func TestParseSlogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSlogLevel(tt.in, slog.LevelWarn), tt.in)
	}
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	for _, f := range []string{"json", "text", "yaml"} {
		assert.NoError(t, validateFormat(f))
	}
	assert.Error(t, validateFormat("xml"))
}

func TestParseSort(t *testing.T) {
	t.Parallel()
	_, err := parseSort("property_count", "desc")
	assert.NoError(t, err)
	_, err = parseSort("kind", "asc")
	assert.Error(t, err)
	_, err = parseSort("name", "sideways")
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	p := newProject(t)

	out, err := p.run(t, "generate", p.dir)
	require.NoError(t, err)
	stats, _ := decode[CLIGenerate](t, out)
	assert.Equal(t, p.dir, stats.Root)
	assert.Equal(t, p.db, stats.Database)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, stats.Objects)
	assert.Equal(t, 1, stats.Generated)

	out, err = p.run(t, "generate", p.dir)
	require.NoError(t, err)
	stats, _ = decode[CLIGenerate](t, out)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Generated)

	out, err = p.run(t, "generate", "--force", p.dir)
	require.NoError(t, err)
	stats, _ = decode[CLIGenerate](t, out)
	assert.Equal(t, 1, stats.Generated)

	out, err = p.run(t, "generate", "--clean", p.dir)
	require.NoError(t, err)
	stats, _ = decode[CLIGenerate](t, out)
	assert.Equal(t, 1, stats.Generated)

	assert.FileExists(t, p.log)
}

func TestGenerate_NotADirectory(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "generate", p.libPath())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestObjects(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "generate", p.dir)
	require.NoError(t, err)

	out, err := p.run(t, "objects")
	require.NoError(t, err)
	objs, total := decode[[]CLIObject](t, out)
	require.Len(t, objs, 1)
	require.NotNil(t, total)
	assert.Equal(t, 1, *total)
	assert.Equal(t, "MyObject", objs[0].Name)
	assert.Equal(t, "MyObjectRust", objs[0].RustStruct)
	assert.Equal(t, "qobject", objs[0].Module)
	assert.Equal(t, p.libPath(), objs[0].File)
	assert.Equal(t, 2, objs[0].PropertyCount)
	assert.True(t, objs[0].Generated)

	out, err = p.run(t, "objects", "--module", "other")
	require.NoError(t, err)
	objs, _ = decode[[]CLIObject](t, out)
	assert.Empty(t, objs)

	_, err = p.run(t, "objects", "--sort", "kind")
	assert.Error(t, err)
}

func TestObjects_TextFormat(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "generate", p.dir)
	require.NoError(t, err)

	out, err := p.run(t, "--format", "text", "objects")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "MyObject")
	assert.Contains(t, out, "qobject")
}

func TestProperties(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "generate", p.dir)
	require.NoError(t, err)

	out, err := p.run(t, "properties", "MyObject")
	require.NoError(t, err)
	props, _ := decode[[]CLIProperty](t, out)
	require.Len(t, props, 2)
	assert.Equal(t, CLIProperty{
		Name: "number", Type: "i32",
		Getter: "getNumber", Setter: "setNumber", Notify: "numberChanged",
		Line: 5,
	}, props[0])
	assert.Equal(t, "*mut QString", props[1].Type)
	assert.True(t, props[1].Unsafe)

	_, err = p.run(t, "properties", "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = p.run(t, "properties", "MyObject", "--file", filepath.Join(p.dir, "other.rs"))
	assert.Error(t, err)
}

func TestSignals(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "generate", p.dir)
	require.NoError(t, err)

	out, err := p.run(t, "signals", "MyObject")
	require.NoError(t, err)
	signals, _ := decode[[]CLISignal](t, out)
	assert.Equal(t, []CLISignal{
		{RustName: "number_changed", CppName: "numberChanged", Origin: "property"},
		{RustName: "raw_changed", CppName: "rawChanged", Origin: "property"},
		{RustName: "ready", CppName: "ready", Origin: "declared"},
	}, signals)

	out, err = p.run(t, "--format", "yaml", "signals", "MyObject")
	require.NoError(t, err)
	var env struct {
		Command string      `yaml:"command"`
		Results []CLISignal `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &env))
	assert.Equal(t, "signals", env.Command)
	assert.Len(t, env.Results, 3)
}

func TestSource(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "generate", p.dir)
	require.NoError(t, err)

	out, err := p.run(t, "--format", "text", "source", p.libPath())
	require.NoError(t, err)
	assert.Contains(t, out, "#[cxx::bridge]\npub mod qobject {")
	assert.Contains(t, out, "unsafe fn set_raw(self: &mut MyObjectRust, cpp: Pin<&mut MyObject>, value: *mut QString);")
	assert.Contains(t, out, "impl qobject::MyObject {")

	_, err = p.run(t, "source", filepath.Join(p.dir, "missing.rs"))
	assert.Error(t, err)
}

func TestQueryWithoutDatabase(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "objects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}

func TestQualify(t *testing.T) {
	p := newProject(t)

	out, err := p.run(t, "qualify", "UniquePtr<MyObject>", "--object", "MyObject")
	require.NoError(t, err)
	q, _ := decode[CLIQualified](t, out)
	assert.Equal(t, CLIQualified{
		Input:     "UniquePtr<MyObject>",
		Qualified: "cxx::UniquePtr<qobject::MyObject>",
	}, q)

	out, err = p.run(t, "--format", "text", "qualify", "*mut T", "--module", "ffi")
	require.NoError(t, err)
	assert.Equal(t, "*mut T (unsafe)\n", out)

	_, err = p.run(t, "qualify", "&&&")
	assert.Error(t, err)
}

func TestInvalidFormat(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "--format", "xml", "qualify", "i32")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestConfigFile(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(p.dir, "qbridge.yaml"), []byte("format: text\n"), 0o644))

	out, err := p.run(t, "qualify", "Pin<&mut T>")
	require.NoError(t, err)
	assert.Equal(t, "core::pin::Pin<&mut T>\n", out)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("QBRIDGE_FORMAT", "yaml")
	p := newProject(t)

	out, err := p.run(t, "qualify", "i32")
	require.NoError(t, err)
	assert.Contains(t, out, "command: qualify")
	assert.Contains(t, out, "qualified: i32")
}
