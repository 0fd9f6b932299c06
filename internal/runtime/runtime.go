package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/qbridge/internal/parser"
	"github.com/jward/qbridge/internal/store"
)

// Runtime embeds a Risor VM and provides tree-sitter host functions
// and DataStore access to bridge extraction scripts.
type Runtime struct {
	store      store.DataStore
	scriptsDir string
	fsys       fs.FS
	sources    *sourceStore
	logger     *slog.Logger
	types      *parser.Parser
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger sets the logger behind the scripts' log global.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithTypeParser shares a type expression parser (and its cache) with the
// type_ident host function.
func WithTypeParser(p *parser.Parser) RuntimeOption {
	return func(r *Runtime) {
		r.types = p
	}
}

// NewRuntime creates a Runtime wired to the given DataStore and scripts
// directory. ds may be nil when a script only needs the tree-sitter host
// functions.
func NewRuntime(ds store.DataStore, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      ds,
		scriptsDir: scriptsDir,
		sources:    newSourceStore(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.types == nil {
		// Only fails for a non-positive size, which New replaces.
		r.types, _ = parser.New(parser.DefaultCacheSize)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(label, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		// For fs.FS, strip any leading path separator so the path is
		// relative within the FS (e.g., "/extract/rust.risor" -> "extract/rust.risor").
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(label string, extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse":           makeParseFn(r.sources),
		"parse_src":       makeParseSrcFn(r.sources),
		"node_text":       makeNodeTextFn(r.sources),
		"node_child":      makeNodeChildFn(),
		"query":           makeQueryFn(r.sources),
		"foreign_block":   makeForeignBlockFn(r.sources),
		"parse_attribute": makeParseAttributeFn(r.sources),
		"type_ident":      makeTypeIdentFn(r.types),
		"log":             mustProxy(&logObject{logger: r.logger.With("script", label)}),
	}

	// Expose the DataStore if available (nil during some tests).
	if r.store != nil {
		// Thin insert/query host functions. Risor cannot construct Go
		// struct pointers, so these accept maps and build structs Go-side.
		globals["insert_bridge"] = makeInsertBridgeFn(r.store)
		globals["insert_qobject"] = makeInsertQObjectFn(r.store)
		globals["insert_property"] = makeInsertPropertyFn(r.store)
		globals["insert_qsignal"] = makeInsertQSignalFn(r.store)
		globals["insert_passthrough"] = makeInsertPassthroughFn(r.store)
		globals["qobjects_by_name"] = makeQObjectsByNameFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
