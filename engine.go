package qbridge

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/jward/qbridge/internal/parser"
	qrt "github.com/jward/qbridge/internal/runtime"
	"github.com/jward/qbridge/internal/store"
	"github.com/jward/qbridge/scripts"
)

// Engine orchestrates the qbridge pipeline: file discovery, change
// detection, extraction via the Risor script, generation, and query access.
type Engine struct {
	store      *store.Store
	runtime    *qrt.Runtime
	types      *parser.Parser
	logger     *slog.Logger
	scriptsDir string
	scriptsFS  fs.FS

	// useParallel enables the parallel extraction pipeline.
	useParallel bool
	// parallelism bounds extraction workers and generation goroutines.
	parallelism int
	// force regenerates objects whose inputs are unchanged.
	force bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel extraction. When true (default), IndexFiles
// uses a worker pool for parsing and script execution, with a single writer
// committing batches to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithParallelism caps the number of concurrent extraction workers and
// generation goroutines. Values below one mean runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from the scriptsDir path on disk.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithLogger sets the logger used by the Engine and by extraction scripts.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithForce makes Generate regenerate every object, including those whose
// stored output is current.
func WithForce(force bool) Option {
	return func(e *Engine) {
		e.force = force
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
// Script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, if scriptsDir is non-empty, use it on disk
//  3. Otherwise, use the scripts embedded in the binary
func New(dbPath string, scriptsDir string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("qbridge: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("qbridge: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		scriptsDir:  scriptsDir,
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scriptsFS == nil && e.scriptsDir == "" {
		e.scriptsFS = scripts.FS
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.parallelism < 1 {
		e.parallelism = runtime.NumCPU()
	}

	e.types, err = parser.New(parser.DefaultCacheSize)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("qbridge: %w", err)
	}
	e.runtime = e.newRuntime(s)

	return e, nil
}

// newRuntime builds a Runtime writing to ds with the Engine's script
// source, logger and type parser.
func (e *Engine) newRuntime(ds store.DataStore) *qrt.Runtime {
	rtOpts := []qrt.RuntimeOption{
		qrt.WithLogger(e.logger),
		qrt.WithTypeParser(e.types),
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, qrt.WithRuntimeFS(e.scriptsFS))
	}
	return qrt.NewRuntime(ds, e.scriptsDir, rtOpts...)
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// scriptsHash computes a SHA-256 hash of all Risor scripts, sorted by path.
func (e *Engine) scriptsHash() string {
	var paths []string

	if e.scriptsFS != nil {
		fs.WalkDir(e.scriptsFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
	} else if e.scriptsDir != "" {
		filepath.WalkDir(e.scriptsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				rel, _ := filepath.Rel(e.scriptsDir, path)
				paths = append(paths, rel)
			}
			return nil
		})
	}

	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		src, err := e.runtime.LoadScript(p)
		if err != nil {
			continue
		}
		h.Write([]byte(p))
		h.Write([]byte(src))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ScriptsChanged reports whether the scripts differ from what was used to
// build the current database. Returns true if the DB has no stored hash
// (first run) or if the hash doesn't match. When true, the caller should
// delete the DB and reindex from scratch.
func (e *Engine) ScriptsChanged() bool {
	current := e.scriptsHash()
	stored, err := e.store.GetMetadata("scripts_hash")
	if err != nil || stored == "" {
		return true
	}
	return current != stored
}

// storeScriptsHash persists the current scripts hash to the database.
func (e *Engine) storeScriptsHash() {
	if err := e.store.SetMetadata("scripts_hash", e.scriptsHash()); err != nil {
		e.logger.Warn("store scripts hash", "error", err)
	}
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// uses a worker pool for concurrent extraction with batched SQLite writes.
// Otherwise falls back to the serial path.
//
// For each file:
// 1. Skip files that are not Rust sources
// 2. Skip unchanged files (same content hash)
// 3. Delete stale data, insert the file record
// 4. Run the extraction script
//
// Errors on individual files are collected; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := e.indexFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFile(ctx context.Context, path string) error {
	item, skip, err := e.prepareFile(path)
	if err != nil || skip {
		return err
	}
	// The serial path writes straight to SQLite.
	extras := map[string]any{
		"file_path": item.path,
		"file_id":   item.fileID,
	}
	if err := e.runtime.RunScript(ctx, qrt.ExtractionScriptPath(item.lang), extras); err != nil {
		e.forget(item)
		return fmt.Errorf("extraction script: %w", err)
	}
	e.logger.Debug("indexed", "path", path)
	return nil
}

// prepareFile hashes the file, drops stale rows and inserts a fresh file
// record. skip=true means the file is unchanged or not a Rust source.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	lang, ok := qrt.LanguageForFile(path)
	if !ok {
		return workItem{}, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return workItem{}, true, nil // unchanged
	}

	if existing != nil {
		if err := e.store.DeleteFile(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Hash:        hash,
		LineCount:   bytes.Count(content, []byte{'\n'}) + 1,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert file: %w", err)
	}

	return workItem{
		path:   path,
		lang:   lang,
		fileID: fileID,
		batch:  store.NewBatchedStore(e.store),
	}, false, nil
}

// skipDirs are directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	"vendor":       true,
}

// IndexDirectory discovers the Rust sources under root and indexes them.
// If root is inside a git repository, uses git ls-files to respect
// .gitignore. Falls back to a filesystem walk (skipping hidden dirs, target,
// node_modules and vendor) if git is unavailable. Previously indexed files
// under root that no longer exist are removed.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", "root", root, "error", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	if err := e.pruneMissing(root, paths); err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to Rust sources.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := qrt.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := qrt.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// pruneMissing deletes indexed files under root that are not in present.
func (e *Engine) pruneMissing(root string, present []string) error {
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	prefix := filepath.Clean(root) + string(filepath.Separator)
	for _, f := range files {
		if keep[f.Path] || !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if err := e.store.DeleteFile(f.ID); err != nil {
			return fmt.Errorf("prune %s: %w", f.Path, err)
		}
		e.logger.Info("removed", "path", f.Path)
	}
	return nil
}
