// Package qbridge generates the cxx bridge code behind Qt properties declared
// in #[cxx_qt::bridge] modules. It indexes Rust sources into SQLite with
// tree-sitter and Risor, then runs the property generators over the
// extracted declarations.
//
// # Pipeline
//
// qbridge operates in two phases:
//
//  1. Extract: For each Rust source file, parse with tree-sitter and run the
//     Risor extraction script, which writes every #[cxx_qt::bridge] module,
//     its #[qobject] types, their #[qproperty] and #[qsignal] declarations and
//     the remaining extern blocks to SQLite.
//
//  2. Generate: For each QObject whose declarations changed, derive the
//     property identifiers, qualify the property types for use outside the
//     bridge, and emit the getter, setter and notify signal fragments. The
//     output of an object is replaced atomically.
//
// # Usage
//
//	e, err := qbridge.New("qbridge.db", "")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/crate")
//	stats, err := e.Generate(ctx)
//
//	src, err := e.Query().BridgeSource("path/to/crate/src/lib.rs")
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] reads extracted and
// generated data:
//
//   - [QueryBuilder.QObjects] lists objects with filtering and paging.
//   - [QueryBuilder.QObjectDetail] bundles an object with its properties,
//     derived names and signals.
//   - [QueryBuilder.Fragments] and [QueryBuilder.Signals] return the stored
//     output of one object.
//   - [QueryBuilder.BridgeSource] assembles the generated module of a file.
//
// # Incremental Generation
//
// [Engine.IndexFiles] skips files whose content hash is unchanged. Each
// object's stored output carries a hash of the declarations it was
// generated from, and [Engine.Generate] skips objects whose hash still
// matches. [WithForce] disables the skip.
//
// # Scripts
//
// Extraction logic lives in scripts/extract/rust.risor, embedded into the
// binary. Pass a scripts directory to [New] or use [WithScriptsFS] to
// override it. See the internal/runtime package for the globals exposed to
// scripts.
package qbridge
