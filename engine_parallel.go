package qbridge

import (
	"context"
	"fmt"
	"sync"

	qrt "github.com/jward/qbridge/internal/runtime"
	"github.com/jward/qbridge/internal/store"
)

// workItem holds everything a parallel extraction worker needs.
type workItem struct {
	path   string
	lang   string
	fileID int64
	batch  *store.BatchedStore
}

// IndexFilesParallel indexes files using a three-phase parallel pipeline:
//
//	Phase A (serial):  Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse and extract via worker pool (each with own Runtime).
//	Phase C (serial):  Commit batches to SQLite.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", path, err)
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := max(min(e.parallelism, len(items)), 1)

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				err := e.extractFile(ctx, item)
				resultCh <- result{item: item, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", res.item.path, res.err))
			e.forget(res.item)
			continue
		}
		if err := e.store.CommitBatch(res.item.batch); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			e.forget(res.item)
			continue
		}
		e.logger.Debug("indexed", "path", res.item.path,
			"qobjects", len(res.item.batch.QObjects),
			"properties", len(res.item.batch.Properties))
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// extractFile runs the extraction script for a single file using its
// BatchedStore. Each call creates its own Runtime so tree-sitter parsing is
// goroutine-safe.
func (e *Engine) extractFile(ctx context.Context, item workItem) error {
	rt := e.newRuntime(item.batch)
	extras := map[string]any{
		"file_path": item.path,
		"file_id":   item.fileID,
	}
	if err := rt.RunScript(ctx, qrt.ExtractionScriptPath(item.lang), extras); err != nil {
		return fmt.Errorf("extraction script: %w", err)
	}
	return nil
}

// forget drops the file record of a failed item so the next run retries it.
func (e *Engine) forget(item workItem) {
	if err := e.store.DeleteFile(item.fileID); err != nil {
		e.logger.Warn("drop failed file", "path", item.path, "error", err)
	}
}
