package store

import (
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// (positive, AUTOINCREMENT) IDs, and all FK references within the batch
// are rewritten using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Bridges (depend on file_id only, which is already real)
//  2. QObjects (depend on bridge_id)
//  3. Properties (depend on qobject_id)
//  4. DeclaredSignals (depend on qobject_id)
//  5. Passthrough items (depend on bridge_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	remap := func(id int64, what string) (int64, error) {
		if id >= 0 {
			return id, nil
		}
		realID, ok := fakeToReal[id]
		if !ok {
			return 0, fmt.Errorf("%s references id=%d not in fakeToReal map", what, id)
		}
		return realID, nil
	}

	// 1. Bridges
	for _, br := range batch.Bridges {
		fakeID := br.ID
		realID, err := insertBridgeTx(tx, &br)
		if err != nil {
			return fmt.Errorf("commit batch: bridge %q: %w", br.Module, err)
		}
		fakeToReal[fakeID] = realID
	}

	// 2. QObjects
	for _, o := range batch.QObjects {
		fakeID := o.ID
		if o.BridgeID, err = remap(o.BridgeID, "qobject "+o.Name); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		realID, err := insertQObjectTx(tx, &o)
		if err != nil {
			return fmt.Errorf("commit batch: qobject %q: %w", o.Name, err)
		}
		fakeToReal[fakeID] = realID
	}

	// 3. Properties
	for _, p := range batch.Properties {
		fakeID := p.ID
		if p.QObjectID, err = remap(p.QObjectID, "property "+p.Name); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		realID, err := insertPropertyTx(tx, &p)
		if err != nil {
			return fmt.Errorf("commit batch: property %q: %w", p.Name, err)
		}
		fakeToReal[fakeID] = realID
	}

	// 4. DeclaredSignals
	for _, ds := range batch.DeclaredSignals {
		fakeID := ds.ID
		if ds.QObjectID, err = remap(ds.QObjectID, "signal "+ds.Name); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		realID, err := insertDeclaredSignalTx(tx, &ds)
		if err != nil {
			return fmt.Errorf("commit batch: signal %q: %w", ds.Name, err)
		}
		fakeToReal[fakeID] = realID
	}

	// 5. Passthrough items
	for _, p := range batch.Passthrough {
		fakeID := p.ID
		if p.BridgeID, err = remap(p.BridgeID, "passthrough item"); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		realID, err := insertPassthroughTx(tx, &p)
		if err != nil {
			return fmt.Errorf("commit batch: passthrough item %d: %w", p.Ordinal, err)
		}
		fakeToReal[fakeID] = realID
	}

	return tx.Commit()
}

// Generated is the full generation output for one object.
type Generated struct {
	QObjectID int64
	Hash      string
	Fragments []Fragment
	Signals   []Signal
}

// CommitGenerated replaces the stored output of every object in gens within
// a single transaction, so an object never has output from two runs.
func (s *Store) CommitGenerated(gens []*Generated) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit generated: begin: %w", err)
	}
	defer tx.Rollback()

	for _, g := range gens {
		for _, q := range []string{
			"DELETE FROM fragments WHERE qobject_id = ?",
			"DELETE FROM signals WHERE qobject_id = ?",
		} {
			if _, err := tx.Exec(q, g.QObjectID); err != nil {
				return fmt.Errorf("commit generated: clear qobject %d: %w", g.QObjectID, err)
			}
		}

		for i := range g.Fragments {
			f := &g.Fragments[i]
			f.QObjectID = g.QObjectID
			if _, err := insertFragmentTx(tx, f); err != nil {
				return fmt.Errorf("commit generated: fragment: %w", err)
			}
		}
		for i := range g.Signals {
			sig := &g.Signals[i]
			sig.QObjectID = g.QObjectID
			if _, err := insertSignalTx(tx, sig); err != nil {
				return fmt.Errorf("commit generated: signal %q: %w", sig.RustName, err)
			}
		}

		res, err := tx.Exec("UPDATE qobjects SET generated_hash = ? WHERE id = ?", g.Hash, g.QObjectID)
		if err != nil {
			return fmt.Errorf("commit generated: update hash: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("commit generated: qobject %d not found", g.QObjectID)
		}
	}

	return tx.Commit()
}
