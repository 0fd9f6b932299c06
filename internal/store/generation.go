package store

import (
	"database/sql"
	"fmt"
)

// --- Fragment operations ---

func insertFragmentTx(x execer, f *Fragment) (int64, error) {
	id, err := insertID(x.Exec(
		"INSERT INTO fragments (qobject_id, property_id, section, ordinal, source) VALUES (?, ?, ?, ?, ?)",
		f.QObjectID, f.PropertyID, f.Section, f.Ordinal, f.Source,
	))
	if err == nil {
		f.ID = id
	}
	return id, err
}

const fragmentCols = "id, qobject_id, property_id, section, ordinal, source"

func (s *Store) queryFragments(query string, args ...any) ([]*Fragment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()
	var frags []*Fragment
	for rows.Next() {
		f := &Fragment{}
		var propID sql.NullInt64
		if err := rows.Scan(&f.ID, &f.QObjectID, &propID, &f.Section, &f.Ordinal, &f.Source); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		if propID.Valid {
			f.PropertyID = &propID.Int64
		}
		frags = append(frags, f)
	}
	return frags, rows.Err()
}

// FragmentsByQObject returns an object's fragments in emission order. An
// empty section returns both sections.
func (s *Store) FragmentsByQObject(qobjectID int64, section string) ([]*Fragment, error) {
	if section == "" {
		return s.queryFragments(
			"SELECT "+fragmentCols+" FROM fragments WHERE qobject_id = ? ORDER BY section, ordinal", qobjectID,
		)
	}
	return s.queryFragments(
		"SELECT "+fragmentCols+" FROM fragments WHERE qobject_id = ? AND section = ? ORDER BY ordinal",
		qobjectID, section,
	)
}

// FragmentsByQObjects returns the fragments of one section for several
// objects, grouped by object in the order of ids.
func (s *Store) FragmentsByQObjects(ids []int64, section string) ([]*Fragment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	frags, err := s.queryFragments(
		"SELECT "+fragmentCols+" FROM fragments WHERE section = ? AND qobject_id IN ("+placeholderList(len(ids))+") ORDER BY ordinal",
		append([]any{section}, int64sToArgs(ids)...)...,
	)
	if err != nil {
		return nil, err
	}
	byObject := make(map[int64][]*Fragment, len(ids))
	for _, f := range frags {
		byObject[f.QObjectID] = append(byObject[f.QObjectID], f)
	}
	out := make([]*Fragment, 0, len(frags))
	for _, id := range ids {
		out = append(out, byObject[id]...)
	}
	return out, nil
}

// --- Signal operations ---

func insertSignalTx(x execer, sig *Signal) (int64, error) {
	id, err := insertID(x.Exec(
		`INSERT INTO signals (qobject_id, property_id, rust_name, cpp_name, origin, declaration, ordinal)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sig.QObjectID, sig.PropertyID, sig.RustName, sig.CppName, sig.Origin, sig.Declaration, sig.Ordinal,
	))
	if err == nil {
		sig.ID = id
	}
	return id, err
}

// SignalsByQObject returns the generated signal records of an object in
// emission order.
func (s *Store) SignalsByQObject(qobjectID int64) ([]*Signal, error) {
	rows, err := s.db.Query(
		`SELECT id, qobject_id, property_id, rust_name, cpp_name, origin, declaration, ordinal
		 FROM signals WHERE qobject_id = ? ORDER BY ordinal`, qobjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("signals by qobject: %w", err)
	}
	defer rows.Close()
	var signals []*Signal
	for rows.Next() {
		sig := &Signal{}
		var propID sql.NullInt64
		if err := rows.Scan(&sig.ID, &sig.QObjectID, &propID, &sig.RustName, &sig.CppName,
			&sig.Origin, &sig.Declaration, &sig.Ordinal); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if propID.Valid {
			sig.PropertyID = &propID.Int64
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// QObjectsInFiles returns the objects declared in any of the given files.
func (s *Store) QObjectsInFiles(fileIDs []int64) ([]*QObject, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	return s.queryQObjects(
		"SELECT "+QObjectCols+" FROM qobjects WHERE file_id IN ("+placeholderList(len(fileIDs))+") ORDER BY file_id, line, id",
		int64sToArgs(fileIDs)...,
	)
}
