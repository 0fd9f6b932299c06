package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, hash, line_count, last_indexed) VALUES (?, ?, ?, ?)",
		f.Path, f.Hash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const fileCols = "id, path, hash, line_count, last_indexed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	if err := scanner.Scan(&f.ID, &f.Path, &f.Hash, &f.LineCount, &f.LastIndexed); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) FileByID(id int64) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Bridge operations ---

func (s *Store) InsertBridge(b *Bridge) (int64, error) {
	id, err := insertBridgeTx(s.db, b)
	if err != nil {
		return 0, fmt.Errorf("insert bridge: %w", err)
	}
	return id, nil
}

func (s *Store) BridgesByFile(fileID int64) ([]*Bridge, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, module, namespace, line FROM bridges WHERE file_id = ? ORDER BY line, id", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("bridges by file: %w", err)
	}
	defer rows.Close()
	var bridges []*Bridge
	for rows.Next() {
		b := &Bridge{}
		if err := rows.Scan(&b.ID, &b.FileID, &b.Module, &b.Namespace, &b.Line); err != nil {
			return nil, fmt.Errorf("scan bridge: %w", err)
		}
		bridges = append(bridges, b)
	}
	return bridges, rows.Err()
}

func (s *Store) BridgeByID(id int64) (*Bridge, error) {
	b := &Bridge{}
	err := s.db.QueryRow(
		"SELECT id, file_id, module, namespace, line FROM bridges WHERE id = ?", id,
	).Scan(&b.ID, &b.FileID, &b.Module, &b.Namespace, &b.Line)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bridge by id: %w", err)
	}
	return b, nil
}

// --- QObject operations ---

func (s *Store) InsertQObject(o *QObject) (int64, error) {
	id, err := insertQObjectTx(s.db, o)
	if err != nil {
		return 0, fmt.Errorf("insert qobject: %w", err)
	}
	return id, nil
}

// QObjectCols is the column list for qobject queries, exported for use by
// QueryBuilder.
const QObjectCols = "id, bridge_id, file_id, name, rust_struct, line, generated_hash"

// ScanQObjectRow scans a single row into a QObject.
func ScanQObjectRow(scanner interface{ Scan(...any) error }) (*QObject, error) {
	o := &QObject{}
	err := scanner.Scan(&o.ID, &o.BridgeID, &o.FileID, &o.Name, &o.RustStruct, &o.Line, &o.GeneratedHash)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) queryQObjects(query string, args ...any) ([]*QObject, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var objects []*QObject
	for rows.Next() {
		o, err := ScanQObjectRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan qobject: %w", err)
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// QObjects returns every object ordered by file and declaration line.
func (s *Store) QObjects() ([]*QObject, error) {
	return s.queryQObjects("SELECT " + QObjectCols + " FROM qobjects ORDER BY file_id, line, id")
}

func (s *Store) QObjectsByBridge(bridgeID int64) ([]*QObject, error) {
	return s.queryQObjects("SELECT "+QObjectCols+" FROM qobjects WHERE bridge_id = ? ORDER BY line, id", bridgeID)
}

func (s *Store) QObjectsByFile(fileID int64) ([]*QObject, error) {
	return s.queryQObjects("SELECT "+QObjectCols+" FROM qobjects WHERE file_id = ? ORDER BY line, id", fileID)
}

func (s *Store) QObjectsByName(name string) ([]*QObject, error) {
	return s.queryQObjects("SELECT "+QObjectCols+" FROM qobjects WHERE name = ? ORDER BY file_id, line", name)
}

func (s *Store) QObjectByID(id int64) (*QObject, error) {
	objs, err := s.queryQObjects("SELECT "+QObjectCols+" FROM qobjects WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, nil
	}
	return objs[0], nil
}

// --- Property operations ---

func (s *Store) InsertProperty(p *Property) (int64, error) {
	id, err := insertPropertyTx(s.db, p)
	if err != nil {
		return 0, fmt.Errorf("insert property: %w", err)
	}
	return id, nil
}

// PropertiesByQObject returns an object's properties in declaration order.
func (s *Store) PropertiesByQObject(qobjectID int64) ([]*Property, error) {
	rows, err := s.db.Query(
		"SELECT id, qobject_id, name, type_expr, ordinal, line FROM properties WHERE qobject_id = ? ORDER BY ordinal",
		qobjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("properties by qobject: %w", err)
	}
	defer rows.Close()
	var props []*Property
	for rows.Next() {
		p := &Property{}
		if err := rows.Scan(&p.ID, &p.QObjectID, &p.Name, &p.TypeExpr, &p.Ordinal, &p.Line); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

// --- Declared signal operations ---

func (s *Store) InsertDeclaredSignal(ds *DeclaredSignal) (int64, error) {
	id, err := insertDeclaredSignalTx(s.db, ds)
	if err != nil {
		return 0, fmt.Errorf("insert declared signal: %w", err)
	}
	return id, nil
}

// DeclaredSignalsByQObject returns an object's #[qsignal]s in declaration
// order.
func (s *Store) DeclaredSignalsByQObject(qobjectID int64) ([]*DeclaredSignal, error) {
	rows, err := s.db.Query(
		"SELECT id, qobject_id, name, cxx_name, params, ordinal, line FROM qsignals WHERE qobject_id = ? ORDER BY ordinal",
		qobjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("declared signals by qobject: %w", err)
	}
	defer rows.Close()
	var signals []*DeclaredSignal
	for rows.Next() {
		ds := &DeclaredSignal{}
		var params string
		if err := rows.Scan(&ds.ID, &ds.QObjectID, &ds.Name, &ds.CxxName, &params, &ds.Ordinal, &ds.Line); err != nil {
			return nil, fmt.Errorf("scan declared signal: %w", err)
		}
		ds.Params = unmarshalParams(params)
		signals = append(signals, ds)
	}
	return signals, rows.Err()
}

// --- Passthrough operations ---

func (s *Store) InsertPassthrough(p *PassthroughItem) (int64, error) {
	id, err := insertPassthroughTx(s.db, p)
	if err != nil {
		return 0, fmt.Errorf("insert passthrough: %w", err)
	}
	return id, nil
}

func (s *Store) PassthroughByBridge(bridgeID int64) ([]*PassthroughItem, error) {
	rows, err := s.db.Query(
		"SELECT id, bridge_id, ordinal, source FROM passthrough_items WHERE bridge_id = ? ORDER BY ordinal",
		bridgeID,
	)
	if err != nil {
		return nil, fmt.Errorf("passthrough by bridge: %w", err)
	}
	defer rows.Close()
	var items []*PassthroughItem
	for rows.Next() {
		p := &PassthroughItem{}
		if err := rows.Scan(&p.ID, &p.BridgeID, &p.Ordinal, &p.Source); err != nil {
			return nil, fmt.Errorf("scan passthrough: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// --- Shared insert statements, usable on *sql.DB and *sql.Tx ---

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertID(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertBridgeTx(x execer, b *Bridge) (int64, error) {
	id, err := insertID(x.Exec(
		"INSERT INTO bridges (file_id, module, namespace, line) VALUES (?, ?, ?, ?)",
		b.FileID, b.Module, b.Namespace, b.Line,
	))
	if err == nil {
		b.ID = id
	}
	return id, err
}

func insertQObjectTx(x execer, o *QObject) (int64, error) {
	id, err := insertID(x.Exec(
		"INSERT INTO qobjects (bridge_id, file_id, name, rust_struct, line, generated_hash) VALUES (?, ?, ?, ?, ?, ?)",
		o.BridgeID, o.FileID, o.Name, o.RustStruct, o.Line, o.GeneratedHash,
	))
	if err == nil {
		o.ID = id
	}
	return id, err
}

func insertPropertyTx(x execer, p *Property) (int64, error) {
	id, err := insertID(x.Exec(
		"INSERT INTO properties (qobject_id, name, type_expr, ordinal, line) VALUES (?, ?, ?, ?, ?)",
		p.QObjectID, p.Name, p.TypeExpr, p.Ordinal, p.Line,
	))
	if err == nil {
		p.ID = id
	}
	return id, err
}

func insertDeclaredSignalTx(x execer, ds *DeclaredSignal) (int64, error) {
	id, err := insertID(x.Exec(
		"INSERT INTO qsignals (qobject_id, name, cxx_name, params, ordinal, line) VALUES (?, ?, ?, ?, ?, ?)",
		ds.QObjectID, ds.Name, ds.CxxName, marshalParams(ds.Params), ds.Ordinal, ds.Line,
	))
	if err == nil {
		ds.ID = id
	}
	return id, err
}

func insertPassthroughTx(x execer, p *PassthroughItem) (int64, error) {
	id, err := insertID(x.Exec(
		"INSERT INTO passthrough_items (bridge_id, ordinal, source) VALUES (?, ?, ?)",
		p.BridgeID, p.Ordinal, p.Source,
	))
	if err == nil {
		p.ID = id
	}
	return id, err
}
