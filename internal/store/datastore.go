package store

// DataStore is the interface for extraction-phase data access. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// extraction) implement this interface.
type DataStore interface {
	// Extraction inserts. Each returns the assigned ID.
	InsertBridge(b *Bridge) (int64, error)
	InsertQObject(o *QObject) (int64, error)
	InsertProperty(p *Property) (int64, error)
	InsertDeclaredSignal(ds *DeclaredSignal) (int64, error)
	InsertPassthrough(p *PassthroughItem) (int64, error)

	// QObjectsByName lets extraction scripts detect objects declared twice.
	QObjectsByName(name string) ([]*QObject, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
