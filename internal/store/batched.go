package store

import "sync"

// BatchedStore buffers extraction inserts in memory using fake (negative)
// IDs. It implements DataStore so extraction scripts can write to it
// without knowing whether they're hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// QObjectsByName merges committed rows from the underlying Store, which is
// safe for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	// Buffered extraction data.
	Bridges         []Bridge
	QObjects        []QObject
	Properties      []Property
	DeclaredSignals []DeclaredSignal
	Passthrough     []PassthroughItem

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertBridge(br *Bridge) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	br.ID = fakeID
	b.Bridges = append(b.Bridges, *br)
	return fakeID, nil
}

func (b *BatchedStore) InsertQObject(o *QObject) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	o.ID = fakeID
	b.QObjects = append(b.QObjects, *o)
	return fakeID, nil
}

func (b *BatchedStore) InsertProperty(p *Property) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	p.ID = fakeID
	b.Properties = append(b.Properties, *p)
	return fakeID, nil
}

func (b *BatchedStore) InsertDeclaredSignal(ds *DeclaredSignal) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	ds.ID = fakeID
	b.DeclaredSignals = append(b.DeclaredSignals, *ds)
	return fakeID, nil
}

func (b *BatchedStore) InsertPassthrough(p *PassthroughItem) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	p.ID = fakeID
	b.Passthrough = append(b.Passthrough, *p)
	return fakeID, nil
}

// QObjectsByName returns committed objects with the given name followed by
// any buffered ones.
func (b *BatchedStore) QObjectsByName(name string) ([]*QObject, error) {
	objs, err := b.store.QObjectsByName(name)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.QObjects {
		if b.QObjects[i].Name == name {
			objs = append(objs, &b.QObjects[i])
		}
	}
	return objs, nil
}
