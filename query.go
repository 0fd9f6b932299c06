package qbridge

import (
	"fmt"

	"github.com/jward/qbridge/internal/store"
)

// QueryBuilder provides read access to extracted declarations and generated
// output.
type QueryBuilder struct {
	store *store.Store
}

// Properties returns an object's properties in declaration order.
func (q *QueryBuilder) Properties(qobjectID int64) ([]*Property, error) {
	props, err := q.store.PropertiesByQObject(qobjectID)
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}
	return props, nil
}

// DeclaredSignals returns the signals declared on an object with #[qsignal].
func (q *QueryBuilder) DeclaredSignals(qobjectID int64) ([]*DeclaredSignal, error) {
	signals, err := q.store.DeclaredSignalsByQObject(qobjectID)
	if err != nil {
		return nil, fmt.Errorf("declared signals: %w", err)
	}
	return signals, nil
}

// Signals returns the generated signal records of an object: one notify
// signal per property in declaration order, then the declared signals.
func (q *QueryBuilder) Signals(qobjectID int64) ([]*Signal, error) {
	signals, err := q.store.SignalsByQObject(qobjectID)
	if err != nil {
		return nil, fmt.Errorf("signals: %w", err)
	}
	return signals, nil
}

// Fragments returns an object's generated fragments of one section in
// emission order. An empty section returns both, bridge first.
func (q *QueryBuilder) Fragments(qobjectID int64, section string) ([]*Fragment, error) {
	switch section {
	case "", store.SectionBridge, store.SectionImplementation:
	default:
		return nil, fmt.Errorf("fragments: unknown section %q", section)
	}
	frags, err := q.store.FragmentsByQObject(qobjectID, section)
	if err != nil {
		return nil, fmt.Errorf("fragments: %w", err)
	}
	return frags, nil
}

// QObjectByName returns the objects declared with the given name, in file
// order. More than one means the name is declared in several bridges.
func (q *QueryBuilder) QObjectByName(name string) ([]*QObject, error) {
	objs, err := q.store.QObjectsByName(name)
	if err != nil {
		return nil, fmt.Errorf("qobject by name: %w", err)
	}
	return objs, nil
}
