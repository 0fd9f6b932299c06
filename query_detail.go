package qbridge

import (
	"fmt"

	"github.com/jward/qbridge/internal/naming"
	"github.com/jward/qbridge/internal/store"
)

// PropertyDetail is a property with the identifiers derived from it.
type PropertyDetail struct {
	store.Property
	Names naming.PropertyName
}

// QObjectDetail bundles an object with everything extracted and generated
// for it. One call replaces the separate Store lookups.
type QObjectDetail struct {
	QObject         QObjectResult
	Names           naming.ObjectName
	Properties      []PropertyDetail
	DeclaredSignals []*store.DeclaredSignal
	Signals         []*store.Signal
}

// QObjectDetail returns the detail of one object. Returns nil with no error
// if the object ID does not exist.
func (q *QueryBuilder) QObjectDetail(qobjectID int64) (*QObjectDetail, error) {
	obj, err := q.store.QObjectByID(qobjectID)
	if err != nil {
		return nil, fmt.Errorf("qobject detail: %w", err)
	}
	if obj == nil {
		return nil, nil
	}

	br, err := q.store.BridgeByID(obj.BridgeID)
	if err != nil {
		return nil, fmt.Errorf("qobject detail: bridge: %w", err)
	}
	f, err := q.store.FileByID(obj.FileID)
	if err != nil {
		return nil, fmt.Errorf("qobject detail: file: %w", err)
	}
	if br == nil || f == nil {
		return nil, fmt.Errorf("qobject detail: object %d has dangling references", qobjectID)
	}

	props, err := q.store.PropertiesByQObject(obj.ID)
	if err != nil {
		return nil, fmt.Errorf("qobject detail: properties: %w", err)
	}
	declared, err := q.store.DeclaredSignalsByQObject(obj.ID)
	if err != nil {
		return nil, fmt.Errorf("qobject detail: declared signals: %w", err)
	}
	signals, err := q.store.SignalsByQObject(obj.ID)
	if err != nil {
		return nil, fmt.Errorf("qobject detail: signals: %w", err)
	}

	detail := &QObjectDetail{
		QObject: QObjectResult{
			QObject:       *obj,
			FilePath:      f.Path,
			Module:        br.Module,
			Namespace:     br.Namespace,
			PropertyCount: len(props),
			Generated:     obj.GeneratedHash != "" && obj.GeneratedHash == store.ComputeSignatureHash(br, obj, props, declared),
		},
		Names:           naming.NewObjectName(obj.Name, obj.RustStruct),
		Properties:      make([]PropertyDetail, 0, len(props)),
		DeclaredSignals: declared,
		Signals:         signals,
	}
	for _, p := range props {
		detail.Properties = append(detail.Properties, PropertyDetail{Property: *p, Names: naming.NewPropertyName(p.Name)})
	}
	if detail.DeclaredSignals == nil {
		detail.DeclaredSignals = []*store.DeclaredSignal{}
	}
	if detail.Signals == nil {
		detail.Signals = []*store.Signal{}
	}
	return detail, nil
}
