package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/qbridge/internal/store"
)

// makeStoreInsertFunctions creates host functions that wrap DataStore insert
// methods. Risor scripts cannot construct Go struct pointers, so these
// functions accept Risor maps with primitive values and build the structs
// on the Go side.

func makeInsertBridgeFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_bridge", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_bridge", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_bridge: %v", err)
		}

		b := &store.Bridge{
			FileID:    getInt64(m, "file_id"),
			Module:    getString(m, "module"),
			Namespace: getString(m, "namespace"),
			Line:      getInt(m, "line"),
		}
		if b.Module == "" {
			return object.Errorf("insert_bridge: module is required")
		}

		id, insertErr := s.InsertBridge(b)
		if insertErr != nil {
			return object.Errorf("insert_bridge: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeInsertQObjectFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_qobject", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_qobject", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_qobject: %v", err)
		}

		o := &store.QObject{
			BridgeID:   getInt64(m, "bridge_id"),
			FileID:     getInt64(m, "file_id"),
			Name:       getString(m, "name"),
			RustStruct: getStringDefault(m, "rust_struct", getString(m, "name")+"Rust"),
			Line:       getInt(m, "line"),
		}
		if o.Name == "" {
			return object.Errorf("insert_qobject: name is required")
		}

		id, insertErr := s.InsertQObject(o)
		if insertErr != nil {
			return object.Errorf("insert_qobject: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeInsertPropertyFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_property", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_property", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_property: %v", err)
		}

		p := &store.Property{
			QObjectID: getInt64(m, "qobject_id"),
			Name:      getString(m, "name"),
			TypeExpr:  getString(m, "type_expr"),
			Ordinal:   getInt(m, "ordinal"),
			Line:      getInt(m, "line"),
		}
		if p.Name == "" || p.TypeExpr == "" {
			return object.Errorf("insert_property: name and type_expr are required")
		}

		id, insertErr := s.InsertProperty(p)
		if insertErr != nil {
			return object.Errorf("insert_property: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeInsertQSignalFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_qsignal", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_qsignal", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_qsignal: %v", err)
		}

		ds := &store.DeclaredSignal{
			QObjectID: getInt64(m, "qobject_id"),
			Name:      getString(m, "name"),
			CxxName:   getString(m, "cxx_name"),
			Ordinal:   getInt(m, "ordinal"),
			Line:      getInt(m, "line"),
		}
		if ds.Name == "" {
			return object.Errorf("insert_qsignal: name is required")
		}
		params, err := getParams(m, "params")
		if err != nil {
			return object.Errorf("insert_qsignal: %v", err)
		}
		ds.Params = params

		id, insertErr := s.InsertDeclaredSignal(ds)
		if insertErr != nil {
			return object.Errorf("insert_qsignal: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeInsertPassthroughFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_passthrough", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_passthrough", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_passthrough: %v", err)
		}

		p := &store.PassthroughItem{
			BridgeID: getInt64(m, "bridge_id"),
			Ordinal:  getInt(m, "ordinal"),
			Source:   getString(m, "source"),
		}

		id, insertErr := s.InsertPassthrough(p)
		if insertErr != nil {
			return object.Errorf("insert_passthrough: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeQObjectsByNameFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("qobjects_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("qobjects_by_name", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("qobjects_by_name: %v", err)
		}

		objs, queryErr := s.QObjectsByName(name)
		if queryErr != nil {
			return object.Errorf("qobjects_by_name: %v", queryErr)
		}
		return qobjectsToList(objs)
	})
}

// --- Map extraction helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	v := getString(m, key)
	if v == "" {
		return def
	}
	return v
}

func getInt(m map[string]object.Object, key string) int {
	return int(getInt64(m, key))
}

func getInt64(m map[string]object.Object, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return i.Value()
	}
	if f, ok := v.(*object.Float); ok {
		return int64(f.Value())
	}
	return 0
}

// getParams reads a list of {name, type} maps.
func getParams(m map[string]object.Object, key string) ([]store.SignalParam, error) {
	v, ok := m[key]
	if !ok || v == object.Nil {
		return nil, nil
	}
	list, ok := v.(*object.List)
	if !ok {
		return nil, fmt.Errorf("%s: expected list, got %s", key, v.Type())
	}
	var params []store.SignalParam
	for _, item := range list.Value() {
		pm, err := extractMap(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		params = append(params, store.SignalParam{
			Name:     getString(pm, "name"),
			TypeExpr: getString(pm, "type"),
		})
	}
	return params, nil
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// qobjectsToList converts a slice of store.QObject to a Risor list of maps.
func qobjectsToList(objs []*store.QObject) object.Object {
	var results []object.Object
	for _, o := range objs {
		results = append(results, object.NewMap(map[string]object.Object{
			"id":          object.NewInt(o.ID),
			"bridge_id":   object.NewInt(o.BridgeID),
			"file_id":     object.NewInt(o.FileID),
			"name":        object.NewString(o.Name),
			"rust_struct": object.NewString(o.RustStruct),
			"line":        object.NewInt(int64(o.Line)),
		}))
	}
	if results == nil {
		results = []object.Object{}
	}
	return object.NewList(results)
}
