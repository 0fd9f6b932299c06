package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeSignatureHash computes a deterministic hash over everything that
// feeds generation for one object: its bridge module and namespace, its
// names, its properties in declaration order and its declared signals.
// Line numbers do NOT affect the hash.
func ComputeSignatureHash(
	bridge *Bridge,
	obj *QObject,
	props []*Property,
	signals []*DeclaredSignal,
) string {
	h := sha256.New()

	// Core identity.
	fmt.Fprintf(h, "module:%s\n", bridge.Module)
	fmt.Fprintf(h, "namespace:%s\n", bridge.Namespace)
	fmt.Fprintf(h, "qobject:%s:%s\n", obj.Name, obj.RustStruct)

	// Properties: sorted by ordinal.
	pkeys := make([]*Property, len(props))
	copy(pkeys, props)
	sort.SliceStable(pkeys, func(i, j int) bool {
		return pkeys[i].Ordinal < pkeys[j].Ordinal
	})
	for _, p := range pkeys {
		fmt.Fprintf(h, "property:%d:%s:%s\n", p.Ordinal, p.Name, p.TypeExpr)
	}

	// Declared signals: sorted by ordinal.
	skeys := make([]*DeclaredSignal, len(signals))
	copy(skeys, signals)
	sort.SliceStable(skeys, func(i, j int) bool {
		return skeys[i].Ordinal < skeys[j].Ordinal
	})
	for _, s := range skeys {
		fmt.Fprintf(h, "signal:%d:%s:%s\n", s.Ordinal, s.Name, s.CxxName)
		for _, p := range s.Params {
			fmt.Fprintf(h, "param:%s:%s\n", p.Name, p.TypeExpr)
		}
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
