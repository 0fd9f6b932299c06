// Package fragment holds generated Rust source fragments. A Pair couples the
// declarations placed inside a bridge module with the implementation blocks
// that back them, so one is never emitted without the other.
package fragment

// Pair is the output unit of a property generator.
type Pair struct {
	Bridge         []string `json:"bridge" yaml:"bridge"`
	Implementation []string `json:"implementation" yaml:"implementation"`
}

// NewPair builds a Pair from one bridge declaration and the implementation
// blocks it relies on. At least one implementation block is required.
func NewPair(bridge string, impls ...string) Pair {
	if bridge == "" || len(impls) == 0 {
		panic("fragment: a bridge declaration needs at least one implementation")
	}
	return Pair{
		Bridge:         []string{bridge},
		Implementation: append([]string(nil), impls...),
	}
}

// Blocks accumulates fragments for one object in emission order.
type Blocks struct {
	Bridge         []string
	Implementation []string
}

// Append adds both halves of p.
func (b *Blocks) Append(p Pair) {
	b.Bridge = append(b.Bridge, p.Bridge...)
	b.Implementation = append(b.Implementation, p.Implementation...)
}

// AppendBridge adds declarations whose implementation lives on the C++
// side, such as signal declarations in an extern "C++" block.
func (b *Blocks) AppendBridge(decls ...string) {
	b.Bridge = append(b.Bridge, decls...)
}

// Len returns the total number of fragments.
func (b *Blocks) Len() int {
	return len(b.Bridge) + len(b.Implementation)
}
