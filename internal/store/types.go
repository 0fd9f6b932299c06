package store

import "time"

// Extraction domain types

type File struct {
	ID          int64
	Path        string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Bridge is one #[cxx_qt::bridge] module.
type Bridge struct {
	ID        int64
	FileID    int64
	Module    string
	Namespace string
	Line      int
}

type QObject struct {
	ID            int64
	BridgeID      int64
	FileID        int64
	Name          string
	RustStruct    string
	Line          int
	GeneratedHash string // signature hash of the inputs behind the stored output
}

type Property struct {
	ID        int64
	QObjectID int64
	Name      string
	TypeExpr  string
	Ordinal   int
	Line      int
}

// SignalParam is one non-receiver parameter of a declared signal.
type SignalParam struct {
	Name     string `json:"name"`
	TypeExpr string `json:"type"`
}

// DeclaredSignal is a #[qsignal] declared on a QObject.
type DeclaredSignal struct {
	ID        int64
	QObjectID int64
	Name      string
	CxxName   string
	Params    []SignalParam
	Ordinal   int
	Line      int
}

// PassthroughItem is a bridge item copied verbatim into the output, such as
// an extern "C++" block declaring other types.
type PassthroughItem struct {
	ID       int64
	BridgeID int64
	Ordinal  int
	Source   string
}

// Generation domain types

// Signal is a signal record produced by generation.
type Signal struct {
	ID          int64
	QObjectID   int64
	PropertyID  *int64
	RustName    string
	CppName     string
	Origin      string
	Declaration string
	Ordinal     int
}

// Fragment sections.
const (
	SectionBridge         = "bridge"
	SectionImplementation = "implementation"
)

// Fragment is one generated block of Rust source.
type Fragment struct {
	ID         int64
	QObjectID  int64
	PropertyID *int64
	Section    string
	Ordinal    int
	Source     string
}
