package qbridge

import (
	"fmt"
	"strings"

	"github.com/jward/qbridge/internal/store"
)

// Pagination controls offset+limit paging on list results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByName          SortField = "name"
	SortByFile          SortField = "file"
	SortByPropertyCount SortField = "property_count"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T `json:"items" yaml:"items"`
	TotalCount int `json:"total_count" yaml:"total_count"` // before pagination
}

// QObjectResult extends QObject with the context a listing needs.
type QObjectResult struct {
	store.QObject
	FilePath      string
	Module        string
	Namespace     string
	PropertyCount int
	Generated     bool // output is stored for the current inputs
}

// QObjectFilter specifies which objects to include. All fields are
// optional.
type QObjectFilter struct {
	Name       *string // exact match
	Module     *string // bridge module name
	FileID     *int64
	PathPrefix *string // restrict to objects in files under this path
}

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE
// matching, so "src/ui" does not match "src/ui_old".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// escapeLike escapes the LIKE wildcards in s.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func qobjectSortColumn(field SortField) string {
	switch field {
	case SortByFile:
		return "f.path, o.line"
	case SortByPropertyCount:
		return "property_count"
	default:
		return "o.name"
	}
}

// sortDirection returns "ASC" or "DESC".
func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

// QObjects is the listing endpoint for declared objects.
func (q *QueryBuilder) QObjects(filter QObjectFilter, sort Sort, page Pagination) (*PagedResult[QObjectResult], error) {
	page = page.normalize()

	var where []string
	var args []any

	if filter.Name != nil {
		where = append(where, "o.name = ?")
		args = append(args, *filter.Name)
	}
	if filter.Module != nil {
		where = append(where, "b.module = ?")
		args = append(args, *filter.Module)
	}
	if filter.FileID != nil {
		where = append(where, "o.file_id = ?")
		args = append(args, *filter.FileID)
	}
	if filter.PathPrefix != nil {
		if prefix := normalizePathPrefix(*filter.PathPrefix); prefix != "" {
			where = append(where, "f.path LIKE ? ESCAPE '\\'")
			args = append(args, escapeLike(prefix)+"%")
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}
	from := ` FROM qobjects o
		 JOIN bridges b ON b.id = o.bridge_id
		 JOIN files f ON f.id = o.file_id `

	var totalCount int
	if err := q.store.DB().QueryRow("SELECT COUNT(*)"+from+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("qobjects: count: %w", err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT o.id, o.bridge_id, o.file_id, o.name, o.rust_struct, o.line, o.generated_hash,
			f.path, b.module, b.namespace,
			(SELECT COUNT(*) FROM properties p WHERE p.qobject_id = o.id) AS property_count
		 %s %s
		 ORDER BY %s %s, o.id
		 LIMIT ? OFFSET ?`,
		from, whereClause, qobjectSortColumn(sort.Field), sortDirection(sort.Order),
	)
	rows, err := q.store.DB().Query(dataSQL, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("qobjects: query: %w", err)
	}
	defer rows.Close()

	items := []QObjectResult{}
	for rows.Next() {
		var r QObjectResult
		o := &r.QObject
		if err := rows.Scan(&o.ID, &o.BridgeID, &o.FileID, &o.Name, &o.RustStruct, &o.Line, &o.GeneratedHash,
			&r.FilePath, &r.Module, &r.Namespace, &r.PropertyCount); err != nil {
			return nil, fmt.Errorf("qobjects: scan: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("qobjects: rows: %w", err)
	}

	for i := range items {
		if err := q.markGenerated(&items[i]); err != nil {
			return nil, err
		}
	}

	return &PagedResult[QObjectResult]{Items: items, TotalCount: totalCount}, nil
}

// markGenerated sets r.Generated when the stored output matches the
// object's current inputs.
func (q *QueryBuilder) markGenerated(r *QObjectResult) error {
	if r.GeneratedHash == "" {
		return nil
	}
	props, err := q.store.PropertiesByQObject(r.ID)
	if err != nil {
		return fmt.Errorf("qobjects: %w", err)
	}
	signals, err := q.store.DeclaredSignalsByQObject(r.ID)
	if err != nil {
		return fmt.Errorf("qobjects: %w", err)
	}
	br := &store.Bridge{Module: r.Module, Namespace: r.Namespace}
	r.Generated = store.ComputeSignatureHash(br, &r.QObject, props, signals) == r.GeneratedHash
	return nil
}

// Files lists indexed files, optionally restricted to a path prefix.
func (q *QueryBuilder) Files(pathPrefix string, page Pagination) (*PagedResult[store.File], error) {
	page = page.normalize()

	whereClause := ""
	var args []any
	if prefix := normalizePathPrefix(pathPrefix); prefix != "" {
		whereClause = "WHERE path LIKE ? ESCAPE '\\'"
		args = append(args, escapeLike(prefix)+"%")
	}

	var totalCount int
	if err := q.store.DB().QueryRow("SELECT COUNT(*) FROM files "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("files: count: %w", err)
	}

	rows, err := q.store.DB().Query(
		"SELECT id, path, hash, line_count, last_indexed FROM files "+whereClause+" ORDER BY path LIMIT ? OFFSET ?",
		append(args, page.Limit, page.Offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("files: query: %w", err)
	}
	defer rows.Close()

	items := []store.File{}
	for rows.Next() {
		var f store.File
		if err := rows.Scan(&f.ID, &f.Path, &f.Hash, &f.LineCount, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: rows: %w", err)
	}
	return &PagedResult[store.File]{Items: items, TotalCount: totalCount}, nil
}
