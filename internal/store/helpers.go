package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// marshalParams converts signal parameters to JSON text for storage.
func marshalParams(params []SignalParam) string {
	if len(params) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(params)
	return string(b)
}

// unmarshalParams converts JSON text back to signal parameters.
func unmarshalParams(s string) []SignalParam {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var params []SignalParam
	_ = json.Unmarshal([]byte(s), &params)
	return params
}
