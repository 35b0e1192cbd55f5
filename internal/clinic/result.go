// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package clinic

import "encoding/json"

// Result is the canonical outcome of every tool operation. Data is
// tool-specific: an object for most tools, a list for get_services, and nil
// whenever OK is false. Domain-expected failures (no matching appointment,
// unknown patient) are OK:false results, not errors; errors are reserved for
// infrastructure faults such as an unavailable store.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Failure builds an OK:false result with nil data.
func Failure(message string) Result {
	return Result{OK: false, Message: message, Data: nil}
}

// Success builds an OK:true result.
func Success(message string, data any) Result {
	return Result{OK: true, Message: message, Data: data}
}

// DataField returns the named field of an object-shaped Data payload as a
// string, or "" when absent. Numeric values are not converted; confirmation
// tokens are always stored as strings.
func (r Result) DataField(name string) string {
	obj, ok := r.Data.(map[string]any)
	if !ok {
		return ""
	}
	v, ok := obj[name].(string)
	if !ok {
		return ""
	}
	return v
}

// Encode renders the result as compact JSON for transcript notices.
func (r Result) Encode() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return `{"ok":false,"message":"unencodable result","data":null}`
	}
	return string(raw)
}
