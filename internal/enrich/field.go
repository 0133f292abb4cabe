// Package enrich flattens the serialized record cells embedded in catalog
// tables (genre, keyword and cast lists) into plain comma-separated text.
package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseNames extracts the "name" value from each record of a serialized list
// cell such as `[{'id': 28, 'name': 'Action'}, ...]` and joins the values
// with ", ". maxItems caps the number of records taken; 0 means no cap.
//
// The cell uses the upstream catalog's single-quote convention, which is
// normalized before decoding. Empty input, malformed serialization, or a
// top-level value that is not a list all yield an empty string. One corrupt
// cell must never abort processing of its batch.
func ParseNames(cell string, maxItems int) string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return ""
	}

	normalized := strings.ReplaceAll(cell, "'", `"`)

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(normalized), &records); err != nil {
		return ""
	}

	// The cap counts records, not extracted names: a record with a missing
	// or blank name still consumes a slot.
	values := make([]string, 0, len(records))
	taken := 0
	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			// Non-record elements are skipped, not fatal.
			continue
		}
		taken++
		if v, ok := obj["name"]; ok && v != nil {
			if name := strings.TrimSpace(fmt.Sprint(v)); name != "" {
				values = append(values, name)
			}
		}
		if maxItems > 0 && taken == maxItems {
			break
		}
	}

	return strings.Join(values, ", ")
}
