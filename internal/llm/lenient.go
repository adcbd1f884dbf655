package llm

import (
	"encoding/json"
	"fmt"
)

// DropNonConformingRecords removes collection items that don't meet the record shape
// (not an object, missing a field, wrong type) so the overall document can still validate.
// We only touch items inside collections; kpis and the collections themselves are left alone.
func DropNonConformingRecords(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	var dropped []string
	for name, fields := range recordFields {
		items, ok := m[name].([]any)
		if !ok {
			continue
		}
		kept := make([]any, 0, len(items))
		for i, item := range items {
			if conforms(item, fields) {
				kept = append(kept, item)
				continue
			}
			dropped = append(dropped, fmt.Sprintf("%s[%d]", name, i))
		}
		m[name] = kept
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}

func conforms(item any, fields map[string]fieldKind) bool {
	rec, ok := item.(map[string]any)
	if !ok {
		return false
	}
	for k, kind := range fields {
		v, present := rec[k]
		if !present {
			return false
		}
		switch kind {
		case kindString:
			if _, ok := v.(string); !ok {
				return false
			}
		case kindNumber:
			if _, ok := v.(float64); !ok {
				return false
			}
		}
	}
	return true
}
