package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
)

// recordFields mirrors the item shape of each collection in ExtractionSchema.
var recordFields = map[string]map[string]fieldKind{
	"revenueDistribution": {"name": kindString, "value": kindNumber},
	"occupancyEvolution":  {"date": kindString, "rate": kindNumber},
	"adrByCategory":       {"category": kindString, "adr": kindNumber},
	"roomsSoldByCategory": {"category": kindString, "roomsSold": kindNumber},
	"detailedData":        {"category": kindString, "roomsSold": kindNumber, "adr": kindNumber, "revenue": kindNumber},
}

var kpiFields = []string{"totalRevenue", "occupancyRate", "averageDailyRate", "analysisPeriod"}

// reNumberNoise matches everything that is not a digit, separator or minus sign.
var reNumberNoise = regexp.MustCompile(`[^0-9.,\-]`)

// NormalizeHotelJSON
// - Removes unknown keys at every level (strict additionalProperties = false friendliness)
// - Coerces numeric strings ("€1,234.50", "85%") to numbers inside the collections
// - Coerces numbers to strings for KPI and label fields
// - Replaces null optional collections with empty arrays
// It never fills in kpis or detailedData: a missing required field must stay missing.
func NormalizeHotelJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: top-level value is not an object")
	}

	changed := make([]string, 0, 8)

	// 1) remove unknown top-level keys
	for k := range maps.Clone(m) {
		if k == FieldKPIs {
			continue
		}
		if _, ok := recordFields[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	// 2) kpis: strings only
	if kpis, ok := m[FieldKPIs].(map[string]any); ok {
		allowed := make(map[string]struct{}, len(kpiFields))
		for _, f := range kpiFields {
			allowed[f] = struct{}{}
		}
		for k, v := range maps.Clone(kpis) {
			if _, ok := allowed[k]; !ok {
				delete(kpis, k)
				changed = append(changed, "kpis."+k+"(unknown)")
				continue
			}
			if s, ok := coerceString(v); ok {
				if s != v {
					changed = append(changed, "kpis."+k)
				}
				kpis[k] = s
			}
		}
	}

	// 3) collections
	for name, fields := range recordFields {
		v, present := m[name]
		if !present {
			continue
		}
		if v == nil {
			if name == FieldDetailedData {
				continue
			}
			m[name] = []any{}
			changed = append(changed, name+"(null)")
			continue
		}
		items, ok := v.([]any)
		if !ok {
			continue
		}
		for i, item := range items {
			rec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for k, fv := range maps.Clone(rec) {
				kind, known := fields[k]
				if !known {
					delete(rec, k)
					changed = append(changed, fmt.Sprintf("%s[%d].%s(unknown)", name, i, k))
					continue
				}
				switch kind {
				case kindNumber:
					if s, isStr := fv.(string); isStr {
						if n, ok := parseNumber(s); ok {
							rec[k] = n
							changed = append(changed, fmt.Sprintf("%s[%d].%s", name, i, k))
						}
					}
				case kindString:
					if _, isStr := fv.(string); !isStr {
						if s, ok := coerceString(fv); ok {
							rec[k] = s
							changed = append(changed, fmt.Sprintf("%s[%d].%s", name, i, k))
						}
					} else {
						rec[k] = strings.TrimSpace(fv.(string))
					}
				}
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "changed", changed)
	}
	return out, changed, nil
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// parseNumber accepts "1,234.50", "€ 250.75", "85.2%", "1.234,50" and accounting
// negatives such as "(1,200.00)". When both separators appear the last one is the decimal
// point. A lone separator followed by exactly three digits ("1.234", "12,345") is read as
// a thousands separator for commas and refused for dots, since "€1.234" may be either.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')'); open >= 0 && end > open {
		neg = true
		s = s[:open] + s[open+1:end] + s[end+1:]
	}
	s = reNumberNoise.ReplaceAllString(s, "")
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if s == "" || strings.Contains(s, "-") {
		return 0, false
	}

	lastComma, lastDot := strings.LastIndexByte(s, ','), strings.LastIndexByte(s, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s[:lastComma], ".", "") + "." + s[lastComma+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		groups := strings.Split(s, ",")
		switch {
		case thousandGroups(groups):
			s = strings.Join(groups, "")
		case len(groups) == 2:
			s = groups[0] + "." + groups[1]
		default:
			return 0, false
		}
	case lastDot >= 0:
		groups := strings.Split(s, ".")
		switch {
		case len(groups) > 2 && thousandGroups(groups):
			s = strings.Join(groups, "")
		case len(groups) > 2:
			return 0, false
		case len(groups[1]) == 3 && groups[0] != "" && strings.TrimLeft(groups[0], "0") != "":
			return 0, false
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// thousandGroups reports whether groups look like "1", "234", "567": a 1-3 digit lead
// followed only by 3-digit groups.
func thousandGroups(groups []string) bool {
	if len(groups) < 2 || len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
