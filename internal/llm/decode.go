package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joseph-ayodele/hotel-reports/internal/entity"
)

var dataValidator = validator.New()

// DecodeOptions controls how strictly provider output is checked.
type DecodeOptions struct {
	Provider string
	// Strict rejects any schema violation. When false, non-conforming records are dropped
	// and remaining mismatches are logged, as long as kpis and detailedData are present.
	Strict bool
	Logger *slog.Logger
}

// DecodeHotelData turns the provider's text answer into HotelData. It returns the
// normalized JSON actually decoded alongside the data.
func DecodeHotelData(content []byte, opts DecodeOptions) (entity.HotelData, []byte, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc := StripCodeFence(content)
	if len(doc) == 0 {
		return entity.HotelData{}, nil, &ExtractionError{Provider: opts.Provider, Op: "parse_json", Err: ErrEmptyResponse}
	}
	if !json.Valid(doc) {
		return entity.HotelData{}, doc, &ExtractionError{Provider: opts.Provider, Op: "parse_json", Err: errors.New("response is not valid JSON")}
	}

	normalized, _, err := NormalizeHotelJSON(doc, logger)
	if err != nil {
		return entity.HotelData{}, doc, &ExtractionError{Provider: opts.Provider, Op: "parse_json", Err: err}
	}

	// The provider is asked for the schema but not trusted to follow it.
	if missing := MissingRequiredFields(normalized); len(missing) > 0 {
		return entity.HotelData{}, normalized, &ValidationError{Missing: missing}
	}
	// Leniency only ever applies to collection records; the KPI summary must be complete.
	if missing := MissingKPIFields(normalized); len(missing) > 0 {
		return entity.HotelData{}, normalized, &ValidationError{Missing: missing}
	}

	if err := ValidateExtraction(normalized); err != nil {
		if opts.Strict {
			return entity.HotelData{}, normalized, &ValidationError{Err: err}
		}
		cleaned, dropped, sErr := DropNonConformingRecords(normalized)
		if sErr != nil {
			return entity.HotelData{}, normalized, &ValidationError{Err: fmt.Errorf("lenient sanitize: %w", sErr)}
		}
		if vErr := ValidateExtraction(cleaned); vErr != nil {
			logger.Warn("llm.extract.schema_mismatch_accepted", "error", vErr, "dropped", dropped)
		} else {
			logger.Warn("llm.extract.lenient_sanitize_applied", "dropped", dropped)
		}
		normalized = cleaned
	}

	var out entity.HotelData
	if err := json.Unmarshal(normalized, &out); err != nil {
		return entity.HotelData{}, normalized, &ValidationError{Err: fmt.Errorf("unmarshal hotel data: %w", err)}
	}
	if err := dataValidator.Struct(out); err != nil {
		return entity.HotelData{}, normalized, &ValidationError{Missing: missingFromValidator(err), Err: err}
	}
	fillEmptyCollections(&out)
	return out, normalized, nil
}

// MissingRequiredFields reports which of kpis/detailedData are absent or null in doc.
// A doc that is not a JSON object is missing both.
func MissingRequiredFields(doc []byte) []string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(doc, &m); err != nil || m == nil {
		return []string{FieldKPIs, FieldDetailedData}
	}
	var missing []string
	for _, f := range []string{FieldKPIs, FieldDetailedData} {
		v, ok := m[f]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, f)
		}
	}
	return missing
}

// MissingKPIFields reports KPI fields of doc that are absent, not strings, or blank, as
// "kpis.<field>". A kpis value that is not an object is reported as "kpis".
func MissingKPIFields(doc []byte) []string {
	var m struct {
		KPIs json.RawMessage `json:"kpis"`
	}
	if err := json.Unmarshal(doc, &m); err != nil {
		return []string{FieldKPIs}
	}
	var kpis map[string]any
	if err := json.Unmarshal(m.KPIs, &kpis); err != nil || kpis == nil {
		return []string{FieldKPIs}
	}
	var missing []string
	for _, f := range kpiFields {
		if s, ok := kpis[f].(string); !ok || strings.TrimSpace(s) == "" {
			missing = append(missing, FieldKPIs+"."+f)
		}
	}
	return missing
}

// StripCodeFence removes a surrounding ```json fence some models add despite JSON mode.
func StripCodeFence(content []byte) []byte {
	s := strings.TrimSpace(string(content))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return []byte(s)
}

func missingFromValidator(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	var missing []string
	for _, fe := range verrs {
		if fe.Tag() != "required" {
			continue
		}
		switch fe.Field() {
		case "KPIs":
			missing = append(missing, FieldKPIs)
		case "DetailedData":
			missing = append(missing, FieldDetailedData)
		}
	}
	return missing
}

func fillEmptyCollections(d *entity.HotelData) {
	if d.RevenueDistribution == nil {
		d.RevenueDistribution = []entity.RevenueSource{}
	}
	if d.OccupancyEvolution == nil {
		d.OccupancyEvolution = []entity.OccupancyPoint{}
	}
	if d.ADRByCategory == nil {
		d.ADRByCategory = []entity.ADRByCategory{}
	}
	if d.RoomsSoldByCategory == nil {
		d.RoomsSoldByCategory = []entity.RoomsSold{}
	}
}
