package llm

// Required top-level fields. Everything else in the schema is requested from the provider
// but only these two are enforced as a hard invariant.
const (
	FieldKPIs         = "kpis"
	FieldDetailedData = "detailedData"
)

// CollectionFields lists the five record collections in schema order.
var CollectionFields = []string{
	"revenueDistribution",
	"occupancyEvolution",
	"adrByCategory",
	"roomsSoldByCategory",
	"detailedData",
}

// ExtractionSchema returns the JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass it to the provider as a structured output constraint and also use it locally to
// validate. A fresh map is built on each call so callers may not mutate a shared value.
func ExtractionSchema() map[string]any {
	kpis := objectProp(map[string]any{
		"totalRevenue":     stringProp("Total revenue formatted as a currency string, e.g., '€1,234,567.89'."),
		"occupancyRate":    stringProp("Overall occupancy rate as a percentage string, e.g., '85.2%'."),
		"averageDailyRate": stringProp("Average daily rate (ADR) formatted as a currency string, e.g., '€250.75'."),
		"analysisPeriod":   stringProp("The time period covered by the report, e.g., 'June 2024' or 'Q2 2024'."),
	}, "totalRevenue", "occupancyRate", "averageDailyRate", "analysisPeriod")

	props := map[string]any{
		FieldKPIs: kpis,
		"revenueDistribution": arrayOf(objectProp(map[string]any{
			"name":  stringProp("Source of revenue (e.g., 'Rooms', 'F&B', 'Spa')."),
			"value": numberProp("Revenue amount for this source."),
		}, "name", "value")),
		"occupancyEvolution": arrayOf(objectProp(map[string]any{
			"date": stringProp("Date or time point (e.g., 'Week 1', 'June 1')."),
			"rate": numberProp("Occupancy rate at that point (e.g., 75.5 for 75.5%)."),
		}, "date", "rate")),
		"adrByCategory": arrayOf(objectProp(map[string]any{
			"category": stringProp("Room category name (e.g., 'Standard Room', 'Suite')."),
			"adr":      numberProp("ADR for this category."),
		}, "category", "adr")),
		"roomsSoldByCategory": arrayOf(objectProp(map[string]any{
			"category":  stringProp("Room category name."),
			"roomsSold": numberProp("Number of rooms sold for this category."),
		}, "category", "roomsSold")),
		FieldDetailedData: arrayOf(objectProp(map[string]any{
			"category":  stringProp("Room category name."),
			"roomsSold": numberProp("Number of rooms sold."),
			"adr":       numberProp("Average Daily Rate for the category."),
			"revenue":   numberProp("Total revenue for the category."),
		}, "category", "roomsSold", "adr", "revenue")),
	}

	required := []any{FieldKPIs}
	for _, f := range CollectionFields {
		required = append(required, f)
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func numberProp(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func objectProp(props map[string]any, required ...string) map[string]any {
	req := make([]any, 0, len(required))
	for _, r := range required {
		req = append(req, r)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             req,
	}
}
