package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractionSchema_Shape(t *testing.T) {
	s := ExtractionSchema()
	assert.Equal(t, "object", s["type"])
	assert.Equal(t, false, s["additionalProperties"])
	assert.ElementsMatch(t,
		[]any{"kpis", "revenueDistribution", "occupancyEvolution", "adrByCategory", "roomsSoldByCategory", "detailedData"},
		s["required"])

	props := s["properties"].(map[string]any)
	kpis := props["kpis"].(map[string]any)
	assert.ElementsMatch(t, []any{"totalRevenue", "occupancyRate", "averageDailyRate", "analysisPeriod"}, kpis["required"])

	rows := props["detailedData"].(map[string]any)
	assert.Equal(t, "array", rows["type"])
}

func TestExtractionSchema_FreshCopy(t *testing.T) {
	a := ExtractionSchema()
	a["properties"].(map[string]any)["kpis"] = "tampered"
	delete(a, "required")

	b := ExtractionSchema()
	assert.IsType(t, map[string]any{}, b["properties"].(map[string]any)["kpis"])
	assert.Contains(t, b, "required")
}

func TestValidateExtraction(t *testing.T) {
	require.NoError(t, ValidateExtraction([]byte(validReport)))
	assert.Error(t, ValidateExtraction([]byte(`{"kpis": {}}`)))
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"a"},
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
	}
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"a": 1}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"a": "x"}`)))
}
