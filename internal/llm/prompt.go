package llm

import (
	"strings"
)

// BuildSystemPrompt composes the analyst instructions sent with every document.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an expert hotel data analyst.",
		"Analyze the provided PDF document which contains hotel performance statistics.",
		"Extract the key data points and return them as a JSON object that strictly adheres to the provided schema.",
		"The data includes total revenue, occupancy rate, average daily rate (ADR), the analysis period, " +
			"a breakdown of revenue by source, occupancy evolution over time, ADR by room category, and a detailed table of room sales.",
		"Calculate totals and averages where necessary if they are not explicitly stated in the document.",
		"Double-check all calculations, such as revenue totals and averages, to ensure their accuracy.",

		// formatting hygiene:
		"Represent all monetary values and counts in the collections as plain JSON numbers (no currency symbols or thousands separators).",
		"Format the KPI strings clearly and professionally, including currency symbols and percent signs.",
		"If a collection has no data in the document, return an empty array. Never output null.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the filename hint for the attached document.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if name := strings.TrimSpace(req.FileName); name != "" {
		b.WriteString("Filename: ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("The report is attached. Return ONLY JSON that matches the provided schema.")
	return b.String()
}
