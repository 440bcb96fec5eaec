// internal/services/ai/analyze-business/prompt.go
package analyzebusiness

import (
	"fmt"
	"strings"
)

func buildPrompt(transcript string, solutionIDs []string, minConfidence, maxConfidence int) string {
	options := strings.Join(solutionIDs, " | ")

	var parts []string
	parts = append(parts,
		"You are helping a small craft business get found online.",
		"Read how an artisan describes their own business, in their own words, and classify it.",
		"",
		"Business description:",
		fmt.Sprintf("\"\"\"\n%s\n\"\"\"", strings.TrimSpace(transcript)),
		"",
		"Respond with one JSON object in exactly this shape:",
		"{",
		`  "businessType": "the kind of craft business, e.g. Handmade Pottery",`,
		`  "detectedFocus": "the main products or focus, in a short phrase",`,
		`  "topProblems": ["the most pressing problems the artisan mentions or implies"],`,
		`  "recommendedSolutions": {`,
		fmt.Sprintf(`    "primary": { "id": "%s", "reason": "why this helps most" },`, options),
		fmt.Sprintf(`    "secondary": { "id": "%s", "reason": "why this helps next" }`, options),
		`  },`,
		fmt.Sprintf(`  "confidence": an integer from %d to %d`, minConfidence, maxConfidence),
		"}",
		"",
		"Rules:",
		fmt.Sprintf("- primary and secondary ids must each be one of: %s, and must differ.", strings.Join(solutionIDs, ", ")),
		"- confidence is a bare JSON number, not a string.",
		"- Return only the JSON object. No markdown, no commentary.",
	)

	return strings.Join(parts, "\n")
}

// stripCodeFences removes markdown fences models sometimes wrap JSON in.
func stripCodeFences(text string) string {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
