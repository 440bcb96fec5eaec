// internal/services/ai/analyze-business/schema.go
package analyzebusiness

func analysisSchema(solutionIDs []string, minConfidence, maxConfidence int) map[string]interface{} {
	ids := make([]interface{}, len(solutionIDs))
	for i, id := range solutionIDs {
		ids[i] = id
	}

	recommendation := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"id", "reason"},
		"properties": map[string]interface{}{
			"id":     map[string]interface{}{"type": "string", "enum": ids},
			"reason": map[string]interface{}{"type": "string", "minLength": 1},
		},
	}

	return map[string]interface{}{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []interface{}{"businessType", "detectedFocus", "topProblems", "recommendedSolutions", "confidence"},
		"properties": map[string]interface{}{
			"businessType":  map[string]interface{}{"type": "string", "minLength": 1},
			"detectedFocus": map[string]interface{}{"type": "string"},
			"topProblems": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"recommendedSolutions": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"primary", "secondary"},
				"properties": map[string]interface{}{
					"primary":   recommendation,
					"secondary": recommendation,
				},
			},
			"confidence": map[string]interface{}{
				"type":    "integer",
				"minimum": minConfidence,
				"maximum": maxConfidence,
			},
		},
	}
}
