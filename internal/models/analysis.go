// internal/models/analysis.go
package models

// Recommendation is one suggested solution with the model's reasoning.
type Recommendation struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type RecommendedSolutions struct {
	Primary   Recommendation `json:"primary"`
	Secondary Recommendation `json:"secondary"`
}

// BusinessAnalysis is the structured reading of an artisan's spoken description.
type BusinessAnalysis struct {
	BusinessType         string               `json:"businessType"`
	DetectedFocus        string               `json:"detectedFocus"`
	TopProblems          []string             `json:"topProblems"`
	RecommendedSolutions RecommendedSolutions `json:"recommendedSolutions"`
	Confidence           int                  `json:"confidence"`
}

// SolutionIDs returns the primary and secondary recommendation ids in order.
func (a BusinessAnalysis) SolutionIDs() []string {
	return []string{a.RecommendedSolutions.Primary.ID, a.RecommendedSolutions.Secondary.ID}
}
