// pkg/registry/schema.go
package registry

// SolutionCatalog lists the digital solutions a business can be steered towards.
type SolutionCatalog struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Solutions   []Solution `json:"solutions"`
}

type Solution struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Icon        string   `json:"icon"`
	Description string   `json:"description"`
	Route       string   `json:"route"`
	Available   bool     `json:"available"`
	Tags        []string `json:"tags"`
}
