// internal/models/api.go
package models

// AnalyzeResponse is returned by POST /api/analyze-business.
type AnalyzeResponse struct {
	Success    bool             `json:"success"`
	Transcript string           `json:"transcript"`
	Analysis   BusinessAnalysis `json:"analysis"`
}

// MessageRequest is accepted by POST /api/generate-whatsapp-message.
type MessageRequest struct {
	BusinessType  string `json:"businessType"`
	DetectedFocus string `json:"detectedFocus"`
	Transcript    string `json:"transcript"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status      string       `json:"status"`
	Timestamp   string       `json:"timestamp"`
	Uptime      float64      `json:"uptime"`
	Environment string       `json:"environment"`
	Version     string       `json:"version,omitempty"`
	Services    ServiceFlags `json:"services"`
}

// ServiceFlags report configuration presence, not live reachability.
type ServiceFlags struct {
	Speech   bool `json:"speech"`
	VertexAI bool `json:"vertexai"`
	Vision   bool `json:"vision"`
}

type UsageStatsResponse struct {
	Success                 bool    `json:"success"`
	TotalCost               float64 `json:"totalCost"`
	BudgetLimit             float64 `json:"budgetLimit"`
	RequestsToday           int64   `json:"requestsToday"`
	EstimatedCostPerRequest float64 `json:"estimatedCostPerRequest"`
}
