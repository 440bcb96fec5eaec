// internal/services/ai/compose-message/models.go
package composemessage

type Input struct {
	BusinessType  string `json:"businessType"`
	DetectedFocus string `json:"detectedFocus"`
	Transcript    string `json:"transcript"`
}

type Output struct {
	Message string `json:"message"`
}
