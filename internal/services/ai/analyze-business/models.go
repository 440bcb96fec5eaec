// internal/services/ai/analyze-business/models.go
package analyzebusiness

import (
	"fmt"
	"strings"

	"craftconnect/internal/models"
)

type Input struct {
	Transcript string `json:"transcript"`
}

type Output struct {
	Analysis models.BusinessAnalysis `json:"analysis"`
}

// ParseError reports model output that is not a conforming analysis document.
type ParseError struct {
	Reason     string
	Violations []string
	Raw        string
}

func (e *ParseError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("%s: %s", ErrAnalysisParseFailed, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrAnalysisParseFailed, e.Reason, strings.Join(e.Violations, "; "))
}

func (e *ParseError) Unwrap() error {
	return ErrAnalysisParseFailed
}
