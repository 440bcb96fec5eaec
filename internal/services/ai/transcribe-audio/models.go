// internal/services/ai/transcribe-audio/models.go
package transcribeaudio

import "strings"

type Input struct {
	Audio    []byte `json:"-"`
	MimeType string `json:"mimeType"`
}

type Output struct {
	Transcript string `json:"transcript"`
	Segments   int    `json:"segments"`
}

// Empty reports whether no speech was recognized.
func (o *Output) Empty() bool {
	return o == nil || strings.TrimSpace(o.Transcript) == ""
}
