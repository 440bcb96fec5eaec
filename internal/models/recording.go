// internal/models/recording.go
package models

import "time"

// AudioRecording is a finished capture ready for upload.
type AudioRecording struct {
	Data            []byte  `json:"data"`
	MimeType        string  `json:"mimeType"`
	DurationSeconds float64 `json:"duration"`
}

func (r *AudioRecording) Duration() time.Duration {
	return time.Duration(r.DurationSeconds * float64(time.Second))
}

func (r *AudioRecording) Size() int {
	return len(r.Data)
}
