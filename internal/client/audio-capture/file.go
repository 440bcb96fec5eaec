package audiocapture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/youpy/go-wav"

	"craftconnect/internal/models"
)

var ErrUnknownDuration = errors.New("UNKNOWN_DURATION")

var extensionMimeTypes = map[string]string{
	".webm": "audio/webm",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
}

// FromFile loads an existing recording. WAV durations come from the header;
// other formats need an explicit duration.
func FromFile(path, mimeType string, duration time.Duration) (*models.AudioRecording, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if mimeType == "" {
		mimeType = extensionMimeTypes[ext]
	}
	if mimeType == "" {
		return nil, fmt.Errorf("cannot infer audio type of %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyRecording
	}

	if duration <= 0 && ext == ".wav" {
		duration, err = wavDuration(path)
		if err != nil {
			return nil, err
		}
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDuration, filepath.Base(path))
	}

	return &models.AudioRecording{
		Data:            data,
		MimeType:        mimeType,
		DurationSeconds: duration.Seconds(),
	}, nil
}

func wavDuration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := wav.NewReader(file)
	if _, err := reader.Format(); err != nil {
		return 0, fmt.Errorf("invalid wav header: %w", err)
	}
	d, err := reader.Duration()
	if err != nil {
		return 0, fmt.Errorf("invalid wav header: %w", err)
	}
	return d, nil
}

// CheckDuration refuses recordings shorter than min.
func CheckDuration(rec *models.AudioRecording, min time.Duration) error {
	if rec == nil {
		return ErrEmptyRecording
	}
	if rec.Duration() < min {
		return fmt.Errorf("%w: %.1fs recorded, at least %.0fs required",
			ErrRecordingTooShort, rec.DurationSeconds, min.Seconds())
	}
	return nil
}
