package audiocapture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNoSupportedFormat = errors.New("NO_SUPPORTED_FORMAT")

// Format is an output container and encoder pair the recorder can produce.
type Format struct {
	MimeType  string
	Container string
	Encoder   string
	Extra     []string
}

// preferredFormats is the negotiation order.
var preferredFormats = []Format{
	{MimeType: "audio/webm;codecs=opus", Container: "webm", Encoder: "libopus"},
	{MimeType: "audio/webm", Container: "webm", Encoder: "libvorbis"},
	{MimeType: "audio/mp4", Container: "mp4", Encoder: "aac", Extra: []string{"-movflags", "frag_keyframe+empty_moov"}},
}

// NegotiateFormat returns the first preferred format whose encoder is available.
func NegotiateFormat(encoders map[string]bool) (Format, error) {
	for _, f := range preferredFormats {
		if encoders[f.Encoder] {
			return f, nil
		}
	}
	return Format{}, ErrNoSupportedFormat
}

// ListEncoders lists the audio encoders the recorder binary was built with.
func ListEncoders(ctx context.Context, command string) (map[string]bool, error) {
	if command == "" {
		command = "ffmpeg"
	}
	out, err := exec.CommandContext(ctx, command, "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: probing encoders: %w", ErrMicrophoneUnavailable, err)
	}
	return parseEncoders(string(out)), nil
}

// parseEncoders reads the table printed by "ffmpeg -encoders". Audio rows start with "A".
func parseEncoders(output string) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(output))
	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "------") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "A") {
			continue
		}
		encoders[fields[1]] = true
	}
	return encoders
}
