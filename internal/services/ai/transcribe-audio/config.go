// internal/services/ai/transcribe-audio/config.go
package transcribeaudio

import (
	"time"

	"craftconnect/internal/common/config"
)

type Config struct {
	LanguageCode      string
	Model             string
	SampleRateHertz   int32
	EnablePunctuation bool
	Timeout           time.Duration
}

func LoadConfig() *Config {
	return &Config{
		LanguageCode:      "en-US",
		Model:             "latest_long",
		SampleRateHertz:   48000,
		EnablePunctuation: true,
		Timeout:           60 * time.Second,
	}
}

// ConfigFrom builds the adapter settings from the application config.
func ConfigFrom(cfg *config.Config) *Config {
	out := LoadConfig()
	speech := cfg.Google.Speech
	if speech.LanguageCode != "" {
		out.LanguageCode = speech.LanguageCode
	}
	if speech.Model != "" {
		out.Model = speech.Model
	}
	if speech.SampleRateHertz > 0 {
		out.SampleRateHertz = int32(speech.SampleRateHertz)
	}
	out.EnablePunctuation = speech.EnablePunctuation
	out.Timeout = config.GetDuration(config.GetServiceConfig(cfg, TaskType).Timeout)
	return out
}
