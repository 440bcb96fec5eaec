package audiocapture

import (
	"time"

	"craftconnect/internal/common/config"
)

type Config struct {
	Command          string
	InputFormat      string
	InputDevice      string
	SampleRate       int
	Channels         int
	ChunkInterval    time.Duration
	MinDuration      time.Duration
	NoiseSuppression bool
	EchoCancellation bool
	StopGrace        time.Duration
}

func ConfigFrom(cfg *config.Config) *Config {
	capture := cfg.Client.Capture
	return &Config{
		Command:          capture.Command,
		InputFormat:      capture.InputFormat,
		InputDevice:      capture.InputDevice,
		SampleRate:       capture.SampleRate,
		Channels:         capture.Channels,
		ChunkInterval:    config.GetDuration(capture.ChunkInterval),
		MinDuration:      config.GetDuration(cfg.Client.MinDuration),
		NoiseSuppression: capture.NoiseSuppression,
		EchoCancellation: capture.EchoCancellation,
		StopGrace:        1200 * time.Millisecond,
	}
}

func LoadConfig() (*Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return ConfigFrom(cfg), nil
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Command == "" {
		out.Command = "ffmpeg"
	}
	if out.InputFormat == "" {
		out.InputFormat = "pulse"
	}
	if out.InputDevice == "" {
		out.InputDevice = "default"
	}
	if out.SampleRate <= 0 {
		out.SampleRate = 48000
	}
	if out.Channels <= 0 {
		out.Channels = 1
	}
	if out.ChunkInterval <= 0 {
		out.ChunkInterval = time.Second
	}
	if out.MinDuration <= 0 {
		out.MinDuration = 10 * time.Second
	}
	if out.StopGrace <= 0 {
		out.StopGrace = 1200 * time.Millisecond
	}
	return &out
}
