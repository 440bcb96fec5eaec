// internal/services/ai/analyze-business/config.go
package analyzebusiness

import (
	"time"

	"craftconnect/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	MinConfidence int
	MaxConfidence int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		MinConfidence: 80,
		MaxConfidence: 95,
	}
}

func ConfigFrom(cfg *config.Config) *Config {
	out := LoadConfig()
	out.Timeout = config.GetDuration(config.GetServiceConfig(cfg, TaskType).Timeout)
	return out
}
