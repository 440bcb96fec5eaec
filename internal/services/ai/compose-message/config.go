// internal/services/ai/compose-message/config.go
package composemessage

import (
	"time"

	"craftconnect/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}

func ConfigFrom(cfg *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(config.GetServiceConfig(cfg, TaskType).Timeout),
	}
}
