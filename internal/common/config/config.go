// internal/common/config/config.go
package config

import "strings"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig                `mapstructure:"app"`
	Server    ServerConfig             `mapstructure:"server"`
	Google    GoogleConfig             `mapstructure:"google"`
	Upload    UploadConfig             `mapstructure:"upload"`
	Database  DatabaseConfig           `mapstructure:"database"`
	RateLimit RateLimitConfig          `mapstructure:"rate_limit"`
	Usage     UsageConfig              `mapstructure:"usage"`
	Services  map[string]ServiceConfig `mapstructure:"services"`
	Client    ClientConfig             `mapstructure:"client"`
	Logging   LoggingConfig            `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// IsDevelopment reports whether error details may be exposed to callers.
func (a AppConfig) IsDevelopment() bool {
	env := strings.ToLower(strings.TrimSpace(a.Environment))
	return env == "" || env == "development" || env == "dev" || env == "local"
}

// IsProduction reports whether the service runs with production limits.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(a.Environment), "production")
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	ClientURL       string `mapstructure:"client_url"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MetricsEnabled  bool   `mapstructure:"metrics_enabled"`
}

// GoogleConfig holds the cloud project and model settings shared by the speech and generative adapters.
type GoogleConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Location        string `mapstructure:"location"`
	CredentialsPath string `mapstructure:"credentials_path"`
	VertexModel     string `mapstructure:"vertex_model"`

	Speech struct {
		LanguageCode      string `mapstructure:"language_code"`
		Model             string `mapstructure:"model"`
		SampleRateHertz   int    `mapstructure:"sample_rate_hertz"`
		EnablePunctuation bool   `mapstructure:"enable_punctuation"`
	} `mapstructure:"speech"`
}

// HasCredentials reports whether a service account file is configured.
func (g GoogleConfig) HasCredentials() bool {
	return strings.TrimSpace(g.CredentialsPath) != ""
}

// HasProject reports whether a cloud project is configured.
func (g GoogleConfig) HasProject() bool {
	return strings.TrimSpace(g.ProjectID) != ""
}

type UploadConfig struct {
	MaxFileSize      int64    `mapstructure:"max_file_size"` // bytes
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a Redis address was supplied.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Address) != ""
}

type RateLimitConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Window         int    `mapstructure:"window"` // milliseconds
	MaxRequests    int    `mapstructure:"max_requests"`
	DevMaxRequests int    `mapstructure:"dev_max_requests"`
	KeyPrefix      string `mapstructure:"key_prefix"`
	Message        string `mapstructure:"message"`
}

type UsageConfig struct {
	BudgetLimit             float64 `mapstructure:"budget_limit"`
	EstimatedCostPerRequest float64 `mapstructure:"estimated_cost_per_request"`
	KeyPrefix               string  `mapstructure:"key_prefix"`
}

// ServiceConfig holds the settings shared by every upstream adapter.
type ServiceConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

// ClientConfig holds settings for the command-line client.
type ClientConfig struct {
	APIURL      string `mapstructure:"api_url"`
	Timeout     int    `mapstructure:"timeout"`      // milliseconds
	MinDuration int    `mapstructure:"min_duration"` // milliseconds
	StateStore  string `mapstructure:"state_store"`  // "file", "sqlite" or "redis"
	StatePath   string `mapstructure:"state_path"`
	SessionID   string `mapstructure:"session_id"`
	SessionTTL  int    `mapstructure:"session_ttl"` // milliseconds

	Capture struct {
		Command          string `mapstructure:"command"`
		InputFormat      string `mapstructure:"input_format"`
		InputDevice      string `mapstructure:"input_device"`
		SampleRate       int    `mapstructure:"sample_rate"`
		Channels         int    `mapstructure:"channels"`
		ChunkInterval    int    `mapstructure:"chunk_interval"` // milliseconds
		NoiseSuppression bool   `mapstructure:"noise_suppression"`
		EchoCancellation bool   `mapstructure:"echo_cancellation"`
	} `mapstructure:"capture"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
