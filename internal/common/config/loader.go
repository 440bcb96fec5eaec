// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that may set them.
// The first variable found wins.
var envBindings = map[string][]string{
	"app.environment":             {"APP_ENVIRONMENT", "NODE_ENV"},
	"server.port":                 {"SERVER_PORT", "PORT"},
	"server.client_url":           {"SERVER_CLIENT_URL", "CLIENT_URL"},
	"google.project_id":           {"GOOGLE_PROJECT_ID"},
	"google.location":             {"GOOGLE_LOCATION"},
	"google.credentials_path":     {"GOOGLE_CREDENTIALS_PATH", "GOOGLE_APPLICATION_CREDENTIALS"},
	"google.vertex_model":         {"GOOGLE_VERTEX_MODEL", "VERTEX_MODEL"},
	"database.redis.address":      {"DATABASE_REDIS_ADDRESS", "REDIS_ADDRESS"},
	"database.redis.password":     {"DATABASE_REDIS_PASSWORD", "REDIS_PASSWORD"},
	"logging.level":               {"LOGGING_LEVEL", "LOG_LEVEL"},
	"logging.format":              {"LOGGING_FORMAT", "LOG_FORMAT"},
	"client.api_url":              {"CLIENT_API_URL", "CRAFTCONNECT_API_URL"},
	"client.state_store":          {"CLIENT_STATE_STORE"},
	"client.state_path":           {"CLIENT_STATE_PATH"},
	"client.capture.command":      {"CLIENT_CAPTURE_COMMAND", "FFMPEG_PATH"},
	"client.capture.input_device": {"CLIENT_CAPTURE_INPUT_DEVICE"},
}

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()

	// Base config
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, e.g. config.production.yaml
	v.SetConfigName(fmt.Sprintf("config.%s", currentEnvironment()))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, names := range envBindings {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	// Boolean switches that default to on
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("google.speech.enable_punctuation", true)
	v.SetDefault("client.capture.noise_suppression", true)
	v.SetDefault("client.capture.echo_cancellation", true)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func currentEnvironment() string {
	for _, name := range envBindings["app.environment"] {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return "development"
}

// loadEnvFile looks for a .env file in the working directory, its parents and the project root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "craftconnect"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.ClientURL == "" {
		cfg.Server.ClientURL = "http://localhost:3000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 60000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	// Google defaults
	if cfg.Google.Location == "" {
		cfg.Google.Location = "us-central1"
	}
	if cfg.Google.VertexModel == "" {
		cfg.Google.VertexModel = "gemini-2.5-flash"
	}
	if cfg.Google.Speech.LanguageCode == "" {
		cfg.Google.Speech.LanguageCode = "en-US"
	}
	if cfg.Google.Speech.Model == "" {
		cfg.Google.Speech.Model = "latest_long"
	}
	if cfg.Google.Speech.SampleRateHertz == 0 {
		cfg.Google.Speech.SampleRateHertz = 48000
	}

	// Upload defaults
	if cfg.Upload.MaxFileSize == 0 {
		cfg.Upload.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.Upload.AllowedMimeTypes) == 0 {
		cfg.Upload.AllowedMimeTypes = []string{
			"audio/webm",
			"audio/wav",
			"audio/mp3",
			"audio/mpeg",
			"audio/ogg",
			"audio/mp4",
			"video/webm",
		}
	}

	// Rate limit defaults
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = 15 * 60 * 1000
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 50
	}
	if cfg.RateLimit.DevMaxRequests == 0 {
		cfg.RateLimit.DevMaxRequests = 100
	}
	if cfg.RateLimit.KeyPrefix == "" {
		cfg.RateLimit.KeyPrefix = "craftconnect:ratelimit:"
	}
	if cfg.RateLimit.Message == "" {
		cfg.RateLimit.Message = "Too many requests from this IP, please try again later."
	}

	// Usage defaults
	if cfg.Usage.BudgetLimit == 0 {
		cfg.Usage.BudgetLimit = 100
	}
	if cfg.Usage.EstimatedCostPerRequest == 0 {
		cfg.Usage.EstimatedCostPerRequest = 0.004
	}
	if cfg.Usage.KeyPrefix == "" {
		cfg.Usage.KeyPrefix = "craftconnect:usage:"
	}

	// Service defaults
	if cfg.Services == nil {
		cfg.Services = map[string]ServiceConfig{}
	}
	for key, svc := range cfg.Services {
		if svc.Timeout == 0 {
			svc.Timeout = 30000
		}
		cfg.Services[key] = svc
	}

	// Client defaults
	if cfg.Client.APIURL == "" {
		cfg.Client.APIURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 30000
	}
	if cfg.Client.MinDuration == 0 {
		cfg.Client.MinDuration = 10000
	}
	if cfg.Client.StateStore == "" {
		cfg.Client.StateStore = "file"
	}
	if cfg.Client.StatePath == "" {
		cfg.Client.StatePath = defaultStatePath()
	}
	if cfg.Client.SessionID == "" {
		cfg.Client.SessionID = "default"
	}
	if cfg.Client.SessionTTL == 0 {
		cfg.Client.SessionTTL = 24 * 60 * 60 * 1000
	}
	if cfg.Client.Capture.Command == "" {
		cfg.Client.Capture.Command = "ffmpeg"
	}
	if cfg.Client.Capture.InputFormat == "" {
		cfg.Client.Capture.InputFormat = "pulse"
	}
	if cfg.Client.Capture.InputDevice == "" {
		cfg.Client.Capture.InputDevice = "default"
	}
	if cfg.Client.Capture.SampleRate == 0 {
		cfg.Client.Capture.SampleRate = 48000
	}
	if cfg.Client.Capture.Channels == 0 {
		cfg.Client.Capture.Channels = 1
	}
	if cfg.Client.Capture.ChunkInterval == 0 {
		cfg.Client.Capture.ChunkInterval = 1000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func defaultStatePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "craftconnect", "session.json")
	}
	return filepath.Join(os.TempDir(), "craftconnect-session.json")
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload.max_file_size must be positive")
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive when rate limiting is enabled")
	}
	if cfg.Usage.BudgetLimit < 0 || cfg.Usage.EstimatedCostPerRequest < 0 {
		return fmt.Errorf("usage costs must not be negative")
	}
	switch cfg.Client.StateStore {
	case "file", "sqlite", "redis":
	default:
		return fmt.Errorf("client.state_store must be \"file\", \"sqlite\" or \"redis\", got %q", cfg.Client.StateStore)
	}
	if cfg.Client.StateStore == "redis" && !cfg.Database.Redis.Enabled() {
		return fmt.Errorf("database.redis.address is required when client.state_store is redis")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetServiceConfig retrieves adapter-specific configuration with fallback to defaults
func GetServiceConfig(cfg *Config, name string) ServiceConfig {
	if svc, exists := cfg.Services[name]; exists {
		return svc
	}

	return ServiceConfig{
		Enabled: true,
		Timeout: 30000,
	}
}

// IsServiceEnabled checks if a specific upstream adapter is enabled
func IsServiceEnabled(cfg *Config, name string) bool {
	if svc, exists := cfg.Services[name]; exists {
		return svc.Enabled
	}
	return true
}

// EffectiveRateLimit returns the per-window request cap for the running environment.
func EffectiveRateLimit(cfg *Config) int {
	if cfg.App.IsDevelopment() {
		return cfg.RateLimit.DevMaxRequests
	}
	return cfg.RateLimit.MaxRequests
}
