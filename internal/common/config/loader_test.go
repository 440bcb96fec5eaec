package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the variables bound in envBindings so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envBindings {
		for _, name := range names {
			t.Setenv(name, "")
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_StateStore(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantStore string
		wantErr   string
	}{
		{
			name:      "default is file",
			yaml:      "app:\n  name: craftconnect\n",
			wantStore: "file",
		},
		{
			name:      "file",
			yaml:      "client:\n  state_store: file\n",
			wantStore: "file",
		},
		{
			name:      "sqlite",
			yaml:      "client:\n  state_store: sqlite\n",
			wantStore: "sqlite",
		},
		{
			name:      "redis with address",
			yaml:      "client:\n  state_store: redis\ndatabase:\n  redis:\n    address: localhost:6379\n",
			wantStore: "redis",
		},
		{
			name:    "redis without address",
			yaml:    "client:\n  state_store: redis\n",
			wantErr: "database.redis.address is required",
		},
		{
			name:    "unknown store",
			yaml:    "client:\n  state_store: postgres\n",
			wantErr: `client.state_store must be "file", "sqlite" or "redis"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			cfg, err := LoadFromFile(writeConfig(t, tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStore, cfg.Client.StateStore)
		})
	}
}

func TestLoadFromFile_EffectiveRateLimit(t *testing.T) {
	tests := []struct {
		environment string
		expected    int
	}{
		{"development", 100},
		{"local", 100},
		{"staging", 50},
		{"production", 50},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			clearEnv(t)

			cfg, err := LoadFromFile(writeConfig(t, "app:\n  environment: "+tt.environment+"\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, EffectiveRateLimit(cfg))
			assert.Equal(t, 15*60*1000, cfg.RateLimit.Window)
		})
	}
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("CRAFT_TEST_CLIENT_URL", "https://craft.example.com")
	t.Setenv("CRAFT_TEST_MODEL", "gemini-test")

	cfg, err := LoadFromFile(writeConfig(t, `
server:
  client_url: ${CRAFT_TEST_CLIENT_URL}
google:
  vertex_model: ${CRAFT_TEST_MODEL}
  location: ${CRAFT_TEST_UNSET}
`))
	require.NoError(t, err)

	assert.Equal(t, "https://craft.example.com", cfg.Server.ClientURL)
	assert.Equal(t, "gemini-test", cfg.Google.VertexModel)
	assert.Equal(t, "us-central1", cfg.Google.Location, "empty expansion falls back to the default")
}

func TestLoadFromFile_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("CLIENT_STATE_STORE", "sqlite")

	cfg, err := LoadFromFile(writeConfig(t, "server:\n  port: 5000\nclient:\n  state_store: file\n"))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Client.StateStore)
}

func TestLoadFromFile_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromFile(writeConfig(t, "app:\n  name: craftconnect\n"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSize)
	assert.Contains(t, cfg.Upload.AllowedMimeTypes, "audio/webm")
	assert.Equal(t, "http://localhost:5000", cfg.Client.APIURL)
	assert.Equal(t, 10000, cfg.Client.MinDuration)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.True(t, IsServiceEnabled(cfg, "transcribe-audio"))
	assert.Equal(t, 30000, GetServiceConfig(cfg, "transcribe-audio").Timeout)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
