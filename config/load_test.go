package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
env: test
venue:
  baseURL: https://api.example.com
  streamURL: wss://stream.example.com
  apiKey: file-key
  apiSecret: file-secret
reconcile:
  intervalSeconds: 15
  callTimeoutSeconds: 5
  maxBackoffSeconds: 120
limiter:
  rate: 3
  burst: 6
logging:
  level: info
  format: json
metrics:
  addr: ":9100"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "https://api.example.com", cfg.Venue.BaseURL)
	assert.Equal(t, "wss://stream.example.com", cfg.Venue.StreamURL)
	assert.Equal(t, 15, cfg.Reconcile.IntervalSeconds)
	assert.Equal(t, 120, cfg.Reconcile.MaxBackoffSeconds)
	assert.Equal(t, 3.0, cfg.Limiter.Rate)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "env: [unclosed"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing env", `
venue:
  baseURL: https://api.example.com
  apiKey: k
  apiSecret: s
`},
		{"negative interval", `
env: test
venue:
  baseURL: https://api.example.com
  apiKey: k
  apiSecret: s
reconcile:
  intervalSeconds: -1
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestVenueCredentialsOptionalForLoad(t *testing.T) {
	// a paper run carries no venue section at all
	cfg, err := Load(writeConfig(t, `
env: test
reconcile:
  intervalSeconds: 5
`))
	require.NoError(t, err)

	// the REST client path still demands connectivity settings
	assert.Error(t, ValidateVenue(cfg))

	cfg.Venue.BaseURL = "https://api.example.com"
	assert.Error(t, ValidateVenue(cfg), "credentials still missing")

	cfg.Venue.APIKey = "k"
	cfg.Venue.APISecret = "s"
	assert.NoError(t, ValidateVenue(cfg))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OG_VENUE_API_KEY", "env-key")
	t.Setenv("OG_VENUE_API_SECRET", "env-secret")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Venue.APIKey)
	assert.Equal(t, "env-secret", cfg.Venue.APISecret)
}

func TestEnvOverridesSatisfyValidation(t *testing.T) {
	t.Setenv("OG_VENUE_API_KEY", "env-key")
	t.Setenv("OG_VENUE_API_SECRET", "env-secret")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, `
env: test
venue:
  baseURL: https://api.example.com
`))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Venue.APIKey)
}
