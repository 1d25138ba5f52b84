package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"endpoint_addr_http":              "0.0.0.0:9000",
		"database_dsn":                    "postgres://x",
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "12h",
		"refresh_token_validity_duration": "48h",
		"log_backend":                     "zerolog",
		"cors_allowed_origins":            []string{"https://ocean.example"},
		"auth_rate_limit_per_minute":      7,
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-config", path})

		assert.Equal(t, "0.0.0.0:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 12*time.Hour, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 48*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, "zerolog", cfg.LogBackend)
		assert.Equal(t, []string{"https://ocean.example"}, cfg.CORSAllowedOrigins)
		assert.Equal(t, 7, cfg.AuthRateLimitPerMinute)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"secret_key": "k2"})
		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", partial})

		assert.Equal(t, "k2", cfg.SecretKey)
		assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
		assert.Equal(t, 24*time.Hour, cfg.AccessTokenValidityDuration)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		cfg := &Config{EndpointAddrHTTP: "defaults:1234", SecretKey: "key"}
		parseJson(cfg, nil)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
		assert.Equal(t, "key", cfg.SecretKey)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", bad}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", filepath.Join(dir, "nope.json")}) })
	})
}
