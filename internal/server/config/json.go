package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/buoytelemetry/internal/flagx"
	"github.com/dmitrijs2005/buoytelemetry/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so they may be written as "24h" or as nanoseconds.
// Zero values leave the corresponding Config field untouched.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	LogBackend                   string         `json:"log_backend"`
	CORSAllowedOrigins           []string       `json:"cors_allowed_origins"`
	AuthRateLimitPerMinute       int            `json:"auth_rate_limit_per_minute"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Without that flag nothing is loaded. An unreadable or invalid file panics,
// since the server cannot start with a half-applied configuration.
func parseJson(config *Config, osArgs []string) {
	path := flagx.ConfigFilePath(osArgs)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.LogBackend != "" {
		config.LogBackend = c.LogBackend
	}
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	if c.AuthRateLimitPerMinute > 0 {
		config.AuthRateLimitPerMinute = c.AuthRateLimitPerMinute
	}
}
