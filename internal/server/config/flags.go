package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/buoytelemetry/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-l string   log backend (slog|zerolog)
//	-o string   comma-separated CORS origins
//	-m int      auth endpoints rate limit, requests per minute
//
// Duration flags are accepted as integers in minutes.
func parseFlags(config *Config, osArgs []string) {
	args := flagx.FilterArgs(osArgs, []string{"-a", "-d", "-s", "-t", "-r", "-l", "-o", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend: slog or zerolog")
	origins := fs.String("o", strings.Join(config.CORSAllowedOrigins, ","), "comma-separated CORS allowed origins")
	fs.IntVar(&config.AuthRateLimitPerMinute, "m", config.AuthRateLimitPerMinute, "auth endpoints rate limit per minute")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.CORSAllowedOrigins = splitOrigins(*origins)
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
