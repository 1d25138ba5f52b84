// Package logging defines a minimal structured-logging interface used across
// the project. Implementations wrap slog or zerolog.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "telemetry created", "id", rec.ID, "buoy_id", rec.BuoyID)
type Logger interface {
	// Debug logs diagnostic detail that is off in production.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Supported backends for New.
const (
	BackendSlog    = "slog"
	BackendZerolog = "zerolog"
)

// New builds a JSON logger writing to w using the named backend.
// An empty backend selects slog.
func New(backend string, w io.Writer) (Logger, error) {
	switch backend {
	case "", BackendSlog:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil))), nil
	case BackendZerolog:
		return NewZerologLogger(zerolog.New(w).With().Timestamp().Logger()), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

// withRequestID appends the chi request id carried by ctx, if any, so every
// line logged while serving a request can be correlated.
func withRequestID(ctx context.Context, args []any) []any {
	if ctx == nil {
		return args
	}
	id := middleware.GetReqID(ctx)
	if id == "" {
		return args
	}
	return append(args[:len(args):len(args)], "request_id", id)
}
