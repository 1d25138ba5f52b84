// Package refreshtokens declares the repository contract for server-side
// refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
)

// Repository issues, looks up and revokes refresh tokens.
type Repository interface {
	// Create stores token for userID, valid until expiresAt.
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Find returns the stored token or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete revokes token, or returns common.ErrorNotFound when no row was
	// removed.
	Delete(ctx context.Context, token string) error

	// PurgeExpired drops the tokens of userID that expired before now and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, userID int64, now time.Time) (int64, error)
}
