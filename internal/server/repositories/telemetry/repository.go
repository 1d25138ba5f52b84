// Package telemetry stores buoy telemetry records.
package telemetry

import (
	"context"

	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
)

// Repository persists telemetry records. The locking reads only make sense
// when the repository is bound to a transaction.
type Repository interface {
	Create(ctx context.Context, rec *models.Telemetry) (*models.Telemetry, error)
	Get(ctx context.Context, id int64) (*models.Telemetry, error)
	// GetForUpdate reads and row-locks one record until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Telemetry, error)
	// ListByIDs returns the existing records among ids in ascending id order.
	ListByIDs(ctx context.Context, ids []int64) ([]*models.Telemetry, error)
	// LockByIDs is ListByIDs with row locks taken in ascending id order.
	LockByIDs(ctx context.Context, ids []int64) ([]*models.Telemetry, error)
	Update(ctx context.Context, rec *models.Telemetry) error
	Delete(ctx context.Context, id int64) error
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}
