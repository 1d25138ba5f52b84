package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/buoytelemetry/internal/common"
	"github.com/dmitrijs2005/buoytelemetry/internal/dbx"
	"github.com/dmitrijs2005/buoytelemetry/internal/logging"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/metrics"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/policy"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/buoytelemetry/internal/validation"
)

// TelemetryService runs telemetry CRUD under the access policy. Every
// mutation happens in one read-committed transaction that row-locks its
// targets before the policy sees them, so the check and the write agree.
type TelemetryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      *policy.Engine
	logger      logging.Logger
}

func NewTelemetryService(db *sql.DB, m repomanager.RepositoryManager, engine *policy.Engine, logger logging.Logger) *TelemetryService {
	return &TelemetryService{db: db, repomanager: m, policy: engine, logger: logger}
}

// Create stores a new reading stamped with the current time.
func (s *TelemetryService) Create(ctx context.Context, role policy.Role, in *models.NewTelemetry) (*models.Telemetry, error) {
	if err := s.policy.CheckRole(role, policy.OpCreate); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, *in.BuoyID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: buoy %d does not exist", common.ErrValidation, *in.BuoyID)
		}
		return nil, fmt.Errorf("error checking buoy: %w", err)
	}

	rec, err := s.repomanager.Telemetry(s.db).Create(ctx, in.Record(s.policy.Now()))
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "telemetry created", "id", rec.ID, "buoy_id", rec.BuoyID)
	return rec, nil
}

// Get returns the record with id as role may see it.
func (s *TelemetryService) Get(ctx context.Context, role policy.Role, id int64) (models.Reading, error) {
	rec, err := s.repomanager.Telemetry(s.db).Get(ctx, id)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if err := s.policy.Authorize(role, policy.OpRead, rec); err != nil {
		return nil, err
	}
	return policy.Project(role, rec), nil
}

// BulkGet returns the existing records among ids in ascending id order.
// Unknown ids are left out.
func (s *TelemetryService) BulkGet(ctx context.Context, role policy.Role, ids []int64) ([]models.Reading, error) {
	if err := s.policy.CheckRole(role, policy.OpRead); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: ids must not be empty", common.ErrValidation)
	}

	recs, err := s.repomanager.Telemetry(s.db).ListByIDs(ctx, uniqueSorted(ids))
	if err != nil {
		return nil, err
	}

	out := make([]models.Reading, 0, len(recs))
	for _, rec := range recs {
		out = append(out, policy.Project(role, rec))
	}
	return out, nil
}

// Update applies patch to record id. Omitted fields keep their values.
func (s *TelemetryService) Update(ctx context.Context, role policy.Role, id int64, patch *models.TelemetryPatch) (*models.Telemetry, error) {
	var out *models.Telemetry
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Telemetry(tx)

		rec, err := s.lockOne(ctx, repo.GetForUpdate, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(role, policy.OpUpdate, rec); err != nil {
			return err
		}

		patch.Apply(rec)
		if err := repo.Update(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "telemetry updated", "id", id)
	return out, nil
}

// Delete removes record id.
func (s *TelemetryService) Delete(ctx context.Context, role policy.Role, id int64) error {
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Telemetry(tx)

		rec, err := s.lockOne(ctx, repo.GetForUpdate, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(role, policy.OpDelete, rec); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "telemetry deleted", "id", id)
	return nil
}

// BulkUpdate applies every entry or none. Entries are checked in request
// order; the first one without an id, naming an unknown record, or naming a
// frozen record aborts the batch with a *common.BatchError. It returns the
// number of distinct records written.
func (s *TelemetryService) BulkUpdate(ctx context.Context, role policy.Role, entries []models.TelemetryPatchEntry) (int, error) {
	if err := s.policy.CheckRole(role, policy.OpUpdate); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: batch must not be empty", common.ErrMalformedBatch)
	}
	metrics.BatchSize.WithLabelValues("bulk_update").Observe(float64(len(entries)))

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.ID != nil {
			ids = append(ids, *e.ID)
		}
	}
	ids = uniqueSorted(ids)

	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Telemetry(tx)

		byID, err := s.lockMany(ctx, repo.LockByIDs, ids)
		if err != nil {
			return err
		}

		for i, e := range entries {
			if e.ID == nil {
				return &common.BatchError{Index: i, Err: common.ErrMalformedBatch}
			}
			rec := byID[*e.ID]
			if err := s.policy.Authorize(role, policy.OpUpdate, rec); err != nil {
				return &common.BatchError{Index: i, ID: e.ID, Err: err}
			}
			e.TelemetryPatch.Apply(rec)
		}

		for _, id := range ids {
			if err := repo.Update(ctx, byID[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logBatchAbort(ctx, "bulk update aborted", err)
		return 0, err
	}
	s.logger.Info(ctx, "telemetry bulk updated", "count", len(ids))
	return len(ids), nil
}

// BulkDelete removes every listed record or none. Unknown ids are skipped;
// a frozen record aborts the batch with a *common.BatchError.
func (s *TelemetryService) BulkDelete(ctx context.Context, role policy.Role, ids []int64) (int64, error) {
	if err := s.policy.CheckRole(role, policy.OpDelete); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids must not be empty", common.ErrMalformedBatch)
	}
	metrics.BatchSize.WithLabelValues("bulk_delete").Observe(float64(len(ids)))

	var deleted int64
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Telemetry(tx)

		byID, err := s.lockMany(ctx, repo.LockByIDs, uniqueSorted(ids))
		if err != nil {
			return err
		}

		existing := make([]int64, 0, len(byID))
		for i, id := range ids {
			rec, ok := byID[id]
			if !ok {
				continue
			}
			if err := s.policy.Authorize(role, policy.OpDelete, rec); err != nil {
				return &common.BatchError{Index: i, ID: &id, Err: err}
			}
			existing = append(existing, id)
		}

		deleted, err = repo.DeleteByIDs(ctx, uniqueSorted(existing))
		return err
	})
	if err != nil {
		s.logBatchAbort(ctx, "bulk delete aborted", err)
		return 0, err
	}
	s.logger.Info(ctx, "telemetry bulk deleted", "count", deleted)
	return deleted, nil
}

// lockOne returns nil, not an error, for a missing record so the policy
// reports it in its own order.
func (s *TelemetryService) lockOne(ctx context.Context, get func(context.Context, int64) (*models.Telemetry, error), id int64) (*models.Telemetry, error) {
	rec, err := get(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return rec, err
}

func (s *TelemetryService) lockMany(ctx context.Context, lock func(context.Context, []int64) ([]*models.Telemetry, error), ids []int64) (map[int64]*models.Telemetry, error) {
	recs, err := lock(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Telemetry, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}
	return byID, nil
}

func (s *TelemetryService) logBatchAbort(ctx context.Context, msg string, err error) {
	var be *common.BatchError
	if errors.As(err, &be) {
		s.logger.Warn(ctx, msg, "index", be.Index, "error", be.Err.Error())
		return
	}
	s.logger.Error(ctx, msg, "error", err.Error())
}

func uniqueSorted(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
