package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/buoytelemetry/internal/common"
	"github.com/dmitrijs2005/buoytelemetry/internal/dbx"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
)

const columns = `id, buoy_id, salinity, temperature, ph, pollutants, location, "timestamp"`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts rec and sets its id. An unknown buoy_id is reported as
// common.ErrValidation.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.Telemetry) (*models.Telemetry, error) {
	query :=
		`INSERT INTO telemetry (buoy_id, salinity, temperature, ph, pollutants, location, "timestamp")
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		rec.BuoyID, rec.Salinity, rec.Temperature, rec.PH, rec.Pollutants, rec.Location, rec.Timestamp).Scan(&rec.ID)

	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: buoy %d does not exist", common.ErrValidation, rec.BuoyID)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Telemetry, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM telemetry WHERE id = $1`, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id int64) (*models.Telemetry, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM telemetry WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []int64) ([]*models.Telemetry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	return r.list(ctx, `SELECT `+columns+` FROM telemetry WHERE id IN (`+in+`) ORDER BY id`, args)
}

func (r *PostgresRepository) LockByIDs(ctx context.Context, ids []int64) ([]*models.Telemetry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	// Rows are locked in ascending id order whatever the caller passes, so
	// two overlapping batches cannot deadlock.
	in, args := inClause(slices.Compact(slices.Sorted(slices.Values(ids))))
	return r.list(ctx, `SELECT `+columns+` FROM telemetry WHERE id IN (`+in+`) ORDER BY id FOR UPDATE`, args)
}

// Update writes the mutable fields of rec. buoy_id and timestamp are never
// touched.
func (r *PostgresRepository) Update(ctx context.Context, rec *models.Telemetry) error {
	query :=
		`UPDATE telemetry
		 SET salinity = $1, temperature = $2, ph = $3, pollutants = $4, location = $5
		 WHERE id = $6
		 `

	res, err := r.db.ExecContext(ctx, query,
		rec.Salinity, rec.Temperature, rec.PH, rec.Pollutants, rec.Location, rec.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM telemetry WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}

// DeleteByIDs removes the listed records and returns how many existed.
func (r *PostgresRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	res, err := r.db.ExecContext(ctx, `DELETE FROM telemetry WHERE id IN (`+in+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id int64) (*models.Telemetry, error) {
	rec := &models.Telemetry{}
	if err := scan(r.db.QueryRowContext(ctx, query, id), rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args []any) ([]*models.Telemetry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Telemetry
	for rows.Next() {
		rec := &models.Telemetry{}
		if err := scan(rows, rec); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner, rec *models.Telemetry) error {
	return s.Scan(&rec.ID, &rec.BuoyID, &rec.Salinity, &rec.Temperature, &rec.PH,
		&rec.Pollutants, &rec.Location, &rec.Timestamp)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// inClause renders "$1, $2, ..." for ids together with the matching args.
func inClause(ids []int64) (string, []any) {
	var b strings.Builder
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$" + strconv.Itoa(i+1))
		args[i] = id
	}
	return b.String(), args
}
