// Package policy decides whether a role may perform an operation on a
// telemetry record. Two rules combine: a static role capability matrix and
// a quarter window that freezes records from earlier calendar quarters
// against update and delete for every role.
package policy

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/dmitrijs2005/buoytelemetry/internal/common"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/metrics"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

const object = "telemetry"

// Engine evaluates access decisions. It is safe for concurrent use.
type Engine struct {
	enforcer *casbin.SyncedEnforcer
	clock    Clock
}

// NewEngine builds an Engine from the embedded capability matrix.
func NewEngine(clock Clock) (*Engine, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(embeddedPolicy))
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	return &Engine{enforcer: enforcer, clock: clock}, nil
}

// Allowed reports whether role holds the capability for op.
func (e *Engine) Allowed(role Role, op Operation) bool {
	ok, err := e.enforcer.Enforce(string(role), object, string(op))
	return err == nil && ok
}

// CheckRole is the capability check for operations without a target
// record, such as create or the batch-level check of bulk requests.
func (e *Engine) CheckRole(role Role, op Operation) error {
	if !e.Allowed(role, op) {
		return e.record(op, common.ErrInsufficientRole)
	}
	return e.record(op, nil)
}

// Authorize checks op by role against rec. Existence is checked first, then
// the role capability, then for update and delete the quarter window.
func (e *Engine) Authorize(role Role, op Operation, rec *models.Telemetry) error {
	if rec == nil {
		return e.record(op, common.ErrorNotFound)
	}
	if !e.Allowed(role, op) {
		return e.record(op, common.ErrInsufficientRole)
	}
	if op.mutates() && e.Frozen(rec) {
		return e.record(op, common.ErrRecordFrozen)
	}
	return e.record(op, nil)
}

// Frozen reports whether rec lies in a quarter strictly before the current one.
func (e *Engine) Frozen(rec *models.Telemetry) bool {
	return rec.Timestamp.Before(QuarterStart(e.clock.Now()))
}

// Now exposes the engine clock so creation timestamps share its time source.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Project returns the representation of rec that role may see.
func Project(role Role, rec *models.Telemetry) models.Reading {
	if role == RoleConsumer {
		return &models.TelemetrySummary{
			ID:        rec.ID,
			Salinity:  rec.Salinity,
			PH:        rec.PH,
			Timestamp: rec.Timestamp,
		}
	}
	return rec
}

func (e *Engine) record(op Operation, err error) error {
	outcome := "allowed"
	switch err {
	case common.ErrorNotFound:
		outcome = "not_found"
	case common.ErrInsufficientRole:
		outcome = "insufficient_role"
	case common.ErrRecordFrozen:
		outcome = "record_frozen"
	}
	metrics.PolicyDecisions.WithLabelValues(string(op), outcome).Inc()
	return err
}
