package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/buoytelemetry/internal/dbx"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/repositories/telemetry"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a connection or a
// transaction, so services choose the scope per call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Telemetry(db dbx.DBTX) telemetry.Repository
}
