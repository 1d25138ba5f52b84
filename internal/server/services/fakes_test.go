package services

import (
	"context"
	"database/sql"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/buoytelemetry/internal/common"
	"github.com/dmitrijs2005/buoytelemetry/internal/dbx"
	"github.com/dmitrijs2005/buoytelemetry/internal/logging"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/repositories/telemetry"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func discardLogger(t *testing.T) logging.Logger {
	t.Helper()
	l, err := logging.New(logging.BackendSlog, io.Discard)
	require.NoError(t, err)
	return l
}

// --- users ---

type fakeUsersRepo struct {
	byID      map[int64]*models.User
	nextID    int64
	existsOut bool
	existsErr error
	createErr error
	getErr    error
}

func newFakeUsersRepo(us ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{byID: map[int64]*models.User{}, nextID: 100}
	for _, u := range us {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	u.ID = f.nextID
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(_ context.Context, name string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Username == name {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) ExistsByUsernameOrEmail(_ context.Context, name, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.existsOut {
		return true, nil
	}
	for _, u := range f.byID {
		if u.Username == name || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	tokens    map[string]*models.RefreshToken
	findErr   error
	delErr    error
	createErr error
	purgeErr  error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if t, ok := f.tokens[token]; ok {
		return t, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) PurgeExpired(_ context.Context, userID int64, now time.Time) (int64, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	var n int64
	for k, t := range f.tokens {
		if t.UserID == userID && t.Expires.Before(now) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

// --- telemetry ---

// fakeTelemetryRepo keeps records in memory and hands out copies, so a
// record only changes once Update is called.
type fakeTelemetryRepo struct {
	recs      map[int64]models.Telemetry
	nextID    int64
	updates   []int64
	deletes   []int64
	locked    [][]int64
	lockErr   error
	updateErr error
	deleteErr error
}

func newFakeTelemetryRepo(recs ...models.Telemetry) *fakeTelemetryRepo {
	f := &fakeTelemetryRepo{recs: map[int64]models.Telemetry{}}
	for _, r := range recs {
		f.recs[r.ID] = r
		f.nextID = max(f.nextID, r.ID)
	}
	return f
}

func (f *fakeTelemetryRepo) Create(_ context.Context, rec *models.Telemetry) (*models.Telemetry, error) {
	f.nextID++
	rec.ID = f.nextID
	f.recs[rec.ID] = *rec
	return rec, nil
}

func (f *fakeTelemetryRepo) Get(_ context.Context, id int64) (*models.Telemetry, error) {
	r, ok := f.recs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &r, nil
}

func (f *fakeTelemetryRepo) GetForUpdate(ctx context.Context, id int64) (*models.Telemetry, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	f.locked = append(f.locked, []int64{id})
	return f.Get(ctx, id)
}

func (f *fakeTelemetryRepo) ListByIDs(_ context.Context, ids []int64) ([]*models.Telemetry, error) {
	var out []*models.Telemetry
	for _, id := range ids {
		if r, ok := f.recs[id]; ok {
			out = append(out, &r)
		}
	}
	slices.SortFunc(out, func(a, b *models.Telemetry) int { return int(a.ID - b.ID) })
	return out, nil
}

func (f *fakeTelemetryRepo) LockByIDs(ctx context.Context, ids []int64) ([]*models.Telemetry, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	f.locked = append(f.locked, ids)
	return f.ListByIDs(ctx, ids)
}

func (f *fakeTelemetryRepo) Update(_ context.Context, rec *models.Telemetry) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.recs[rec.ID]; !ok {
		return common.ErrorNotFound
	}
	f.updates = append(f.updates, rec.ID)
	f.recs[rec.ID] = *rec
	return nil
}

func (f *fakeTelemetryRepo) Delete(_ context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.recs[id]; !ok {
		return common.ErrorNotFound
	}
	f.deletes = append(f.deletes, id)
	delete(f.recs, id)
	return nil
}

func (f *fakeTelemetryRepo) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	var n int64
	for _, id := range ids {
		if _, ok := f.recs[id]; ok {
			f.deletes = append(f.deletes, id)
			delete(f.recs, id)
			n++
		}
	}
	return n, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	t *fakeTelemetryRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Telemetry(dbx.DBTX) telemetry.Repository         { return m.t }
