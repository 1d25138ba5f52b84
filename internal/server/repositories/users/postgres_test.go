package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/buoytelemetry/internal/common"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ    = `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password_hash,\s*email,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at\s*$`
	byNameQ    = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*email,\s*role,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`
	byIDQ      = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*email,\s*role,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	existsQ    = `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s+OR\s+email\s*=\s*\$2\)$`
)

func userRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "email", "role", "created_at"}).
		AddRow(int64(7), "alice", "$2a$hash", "a@x.com", "researcher", now)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs("alice", "$2a$hash", "a@x.com", "user").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))

	u := &models.User{Username: "alice", PasswordHash: "$2a$hash", Email: "a@x.com", Role: "user"}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 || got.Username != "alice" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{Username: "alice", Email: "a@x.com", Role: "user"})
	if !errors.Is(err, common.ErrDuplicateUser) {
		t.Fatalf("want ErrDuplicateUser, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Username: "alice"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byNameQ).WithArgs("alice").WillReturnRows(userRows(time.Now()))

	got, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if got.ID != 7 || got.Role != "researcher" || got.PasswordHash != "$2a$hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byNameQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byIDQ).WithArgs(int64(7)).WillReturnRows(userRows(time.Now()))
	mock.ExpectQuery(byIDQ).WithArgs(int64(8)).WillReturnError(errors.New("db err"))

	got, err := repo.GetByID(context.Background(), 7)
	if err != nil || got.Username != "alice" {
		t.Fatalf("GetByID: %+v, %v", got, err)
	}

	_, err = repo.GetByID(context.Background(), 8)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestExistsByUsernameOrEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(existsQ).WithArgs("alice", "a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(existsQ).WithArgs("bob", "b@x.com").
		WillReturnError(errors.New("db err"))

	ok, err := repo.ExistsByUsernameOrEmail(context.Background(), "alice", "a@x.com")
	if err != nil || !ok {
		t.Fatalf("want true, got %v, %v", ok, err)
	}

	_, err = repo.ExistsByUsernameOrEmail(context.Background(), "bob", "b@x.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
