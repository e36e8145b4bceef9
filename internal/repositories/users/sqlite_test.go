package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/nabzkeeper/internal/common"
	"github.com/dmitrijs2005/nabzkeeper/internal/models"
)

func newRepoWithMock(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLiteRepository(db), mock, db
}

const (
	qInsert     = `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password\)\s*VALUES\s*\(\?,\s*\?\)\s*RETURNING\s+id,\s*created_at\s*$`
	qByUsername = `(?s)^SELECT\s+id,\s*username,\s*password,\s*created_at,\s*last_login\s+FROM\s+users\s+WHERE\s+username\s*=\s*\?\s*$`
	qByID       = `(?s)^SELECT\s+id,\s*username,\s*password,\s*created_at,\s*last_login\s+FROM\s+users\s+WHERE\s+id\s*=\s*\?\s*$`
)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsert).
		WithArgs("alice", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), int64(1700000000)))

	got, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 || got.UserName != "alice" || got.CreatedAt.Unix() != 1700000000 {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsert).
		WithArgs("alice", "hash").
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: "hash"})
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsert).
		WithArgs("alice", "hash").
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: "hash"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "password", "created_at", "last_login"}).
		AddRow(int64(1), "alice", "hash", int64(1700000000), int64(1700000100))
	mock.ExpectQuery(qByUsername).WithArgs("alice").WillReturnRows(rows)

	got, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if got.ID != 1 || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.LastLogin == nil || got.LastLogin.Unix() != 1700000100 {
		t.Fatalf("unexpected last login: %v", got.LastLogin)
	}
}

func TestGetByUsername_NeverLoggedIn(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "password", "created_at", "last_login"}).
		AddRow(int64(1), "alice", "hash", int64(1700000000), nil)
	mock.ExpectQuery(qByUsername).WithArgs("alice").WillReturnRows(rows)

	got, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if got.LastLogin != nil {
		t.Fatalf("want nil last login, got %v", got.LastLogin)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qByUsername).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qByID).WithArgs(int64(5)).WillReturnError(errors.New("boom"))

	_, err := repo.GetByID(context.Background(), 5)
	if err == nil || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestTouchLastLogin(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Unix(1700000500, 0)
	mock.ExpectExec(`UPDATE users SET last_login = \? WHERE id = \?`).
		WithArgs(int64(1700000500), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET last_login = \? WHERE id = \?`).
		WithArgs(int64(1700000500), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.TouchLastLogin(context.Background(), 1, at); err != nil {
		t.Fatalf("TouchLastLogin error: %v", err)
	}
	if err := repo.TouchLastLogin(context.Background(), 2, at); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListUsernames(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT username FROM users ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("alice").AddRow("bob"))

	got, err := repo.ListUsernames(context.Background())
	if err != nil {
		t.Fatalf("ListUsernames error: %v", err)
	}
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("unexpected names: %v", got)
	}
}
