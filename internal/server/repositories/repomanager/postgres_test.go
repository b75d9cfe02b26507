package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/files"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var _ RepositoryManager = m

	if _, err := NewPostgresRepositoryManager(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m, _ := NewPostgresRepositoryManager(db)

	if _, ok := m.Users(db).(*users.PostgresRepository); !ok {
		t.Fatal("Users() must be postgres-backed")
	}
	if _, ok := m.Files(db).(*files.PostgresRepository); !ok {
		t.Fatal("Files() must be postgres-backed")
	}
	if m.Conn() != db {
		t.Fatal("Conn() must return the wrapped pool")
	}
}

func TestWithTx_Commits(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	m, _ := NewPostgresRepositoryManager(db)
	err := m.WithTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error {
		if tx == nil {
			return errors.New("nil tx")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, got *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if got != db {
			return errors.New("unexpected db")
		}
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m, _ := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m, _ := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMemoryRepositoryManager(t *testing.T) {
	m := NewMemoryRepositoryManager()
	var _ RepositoryManager = m

	if m.Users(nil) != m.Users(m.Conn()) {
		t.Fatal("memory manager must share one users repository")
	}
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	if err := m.WithTx(context.Background(), func(context.Context, dbx.DBTX) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("WithTx must return fn error, got %v", err)
	}
}
