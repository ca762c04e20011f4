package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authmatrix/internal/server/migrations"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
	"github.com/dmitrijs2005/authmatrix/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func stubGoose(t *testing.T, fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = fn
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestNewRepositoryManagers_ReturnInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	pg, err := NewPostgresRepositoryManager(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lite, err := NewSQLiteRepositoryManager(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := pg.Users(db).(*users.PostgresRepository); !ok {
		t.Fatal("postgres manager must vend PostgresRepository")
	}
	if _, ok := lite.Users(db).(*users.SQLiteRepository); !ok {
		t.Fatal("sqlite manager must vend SQLiteRepository")
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var dirs []string
	stubGoose(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		dirs = append(dirs, dir)
		return nil
	})

	if err := (&PostgresRepositoryManager{}).RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	if err := (&SQLiteRepositoryManager{}).RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	assert.Equal(t, []string{migrations.PostgresDir, migrations.SQLiteDir}, dirs)
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	stubGoose(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	})

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestOpenStore_Memory(t *testing.T) {
	store, closeFn, err := OpenStore(context.Background(), DriverMemory, "")
	require.NoError(t, err)
	require.NoError(t, closeFn())
	_, ok := store.(*users.MemoryStore)
	assert.True(t, ok)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, _, err := OpenStore(context.Background(), "mongo", "")
	require.Error(t, err)
}

func TestOpenStore_SQLite(t *testing.T) {
	goose.SetLogger(goose.NopLogger())
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "data", "auth.db")

	store, closeFn, err := OpenStore(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	u := &models.User{UserID: "u1", Email: "alice@example.com", Name: "Alice", PasswordHash: "h"}
	require.NoError(t, store.Create(ctx, u))

	got, err := store.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestOpenStore_SQLiteMigrationFailure(t *testing.T) {
	stubGoose(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	})

	_, _, err := OpenStore(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "auth.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate sqlite")
}
