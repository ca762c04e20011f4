package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authmatrix/internal/filex"
	"github.com/dmitrijs2005/authmatrix/internal/server/repositories/users"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// OpenStore returns the credential store for driver with its schema
// migrated. The returned close function releases the database, if any.
func OpenStore(ctx context.Context, driver, dsn string) (users.CredentialStore, func() error, error) {
	var (
		sqlDriver string
		newMgr    func(*sql.DB) (RepositoryManager, error)
	)

	switch driver {
	case DriverMemory:
		return users.NewMemoryStore(), func() error { return nil }, nil
	case DriverPostgres:
		sqlDriver, newMgr = "pgx", NewPostgresRepositoryManager
	case DriverSQLite:
		sqlDriver, newMgr = "sqlite", NewSQLiteRepositoryManager
		if path := filex.SQLitePath(dsn); path != "" {
			if err := filex.EnsureParentDir(path); err != nil {
				return nil, nil, err
			}
		}
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	mgr, err := newMgr(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if err := mgr.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// one writer at a time stands in for row locks
		db.SetMaxOpenConns(1)
	}

	return users.NewSQLStore(db, mgr.Users), db.Close, nil
}
