// Package storeopen builds a distribution store from a grove database or
// from a driver name and connection string.
package storeopen

import (
	"context"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/distribution/store"
	"github.com/xraph/distribution/store/memory"
	mongostore "github.com/xraph/distribution/store/mongo"
	pgstore "github.com/xraph/distribution/store/postgres"
	sqlitestore "github.com/xraph/distribution/store/sqlite"
)

// Backend names accepted by Open.
const (
	Memory   = "memory"
	Postgres = "postgres"
	SQLite   = "sqlite"
	Mongo    = "mongo"
)

// FromGrove picks the store implementation matching db's driver.
func FromGrove(db *grove.DB) (store.Store, error) {
	if db == nil {
		return nil, fmt.Errorf("storeopen: nil grove database")
	}
	switch name := db.Driver().Name(); name {
	case "pg":
		return pgstore.New(db), nil
	case "sqlite":
		return sqlitestore.New(db), nil
	case "mongo":
		return mongostore.New(db), nil
	default:
		return nil, fmt.Errorf("storeopen: unsupported grove driver %q", name)
	}
}

// Open connects to backend and returns the matching store. The memory
// backend ignores dsn. mongoDatabase names the database for the mongo
// backend.
func Open(ctx context.Context, backend, dsn, mongoDatabase string) (store.Store, error) {
	var (
		drv grove.GroveDriver
		err error
	)

	switch backend {
	case Memory, "":
		return memory.New(), nil
	case Postgres:
		pg := pgdriver.New()
		err = pg.Open(ctx, dsn)
		drv = pg
	case SQLite:
		lite := sqlitedriver.New()
		// SQLite allows a single writer.
		err = lite.Open(ctx, dsn, driver.WithPoolSize(1))
		drv = lite
	case Mongo:
		mdb := mongodriver.New()
		err = mdb.Open(ctx, dsn, mongodriver.WithDatabase(mongoDatabase))
		drv = mdb
	default:
		return nil, fmt.Errorf("storeopen: unknown backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("storeopen: open %s: %w", backend, err)
	}

	db, err := grove.Open(drv)
	if err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("storeopen: grove: %w", err)
	}
	return FromGrove(db)
}
