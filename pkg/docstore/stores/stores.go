// Package stores opens a docstore.Store backend by driver name.
package stores

import (
	"context"
	"fmt"

	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/docstore/memstore"
	"github.com/roach88/scenarios/pkg/docstore/mongostore"
	"github.com/roach88/scenarios/pkg/docstore/sqlitestore"
)

// Drivers accepted by Open.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open opens the backend named by driver. For mongo, url is a connection
// string and database the database name. For sqlite, url is the database
// file path and database is ignored. memory ignores both. An empty driver
// means mongo.
func Open(ctx context.Context, driver, url, database string) (docstore.Store, error) {
	switch driver {
	case DriverMongo, "":
		return mongostore.Connect(ctx, url, database)
	case DriverSQLite:
		return sqlitestore.Open(url)
	case DriverMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q (want %s, %s or %s)", driver, DriverMongo, DriverSQLite, DriverMemory)
	}
}
