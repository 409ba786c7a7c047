// Package all wires every built-in storage backend into the storage factory.
//
// Importing it (as a blank import) runs each backend's init function, making
// the kinds "postgres", "sqlite", "mysql", "mssql" and "memory" available to
// storage.New.
package all

import (
	_ "carsync/internal/storage/memory"
	_ "carsync/internal/storage/mssql"
	_ "carsync/internal/storage/mysql"
	_ "carsync/internal/storage/postgres"
	_ "carsync/internal/storage/sqlite"
)
