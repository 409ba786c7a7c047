// Package sqlstore builds the SQL used by the relational backends and
// provides a storage.Store on top of database/sql.
//
// Backends differ only in identifier quoting, bind placeholders, how the
// generated id of an INSERT comes back, row limiting and column types; a
// Dialect captures those differences and Queries renders every statement
// from it. The postgres backend reuses Queries with pgx directly.
package sqlstore

import (
	"fmt"
	"strings"
)

// IDStrategy is how a dialect reports the id generated by an INSERT.
type IDStrategy int

const (
	// Returning appends "RETURNING id" (postgres, sqlite).
	Returning IDStrategy = iota
	// OutputInserted places "OUTPUT INSERTED.id" before VALUES (mssql).
	OutputInserted
	// LastInsertID uses sql.Result.LastInsertId (mysql).
	LastInsertID
)

// Dialect describes one SQL flavour.
type Dialect struct {
	Name string

	// Ident quotes a single identifier segment.
	Ident func(string) string
	// Placeholder renders the i-th bind parameter, 1-based.
	Placeholder func(i int) string

	IDs IDStrategy
	// Top selects "SELECT TOP 1" instead of a trailing "LIMIT 1".
	Top bool

	IDType   string // auto-increment primary key column type
	RefType  string // foreign key column type
	NameType string // lookup name column type; must be indexable

	// CreateTable wraps a column list in a create-if-missing statement.
	// Nil means "CREATE TABLE IF NOT EXISTS".
	CreateTable func(table, quoted, columns string) string
}

// FQN quotes a possibly schema-qualified name such as "public.cars_v2".
func (d Dialect) FQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Ident(p)
	}
	return strings.Join(parts, ".")
}

func (d Dialect) createTable(table, columns string) string {
	quoted := d.FQN(table)
	if d.CreateTable != nil {
		return d.CreateTable(table, quoted, columns)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoted, columns)
}

func doubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
func backtick(id string) string    { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
func bracket(id string) string     { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

func dollar(i int) string { return fmt.Sprintf("$%d", i) }
func question(int) string { return "?" }
func atP(i int) string    { return fmt.Sprintf("@p%d", i) }

// Postgres is the dialect used by the pgx backend.
var Postgres = Dialect{
	Name:        "postgres",
	Ident:       doubleQuote,
	Placeholder: dollar,
	IDs:         Returning,
	IDType:      "BIGSERIAL PRIMARY KEY",
	RefType:     "BIGINT",
	NameType:    "TEXT",
}

// SQLite is the dialect used by the modernc.org/sqlite backend.
var SQLite = Dialect{
	Name:        "sqlite",
	Ident:       doubleQuote,
	Placeholder: question,
	IDs:         Returning,
	IDType:      "INTEGER PRIMARY KEY",
	RefType:     "INTEGER",
	NameType:    "TEXT",
}

// MySQL is the dialect used by the go-sql-driver/mysql backend.
var MySQL = Dialect{
	Name:        "mysql",
	Ident:       backtick,
	Placeholder: question,
	IDs:         LastInsertID,
	IDType:      "BIGINT AUTO_INCREMENT PRIMARY KEY",
	RefType:     "BIGINT",
	NameType:    "VARCHAR(255)",
}

// MSSQL is the dialect used by the go-mssqldb backend.
var MSSQL = Dialect{
	Name:        "mssql",
	Ident:       bracket,
	Placeholder: atP,
	IDs:         OutputInserted,
	Top:         true,
	IDType:      "BIGINT IDENTITY(1,1) PRIMARY KEY",
	RefType:     "BIGINT",
	NameType:    "NVARCHAR(255)",
	CreateTable: func(table, quoted, columns string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
			strings.ReplaceAll(table, "'", "''"), quoted, columns)
	},
}
