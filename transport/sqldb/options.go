package sqldb

import (
	"fmt"
	"time"

	"github.com/kinslayermud/kinslayer-sqlDatabase/client"
	"github.com/kinslayermud/kinslayer-sqlDatabase/mapper"
)

// Dialect selects string escaping and catalog queries.
type Dialect string

const (
	// DialectMySQL escapes with backslashes and lists tables with SHOW TABLES.
	DialectMySQL Dialect = "mysql"
	// DialectSQLite doubles quotes and lists tables from sqlite_master.
	DialectSQLite Dialect = "sqlite"
)

// ParseDialect validates a dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectMySQL, DialectSQLite:
		return Dialect(s), nil
	default:
		return "", fmt.Errorf("unknown dialect %q (want %q or %q)", s, DialectMySQL, DialectSQLite)
	}
}

func (d Dialect) escape(s string) string {
	if d == DialectMySQL {
		return mapper.EscapeString(s)
	}
	return mapper.EscapeANSIString(s)
}

func (d Dialect) tablesQuery() string {
	if d == DialectMySQL {
		return "SHOW TABLES"
	}
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

func (d Dialect) lastInsertIDQuery() string {
	if d == DialectMySQL {
		return "SELECT LAST_INSERT_ID()"
	}
	return "SELECT last_insert_rowid()"
}

// Options configures the database/sql transport
type Options struct {
	// Driver is the registered database/sql driver name
	Driver string

	// DSN is the driver-specific data source name
	DSN string

	// Dialect controls escaping and catalog queries
	Dialect Dialect

	// ConnectTimeout bounds Open's initial ping
	ConnectTimeout time.Duration

	// ConnMaxLifetime is passed to sql.DB.SetConnMaxLifetime; zero keeps connections forever
	ConnMaxLifetime time.Duration

	// Location renders driver time values as civil text
	Location *time.Location

	// Logger receives transport diagnostics
	Logger client.Logger
}

// DefaultOptions returns options for an in-memory SQLite database.
func DefaultOptions() Options {
	return Options{
		Driver:         "sqlite",
		DSN:            ":memory:",
		Dialect:        DialectSQLite,
		ConnectTimeout: 10 * time.Second,
		Location:       time.UTC,
		Logger:         client.NewNoopLogger(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Driver == "" {
		o.Driver = def.Driver
	}
	if o.DSN == "" && o.Driver == def.Driver {
		o.DSN = def.DSN
	}
	if o.Dialect == "" {
		if o.Driver == "mysql" {
			o.Dialect = DialectMySQL
		} else {
			o.Dialect = def.Dialect
		}
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	if o.Location == nil {
		o.Location = def.Location
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	return o
}
