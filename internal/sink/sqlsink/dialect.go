package sqlsink

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// Dialect captures what differs between the database/sql destinations.
type Dialect struct {
	// Name is the database/sql driver name.
	Name string

	// MaxParams caps the placeholders of one INSERT statement.
	MaxParams int

	// TransactionalDDL reports whether DROP/CREATE can run inside a transaction.
	TransactionalDDL bool

	// SingleConn limits the pool to one connection (SQLite memory databases
	// are private to their connection).
	SingleConn bool

	quote  func(string) string
	types  map[tripload.ColumnType]string
	exists func(schema, table string) (string, []any)
}

// MySQL targets MySQL and MariaDB through go-sql-driver/mysql.
var MySQL = Dialect{
	Name:      "mysql",
	MaxParams: 65535,
	quote:     backtickQuote,
	types: map[tripload.ColumnType]string{
		tripload.TypeInteger:   "BIGINT",
		tripload.TypeFloat:     "DOUBLE",
		tripload.TypeText:      "TEXT",
		tripload.TypeTimestamp: "DATETIME(6)",
	},
	exists: func(schema, table string) (string, []any) {
		if schema == "" {
			return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", []any{table}
		}
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?", []any{schema, table}
	},
}

// SQLite targets SQLite through the pure-Go modernc.org/sqlite driver.
var SQLite = Dialect{
	Name:             "sqlite",
	MaxParams:        32766,
	TransactionalDDL: true,
	SingleConn:       true,
	quote:            doubleQuote,
	types: map[tripload.ColumnType]string{
		tripload.TypeInteger:   "INTEGER",
		tripload.TypeFloat:     "REAL",
		tripload.TypeText:      "TEXT",
		tripload.TypeTimestamp: "TIMESTAMP",
	},
	exists: func(schema, table string) (string, []any) {
		if schema == "" {
			schema = "main"
		}
		return "SELECT COUNT(*) FROM " + doubleQuote(schema) + ".sqlite_master WHERE type = 'table' AND name = ?", []any{table}
	},
}

// DialectFor returns the dialect serving driver.
func DialectFor(driver tripload.Driver) (Dialect, error) {
	switch driver {
	case tripload.DriverMySQL:
		return MySQL, nil
	case tripload.DriverSQLite:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("driver %q has no database/sql sink: %w", driver, tripload.ErrInvalidConfig)
	}
}

// QualifiedName quotes an optionally schema-qualified table name.
func (d Dialect) QualifiedName(table string) string {
	schema, name := splitTable(table)
	if schema == "" {
		return d.quote(name)
	}
	return d.quote(schema) + "." + d.quote(name)
}

func (d Dialect) createTable(table string, schema tripload.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(d.QualifiedName(table))
	b.WriteString(" (")
	for i, col := range schema {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.quote(col.Name))
		b.WriteByte(' ')
		b.WriteString(d.types[col.Type])
	}
	b.WriteString(")")
	return b.String()
}

// insert builds a multi-row INSERT for rows rows of columns.
func (d Dialect) insert(table string, columns []string, rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.QualifiedName(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.quote(c))
	}
	b.WriteString(") VALUES ")

	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

// rowsPerStatement is how many rows of width columns fit the placeholder cap.
func (d Dialect) rowsPerStatement(columns int) int {
	if columns == 0 {
		return 1
	}
	n := d.MaxParams / columns
	if n < 1 {
		n = 1
	}
	return n
}

func backtickQuote(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

func doubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func splitTable(table string) (schema, name string) {
	if i := strings.IndexByte(table, '.'); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "", table
}

// MySQLDSN builds a go-sql-driver DSN from cfg. Timestamps are read back
// as time.Time in UTC.
func MySQLDSN(cfg *tripload.ConnectionConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	switch cfg.SSLMode {
	case "require", "verify-ca", "verify-full":
		mc.TLSConfig = "true"
	case "prefer", "allow":
		mc.TLSConfig = "preferred"
	}
	for k, v := range cfg.AdditionalParams {
		mc.Params[k] = v
	}
	return mc.FormatDSN()
}

// SQLiteDSN builds a modernc.org/sqlite DSN for cfg.Path.
func SQLiteDSN(cfg *tripload.ConnectionConfig) string {
	path := cfg.Path
	if path == "" || path == ":memory:" {
		return ":memory:"
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
