package sqlsink

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/pkg/tripload"
)

func openMemory(t *testing.T) *Sink {
	t.Helper()
	s, err := Open(context.Background(), &tripload.ConnectionConfig{Driver: tripload.DriverSQLite, Path: ":memory:"}, logging.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var tripSchema = tripload.Schema{
	{Name: "VendorID", Type: tripload.TypeInteger},
	{Name: "pickup_datetime", Type: tripload.TypeTimestamp},
	{Name: "trip_distance", Type: tripload.TypeFloat},
	{Name: "store_and_fwd_flag", Type: tripload.TypeText},
}

func tripBatch(n int) tripload.Batch {
	b := tripload.Batch{Columns: tripSchema.Names()}
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		b.Rows = append(b.Rows, []any{int64(i % 2), base.Add(time.Duration(i) * time.Second), float64(i) / 10, "N"})
	}
	return b
}

func columnNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestSQLiteSink_ReplaceCreatesEmptyTable(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "yellow_taxi_trips", tripSchema))

	rows, exists, err := s.RowCount(ctx, "yellow_taxi_trips")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(0), rows)
	assert.Equal(t, tripSchema.Names(), columnNames(t, s.db, "yellow_taxi_trips"))
}

func TestSQLiteSink_ReplaceDropsPreviousData(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "trips", tripSchema))
	_, err := s.Append(ctx, "trips", tripBatch(10))
	require.NoError(t, err)

	narrow := tripload.Schema{{Name: "a", Type: tripload.TypeText}}
	require.NoError(t, s.Replace(ctx, "trips", narrow))

	rows, _, err := s.RowCount(ctx, "trips")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	assert.Equal(t, []string{"a"}, columnNames(t, s.db, "trips"))
}

func TestSQLiteSink_AppendAcrossStatements(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, "trips", tripSchema))

	// 20,000 rows x 4 columns exceeds one statement's placeholder cap.
	n, err := s.Append(ctx, "trips", tripBatch(20_000))
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), n)

	rows, _, err := s.RowCount(ctx, "trips")
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), rows)
}

func TestSQLiteSink_StoresTypedValues(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, "trips", tripSchema))

	batch := tripload.Batch{
		Columns: tripSchema.Names(),
		Rows: [][]any{
			{2.0, time.Date(2021, 1, 1, 0, 30, 10, 0, time.UTC), int64(3), int64(7)},
			{nil, nil, nil, nil},
		},
	}
	_, err := s.Append(ctx, "trips", batch)
	require.NoError(t, err)

	var vendor sql.NullInt64
	var distance sql.NullFloat64
	var flag sql.NullString
	var pickup sql.NullTime
	err = s.db.QueryRow(`SELECT "VendorID", pickup_datetime, trip_distance, store_and_fwd_flag FROM trips WHERE "VendorID" IS NOT NULL`).
		Scan(&vendor, &pickup, &distance, &flag)
	require.NoError(t, err)

	assert.Equal(t, int64(2), vendor.Int64)
	assert.Equal(t, 3.0, distance.Float64)
	assert.Equal(t, "7", flag.String)
	assert.True(t, pickup.Time.Equal(time.Date(2021, 1, 1, 0, 30, 10, 0, time.UTC)))
}

func TestSQLiteSink_AppendRejectsUncoercibleValue(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, "trips", tripSchema))

	batch := tripBatch(3)
	batch.Rows[2][0] = "not a number"

	_, err := s.Append(ctx, "trips", batch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tripload.ErrSink))

	var se *tripload.SinkError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "append", se.Op)
	assert.Contains(t, se.Error(), "row 2")

	rows, _, err := s.RowCount(ctx, "trips")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows, "a rejected batch writes nothing")
}

func TestSQLiteSink_AppendWithoutReplace(t *testing.T) {
	s := openMemory(t)

	_, err := s.Append(context.Background(), "trips", tripBatch(1))
	assert.True(t, errors.Is(err, tripload.ErrSink))
}

func TestSQLiteSink_AppendUnknownColumn(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, "trips", tripSchema))

	batch := tripload.Batch{Columns: []string{"bogus"}, Rows: [][]any{{"x"}}}
	_, err := s.Append(ctx, "trips", batch)
	assert.True(t, errors.Is(err, tripload.ErrSink))
}

func TestSQLiteSink_RowCountMissingTable(t *testing.T) {
	s := openMemory(t)

	rows, exists, err := s.RowCount(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, int64(0), rows)
}

func TestSQLiteSink_SchemaQualifiedTable(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "main.trips", tripSchema))
	_, err := s.Append(ctx, "main.trips", tripBatch(5))
	require.NoError(t, err)

	rows, exists, err := s.RowCount(ctx, "main.trips")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(5), rows)
}

func TestSQLiteSink_ReplaceRejectsEmptySchema(t *testing.T) {
	s := openMemory(t)
	err := s.Replace(context.Background(), "trips", nil)
	assert.True(t, errors.Is(err, tripload.ErrSink))
}

func TestDialect_Statements(t *testing.T) {
	schema := tripload.Schema{
		{Name: "id", Type: tripload.TypeInteger},
		{Name: "at", Type: tripload.TypeTimestamp},
	}

	tests := []struct {
		name       string
		dialect    Dialect
		table      string
		wantCreate string
		wantInsert string
	}{
		{
			name:       "mysql",
			dialect:    MySQL,
			table:      "ny_taxi.trips",
			wantCreate: "CREATE TABLE `ny_taxi`.`trips` (`id` BIGINT, `at` DATETIME(6))",
			wantInsert: "INSERT INTO `ny_taxi`.`trips` (`id`, `at`) VALUES (?, ?), (?, ?)",
		},
		{
			name:       "sqlite",
			dialect:    SQLite,
			table:      `odd"name`,
			wantCreate: `CREATE TABLE "odd""name" ("id" INTEGER, "at" TIMESTAMP)`,
			wantInsert: `INSERT INTO "odd""name" ("id", "at") VALUES (?, ?), (?, ?)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCreate, tt.dialect.createTable(tt.table, schema))
			assert.Equal(t, tt.wantInsert, tt.dialect.insert(tt.table, schema.Names(), 2))
		})
	}
}

func TestDialect_RowsPerStatement(t *testing.T) {
	assert.Equal(t, 32766/19, SQLite.rowsPerStatement(19))
	assert.Equal(t, 1, Dialect{MaxParams: 3}.rowsPerStatement(10))
	assert.Equal(t, 1, SQLite.rowsPerStatement(0))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor(tripload.DriverMySQL)
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name)

	_, err = DialectFor(tripload.DriverPostgres)
	assert.True(t, errors.Is(err, tripload.ErrInvalidConfig))
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(&tripload.ConnectionConfig{
		Driver:   tripload.DriverMySQL,
		Host:     "db.internal",
		Username: "root",
		Password: "p@ss",
		Database: "ny_taxi",
		SSLMode:  "require",
	})

	assert.True(t, strings.HasPrefix(dsn, "root:p@ss@tcp(db.internal:3306)/ny_taxi?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "tls=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:", SQLiteDSN(&tripload.ConnectionConfig{}))
	assert.Equal(t, "file:/tmp/trips.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		SQLiteDSN(&tripload.ConnectionConfig{Path: "/tmp/trips.db"}))
}
