package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/internal/normalize"
	"github.com/vvka-141/tripload/internal/sink/sqlsink"
	"github.com/vvka-141/tripload/internal/source"
	"github.com/vvka-141/tripload/pkg/tripload"
)

func openSQLite(t *testing.T) *sqlsink.Sink {
	t.Helper()
	s, err := sqlsink.Open(context.Background(),
		&tripload.ConnectionConfig{Driver: tripload.DriverSQLite, Path: ":memory:"},
		logging.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoad_SQLiteEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("loads 250,000 rows")
	}

	sink := openSQLite(t)
	sizes := &sizeRecorder{Sink: sink}
	var progress progressLog

	result, err := New(WithProgress(&progress)).Load(context.Background(), request(newTripSource(250_000), sizes, 100_000))
	require.NoError(t, err)

	assert.Equal(t, []int{100_000, 100_000, 50_000}, sizes.sizes)
	assert.Equal(t, []int{0, 1, 2}, progress.indices())
	assert.Equal(t, tripload.StateDone, result.State)

	rows, exists, err := sink.RowCount(context.Background(), "yellow_taxi_trips")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(250_000), rows)
}

func TestLoad_SQLiteFailFastKeepsPrefix(t *testing.T) {
	sink := openSQLite(t)
	src := newTripSource(1000)
	src.bad[730] = true

	result, err := New().Load(context.Background(), request(src, sink, 250))
	assert.True(t, errors.Is(err, tripload.ErrDataFormat))
	assert.Equal(t, 2, result.Chunks)

	rows, _, err := sink.RowCount(context.Background(), "yellow_taxi_trips")
	require.NoError(t, err)
	assert.Equal(t, int64(500), rows, "exactly the batches before the failure")
}

func TestLoad_SQLiteFromCSV(t *testing.T) {
	csv := "VendorID,lpep_pickup_datetime,lpep_dropoff_datetime,store_and_fwd_flag,trip_distance\n" +
		"2,2019-09-01 00:10:53,2019-09-01 00:23:46,N,0.00\n" +
		"2,2019-09-01 00:31:22,2019-09-01 00:44:37,N,1.28\n" +
		"1,2019-09-01 00:45:01,,Y,3\n"

	src, err := source.NewCSV(strings.NewReader(csv))
	require.NoError(t, err)
	sink := openSQLite(t)

	variant, err := normalize.DefaultRegistry().Resolve("green_tripdata_2019-09.csv.gz")
	require.NoError(t, err)

	req := Request{Source: src, Sink: sink, Table: "green_taxi_trips", Variant: variant, ChunkSize: 2}
	result, err := New().Load(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Chunks)
	assert.Equal(t, tripload.Schema{
		{Name: "VendorID", Type: tripload.TypeInteger},
		{Name: "pickup_datetime", Type: tripload.TypeTimestamp},
		{Name: "dropoff_datetime", Type: tripload.TypeTimestamp},
		{Name: "store_and_fwd_flag", Type: tripload.TypeText},
		{Name: "trip_distance", Type: tripload.TypeFloat},
	}, result.Schema)

	rows, _, err := sink.RowCount(context.Background(), "green_taxi_trips")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
}

func TestLoad_SQLiteFractionAfterPrimingRows(t *testing.T) {
	var csv strings.Builder
	csv.WriteString("VendorID,tpep_pickup_datetime,tpep_dropoff_datetime,tolls_amount\n")
	for i := 0; i < 300; i++ {
		tolls := "0"
		if i == 150 {
			tolls = "6.12"
		}
		fmt.Fprintf(&csv, "1,2021-01-01 00:%02d:%02d,2021-01-01 01:%02d:%02d,%s\n", i/60, i%60, i/60, i%60, tolls)
	}

	src, err := source.NewCSV(strings.NewReader(csv.String()))
	require.NoError(t, err)
	sink := openSQLite(t)

	result, err := New().Load(context.Background(), request(src, sink, 100))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Chunks)
	assert.Equal(t, tripload.TypeInteger, result.Schema[0].Type)
	assert.Equal(t, tripload.TypeFloat, result.Schema[3].Type)

	rows, _, err := sink.RowCount(context.Background(), "yellow_taxi_trips")
	require.NoError(t, err)
	assert.Equal(t, int64(300), rows)
}

// sizeRecorder records the size of every append passed to Sink.
type sizeRecorder struct {
	tripload.Sink
	sizes []int
}

func (r *sizeRecorder) Append(ctx context.Context, table string, b tripload.Batch) (int64, error) {
	r.sizes = append(r.sizes, b.Len())
	return r.Sink.Append(ctx, table, b)
}
