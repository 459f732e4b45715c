package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/tripload/internal/config"
	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/internal/normalize"
	"github.com/vvka-141/tripload/internal/sink/sqlsink"
	"github.com/vvka-141/tripload/pkg/tripload"
)

func resetIngestFlags() {
	ingestFlags = ingestFlagValues{
		chunkSize:   tripload.DefaultChunkSize,
		primingRows: tripload.DefaultPrimingRows,
		delimiter:   ",",
		timeout:     tripload.DefaultLoadTimeout,
	}
}

func clearConnectionEnv(t *testing.T) {
	t.Helper()
	for _, envVar := range []string{
		"TRIPLOAD_CONNECTION_STRING", "DATABASE_URL", "PGHOST", "PGPORT", "PGUSER",
		"PGDATABASE", "PGSSLMODE", "AZURE_TENANT_ID", "AZURE_CLIENT_ID",
	} {
		t.Setenv(envVar, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestIngestCmd_ArgsValidation(t *testing.T) {
	err := ingestCmd.Args(ingestCmd, []string{"yellow.csv"})
	if err == nil {
		t.Fatal("Expected error for positional args")
	}
	exitCode := tripload.ExitCodeForError(err)
	if exitCode != tripload.ExitUsageError {
		t.Errorf("Expected exit code %d (usage), got %d for: %v", tripload.ExitUsageError, exitCode, err)
	}
}

func TestIngestCmd_MissingTable(t *testing.T) {
	resetIngestFlags()
	clearConnectionEnv(t)
	ingestFlags.source = "yellow_tripdata_2021-01.csv"
	ingestFlags.connection = "sqlite::memory:"

	err := runIngest(ingestCmd, nil)
	if !errors.Is(err, tripload.ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if tripload.ExitCodeForError(err) != tripload.ExitConfigError {
		t.Errorf("Expected exit code %d, got %d", tripload.ExitConfigError, tripload.ExitCodeForError(err))
	}
}

func TestIngestCmd_ConnectionAndGranularFlags(t *testing.T) {
	resetIngestFlags()
	clearConnectionEnv(t)
	ingestFlags.source = "yellow.csv"
	ingestFlags.table = "trips"
	ingestFlags.connection = "postgresql://root@localhost/ny_taxi"
	ingestFlags.host = "otherhost"

	err := runIngest(ingestCmd, nil)
	if err == nil {
		t.Fatal("Expected error for --connection with granular flags")
	}
	if !strings.Contains(err.Error(), "cannot specify both") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestIngestCmd_MissingDatabase(t *testing.T) {
	resetIngestFlags()
	clearConnectionEnv(t)
	ingestFlags.source = "yellow.csv"
	ingestFlags.table = "trips"
	ingestFlags.host = "localhost"

	err := runIngest(ingestCmd, nil)
	if !errors.Is(err, tripload.ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "database name is required") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestIngestCmd_UnknownVariant(t *testing.T) {
	resetIngestFlags()
	clearConnectionEnv(t)
	t.Setenv("TRIPLOAD_NON_INTERACTIVE", "1")
	ingestFlags.source = "trips.csv"
	ingestFlags.table = "trips"
	ingestFlags.variant = "purple"
	ingestFlags.connection = "sqlite::memory:"

	err := runIngest(ingestCmd, nil)
	if tripload.ExitCodeForError(err) != tripload.ExitConfigError {
		t.Errorf("Expected config error, got %v", err)
	}
}

func TestIngestCmd_MissingSourceFile(t *testing.T) {
	resetIngestFlags()
	clearConnectionEnv(t)
	t.Setenv("TRIPLOAD_NON_INTERACTIVE", "1")
	ingestFlags.source = filepath.Join(t.TempDir(), "yellow_tripdata_missing.csv")
	ingestFlags.table = "trips"
	ingestFlags.connection = "sqlite::memory:"

	err := runIngest(ingestCmd, nil)
	if tripload.ExitCodeForError(err) != tripload.ExitFetchError {
		t.Errorf("Expected fetch error, got %v", err)
	}
}

func TestIngestCmd_SQLiteEndToEnd(t *testing.T) {
	resetIngestFlags()
	clearConnectionEnv(t)
	t.Setenv("TRIPLOAD_NON_INTERACTIVE", "1")

	dir := t.TempDir()
	var csv strings.Builder
	csv.WriteString("VendorID|lpep_pickup_datetime|lpep_dropoff_datetime|trip_distance\n")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&csv, "2|2019-09-01 00:%02d:00|2019-09-01 01:%02d:00|%d.25\n", i, i, i)
	}
	dbPath := filepath.Join(dir, "ny_taxi.db")

	ingestFlags.source = writeFile(t, dir, "green_tripdata_2019-09.csv", csv.String())
	ingestFlags.table = "green_taxi_trips"
	ingestFlags.connection = "sqlite://" + dbPath
	ingestFlags.chunkSize = 10
	ingestFlags.delimiter = "|"

	if err := runIngest(ingestCmd, nil); err != nil {
		t.Fatalf("runIngest() error = %v", err)
	}

	s, err := sqlsink.Open(context.Background(), &tripload.ConnectionConfig{Driver: tripload.DriverSQLite, Path: dbPath}, logging.NewNullLogger())
	if err != nil {
		t.Fatalf("sqlsink.Open() error = %v", err)
	}
	defer s.Close()

	rows, exists, err := s.RowCount(context.Background(), "green_taxi_trips")
	if err != nil {
		t.Fatalf("RowCount() error = %v", err)
	}
	if !exists || rows != 25 {
		t.Errorf("RowCount() = %d, %v; want 25, true", rows, exists)
	}
}

func TestBuildIngestConfig_FileSettingsApplyWhenFlagsUnset(t *testing.T) {
	resetIngestFlags()
	clearConnectionEnv(t)
	dir := t.TempDir()
	ingestFlags.source = "fhv_tripdata_2019-01.csv"
	ingestFlags.configPath = writeFile(t, dir, config.ConfigFileName, `
connection:
  driver: sqlite
  path: /tmp/ny_taxi.db
load:
  table: fhv_trips
  chunk_size: 5000
  priming_rows: 50
  delimiter: tab
  timeout: 45m
variants:
  - name: fhv
    pickup: pickup_datetime
    dropoff: dropOff_datetime
`)

	cfg, registry, err := buildIngestConfig(&cobra.Command{}, false)
	if err != nil {
		t.Fatalf("buildIngestConfig() error = %v", err)
	}

	if cfg.Table != "fhv_trips" {
		t.Errorf("Table = %q, want fhv_trips", cfg.Table)
	}
	if cfg.ChunkSize != 5000 || cfg.PrimingRows != 50 {
		t.Errorf("ChunkSize, PrimingRows = %d, %d; want 5000, 50", cfg.ChunkSize, cfg.PrimingRows)
	}
	if cfg.Delimiter != '\t' {
		t.Errorf("Delimiter = %q, want tab", cfg.Delimiter)
	}
	if cfg.Timeout != 45*time.Minute {
		t.Errorf("Timeout = %v, want 45m", cfg.Timeout)
	}
	if cfg.Connection.Driver != tripload.DriverSQLite || cfg.Connection.Path != "/tmp/ny_taxi.db" {
		t.Errorf("Connection = %+v", cfg.Connection)
	}
	v, err := registry.Resolve(cfg.Source)
	if err != nil || v.Name != "fhv" {
		t.Errorf("Resolve(%q) = %v, %v; want fhv", cfg.Source, v.Name, err)
	}
}

func TestBuildIngestConfig_FlagsOverrideFile(t *testing.T) {
	resetIngestFlags()
	clearConnectionEnv(t)
	ingestFlags.source = "yellow.csv"
	ingestFlags.table = "override"
	ingestFlags.configPath = writeFile(t, t.TempDir(), config.ConfigFileName, `
connection:
  driver: sqlite
  path: trips.db
load:
  table: from_file
  chunk_size: 5000
  timeout: 45m
`)

	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&ingestFlags.chunkSize, "chunk-size", tripload.DefaultChunkSize, "")
	cmd.Flags().DurationVar(&ingestFlags.timeout, "timeout", tripload.DefaultLoadTimeout, "")
	if err := cmd.Flags().Set("chunk-size", "20"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("timeout", "10s"); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := buildIngestConfig(cmd, false)
	if err != nil {
		t.Fatalf("buildIngestConfig() error = %v", err)
	}
	if cfg.Table != "override" {
		t.Errorf("Table = %q, want override", cfg.Table)
	}
	if cfg.ChunkSize != 20 {
		t.Errorf("ChunkSize = %d, want 20", cfg.ChunkSize)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
}

func TestBuildIngestConfig_InvalidDelimiter(t *testing.T) {
	resetIngestFlags()
	clearConnectionEnv(t)
	ingestFlags.source = "yellow.csv"
	ingestFlags.table = "trips"
	ingestFlags.connection = "sqlite::memory:"
	ingestFlags.delimiter = ";;"

	_, _, err := buildIngestConfig(&cobra.Command{}, false)
	if !errors.Is(err, tripload.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadProjectConfig_ExplicitPathMustExist(t *testing.T) {
	_, err := loadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, tripload.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestPrintVariants(t *testing.T) {
	registry := normalize.DefaultRegistry()
	if err := registry.Register(tripload.Variant{Name: "fhv", Pickup: "pickup_datetime", Dropoff: "dropOff_datetime"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := printVariants(&buf, registry); err != nil {
		t.Fatalf("printVariants() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"NAME",
		"tpep_pickup_datetime -> pickup_datetime",
		"lpep_dropoff_datetime -> dropoff_datetime",
		"dropOff_datetime -> dropoff_datetime",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "fhv") > strings.Index(out, "green") {
		t.Errorf("variants should be sorted by name:\n%s", out)
	}
}

func TestBuildRegistry_InvalidVariant(t *testing.T) {
	cfg := &config.ProjectConfig{Variants: []config.VariantConfig{{
		Name: "bad", Pickup: "start", Dropoff: "end", CanonicalPickup: "ts", CanonicalDropoff: "ts",
	}}}
	if _, err := buildRegistry(cfg); !errors.Is(err, tripload.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a variant mapping both columns onto one, got %v", err)
	}
}
