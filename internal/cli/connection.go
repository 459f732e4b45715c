package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/joho/godotenv"

	"github.com/vvka-141/tripload/internal/config"
	"github.com/vvka-141/tripload/internal/db"
	"github.com/vvka-141/tripload/internal/normalize"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// connectionFlags holds the connection-related flag values.
type connectionFlags struct {
	connection     string
	driver         string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	path           string
	auth           string
	azureTenantID  string
	azureClientID  string
	awsRegion      string
	googleInstance string
}

// resolveConnection resolves the destination from flags, environment and
// tripload.yaml. See db.ResolveConnectionParams for the precedence rules.
func resolveConnection(flags connectionFlags, projectCfg *config.ProjectConfig) (*tripload.ConnectionConfig, error) {
	granular := &db.GranularConnFlags{
		Driver:   flags.driver,
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Database: flags.database,
		SSLMode:  flags.sslMode,
		Path:     flags.path,
	}
	cloud := &db.CloudFlags{
		AuthMethod:     flags.auth,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
		AWSRegion:      flags.awsRegion,
		GoogleInstance: flags.googleInstance,
	}

	connConfig, err := db.ResolveConnectionParams(flags.connection, granular, cloud, db.LoadFromEnvironment(), projectCfg)
	if err != nil {
		return nil, err
	}
	if err := requireDatabase(connConfig); err != nil {
		return nil, err
	}
	return connConfig, nil
}

// requireDatabase rejects server connections without a database name.
func requireDatabase(cfg *tripload.ConnectionConfig) error {
	if cfg.Driver == tripload.DriverSQLite || cfg.Database != "" {
		return nil
	}
	return fmt.Errorf("database name is required\n"+
		"Provide via:\n"+
		"  1. --database/-d flag: tripload ingest --source <url> --table trips -d ny_taxi\n"+
		"  2. Connection string: --connection \"postgresql://root@localhost:5432/ny_taxi\"\n"+
		"  3. Environment variable: export PGDATABASE=ny_taxi\n"+
		"  4. tripload.yaml: connection.database: %w", tripload.ErrInvalidConfig)
}

// loadProjectConfig loads .env and the project configuration. An explicit
// path must exist; the default tripload.yaml in the working directory is
// optional and yields a nil config when absent.
func loadProjectConfig(path string) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	if path != "" {
		cfg, err := config.LoadFile(path)
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("config file %s does not exist: %w", path, tripload.ErrInvalidConfig)
		}
		return cfg, err
	}

	cfg, err := config.Load(".")
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return cfg, nil
}

// buildRegistry returns the built-in variants plus those declared in
// tripload.yaml. Declared variants replace built-ins of the same name.
func buildRegistry(projectCfg *config.ProjectConfig) (*normalize.Registry, error) {
	registry := normalize.DefaultRegistry()
	if projectCfg == nil {
		return registry, nil
	}
	for _, v := range projectCfg.Variants {
		if err := registry.Register(v.Variant()); err != nil {
			return nil, fmt.Errorf("variant %q in %s: %w", v.Name, config.ConfigFileName, err)
		}
	}
	return registry, nil
}

// logConnectionVerbose prints the resolved destination. Passwords and
// secrets are never printed.
func logConnectionVerbose(w io.Writer, cfg *tripload.ConnectionConfig) {
	fmt.Fprintf(w, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(w, "  Driver: %s\n", cfg.Driver)
	if cfg.Driver == tripload.DriverSQLite {
		fmt.Fprintf(w, "  Path: %s\n", cfg.Path)
		return
	}
	fmt.Fprintf(w, "  Host: %s\n", cfg.Host)
	fmt.Fprintf(w, "  Port: %d\n", cfg.Port)
	fmt.Fprintf(w, "  User: %s\n", cfg.Username)
	fmt.Fprintf(w, "  Database: %s\n", cfg.Database)
	if cfg.SSLMode != "" {
		fmt.Fprintf(w, "  SSL Mode: %s\n", cfg.SSLMode)
	}
	fmt.Fprintf(w, "  Auth Method: %s\n", cfg.AuthMethod)
}
