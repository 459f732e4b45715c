package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/tripload/internal/config"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Note: Password is NOT included as a CLI flag for security reasons.
// Use $PGPASSWORD (PostgreSQL), $MYSQL_PWD (MySQL), .env, or a connection
// string with an embedded password instead.
type GranularConnFlags struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
	Path     string // SQLite database file
}

// IsEmpty returns true if no connection-related granular flags were provided by the user.
// Database is excluded because it can override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Driver == "" && g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == "" && g.Path == ""
}

// CloudFlags selects and parameterizes cloud IAM authentication.
// The Azure client secret is only read from $AZURE_CLIENT_SECRET.
type CloudFlags struct {
	AuthMethod     string
	AzureTenantID  string // Overrides AZURE_TENANT_ID
	AzureClientID  string // Overrides AZURE_CLIENT_ID
	AWSRegion      string // Overrides AWS_REGION
	GoogleInstance string
}

// EnvVars represents the environment variables consulted during resolution.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string // Full connection string (Heroku/Rails convention)

	TRIPLOAD_CONNECTION_STRING string

	MYSQL_PWD string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string

	AWS_REGION string
}

func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:                     os.Getenv("PGHOST"),
		PGPORT:                     os.Getenv("PGPORT"),
		PGUSER:                     os.Getenv("PGUSER"),
		PGPASSWORD:                 os.Getenv("PGPASSWORD"),
		PGDATABASE:                 os.Getenv("PGDATABASE"),
		PGSSLMODE:                  os.Getenv("PGSSLMODE"),
		DATABASE_URL:               os.Getenv("DATABASE_URL"),
		TRIPLOAD_CONNECTION_STRING: os.Getenv("TRIPLOAD_CONNECTION_STRING"),
		MYSQL_PWD:                  os.Getenv("MYSQL_PWD"),
		AZURE_TENANT_ID:            os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:            os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:        os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:                 os.Getenv("AWS_REGION"),
	}
}

// HasAzureCredentials returns true if Azure Entra ID environment variables are set.
func (e *EnvVars) HasAzureCredentials() bool {
	return e.AZURE_TENANT_ID != "" || e.AZURE_CLIENT_ID != ""
}

// ResolveConnectionParams resolves the destination connection with this precedence:
//
//  1. --connection flag
//  2. $TRIPLOAD_CONNECTION_STRING, then $DATABASE_URL, when no granular flag is set
//  3. granular flags, then PG* environment variables, then tripload.yaml
//  4. defaults (postgres on localhost:5432, sslmode prefer)
//
// A -d flag overrides the database of a connection string.
//
// Authentication: an explicit --auth (or connection.auth_method) wins.
// Otherwise Azure Entra ID is selected when AZURE_TENANT_ID or AZURE_CLIENT_ID
// is present. Cloud authentication is PostgreSQL only.
//
// Returns an ErrInvalidConfig error if both --connection and granular
// flags are provided.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	cloudFlags *CloudFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*tripload.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if cloudFlags == nil {
		cloudFlags = &CloudFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (--driver, -h, -p, -U, --sslmode, --path)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://root@localhost:5432/ny_taxi\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U root -d ny_taxi\n"+
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=root: %w",
			tripload.ErrInvalidConfig,
		)
	}

	var cfg *tripload.ConnectionConfig
	var err error

	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case granularFlags.IsEmpty() && envVars.TRIPLOAD_CONNECTION_STRING != "":
		cfg, err = resolveFromConnectionString(envVars.TRIPLOAD_CONNECTION_STRING, envVars)
	case granularFlags.IsEmpty() && envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, err
	}

	if granularFlags.Database != "" && cfg.Driver != tripload.DriverSQLite {
		cfg.Database = granularFlags.Database
	}

	if err := applyAuth(cfg, cloudFlags, envVars, pc); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyAuth selects the authentication method and attaches cloud credentials.
// Flags take precedence over environment variables, which take precedence
// over tripload.yaml.
func applyAuth(cfg *tripload.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	methodName := firstNonEmpty(flags.AuthMethod, pc.AuthMethod)
	method, err := tripload.ParseAuthMethod(methodName)
	if err != nil {
		return err
	}

	tenantID := firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
	clientID := firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)

	if methodName == "" && (flags.AzureTenantID != "" || flags.AzureClientID != "" || env.HasAzureCredentials()) &&
		cfg.Driver == tripload.DriverPostgres {
		method = tripload.AuthMethodAzureEntraID
	}

	if method != tripload.AuthMethodStandard && cfg.Driver != tripload.DriverPostgres {
		return fmt.Errorf("%s authentication is only available for postgres, not %s: %w", method, cfg.Driver, tripload.ErrInvalidConfig)
	}

	cfg.AuthMethod = method
	switch method {
	case tripload.AuthMethodAzureEntraID:
		cfg.AzureTenantID = tenantID
		cfg.AzureClientID = clientID
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case tripload.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case tripload.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	}
	return nil
}

// resolveFromConnectionString parses a connection string. PGSSLMODE fills in
// a missing sslmode for PostgreSQL, following libpq.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*tripload.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	if cfg.Driver == tripload.DriverPostgres {
		if cfg.SSLMode == "" {
			cfg.SSLMode = envVars.PGSSLMODE
		}
		if cfg.SSLMode == "" {
			cfg.SSLMode = "prefer"
		}
	}
	return cfg, nil
}

// resolveFromGranularParams builds ConnectionConfig from flags, environment
// and tripload.yaml, in that order of precedence, per parameter. PG*
// variables only apply to the postgres driver.
func resolveFromGranularParams(flags *GranularConnFlags, envVars *EnvVars, pc config.ConnectionConfig) (*tripload.ConnectionConfig, error) {
	driver, err := tripload.ParseDriver(firstNonEmpty(flags.Driver, pc.Driver))
	if err != nil {
		return nil, err
	}

	cfg := &tripload.ConnectionConfig{
		Driver:           driver,
		AuthMethod:       tripload.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	if driver == tripload.DriverSQLite {
		cfg.Path = firstNonEmpty(flags.Path, pc.Path)
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite needs a database file (--path or connection.path): %w", tripload.ErrInvalidConfig)
		}
		return cfg, nil
	}

	var env EnvVars
	if driver == tripload.DriverPostgres {
		env = *envVars
	}

	cfg.Host = firstNonEmpty(flags.Host, env.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", env.PGPORT, tripload.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	case driver == tripload.DriverMySQL:
		cfg.Port = 3306
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstNonEmpty(flags.Username, env.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Database = firstNonEmpty(flags.Database, env.PGDATABASE, pc.Database)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, env.PGSSLMODE, pc.SSLMode)

	if driver == tripload.DriverPostgres {
		cfg.Password = envVars.PGPASSWORD
		if cfg.SSLMode == "" {
			cfg.SSLMode = "prefer"
		}
	} else {
		cfg.Password = envVars.MYSQL_PWD
		if cfg.Database == "" {
			return nil, fmt.Errorf("mysql needs a database (-d or connection.database): %w", tripload.ErrInvalidConfig)
		}
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
