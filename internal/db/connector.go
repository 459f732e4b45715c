package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/internal/retry"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns bounds the pool. A load uses one connection at a time;
	// the second covers the existence check racing a slow release.
	DefaultMaxConns = 2

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps the connection alive between chunks of a
	// slow source.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger tripload.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("postgres %s: %s", strings.ToLower(notice.Severity), notice.Message)
	}
}

func newConnectExecutor(logger tripload.Logger) *retry.Executor {
	strategy := retry.NewExponentialBackoff(tripload.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(tripload.DefaultRetryInitialDelay),
		retry.WithMaxDelay(tripload.DefaultRetryMaxDelay),
	)
	return retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(), strategy).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Info("Connection attempt %d failed, retrying in %v: %v", attempt+1, delay, err)
		})
}

// openPool parses connStr, opens a pool and pings it once.
func openPool(ctx context.Context, connStr string, config *tripload.ConnectionConfig, logger tripload.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w: %w", tripload.ErrInvalidConfig, err)
	}

	configurePool(poolConfig, logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}
	return pool, nil
}

func connectFailed(err error) error {
	if err == nil || errors.Is(err, tripload.ErrInvalidConfig) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", tripload.ErrConnectionFailed, err)
}

// StandardConnector implements the Connector interface for standard
// username/password authentication with automatic retry on transient failures.
type StandardConnector struct {
	config        *tripload.ConnectionConfig
	logger        tripload.Logger
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
// Retry behavior uses tripload defaults: DefaultRetryMaxAttempts attempts,
// exponential backoff starting at DefaultRetryInitialDelay, max DefaultRetryMaxDelay.
func NewStandardConnector(config *tripload.ConnectionConfig, logger tripload.Logger) *StandardConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &StandardConnector{
		config:        config,
		logger:        logger,
		retryExecutor: newConnectExecutor(logger),
	}
}

// Connect establishes a connection pool using standard authentication with automatic retry.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := BuildConnectionString(c.config)

	pool, err := retry.Do(ctx, c.retryExecutor, func(ctx context.Context) (*pgxpool.Pool, error) {
		return openPool(ctx, connStr, c.config, c.logger)
	})
	if err != nil {
		return nil, connectFailed(err)
	}
	return pool, nil
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod.
func NewConnector(config *tripload.ConnectionConfig, logger tripload.Logger) (tripload.Connector, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if config.Driver != "" && config.Driver != tripload.DriverPostgres {
		return nil, fmt.Errorf("driver %s has no PostgreSQL connector: %w", config.Driver, tripload.ErrInvalidConfig)
	}

	switch config.AuthMethod {
	case tripload.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case tripload.AuthMethodAWSIAM, tripload.AuthMethodAzureEntraID:
		provider, err := NewTokenProvider(config)
		if err != nil {
			return nil, err
		}
		return NewTokenBasedConnector(config, provider, logger), nil
	case tripload.AuthMethodGoogleIAM:
		if config.GoogleInstance == "" {
			return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", tripload.ErrInvalidConfig)
		}
		if config.Username == "" {
			return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", tripload.ErrInvalidConfig)
		}
		return NewGoogleCloudSQLConnector(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, tripload.ErrUnsupportedAuthMethod)
	}
}

// Factory adapts NewConnector to tripload.ConnectorFactory with a fixed logger.
func Factory(logger tripload.Logger) tripload.ConnectorFactory {
	return func(config *tripload.ConnectionConfig) (tripload.Connector, error) {
		return NewConnector(config, logger)
	}
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port (docker compose services listen on the service name)

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - Running outside the docker network that defines this host

Original error: %w`, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or .env)
  - Wrong username

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

tripload creates tables, not databases. To create it:
  createdb %s

Original error: %w`, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server does not support SSL (try --sslmode=disable for local containers)
  - Certificate verification failed (try --sslmode=require)

Original error: %w`, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Stale sessions from interrupted loads (application_name starts with %q)

Original error: %w`, database, tripload.ApplicationName, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}
