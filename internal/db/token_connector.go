package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/internal/retry"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// tokenExpiryWarning is the remaining lifetime below which a freshly
// acquired token is reported. A long load may outlive it; connections
// already open keep working, new ones fail.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// The token is acquired from a TokenProvider and used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *tripload.ConnectionConfig
	tokenProvider TokenProvider
	logger        tripload.Logger
	retryExecutor *retry.Executor
}

func NewTokenBasedConnector(config *tripload.ConnectionConfig, tokenProvider TokenProvider, logger tripload.Logger) *TokenBasedConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		logger:        logger,
		retryExecutor: newConnectExecutor(logger),
	}
}

// Connect acquires a token on every attempt, so a retry after an expired
// token starts from a fresh one.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	c.logger.Verbose("Authenticating with %s", c.tokenProvider)

	pool, err := retry.Do(ctx, c.retryExecutor, func(ctx context.Context) (*pgxpool.Pool, error) {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire token from %s: %w", c.tokenProvider, err)
		}

		if left := time.Until(expiresOn); left < tokenExpiryWarning {
			c.logger.Info("Warning: %s token expires in %v", c.tokenProvider, left.Round(time.Second))
		}

		withToken := *c.config
		withToken.Password = token

		return openPool(ctx, BuildConnectionString(&withToken), c.config, c.logger)
	})
	if err != nil {
		return nil, connectFailed(err)
	}
	return pool, nil
}
