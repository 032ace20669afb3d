package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool"
	pool_memory_client "github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool/memory"
	pool_postgres_client "github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool/postgres"
	pg "github.com/cpamm-labs/cpamm-server/pkg/database/postgres"
	"github.com/cpamm-labs/cpamm-server/pkg/database/query"
)

type DatabaseData interface {
	// Pool Registry
	// --------------------------------------------------------------------------------
	SavePool(ctx context.Context, record *pool.Record) error
	GetPoolByAddress(ctx context.Context, address string) (*pool.Record, error)
	GetPoolByPoolMint(ctx context.Context, mint string) (*pool.Record, error)
	GetAllPools(ctx context.Context, opts ...query.Option) ([]*pool.Record, error)
	GetPoolCountByPausedState(ctx context.Context, isPaused bool) (uint64, error)

	ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error
}

type DatabaseProvider struct {
	pools pool.Store

	db *sqlx.DB
}

func NewDatabaseProvider(dbConfig *pg.Config) (DatabaseData, error) {
	db, err := pg.NewWithUsernameAndPassword(
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Host,
		fmt.Sprint(dbConfig.Port),
		dbConfig.DbName,
	)
	if err != nil {
		return nil, err
	}

	if dbConfig.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(dbConfig.MaxOpenConnections)
	}
	if dbConfig.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(dbConfig.MaxIdleConnections)
	}
	db.SetConnMaxIdleTime(time.Hour)
	db.SetConnMaxLifetime(time.Hour)

	return &DatabaseProvider{
		pools: pool_postgres_client.New(db),

		db: sqlx.NewDb(db, "pgx"),
	}, nil
}

func NewTestDatabaseProvider() DatabaseData {
	return &DatabaseProvider{
		pools: pool_memory_client.New(),
	}
}

func (dp *DatabaseProvider) ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	if dp.db == nil {
		return fn(ctx)
	}

	return pg.ExecuteTxWithinCtx(ctx, dp.db, isolation, fn)
}

// Pool Registry
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) SavePool(ctx context.Context, record *pool.Record) error {
	return dp.pools.Save(ctx, record)
}
func (dp *DatabaseProvider) GetPoolByAddress(ctx context.Context, address string) (*pool.Record, error) {
	return dp.pools.GetByAddress(ctx, address)
}
func (dp *DatabaseProvider) GetPoolByPoolMint(ctx context.Context, mint string) (*pool.Record, error) {
	return dp.pools.GetByPoolMint(ctx, mint)
}
func (dp *DatabaseProvider) GetAllPools(ctx context.Context, opts ...query.Option) ([]*pool.Record, error) {
	req, err := query.DefaultPaginationHandlerWithLimit(maxPoolBatchReqSize, opts...)
	if err != nil {
		return nil, err
	}

	return dp.pools.GetAll(ctx, req.Cursor, req.Limit, req.SortBy)
}
func (dp *DatabaseProvider) GetPoolCountByPausedState(ctx context.Context, isPaused bool) (uint64, error) {
	return dp.pools.GetCountByPausedState(ctx, isPaused)
}
