package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool"
	"github.com/cpamm-labs/cpamm-server/pkg/database/query"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed pool.Store
func New(db *sql.DB) pool.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Save implements pool.Store.Save
func (s *store) Save(ctx context.Context, record *pool.Record) error {
	model, err := toPoolModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	res := fromPoolModel(model)
	res.CopyTo(record)

	return nil
}

// GetByAddress implements pool.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*pool.Record, error) {
	model, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}

	return fromPoolModel(model), nil
}

// GetByPoolMint implements pool.Store.GetByPoolMint
func (s *store) GetByPoolMint(ctx context.Context, mint string) (*pool.Record, error) {
	model, err := dbGetByPoolMint(ctx, s.db, mint)
	if err != nil {
		return nil, err
	}

	return fromPoolModel(model), nil
}

// GetAll implements pool.Store.GetAll
func (s *store) GetAll(ctx context.Context, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*pool.Record, error) {
	models, err := dbGetAll(ctx, s.db, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*pool.Record, len(models))
	for i, model := range models {
		res[i] = fromPoolModel(model)
	}
	return res, nil
}

// GetCountByPausedState implements pool.Store.GetCountByPausedState
func (s *store) GetCountByPausedState(ctx context.Context, isPaused bool) (uint64, error) {
	return dbGetCountByPausedState(ctx, s.db, isPaused)
}
