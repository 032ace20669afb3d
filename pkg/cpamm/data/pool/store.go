package pool

import (
	"context"
	"errors"

	"github.com/cpamm-labs/cpamm-server/pkg/database/query"
)

var (
	ErrPoolNotFound   = errors.New("no records could be found")
	ErrStalePoolState = errors.New("pool state is stale")
)

type Store interface {
	// Save saves a pool account's state
	Save(ctx context.Context, record *Record) error

	// GetByAddress gets a pool by its account address
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetByPoolMint gets a pool by its LP mint address
	GetByPoolMint(ctx context.Context, mint string) (*Record, error)

	// GetAll gets all pool records, paged by cursor
	GetAll(ctx context.Context, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// GetCountByPausedState gets the number of pools with the provided paused state
	GetCountByPausedState(ctx context.Context, isPaused bool) (uint64, error)
}
