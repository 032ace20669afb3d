package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool"
	"github.com/cpamm-labs/cpamm-server/pkg/database/query"
	"github.com/cpamm-labs/cpamm-server/pkg/pointer"
)

type ById []*pool.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu          sync.Mutex
	poolRecords []*pool.Record
	last        uint64
}

// New returns a new in memory pool.Store
func New() pool.Store {
	return &store{}
}

// Save implements pool.Store.Save
func (s *store) Save(_ context.Context, data *pool.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	if item := s.findPool(data); item != nil {
		if data.SolanaBlock <= item.SolanaBlock {
			return pool.ErrStalePoolState
		}

		item.IsPaused = data.IsPaused

		item.TradeFeeBps = data.TradeFeeBps
		item.WithdrawFeeBps = data.WithdrawFeeBps
		item.AdminTradeFeeBps = data.AdminTradeFeeBps
		item.AdminWithdrawFeeBps = data.AdminWithdrawFeeBps

		item.Name = pointer.StringCopy(data.Name)
		item.Symbol = pointer.StringCopy(data.Symbol)

		item.SolanaBlock = data.SolanaBlock

		item.LastUpdatedAt = time.Now()

		item.CopyTo(data)
	} else {
		if data.Id == 0 {
			data.Id = s.last
		}
		data.LastUpdatedAt = time.Now()
		c := data.Clone()
		s.poolRecords = append(s.poolRecords, c)
	}

	return nil
}

// GetByAddress implements pool.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*pool.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findPoolByAddress(address); item != nil {
		return item.Clone(), nil
	}
	return nil, pool.ErrPoolNotFound
}

// GetByPoolMint implements pool.Store.GetByPoolMint
func (s *store) GetByPoolMint(_ context.Context, mint string) (*pool.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findPoolByPoolMint(mint); item != nil {
		return item.Clone(), nil
	}
	return nil, pool.ErrPoolNotFound
}

// GetAll implements pool.Store.GetAll
func (s *store) GetAll(_ context.Context, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*pool.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.poolRecords) > 0 {
		res := s.filterPools(s.poolRecords, cursor, limit, direction)

		if len(res) == 0 {
			return nil, pool.ErrPoolNotFound
		}

		return res, nil
	}

	return nil, pool.ErrPoolNotFound
}

// GetCountByPausedState implements pool.Store.GetCountByPausedState
func (s *store) GetCountByPausedState(_ context.Context, isPaused bool) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint64
	for _, item := range s.poolRecords {
		if item.IsPaused == isPaused {
			count++
		}
	}
	return count, nil
}

func (s *store) findPool(data *pool.Record) *pool.Record {
	for _, item := range s.poolRecords {
		if item.Id == data.Id {
			return item
		}
		if data.Address == item.Address {
			return item
		}
	}
	return nil
}

func (s *store) findPoolByAddress(address string) *pool.Record {
	for _, item := range s.poolRecords {
		if address == item.Address {
			return item
		}
	}
	return nil
}

func (s *store) findPoolByPoolMint(mint string) *pool.Record {
	for _, item := range s.poolRecords {
		if mint == item.PoolMint {
			return item
		}
	}
	return nil
}

func (s *store) filterPools(items []*pool.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*pool.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*pool.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item.Clone())
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item.Clone())
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	}

	if len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.poolRecords = nil
	s.last = 0
}
