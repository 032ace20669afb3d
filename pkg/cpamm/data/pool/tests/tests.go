package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool"
	"github.com/cpamm-labs/cpamm-server/pkg/database/query"
	"github.com/cpamm-labs/cpamm-server/pkg/pointer"
)

func RunTests(t *testing.T, s pool.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s pool.Store){
		testPoolHappyPath,
		testStaleUpdates,
		testGetAllPaged,
		testGetCountByPausedState,
	} {
		tf(t, s)
		teardown()
	}
}

func testPoolHappyPath(t *testing.T, s pool.Store) {
	t.Run("testPoolHappyPath", func(t *testing.T) {
		ctx := context.Background()

		start := time.Now()

		expected := newPoolRecord(1)
		cloned := expected.Clone()

		_, err := s.GetByAddress(ctx, expected.Address)
		assert.Equal(t, pool.ErrPoolNotFound, err)

		_, err = s.GetByPoolMint(ctx, expected.PoolMint)
		assert.Equal(t, pool.ErrPoolNotFound, err)

		require.NoError(t, s.Save(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.True(t, expected.LastUpdatedAt.After(start))
		assertEquivalentPoolRecords(t, cloned, expected)

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentPoolRecords(t, cloned, actual)

		actual, err = s.GetByPoolMint(ctx, expected.PoolMint)
		require.NoError(t, err)
		assertEquivalentPoolRecords(t, cloned, actual)

		updated := actual.Clone()
		updated.IsPaused = true
		updated.Name = pointer.String("USDC-SOL Pool")
		updated.Symbol = pointer.String("USDC-SOL")
		updated.SolanaBlock = actual.SolanaBlock + 1
		cloned = updated.Clone()

		require.NoError(t, s.Save(ctx, updated))

		actual, err = s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentPoolRecords(t, cloned, actual)
	})
}

func testStaleUpdates(t *testing.T, s pool.Store) {
	t.Run("testStaleUpdates", func(t *testing.T) {
		ctx := context.Background()

		record := newPoolRecord(1)
		require.NoError(t, s.Save(ctx, record))

		stale := record.Clone()
		stale.IsPaused = true
		assert.Equal(t, pool.ErrStalePoolState, s.Save(ctx, stale))

		stale.SolanaBlock = record.SolanaBlock - 1
		assert.Equal(t, pool.ErrStalePoolState, s.Save(ctx, stale))

		actual, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		assert.False(t, actual.IsPaused)
	})
}

func testGetAllPaged(t *testing.T, s pool.Store) {
	t.Run("testGetAllPaged", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAll(ctx, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, pool.ErrPoolNotFound, err)

		for i := 0; i < 5; i++ {
			require.NoError(t, s.Save(ctx, newPoolRecord(uint64(i+1))))
		}

		actual, err := s.GetAll(ctx, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assert.EqualValues(t, i+1, record.Id)
		}

		actual, err = s.GetAll(ctx, query.EmptyCursor, 3, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)

		actual, err = s.GetAll(ctx, query.ToCursor(actual[len(actual)-1].Id), 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.EqualValues(t, 4, actual[0].Id)
		assert.EqualValues(t, 5, actual[1].Id)

		actual, err = s.GetAll(ctx, query.EmptyCursor, 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assert.EqualValues(t, 5-i, record.Id)
		}
	})
}

func testGetCountByPausedState(t *testing.T, s pool.Store) {
	t.Run("testGetCountByPausedState", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.GetCountByPausedState(ctx, false)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		for i := 0; i < 3; i++ {
			record := newPoolRecord(uint64(i + 1))
			record.IsPaused = i == 0
			require.NoError(t, s.Save(ctx, record))
		}

		count, err = s.GetCountByPausedState(ctx, false)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		count, err = s.GetCountByPausedState(ctx, true)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func newPoolRecord(index uint64) *pool.Record {
	return &pool.Record{
		Address: fmt.Sprintf("pool%d", index),
		Bump:    255,

		Factory: "factory",
		Index:   index,

		Token0Mint:    fmt.Sprintf("mint0-%d", index),
		Token0Reserve: fmt.Sprintf("reserve0-%d", index),
		Token0Fees:    fmt.Sprintf("fees0-%d", index),

		Token1Mint:    fmt.Sprintf("mint1-%d", index),
		Token1Reserve: fmt.Sprintf("reserve1-%d", index),
		Token1Fees:    fmt.Sprintf("fees1-%d", index),

		PoolMint: fmt.Sprintf("lp%d", index),

		TradeFeeBps:      30,
		AdminTradeFeeBps: 5,

		SolanaBlock: 10,
	}
}

func assertEquivalentPoolRecords(t *testing.T, obj1, obj2 *pool.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Bump, obj2.Bump)
	assert.Equal(t, obj1.Factory, obj2.Factory)
	assert.Equal(t, obj1.Index, obj2.Index)
	assert.Equal(t, obj1.Token0Mint, obj2.Token0Mint)
	assert.Equal(t, obj1.Token0Reserve, obj2.Token0Reserve)
	assert.Equal(t, obj1.Token0Fees, obj2.Token0Fees)
	assert.Equal(t, obj1.Token1Mint, obj2.Token1Mint)
	assert.Equal(t, obj1.Token1Reserve, obj2.Token1Reserve)
	assert.Equal(t, obj1.Token1Fees, obj2.Token1Fees)
	assert.Equal(t, obj1.PoolMint, obj2.PoolMint)
	assert.Equal(t, obj1.IsPaused, obj2.IsPaused)
	assert.Equal(t, obj1.TradeFeeBps, obj2.TradeFeeBps)
	assert.Equal(t, obj1.WithdrawFeeBps, obj2.WithdrawFeeBps)
	assert.Equal(t, obj1.AdminTradeFeeBps, obj2.AdminTradeFeeBps)
	assert.Equal(t, obj1.AdminWithdrawFeeBps, obj2.AdminWithdrawFeeBps)
	assert.EqualValues(t, obj1.Name, obj2.Name)
	assert.EqualValues(t, obj1.Symbol, obj2.Symbol)
	assert.Equal(t, obj1.SolanaBlock, obj2.SolanaBlock)
}
