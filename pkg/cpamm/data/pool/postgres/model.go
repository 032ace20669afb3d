package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool"
	pgutil "github.com/cpamm-labs/cpamm-server/pkg/database/postgres"
	q "github.com/cpamm-labs/cpamm-server/pkg/database/query"
	"github.com/cpamm-labs/cpamm-server/pkg/pointer"
)

const (
	poolTableName = "cpamm__core_pool"
)

type poolModel struct {
	Id sql.NullInt64 `db:"id"`

	Address string `db:"address"`
	Bump    uint   `db:"bump"`

	Factory string `db:"factory"`
	Index   uint64 `db:"index"`

	Token0Mint    string `db:"token_0_mint"`
	Token0Reserve string `db:"token_0_reserve"`
	Token0Fees    string `db:"token_0_fees"`

	Token1Mint    string `db:"token_1_mint"`
	Token1Reserve string `db:"token_1_reserve"`
	Token1Fees    string `db:"token_1_fees"`

	PoolMint string `db:"pool_mint"`

	IsPaused bool `db:"is_paused"`

	TradeFeeBps         uint64 `db:"trade_fee_bps"`
	WithdrawFeeBps      uint64 `db:"withdraw_fee_bps"`
	AdminTradeFeeBps    uint64 `db:"admin_trade_fee_bps"`
	AdminWithdrawFeeBps uint64 `db:"admin_withdraw_fee_bps"`

	Name   sql.NullString `db:"name"`
	Symbol sql.NullString `db:"symbol"`

	SolanaBlock uint64 `db:"solana_block"`

	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toPoolModel(obj *pool.Record) (*poolModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	var name sql.NullString
	if obj.Name != nil {
		name.Valid = true
		name.String = *obj.Name
	}

	var symbol sql.NullString
	if obj.Symbol != nil {
		symbol.Valid = true
		symbol.String = *obj.Symbol
	}

	return &poolModel{
		Address: obj.Address,
		Bump:    uint(obj.Bump),

		Factory: obj.Factory,
		Index:   obj.Index,

		Token0Mint:    obj.Token0Mint,
		Token0Reserve: obj.Token0Reserve,
		Token0Fees:    obj.Token0Fees,

		Token1Mint:    obj.Token1Mint,
		Token1Reserve: obj.Token1Reserve,
		Token1Fees:    obj.Token1Fees,

		PoolMint: obj.PoolMint,

		IsPaused: obj.IsPaused,

		TradeFeeBps:         obj.TradeFeeBps,
		WithdrawFeeBps:      obj.WithdrawFeeBps,
		AdminTradeFeeBps:    obj.AdminTradeFeeBps,
		AdminWithdrawFeeBps: obj.AdminWithdrawFeeBps,

		Name:   name,
		Symbol: symbol,

		SolanaBlock: obj.SolanaBlock,

		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromPoolModel(obj *poolModel) *pool.Record {
	var name, symbol *string
	if obj.Name.Valid {
		name = pointer.String(obj.Name.String)
	}
	if obj.Symbol.Valid {
		symbol = pointer.String(obj.Symbol.String)
	}

	return &pool.Record{
		Id: uint64(obj.Id.Int64),

		Address: obj.Address,
		Bump:    uint8(obj.Bump),

		Factory: obj.Factory,
		Index:   obj.Index,

		Token0Mint:    obj.Token0Mint,
		Token0Reserve: obj.Token0Reserve,
		Token0Fees:    obj.Token0Fees,

		Token1Mint:    obj.Token1Mint,
		Token1Reserve: obj.Token1Reserve,
		Token1Fees:    obj.Token1Fees,

		PoolMint: obj.PoolMint,

		IsPaused: obj.IsPaused,

		TradeFeeBps:         obj.TradeFeeBps,
		WithdrawFeeBps:      obj.WithdrawFeeBps,
		AdminTradeFeeBps:    obj.AdminTradeFeeBps,
		AdminWithdrawFeeBps: obj.AdminWithdrawFeeBps,

		Name:   name,
		Symbol: symbol,

		SolanaBlock: obj.SolanaBlock,

		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

func (m *poolModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		m.LastUpdatedAt = time.Now()

		query := `INSERT INTO ` + poolTableName + `
			(address, bump, factory, index, token_0_mint, token_0_reserve, token_0_fees, token_1_mint, token_1_reserve, token_1_fees, pool_mint, is_paused, trade_fee_bps, withdraw_fee_bps, admin_trade_fee_bps, admin_withdraw_fee_bps, name, symbol, solana_block, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			ON CONFLICT (address)
			DO UPDATE
				SET is_paused = $12, trade_fee_bps = $13, withdraw_fee_bps = $14, admin_trade_fee_bps = $15, admin_withdraw_fee_bps = $16, name = $17, symbol = $18, solana_block = $19, last_updated_at = $20
				WHERE ` + poolTableName + `.address = $1 AND ` + poolTableName + `.solana_block < $19
			RETURNING id, address, bump, factory, index, token_0_mint, token_0_reserve, token_0_fees, token_1_mint, token_1_reserve, token_1_fees, pool_mint, is_paused, trade_fee_bps, withdraw_fee_bps, admin_trade_fee_bps, admin_withdraw_fee_bps, name, symbol, solana_block, last_updated_at
		`
		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Bump,
			m.Factory,
			m.Index,
			m.Token0Mint,
			m.Token0Reserve,
			m.Token0Fees,
			m.Token1Mint,
			m.Token1Reserve,
			m.Token1Fees,
			m.PoolMint,
			m.IsPaused,
			m.TradeFeeBps,
			m.WithdrawFeeBps,
			m.AdminTradeFeeBps,
			m.AdminWithdrawFeeBps,
			m.Name,
			m.Symbol,
			m.SolanaBlock,
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
		if err != nil {
			return pgutil.CheckNoRows(err, pool.ErrStalePoolState)
		}

		return nil
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*poolModel, error) {
	var res poolModel
	query := `SELECT id, address, bump, factory, index, token_0_mint, token_0_reserve, token_0_fees, token_1_mint, token_1_reserve, token_1_fees, pool_mint, is_paused, trade_fee_bps, withdraw_fee_bps, admin_trade_fee_bps, admin_withdraw_fee_bps, name, symbol, solana_block, last_updated_at FROM ` + poolTableName + `
		WHERE address = $1
	`
	err := db.GetContext(ctx, &res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, pool.ErrPoolNotFound)
	}
	return &res, nil
}

func dbGetByPoolMint(ctx context.Context, db *sqlx.DB, mint string) (*poolModel, error) {
	var res poolModel
	query := `SELECT id, address, bump, factory, index, token_0_mint, token_0_reserve, token_0_fees, token_1_mint, token_1_reserve, token_1_fees, pool_mint, is_paused, trade_fee_bps, withdraw_fee_bps, admin_trade_fee_bps, admin_withdraw_fee_bps, name, symbol, solana_block, last_updated_at FROM ` + poolTableName + `
		WHERE pool_mint = $1
	`
	err := db.GetContext(ctx, &res, query, mint)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, pool.ErrPoolNotFound)
	}
	return &res, nil
}

func dbGetAll(ctx context.Context, db *sqlx.DB, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*poolModel, error) {
	res := []*poolModel{}

	query := `SELECT id, address, bump, factory, index, token_0_mint, token_0_reserve, token_0_fees, token_1_mint, token_1_reserve, token_1_fees, pool_mint, is_paused, trade_fee_bps, withdraw_fee_bps, admin_trade_fee_bps, admin_withdraw_fee_bps, name, symbol, solana_block, last_updated_at
		FROM ` + poolTableName + `
		WHERE (id > 0)
	`

	opts := []interface{}{}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, pool.ErrPoolNotFound)
	}

	if len(res) == 0 {
		return nil, pool.ErrPoolNotFound
	}

	return res, nil
}

func dbGetCountByPausedState(ctx context.Context, db *sqlx.DB, isPaused bool) (uint64, error) {
	var res uint64
	query := `SELECT COUNT(*) FROM ` + poolTableName + ` WHERE is_paused = $1`

	err := db.GetContext(ctx, &res, query, isPaused)
	if err != nil {
		return 0, err
	}
	return res, nil
}
