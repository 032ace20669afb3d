package pool

import (
	"bytes"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/cpamm-labs/cpamm-server/pkg/pointer"
	"github.com/cpamm-labs/cpamm-server/pkg/solana/cpamm"
)

// Record is the registry's view of one on-chain pool. Slot account
// identities (mints, reserves, fee accounts) are immutable after creation;
// only the paused flag, fee configuration, metadata and the observed block
// move.
type Record struct {
	Id uint64

	Address string
	Bump    uint8

	Factory string
	Index   uint64

	Token0Mint    string
	Token0Reserve string
	Token0Fees    string

	Token1Mint    string
	Token1Reserve string
	Token1Fees    string

	PoolMint string

	IsPaused bool

	TradeFeeBps         uint64
	WithdrawFeeBps      uint64
	AdminTradeFeeBps    uint64
	AdminWithdrawFeeBps uint64

	// Optional display metadata, synced from the pool's metadata account
	Name   *string
	Symbol *string

	SolanaBlock uint64

	LastUpdatedAt time.Time
}

// NewRecordFromProgramAccount constructs a registry record from freshly
// observed on-chain state.
func NewRecordFromProgramAccount(address string, data *cpamm.PoolAccount, solanaBlock uint64) (*Record, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding address")
	}

	expectedAddress, _, err := cpamm.GetPoolAddress(&cpamm.GetPoolAddressArgs{
		Factory: data.Factory,
		Index:   data.Index,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving pool address")
	}

	if !bytes.Equal(decoded, expectedAddress) {
		return nil, errors.New("pool account data doesn't match address")
	}

	return &Record{
		Address: address,
		Bump:    data.Bump,

		Factory: base58.Encode(data.Factory),
		Index:   data.Index,

		Token0Mint:    base58.Encode(data.Token0.Mint),
		Token0Reserve: base58.Encode(data.Token0.Reserve),
		Token0Fees:    base58.Encode(data.Token0.Fees),

		Token1Mint:    base58.Encode(data.Token1.Mint),
		Token1Reserve: base58.Encode(data.Token1.Reserve),
		Token1Fees:    base58.Encode(data.Token1.Fees),

		PoolMint: base58.Encode(data.PoolMint),

		IsPaused: data.IsPaused,

		TradeFeeBps:         data.Fees.TradeFeeBps,
		WithdrawFeeBps:      data.Fees.WithdrawFeeBps,
		AdminTradeFeeBps:    data.Fees.AdminTradeFeeBps,
		AdminWithdrawFeeBps: data.Fees.AdminWithdrawFeeBps,

		SolanaBlock: solanaBlock,
	}, nil
}

// UpdateFromProgramAccount applies newer on-chain state to the record.
// Immutable account identities are sanity checked, and stale or unchanged
// observations are rejected with ErrStalePoolState.
func (r *Record) UpdateFromProgramAccount(data *cpamm.PoolAccount, solanaBlock uint64) error {
	// Sanity check we're updating the right record by re-deriving the
	// expected pool address
	addressBytes, err := base58.Decode(r.Address)
	if err != nil {
		return errors.Wrap(err, "error decoding address")
	}

	expectedAddress, _, err := cpamm.GetPoolAddress(&cpamm.GetPoolAddressArgs{
		Factory: data.Factory,
		Index:   data.Index,
	})
	if err != nil {
		return errors.Wrap(err, "error deriving pool address")
	}

	if !bytes.Equal(addressBytes, expectedAddress) {
		return errors.New("updating wrong pool record")
	}

	// The slot and LP mint identities are fixed at pool creation, so any
	// observed change means the data belongs to a different pool.
	if base58.Encode(data.Token0.Mint) != r.Token0Mint ||
		base58.Encode(data.Token0.Reserve) != r.Token0Reserve ||
		base58.Encode(data.Token0.Fees) != r.Token0Fees ||
		base58.Encode(data.Token1.Mint) != r.Token1Mint ||
		base58.Encode(data.Token1.Reserve) != r.Token1Reserve ||
		base58.Encode(data.Token1.Fees) != r.Token1Fees ||
		base58.Encode(data.PoolMint) != r.PoolMint {
		return errors.New("pool account identities changed")
	}

	if solanaBlock <= r.SolanaBlock {
		return ErrStalePoolState
	}

	hasUpdates := r.IsPaused != data.IsPaused ||
		r.TradeFeeBps != data.Fees.TradeFeeBps ||
		r.WithdrawFeeBps != data.Fees.WithdrawFeeBps ||
		r.AdminTradeFeeBps != data.Fees.AdminTradeFeeBps ||
		r.AdminWithdrawFeeBps != data.Fees.AdminWithdrawFeeBps
	if !hasUpdates {
		return ErrStalePoolState
	}

	// It's now safe to update the record

	r.IsPaused = data.IsPaused

	r.TradeFeeBps = data.Fees.TradeFeeBps
	r.WithdrawFeeBps = data.Fees.WithdrawFeeBps
	r.AdminTradeFeeBps = data.Fees.AdminTradeFeeBps
	r.AdminWithdrawFeeBps = data.Fees.AdminWithdrawFeeBps

	r.SolanaBlock = solanaBlock

	return nil
}

// ToProgramAccount rebuilds the read-only on-chain view validators consume.
func (r *Record) ToProgramAccount() (*cpamm.PoolAccount, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	decoded := make(map[string][]byte)
	for _, value := range []string{
		r.Factory,
		r.Token0Mint,
		r.Token0Reserve,
		r.Token0Fees,
		r.Token1Mint,
		r.Token1Reserve,
		r.Token1Fees,
		r.PoolMint,
	} {
		bytesValue, err := base58.Decode(value)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding %s", value)
		}
		decoded[value] = bytesValue
	}

	return &cpamm.PoolAccount{
		Factory: decoded[r.Factory],
		Bump:    r.Bump,
		Index:   r.Index,

		Token0: cpamm.TokenSlot{
			Mint:    decoded[r.Token0Mint],
			Reserve: decoded[r.Token0Reserve],
			Fees:    decoded[r.Token0Fees],
		},
		Token1: cpamm.TokenSlot{
			Mint:    decoded[r.Token1Mint],
			Reserve: decoded[r.Token1Reserve],
			Fees:    decoded[r.Token1Fees],
		},

		PoolMint: decoded[r.PoolMint],

		IsPaused: r.IsPaused,

		Fees: cpamm.PoolFees{
			TradeFeeBps:         r.TradeFeeBps,
			WithdrawFeeBps:      r.WithdrawFeeBps,
			AdminTradeFeeBps:    r.AdminTradeFeeBps,
			AdminWithdrawFeeBps: r.AdminWithdrawFeeBps,
		},
	}, nil
}

// CheckIntegrity re-asserts the invariants established at pool creation:
// mints are distinct and sorted, and every slot's reserve and fee account
// are different accounts.
func (r *Record) CheckIntegrity() error {
	mint0, err := base58.Decode(r.Token0Mint)
	if err != nil {
		return errors.Wrap(err, "error decoding token 0 mint")
	}
	mint1, err := base58.Decode(r.Token1Mint)
	if err != nil {
		return errors.Wrap(err, "error decoding token 1 mint")
	}

	if bytes.Equal(mint0, mint1) {
		return errors.New("token mints are equal")
	}
	if bytes.Compare(mint0, mint1) > 0 {
		return errors.New("token mints aren't sorted")
	}

	if r.Token0Reserve == r.Token0Fees {
		return errors.New("token 0 reserve equals fee account")
	}
	if r.Token1Reserve == r.Token1Fees {
		return errors.New("token 1 reserve equals fee account")
	}

	return nil
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Factory) == 0 {
		return errors.New("factory is required")
	}

	for _, value := range []string{
		r.Token0Mint,
		r.Token0Reserve,
		r.Token0Fees,
		r.Token1Mint,
		r.Token1Reserve,
		r.Token1Fees,
	} {
		if len(value) == 0 {
			return errors.New("token slot accounts are required")
		}
	}

	if len(r.PoolMint) == 0 {
		return errors.New("pool mint is required")
	}

	return nil
}

func (r *Record) Clone() *Record {
	return &Record{
		Id: r.Id,

		Address: r.Address,
		Bump:    r.Bump,

		Factory: r.Factory,
		Index:   r.Index,

		Token0Mint:    r.Token0Mint,
		Token0Reserve: r.Token0Reserve,
		Token0Fees:    r.Token0Fees,

		Token1Mint:    r.Token1Mint,
		Token1Reserve: r.Token1Reserve,
		Token1Fees:    r.Token1Fees,

		PoolMint: r.PoolMint,

		IsPaused: r.IsPaused,

		TradeFeeBps:         r.TradeFeeBps,
		WithdrawFeeBps:      r.WithdrawFeeBps,
		AdminTradeFeeBps:    r.AdminTradeFeeBps,
		AdminWithdrawFeeBps: r.AdminWithdrawFeeBps,

		Name:   pointer.StringCopy(r.Name),
		Symbol: pointer.StringCopy(r.Symbol),

		SolanaBlock: r.SolanaBlock,

		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Address = r.Address
	dst.Bump = r.Bump

	dst.Factory = r.Factory
	dst.Index = r.Index

	dst.Token0Mint = r.Token0Mint
	dst.Token0Reserve = r.Token0Reserve
	dst.Token0Fees = r.Token0Fees

	dst.Token1Mint = r.Token1Mint
	dst.Token1Reserve = r.Token1Reserve
	dst.Token1Fees = r.Token1Fees

	dst.PoolMint = r.PoolMint

	dst.IsPaused = r.IsPaused

	dst.TradeFeeBps = r.TradeFeeBps
	dst.WithdrawFeeBps = r.WithdrawFeeBps
	dst.AdminTradeFeeBps = r.AdminTradeFeeBps
	dst.AdminWithdrawFeeBps = r.AdminWithdrawFeeBps

	dst.Name = pointer.StringCopy(r.Name)
	dst.Symbol = pointer.StringCopy(r.Symbol)

	dst.SolanaBlock = r.SolanaBlock

	dst.LastUpdatedAt = r.LastUpdatedAt
}
