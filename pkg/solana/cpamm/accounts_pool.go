package cpamm

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const TokenSlotSize = (32 + // mint
	32 + // reserve
	32) // fees

const PoolFeesSize = (8 + // trade_fee_bps
	8 + // withdraw_fee_bps
	8 + // admin_trade_fee_bps
	8) // admin_withdraw_fee_bps

const PoolAccountSize = (8 + // discriminator
	32 + // factory
	1 + // bump
	8 + // index
	TokenSlotSize + // token_0
	TokenSlotSize + // token_1
	32 + // pool_mint
	1 + // is_paused
	PoolFeesSize) // fees

var PoolAccountDiscriminator = []byte{0xf1, 0x9a, 0x6d, 0x04, 0x11, 0xb1, 0x6d, 0xbc}

// TokenSlot is one asset side of a pool: the underlying mint, the reserve
// account holding pooled funds, and the protocol fee accrual account.
//
// Reserve and fees are always distinct accounts. The invariant is
// established when the pool is created and never changes afterwards.
type TokenSlot struct {
	Mint    ed25519.PublicKey
	Reserve ed25519.PublicKey
	Fees    ed25519.PublicKey
}

// PoolFees is the pool's fee configuration, in basis points. It's carried
// for completeness and plays no role in account validation.
type PoolFees struct {
	TradeFeeBps         uint64
	WithdrawFeeBps      uint64
	AdminTradeFeeBps    uint64
	AdminWithdrawFeeBps uint64
}

// PoolAccount is the persisted state of one two-asset constant-product pool.
//
// Token slot mints are distinct and stored in sorted order
// (Token0.Mint < Token1.Mint), fixed at creation.
type PoolAccount struct {
	Factory ed25519.PublicKey
	Bump    uint8
	Index   uint64

	Token0 TokenSlot
	Token1 TokenSlot

	PoolMint ed25519.PublicKey

	IsPaused bool

	Fees PoolFees
}

func (obj *TokenSlot) String() string {
	return fmt.Sprintf(
		"TokenSlot{mint=%s,reserve=%s,fees=%s}",
		base58.Encode(obj.Mint),
		base58.Encode(obj.Reserve),
		base58.Encode(obj.Fees),
	)
}

func (obj *PoolAccount) Marshal() []byte {
	data := make([]byte, PoolAccountSize)

	var offset int

	putDiscriminator(data, PoolAccountDiscriminator, &offset)
	putKey(data, obj.Factory, &offset)
	putUint8(data, obj.Bump, &offset)
	putUint64(data, obj.Index, &offset)
	putTokenSlot(data, &obj.Token0, &offset)
	putTokenSlot(data, &obj.Token1, &offset)
	putKey(data, obj.PoolMint, &offset)
	putBool(data, obj.IsPaused, &offset)
	putPoolFees(data, &obj.Fees, &offset)

	return data
}

func (obj *PoolAccount) Unmarshal(data []byte) error {
	if len(data) < PoolAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, PoolAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Factory, &offset)
	getUint8(data, &obj.Bump, &offset)
	getUint64(data, &obj.Index, &offset)
	getTokenSlot(data, &obj.Token0, &offset)
	getTokenSlot(data, &obj.Token1, &offset)
	getKey(data, &obj.PoolMint, &offset)
	getBool(data, &obj.IsPaused, &offset)
	getPoolFees(data, &obj.Fees, &offset)

	return nil
}

func (obj *PoolAccount) String() string {
	return fmt.Sprintf(
		"PoolAccount{factory=%s,bump=%d,index=%d,token_0=%s,token_1=%s,pool_mint=%s,is_paused=%v}",
		base58.Encode(obj.Factory),
		obj.Bump,
		obj.Index,
		obj.Token0.String(),
		obj.Token1.String(),
		base58.Encode(obj.PoolMint),
		obj.IsPaused,
	)
}

func putTokenSlot(dst []byte, v *TokenSlot, offset *int) {
	putKey(dst, v.Mint, offset)
	putKey(dst, v.Reserve, offset)
	putKey(dst, v.Fees, offset)
}
func getTokenSlot(src []byte, dst *TokenSlot, offset *int) {
	getKey(src, &dst.Mint, offset)
	getKey(src, &dst.Reserve, offset)
	getKey(src, &dst.Fees, offset)
}

func putPoolFees(dst []byte, v *PoolFees, offset *int) {
	putUint64(dst, v.TradeFeeBps, offset)
	putUint64(dst, v.WithdrawFeeBps, offset)
	putUint64(dst, v.AdminTradeFeeBps, offset)
	putUint64(dst, v.AdminWithdrawFeeBps, offset)
}
func getPoolFees(src []byte, dst *PoolFees, offset *int) {
	getUint64(src, &dst.TradeFeeBps, offset)
	getUint64(src, &dst.WithdrawFeeBps, offset)
	getUint64(src, &dst.AdminTradeFeeBps, offset)
	getUint64(src, &dst.AdminWithdrawFeeBps, offset)
}
