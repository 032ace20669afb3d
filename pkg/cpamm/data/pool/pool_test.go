package pool

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpamm-labs/cpamm-server/pkg/solana/cpamm"
)

func TestRecordRoundTrip(t *testing.T) {
	programAccount := newTestPoolProgramAccount(t)

	address, _, err := cpamm.GetPoolAddress(&cpamm.GetPoolAddressArgs{
		Factory: programAccount.Factory,
		Index:   programAccount.Index,
	})
	require.NoError(t, err)

	record, err := NewRecordFromProgramAccount(base58.Encode(address), programAccount, 42)
	require.NoError(t, err)

	assert.Equal(t, base58.Encode(programAccount.Factory), record.Factory)
	assert.Equal(t, programAccount.Index, record.Index)
	assert.Equal(t, base58.Encode(programAccount.Token0.Mint), record.Token0Mint)
	assert.Equal(t, base58.Encode(programAccount.Token1.Mint), record.Token1Mint)
	assert.Equal(t, base58.Encode(programAccount.PoolMint), record.PoolMint)
	assert.False(t, record.IsPaused)
	assert.EqualValues(t, 42, record.SolanaBlock)

	actual, err := record.ToProgramAccount()
	require.NoError(t, err)
	assert.Equal(t, programAccount.Factory, actual.Factory)
	assert.Equal(t, programAccount.Token0, actual.Token0)
	assert.Equal(t, programAccount.Token1, actual.Token1)
	assert.Equal(t, programAccount.PoolMint, actual.PoolMint)
	assert.Equal(t, programAccount.Fees, actual.Fees)
}

func TestRecordRejectsMismatchedAddress(t *testing.T) {
	programAccount := newTestPoolProgramAccount(t)

	_, err := NewRecordFromProgramAccount(base58.Encode(generateKey(t)), programAccount, 42)
	assert.Error(t, err)
}

func TestRecordUpdateFromProgramAccount(t *testing.T) {
	programAccount := newTestPoolProgramAccount(t)

	address, _, err := cpamm.GetPoolAddress(&cpamm.GetPoolAddressArgs{
		Factory: programAccount.Factory,
		Index:   programAccount.Index,
	})
	require.NoError(t, err)

	record, err := NewRecordFromProgramAccount(base58.Encode(address), programAccount, 42)
	require.NoError(t, err)

	// Older or equal observations never apply
	programAccount.IsPaused = true
	assert.Equal(t, ErrStalePoolState, record.UpdateFromProgramAccount(programAccount, 42))
	assert.Equal(t, ErrStalePoolState, record.UpdateFromProgramAccount(programAccount, 41))
	assert.False(t, record.IsPaused)

	// Newer observations with no mutable field changes are also stale
	programAccount.IsPaused = false
	assert.Equal(t, ErrStalePoolState, record.UpdateFromProgramAccount(programAccount, 43))
	assert.EqualValues(t, 42, record.SolanaBlock)

	programAccount.IsPaused = true
	programAccount.Fees.TradeFeeBps = 100
	require.NoError(t, record.UpdateFromProgramAccount(programAccount, 43))
	assert.True(t, record.IsPaused)
	assert.EqualValues(t, 100, record.TradeFeeBps)
	assert.EqualValues(t, 43, record.SolanaBlock)
}

func TestRecordUpdateRejectsChangedIdentities(t *testing.T) {
	programAccount := newTestPoolProgramAccount(t)

	address, _, err := cpamm.GetPoolAddress(&cpamm.GetPoolAddressArgs{
		Factory: programAccount.Factory,
		Index:   programAccount.Index,
	})
	require.NoError(t, err)

	record, err := NewRecordFromProgramAccount(base58.Encode(address), programAccount, 42)
	require.NoError(t, err)

	// Same derived address, but the account set doesn't match the record
	originalReserve := programAccount.Token0.Reserve
	programAccount.Token0.Reserve = generateKey(t)
	programAccount.IsPaused = true
	assert.Error(t, record.UpdateFromProgramAccount(programAccount, 43))
	assert.False(t, record.IsPaused)
	assert.EqualValues(t, 42, record.SolanaBlock)

	programAccount.Token0.Reserve = originalReserve
	programAccount.PoolMint = generateKey(t)
	assert.Error(t, record.UpdateFromProgramAccount(programAccount, 43))
	assert.EqualValues(t, 42, record.SolanaBlock)
}

func TestRecordCheckIntegrity(t *testing.T) {
	programAccount := newTestPoolProgramAccount(t)

	address, _, err := cpamm.GetPoolAddress(&cpamm.GetPoolAddressArgs{
		Factory: programAccount.Factory,
		Index:   programAccount.Index,
	})
	require.NoError(t, err)

	record, err := NewRecordFromProgramAccount(base58.Encode(address), programAccount, 42)
	require.NoError(t, err)
	require.NoError(t, record.CheckIntegrity())

	unsorted := record.Clone()
	unsorted.Token0Mint, unsorted.Token1Mint = unsorted.Token1Mint, unsorted.Token0Mint
	assert.Error(t, unsorted.CheckIntegrity())

	equalMints := record.Clone()
	equalMints.Token1Mint = equalMints.Token0Mint
	assert.Error(t, equalMints.CheckIntegrity())

	feeIsReserve := record.Clone()
	feeIsReserve.Token1Fees = feeIsReserve.Token1Reserve
	assert.Error(t, feeIsReserve.CheckIntegrity())
}

func newTestPoolProgramAccount(t *testing.T) *cpamm.PoolAccount {
	mint0, mint1 := generateSortedMints(t)

	return &cpamm.PoolAccount{
		Factory: generateKey(t),
		Bump:    255,
		Index:   1,

		Token0: cpamm.TokenSlot{
			Mint:    mint0,
			Reserve: generateKey(t),
			Fees:    generateKey(t),
		},
		Token1: cpamm.TokenSlot{
			Mint:    mint1,
			Reserve: generateKey(t),
			Fees:    generateKey(t),
		},

		PoolMint: generateKey(t),

		IsPaused: false,

		Fees: cpamm.PoolFees{
			TradeFeeBps:      30,
			AdminTradeFeeBps: 5,
		},
	}
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}

func generateSortedMints(t *testing.T) (ed25519.PublicKey, ed25519.PublicKey) {
	a := generateKey(t)
	b := generateKey(t)
	if string(a) > string(b) {
		a, b = b, a
	}
	return a, b
}
