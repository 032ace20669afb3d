package cpamm

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_InitFactory(t *testing.T) {
	require.NoError(t, Validate(&InitFactoryRequest{}))
}

func TestValidate_SetPoolMetadata(t *testing.T) {
	require.NoError(t, Validate(&SetPoolMetadataRequest{}))
}

func TestValidate_InitPool_HappyPath(t *testing.T) {
	req := newValidInitPoolRequest(t)
	require.NoError(t, Validate(req))
}

func TestValidate_InitPool_DecimalsMismatch(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.PoolMint.Decimals = req.PoolMint.Decimals + 1
	assertValidationCode(t, Validate(req), CodeDecimalsMismatch)
}

func TestValidate_InitPool_MissingMintAuthority(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.PoolMint.MintAuthority = nil
	assertValidationCode(t, Validate(req), CodeMissingAuthority)
}

func TestValidate_InitPool_MissingFreezeAuthority(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.PoolMint.FreezeAuthority = nil
	assertValidationCode(t, Validate(req), CodeMissingAuthority)
}

func TestValidate_InitPool_MintAuthorityMismatch(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.PoolMint.MintAuthority = generateKey(t)
	assertValidationCode(t, Validate(req), CodeAuthorityMismatch)
}

func TestValidate_InitPool_FreezeAuthorityMismatch(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.PoolMint.FreezeAuthority = generateKey(t)
	assertValidationCode(t, Validate(req), CodeAuthorityMismatch)
}

func TestValidate_InitPool_OutputLpMintMismatch(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.OutputLp.Mint = generateKey(t)
	assertValidationCode(t, Validate(req), CodeMintMismatch)
}

func TestValidate_InitPool_TokensEqual(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.Token1.Mint = req.Token0.Mint
	req.PoolMint.Decimals = req.Token0.Mint.Decimals
	assertValidationCode(t, Validate(req), CodeTokensEqual)
}

func TestValidate_InitPool_TokensNotSorted(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.Token0, req.Token1 = req.Token1, req.Token0
	assertValidationCode(t, Validate(req), CodeTokensNotSorted)
}

func TestValidate_InitPool_FeesMintMismatch(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.Token0.Fees.Mint = generateKey(t)
	assertValidationCode(t, Validate(req), CodeMintMismatch)
}

func TestValidate_InitPool_FeesOwnerMismatch(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.Token1.Fees.Owner = generateKey(t)
	assertValidationCode(t, Validate(req), CodeKeyMismatch)
}

func TestValidate_InitPool_ReserveNotAssociatedTokenAccount(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.Token0.Reserve = generateKey(t)
	assertValidationCode(t, Validate(req), CodeReserveMismatch)
}

func TestValidate_InitPool_FeeEqualsReserve(t *testing.T) {
	req := newValidInitPoolRequest(t)
	req.Token0.Fees.Address = req.Token0.Reserve
	assertValidationCode(t, Validate(req), CodeFeeEqualsReserve)
}

func TestInferSwapDirection(t *testing.T) {
	pool := newTestPoolAccount(t)

	input, output := InferSwapDirection(pool, pool.Token0.Reserve)
	assert.EqualValues(t, pool.Token0, *input)
	assert.EqualValues(t, pool.Token1, *output)

	input, output = InferSwapDirection(pool, pool.Token1.Reserve)
	assert.EqualValues(t, pool.Token1, *input)
	assert.EqualValues(t, pool.Token0, *output)

	// An unknown reserve falls through to token 1 and is caught downstream
	input, output = InferSwapDirection(pool, generateKey(t))
	assert.EqualValues(t, pool.Token1, *input)
	assert.EqualValues(t, pool.Token0, *output)
}

func TestValidate_Swap_HappyPath(t *testing.T) {
	pool := newTestPoolAccount(t)

	for _, direction := range []struct {
		input  *TokenSlot
		output *TokenSlot
	}{
		{&pool.Token0, &pool.Token1},
		{&pool.Token1, &pool.Token0},
	} {
		req := newValidSwapRequest(t, pool, direction.input, direction.output)
		require.NoError(t, Validate(req))
	}
}

func TestValidate_Swap_PoolPaused(t *testing.T) {
	pool := newTestPoolAccount(t)
	pool.IsPaused = true

	req := newValidSwapRequest(t, pool, &pool.Token0, &pool.Token1)
	assertValidationCode(t, Validate(req), CodePoolPaused)
}

func TestValidate_Swap_UnknownReserve(t *testing.T) {
	pool := newTestPoolAccount(t)

	req := newValidSwapRequest(t, pool, &pool.Token0, &pool.Token1)
	req.Input.Reserve = generateKey(t)
	assertValidationCode(t, Validate(req), CodeReserveMismatch)
}

func TestValidate_Swap_UserMintMismatch(t *testing.T) {
	pool := newTestPoolAccount(t)

	req := newValidSwapRequest(t, pool, &pool.Token0, &pool.Token1)
	req.Input.User.Mint = pool.Token1.Mint
	assertValidationCode(t, Validate(req), CodeMintMismatch)

	req = newValidSwapRequest(t, pool, &pool.Token0, &pool.Token1)
	req.Output.User.Mint = pool.Token0.Mint
	assertValidationCode(t, Validate(req), CodeMintMismatch)
}

func TestValidate_Swap_SelfDealing(t *testing.T) {
	pool := newTestPoolAccount(t)

	// A user account doubling as the reserve must be rejected even though
	// every equality check on the leg would pass.
	req := newValidSwapRequest(t, pool, &pool.Token0, &pool.Token1)
	req.Input.User.Address = pool.Token0.Reserve
	assertValidationCode(t, Validate(req), CodeSelfDealing)

	req = newValidSwapRequest(t, pool, &pool.Token0, &pool.Token1)
	req.Output.User.Address = pool.Token1.Reserve
	assertValidationCode(t, Validate(req), CodeSelfDealing)
}

func TestValidate_Deposit_HappyPath(t *testing.T) {
	pool := newTestPoolAccount(t)
	req := newValidDepositRequest(t, pool)
	require.NoError(t, Validate(req))
}

func TestValidate_Deposit_PoolPaused(t *testing.T) {
	pool := newTestPoolAccount(t)
	pool.IsPaused = true

	req := newValidDepositRequest(t, pool)
	assertValidationCode(t, Validate(req), CodePoolPaused)
}

func TestValidate_Deposit_FeeMismatch(t *testing.T) {
	pool := newTestPoolAccount(t)

	req := newValidDepositRequest(t, pool)
	req.Input0.Fees = generateKey(t)
	assertValidationCode(t, Validate(req), CodeFeeMismatch)
}

func TestValidate_Deposit_SelfDealingWithFees(t *testing.T) {
	pool := newTestPoolAccount(t)

	req := newValidDepositRequest(t, pool)
	req.Input0.User.Address = pool.Token0.Fees
	assertValidationCode(t, Validate(req), CodeSelfDealing)

	req = newValidDepositRequest(t, pool)
	req.Input1.User.Address = pool.Token1.Reserve
	assertValidationCode(t, Validate(req), CodeSelfDealing)
}

func TestValidate_Deposit_PoolMintMismatch(t *testing.T) {
	pool := newTestPoolAccount(t)

	req := newValidDepositRequest(t, pool)
	req.PoolMint = generateKey(t)
	assertValidationCode(t, Validate(req), CodeMintMismatch)

	req = newValidDepositRequest(t, pool)
	req.OutputLp.Mint = generateKey(t)
	assertValidationCode(t, Validate(req), CodeMintMismatch)
}

func TestValidate_Deposit_SelfOwnership(t *testing.T) {
	pool := newTestPoolAccount(t)

	req := newValidDepositRequest(t, pool)
	req.OutputLp.Owner = req.PoolAddress
	assertValidationCode(t, Validate(req), CodeSelfOwnership)
}

func TestValidate_Withdraw_HappyPath(t *testing.T) {
	pool := newTestPoolAccount(t)
	req := newValidWithdrawRequest(t, pool)
	require.NoError(t, Validate(req))
}

func TestValidate_Withdraw_PoolPaused(t *testing.T) {
	pool := newTestPoolAccount(t)
	pool.IsPaused = true

	req := newValidWithdrawRequest(t, pool)
	assertValidationCode(t, Validate(req), CodePoolPaused)
}

func TestValidate_Withdraw_PoolMintMismatch(t *testing.T) {
	pool := newTestPoolAccount(t)

	req := newValidWithdrawRequest(t, pool)
	req.PoolMint = generateKey(t)
	assertValidationCode(t, Validate(req), CodeMintMismatch)

	req = newValidWithdrawRequest(t, pool)
	req.InputLp.Mint = generateKey(t)
	assertValidationCode(t, Validate(req), CodeMintMismatch)
}

func TestValidate_Withdraw_LegFailures(t *testing.T) {
	pool := newTestPoolAccount(t)

	req := newValidWithdrawRequest(t, pool)
	req.Output0.Reserve = generateKey(t)
	assertValidationCode(t, Validate(req), CodeReserveMismatch)

	req = newValidWithdrawRequest(t, pool)
	req.Output1.Fees = generateKey(t)
	assertValidationCode(t, Validate(req), CodeFeeMismatch)

	req = newValidWithdrawRequest(t, pool)
	req.Output1.User.Address = pool.Token1.Fees
	assertValidationCode(t, Validate(req), CodeSelfDealing)
}

func TestValidate_Idempotent(t *testing.T) {
	pool := newTestPoolAccount(t)

	valid := newValidSwapRequest(t, pool, &pool.Token0, &pool.Token1)
	require.NoError(t, Validate(valid))
	require.NoError(t, Validate(valid))

	invalid := newValidSwapRequest(t, pool, &pool.Token0, &pool.Token1)
	invalid.Input.User.Address = pool.Token0.Reserve
	assertValidationCode(t, Validate(invalid), CodeSelfDealing)
	assertValidationCode(t, Validate(invalid), CodeSelfDealing)
}

func assertValidationCode(t *testing.T, err error, code ValidationCode) {
	require.Error(t, err)

	validationError, ok := IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, code, validationError.Code)
	assert.NotEmpty(t, validationError.Label)
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}

func generateSortedMints(t *testing.T) (ed25519.PublicKey, ed25519.PublicKey) {
	mint0 := generateKey(t)
	mint1 := generateKey(t)
	if bytes.Compare(mint0, mint1) > 0 {
		mint0, mint1 = mint1, mint0
	}
	return mint0, mint1
}

func newTestPoolAccount(t *testing.T) *PoolAccount {
	mint0, mint1 := generateSortedMints(t)

	return &PoolAccount{
		Factory: generateKey(t),
		Bump:    254,
		Index:   0,
		Token0: TokenSlot{
			Mint:    mint0,
			Reserve: generateKey(t),
			Fees:    generateKey(t),
		},
		Token1: TokenSlot{
			Mint:    mint1,
			Reserve: generateKey(t),
			Fees:    generateKey(t),
		},
		PoolMint: generateKey(t),
		IsPaused: false,
		Fees: PoolFees{
			TradeFeeBps:      30,
			AdminTradeFeeBps: 5,
		},
	}
}

func newValidInitPoolRequest(t *testing.T) *InitPoolRequest {
	factory := generateKey(t)
	pool, _, err := GetPoolAddress(&GetPoolAddressArgs{
		Factory: factory,
		Index:   0,
	})
	require.NoError(t, err)

	mint0, mint1 := generateSortedMints(t)
	poolMint := generateKey(t)

	reserve0, err := GetReserveAddress(&GetReserveAddressArgs{
		Pool: pool,
		Mint: mint0,
	})
	require.NoError(t, err)

	reserve1, err := GetReserveAddress(&GetReserveAddressArgs{
		Pool: pool,
		Mint: mint1,
	})
	require.NoError(t, err)

	return &InitPoolRequest{
		Pool: pool,
		PoolMint: MintView{
			Address:         poolMint,
			Decimals:        9,
			MintAuthority:   pool,
			FreezeAuthority: pool,
		},
		OutputLp: TokenAccountView{
			Address: generateKey(t),
			Mint:    poolMint,
			Owner:   generateKey(t),
		},
		Token0: InitTokenSlot{
			Mint: MintView{
				Address:  mint0,
				Decimals: 6,
			},
			Fees: TokenAccountView{
				Address: generateKey(t),
				Mint:    mint0,
				Owner:   pool,
			},
			Reserve: reserve0,
		},
		Token1: InitTokenSlot{
			Mint: MintView{
				Address:  mint1,
				Decimals: 9,
			},
			Fees: TokenAccountView{
				Address: generateKey(t),
				Mint:    mint1,
				Owner:   pool,
			},
			Reserve: reserve1,
		},
	}
}

func newValidSwapRequest(t *testing.T, pool *PoolAccount, input, output *TokenSlot) *SwapRequest {
	return &SwapRequest{
		Pool: pool,
		Input: SwapLeg{
			User: TokenAccountView{
				Address: generateKey(t),
				Mint:    input.Mint,
				Owner:   generateKey(t),
			},
			Reserve: input.Reserve,
		},
		Output: SwapLeg{
			User: TokenAccountView{
				Address: generateKey(t),
				Mint:    output.Mint,
				Owner:   generateKey(t),
			},
			Reserve: output.Reserve,
		},
	}
}

func newValidDepositRequest(t *testing.T, pool *PoolAccount) *DepositRequest {
	return &DepositRequest{
		Pool:        pool,
		PoolAddress: generateKey(t),
		Input0: FeeLeg{
			User: TokenAccountView{
				Address: generateKey(t),
				Mint:    pool.Token0.Mint,
				Owner:   generateKey(t),
			},
			Reserve: pool.Token0.Reserve,
			Fees:    pool.Token0.Fees,
		},
		Input1: FeeLeg{
			User: TokenAccountView{
				Address: generateKey(t),
				Mint:    pool.Token1.Mint,
				Owner:   generateKey(t),
			},
			Reserve: pool.Token1.Reserve,
			Fees:    pool.Token1.Fees,
		},
		PoolMint: pool.PoolMint,
		OutputLp: TokenAccountView{
			Address: generateKey(t),
			Mint:    pool.PoolMint,
			Owner:   generateKey(t),
		},
	}
}

func newValidWithdrawRequest(t *testing.T, pool *PoolAccount) *WithdrawRequest {
	return &WithdrawRequest{
		Pool:     pool,
		PoolMint: pool.PoolMint,
		InputLp: TokenAccountView{
			Address: generateKey(t),
			Mint:    pool.PoolMint,
			Owner:   generateKey(t),
		},
		Output0: FeeLeg{
			User: TokenAccountView{
				Address: generateKey(t),
				Mint:    pool.Token0.Mint,
				Owner:   generateKey(t),
			},
			Reserve: pool.Token0.Reserve,
			Fees:    pool.Token0.Fees,
		},
		Output1: FeeLeg{
			User: TokenAccountView{
				Address: generateKey(t),
				Mint:    pool.Token1.Mint,
				Owner:   generateKey(t),
			},
			Reserve: pool.Token1.Reserve,
			Fees:    pool.Token1.Fees,
		},
	}
}
