package dispatch

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool"
	pool_memory "github.com/cpamm-labs/cpamm-server/pkg/cpamm/data/pool/memory"
	lock_memory "github.com/cpamm-labs/cpamm-server/pkg/lock/memory"
	"github.com/cpamm-labs/cpamm-server/pkg/solana/cpamm"
)

type testEnv struct {
	ctx        context.Context
	data       pool.Store
	dispatcher *Dispatcher
	onChain    *cpamm.PoolAccount
	poolRecord *pool.Record
}

func setup(t *testing.T) *testEnv {
	ctx := context.Background()

	data := pool_memory.New()
	locks := lock_memory.NewLockManager()

	onChain := newTestPoolProgramAccount(t)

	address, _, err := cpamm.GetPoolAddress(&cpamm.GetPoolAddressArgs{
		Factory: onChain.Factory,
		Index:   onChain.Index,
	})
	require.NoError(t, err)

	poolRecord, err := pool.NewRecordFromProgramAccount(base58.Encode(address), onChain, 1)
	require.NoError(t, err)
	require.NoError(t, data.Save(ctx, poolRecord))

	return &testEnv{
		ctx:        ctx,
		data:       data,
		dispatcher: NewDispatcher(data, locks),
		onChain:    onChain,
		poolRecord: poolRecord,
	}
}

func TestValidateSwap_HappyPath(t *testing.T) {
	env := setup(t)

	assert.NoError(t, env.dispatcher.Validate(env.ctx, newValidSwapOp(t, env)))
}

func TestValidateSwap_PausedPool(t *testing.T) {
	env := setup(t)

	env.poolRecord.IsPaused = true
	env.poolRecord.SolanaBlock += 1
	require.NoError(t, env.data.Save(env.ctx, env.poolRecord))

	err := env.dispatcher.Validate(env.ctx, newValidSwapOp(t, env))
	assertValidationCode(t, err, cpamm.CodePoolPaused)
}

func TestValidateSwap_UnknownPool(t *testing.T) {
	env := setup(t)

	op := newValidSwapOp(t, env)
	op.Pool = base58.Encode(generateKey(t))

	err := env.dispatcher.Validate(env.ctx, op)
	assert.Equal(t, pool.ErrPoolNotFound, err)
}

func TestValidateDeposit_SelfOwnership(t *testing.T) {
	env := setup(t)

	op := newValidDepositOp(t, env)

	poolAddressBytes, err := base58.Decode(env.poolRecord.Address)
	require.NoError(t, err)
	op.OutputLp.Owner = poolAddressBytes

	assertValidationCode(t, env.dispatcher.Validate(env.ctx, op), cpamm.CodeSelfOwnership)
}

func TestValidateWithdraw_HappyPath(t *testing.T) {
	env := setup(t)

	assert.NoError(t, env.dispatcher.Validate(env.ctx, newValidWithdrawOp(t, env)))
}

func TestExecuteValidated_RunsOnSuccess(t *testing.T) {
	env := setup(t)

	var executed bool
	err := env.dispatcher.ExecuteValidated(env.ctx, newValidSwapOp(t, env), func(ctx context.Context) error {
		executed = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, executed)
}

func TestExecuteValidated_SkippedOnRejection(t *testing.T) {
	env := setup(t)

	op := newValidSwapOp(t, env)
	op.Input.User.Mint = generateKey(t)

	var executed bool
	err := env.dispatcher.ExecuteValidated(env.ctx, op, func(ctx context.Context) error {
		executed = true
		return nil
	})
	assertValidationCode(t, err, cpamm.CodeMintMismatch)
	assert.False(t, executed)
}

func TestExecuteValidated_SerializedPerPool(t *testing.T) {
	env := setup(t)

	callers := 8
	iterations := 25

	op := newValidSwapOp(t, env)

	var inFlight int32
	var overlaps int32

	var wg sync.WaitGroup
	startChan := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-startChan

			for j := 0; j < iterations; j++ {
				err := env.dispatcher.ExecuteValidated(env.ctx, op, func(ctx context.Context) error {
					if atomic.AddInt32(&inFlight, 1) > 1 {
						atomic.AddInt32(&overlaps, 1)
					}
					time.Sleep(time.Millisecond)
					atomic.AddInt32(&inFlight, -1)
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}

	close(startChan)
	wg.Wait()

	assert.EqualValues(t, 0, atomic.LoadInt32(&overlaps))
}

func TestValidateInitPool(t *testing.T) {
	env := setup(t)

	req := newValidInitPoolRequest(t)
	assert.NoError(t, env.dispatcher.ValidateInitPool(env.ctx, req))

	req.OutputLp.Mint = generateKey(t)
	assertValidationCode(t, env.dispatcher.ValidateInitPool(env.ctx, req), cpamm.CodeMintMismatch)
}

func newValidSwapOp(t *testing.T, env *testEnv) *SwapOp {
	return &SwapOp{
		Pool: env.poolRecord.Address,
		Input: cpamm.SwapLeg{
			User: cpamm.TokenAccountView{
				Address: generateKey(t),
				Mint:    env.onChain.Token0.Mint,
				Owner:   generateKey(t),
			},
			Reserve: env.onChain.Token0.Reserve,
		},
		Output: cpamm.SwapLeg{
			User: cpamm.TokenAccountView{
				Address: generateKey(t),
				Mint:    env.onChain.Token1.Mint,
				Owner:   generateKey(t),
			},
			Reserve: env.onChain.Token1.Reserve,
		},
	}
}

func newValidDepositOp(t *testing.T, env *testEnv) *DepositOp {
	user := generateKey(t)

	return &DepositOp{
		Pool: env.poolRecord.Address,
		Input0: cpamm.FeeLeg{
			User: cpamm.TokenAccountView{
				Address: generateKey(t),
				Mint:    env.onChain.Token0.Mint,
				Owner:   user,
			},
			Reserve: env.onChain.Token0.Reserve,
			Fees:    env.onChain.Token0.Fees,
		},
		Input1: cpamm.FeeLeg{
			User: cpamm.TokenAccountView{
				Address: generateKey(t),
				Mint:    env.onChain.Token1.Mint,
				Owner:   user,
			},
			Reserve: env.onChain.Token1.Reserve,
			Fees:    env.onChain.Token1.Fees,
		},
		PoolMint: env.onChain.PoolMint,
		OutputLp: cpamm.TokenAccountView{
			Address: generateKey(t),
			Mint:    env.onChain.PoolMint,
			Owner:   user,
		},
	}
}

func newValidWithdrawOp(t *testing.T, env *testEnv) *WithdrawOp {
	user := generateKey(t)

	return &WithdrawOp{
		Pool:     env.poolRecord.Address,
		PoolMint: env.onChain.PoolMint,
		InputLp: cpamm.TokenAccountView{
			Address: generateKey(t),
			Mint:    env.onChain.PoolMint,
			Owner:   user,
		},
		Output0: cpamm.FeeLeg{
			User: cpamm.TokenAccountView{
				Address: generateKey(t),
				Mint:    env.onChain.Token0.Mint,
				Owner:   user,
			},
			Reserve: env.onChain.Token0.Reserve,
			Fees:    env.onChain.Token0.Fees,
		},
		Output1: cpamm.FeeLeg{
			User: cpamm.TokenAccountView{
				Address: generateKey(t),
				Mint:    env.onChain.Token1.Mint,
				Owner:   user,
			},
			Reserve: env.onChain.Token1.Reserve,
			Fees:    env.onChain.Token1.Fees,
		},
	}
}

func newValidInitPoolRequest(t *testing.T) *cpamm.InitPoolRequest {
	factory := generateKey(t)

	mint0 := generateKey(t)
	mint1 := generateKey(t)
	if string(mint0) > string(mint1) {
		mint0, mint1 = mint1, mint0
	}

	poolAddress, _, err := cpamm.GetPoolAddress(&cpamm.GetPoolAddressArgs{
		Factory: factory,
		Index:   1,
	})
	require.NoError(t, err)

	reserve0, err := cpamm.GetReserveAddress(&cpamm.GetReserveAddressArgs{Pool: poolAddress, Mint: mint0})
	require.NoError(t, err)
	reserve1, err := cpamm.GetReserveAddress(&cpamm.GetReserveAddressArgs{Pool: poolAddress, Mint: mint1})
	require.NoError(t, err)

	poolMint := generateKey(t)
	user := generateKey(t)

	return &cpamm.InitPoolRequest{
		Pool: poolAddress,
		PoolMint: cpamm.MintView{
			Address:         poolMint,
			Decimals:        6,
			MintAuthority:   poolAddress,
			FreezeAuthority: poolAddress,
		},
		OutputLp: cpamm.TokenAccountView{
			Address: generateKey(t),
			Mint:    poolMint,
			Owner:   user,
		},
		Token0: cpamm.InitTokenSlot{
			Mint: cpamm.MintView{
				Address:       mint0,
				Decimals:      6,
				MintAuthority: generateKey(t),
			},
			Fees: cpamm.TokenAccountView{
				Address: generateKey(t),
				Mint:    mint0,
				Owner:   poolAddress,
			},
			Reserve: reserve0,
		},
		Token1: cpamm.InitTokenSlot{
			Mint: cpamm.MintView{
				Address:       mint1,
				Decimals:      6,
				MintAuthority: generateKey(t),
			},
			Fees: cpamm.TokenAccountView{
				Address: generateKey(t),
				Mint:    mint1,
				Owner:   poolAddress,
			},
			Reserve: reserve1,
		},
	}
}

func newTestPoolProgramAccount(t *testing.T) *cpamm.PoolAccount {
	mint0 := generateKey(t)
	mint1 := generateKey(t)
	if string(mint0) > string(mint1) {
		mint0, mint1 = mint1, mint0
	}

	return &cpamm.PoolAccount{
		Factory: generateKey(t),
		Bump:    254,
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

func assertValidationCode(t *testing.T, err error, expected cpamm.ValidationCode) {
	require.Error(t, err)

	validationError, ok := cpamm.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, expected, validationError.Code)
}
