package dispatch

import (
	"crypto/ed25519"

	"github.com/cpamm-labs/cpamm-server/pkg/solana/cpamm"
)

// Op is a pool-bound operation presented for validation. Implementations
// name the pool they act on and build the core request once the dispatcher
// has resolved current pool state under the pool's lock.
type Op interface {
	operationName() string
	poolAddress() string
	buildRequest(pool *cpamm.PoolAccount, poolAddress ed25519.PublicKey) cpamm.Request
}

// SwapOp trades against a pool in either direction. Direction is never
// declared; it's inferred from the presented input reserve.
type SwapOp struct {
	Pool   string
	Input  cpamm.SwapLeg
	Output cpamm.SwapLeg
}

// DepositOp adds liquidity to both sides of a pool.
type DepositOp struct {
	Pool     string
	Input0   cpamm.FeeLeg
	Input1   cpamm.FeeLeg
	PoolMint ed25519.PublicKey
	OutputLp cpamm.TokenAccountView
}

// WithdrawOp removes liquidity from both sides of a pool.
type WithdrawOp struct {
	Pool     string
	PoolMint ed25519.PublicKey
	InputLp  cpamm.TokenAccountView
	Output0  cpamm.FeeLeg
	Output1  cpamm.FeeLeg
}

func (op *SwapOp) operationName() string { return "swap" }
func (op *SwapOp) poolAddress() string   { return op.Pool }
func (op *SwapOp) buildRequest(pool *cpamm.PoolAccount, _ ed25519.PublicKey) cpamm.Request {
	return &cpamm.SwapRequest{
		Pool:   pool,
		Input:  op.Input,
		Output: op.Output,
	}
}

func (op *DepositOp) operationName() string { return "deposit" }
func (op *DepositOp) poolAddress() string   { return op.Pool }
func (op *DepositOp) buildRequest(pool *cpamm.PoolAccount, poolAddress ed25519.PublicKey) cpamm.Request {
	return &cpamm.DepositRequest{
		Pool:        pool,
		PoolAddress: poolAddress,
		Input0:      op.Input0,
		Input1:      op.Input1,
		PoolMint:    op.PoolMint,
		OutputLp:    op.OutputLp,
	}
}

func (op *WithdrawOp) operationName() string { return "withdraw" }
func (op *WithdrawOp) poolAddress() string   { return op.Pool }
func (op *WithdrawOp) buildRequest(pool *cpamm.PoolAccount, _ ed25519.PublicKey) cpamm.Request {
	return &cpamm.WithdrawRequest{
		Pool:     pool,
		PoolMint: op.PoolMint,
		InputLp:  op.InputLp,
		Output0:  op.Output0,
		Output1:  op.Output1,
	}
}
