package cpamm

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
)

// Request is the closed set of per-operation account sets accepted by
// Validate. Each request carries a read-only view of persisted pool state
// where the operation needs one, plus the accounts the caller presents.
// Requests are built per call, validated once, and discarded.
type Request interface {
	isRequest()
}

// InitFactoryRequest has nothing to validate.
type InitFactoryRequest struct {
}

// InitPoolRequest is the account set for creating a pool. The pool doesn't
// exist yet, so everything is validated against the proposed accounts and
// the pool's own identity.
type InitPoolRequest struct {
	Pool     ed25519.PublicKey
	PoolMint MintView
	OutputLp TokenAccountView
	Token0   InitTokenSlot
	Token1   InitTokenSlot
}

// SetPoolMetadataRequest has nothing to validate. Pool metadata is
// informational only.
type SetPoolMetadataRequest struct {
}

// SwapRequest is the account set for a swap in either direction.
type SwapRequest struct {
	Pool   *PoolAccount
	Input  SwapLeg
	Output SwapLeg
}

// DepositRequest is the account set for adding liquidity.
type DepositRequest struct {
	Pool        *PoolAccount
	PoolAddress ed25519.PublicKey
	Input0      FeeLeg
	Input1      FeeLeg
	PoolMint    ed25519.PublicKey
	OutputLp    TokenAccountView
}

// WithdrawRequest is the account set for removing liquidity.
type WithdrawRequest struct {
	Pool     *PoolAccount
	PoolMint ed25519.PublicKey
	InputLp  TokenAccountView
	Output0  FeeLeg
	Output1  FeeLeg
}

func (*InitFactoryRequest) isRequest()     {}
func (*InitPoolRequest) isRequest()        {}
func (*SetPoolMetadataRequest) isRequest() {}
func (*SwapRequest) isRequest()            {}
func (*DepositRequest) isRequest()         {}
func (*WithdrawRequest) isRequest()        {}

// Validate runs the complete pre-condition check for one request. It's
// pure and total over its inputs, mutates nothing, and fails fast with the
// first violated invariant. A nil return means the operation may proceed.
func Validate(req Request) error {
	switch typed := req.(type) {
	case *InitFactoryRequest:
		return nil
	case *InitPoolRequest:
		return typed.validate()
	case *SetPoolMetadataRequest:
		return nil
	case *SwapRequest:
		return typed.validate()
	case *DepositRequest:
		return typed.validate()
	case *WithdrawRequest:
		return typed.validate()
	default:
		return errors.Errorf("unsupported request type %T", req)
	}
}

func (r *InitPoolRequest) validate() error {
	expectedDecimals := r.Token0.Mint.Decimals
	if r.Token1.Mint.Decimals > expectedDecimals {
		expectedDecimals = r.Token1.Mint.Decimals
	}
	if r.PoolMint.Decimals != expectedDecimals {
		return &ValidationError{
			Code:  CodeDecimalsMismatch,
			Label: "pool_mint.decimals must be the max of the two token mint decimals",
		}
	}

	// A freshly configured pool mint should always carry both authorities.
	// Their absence is still a reported failure rather than an assumption.
	if len(r.PoolMint.MintAuthority) == 0 {
		return &ValidationError{
			Code:  CodeMissingAuthority,
			Label: "pool_mint.mint_authority",
		}
	}
	if err := assertKeys(CodeAuthorityMismatch, r.Pool, r.PoolMint.MintAuthority, "pool_mint.mint_authority"); err != nil {
		return err
	}
	if len(r.PoolMint.FreezeAuthority) == 0 {
		return &ValidationError{
			Code:  CodeMissingAuthority,
			Label: "pool_mint.freeze_authority",
		}
	}
	if err := assertKeys(CodeAuthorityMismatch, r.Pool, r.PoolMint.FreezeAuthority, "pool_mint.freeze_authority"); err != nil {
		return err
	}

	if err := assertKeys(CodeMintMismatch, r.PoolMint.Address, r.OutputLp.Mint, "output_lp.mint"); err != nil {
		return err
	}

	if bytes.Equal(r.Token0.Mint.Address, r.Token1.Mint.Address) {
		return &ValidationError{
			Code:  CodeTokensEqual,
			Label: "token mints cannot be equal",
		}
	}
	if bytes.Compare(r.Token0.Mint.Address, r.Token1.Mint.Address) > 0 {
		return &ValidationError{
			Code:  CodeTokensNotSorted,
			Label: "token mints must be sorted",
		}
	}

	if err := r.Token0.validate(r.Pool); err != nil {
		return err
	}
	return r.Token1.validate(r.Pool)
}

func (r *SwapRequest) validate() error {
	if r.Pool.IsPaused {
		return &ValidationError{
			Code:  CodePoolPaused,
			Label: "pool",
		}
	}

	// Leg validation ensures the user's source mint equals the respective
	// reserve's mint, so a lie about direction cannot pass.
	input, output := InferSwapDirection(r.Pool, r.Input.Reserve)

	if err := r.Input.validate(input); err != nil {
		return err
	}
	return r.Output.validate(output)
}

func (r *DepositRequest) validate() error {
	if r.Pool.IsPaused {
		return &ValidationError{
			Code:  CodePoolPaused,
			Label: "pool",
		}
	}

	if err := r.Input0.validate(&r.Pool.Token0); err != nil {
		return err
	}
	if err := r.Input1.validate(&r.Pool.Token1); err != nil {
		return err
	}

	if err := assertKeys(CodeMintMismatch, r.Pool.PoolMint, r.PoolMint, "pool_mint"); err != nil {
		return err
	}
	if err := assertKeys(CodeMintMismatch, r.Pool.PoolMint, r.OutputLp.Mint, "output_lp.mint"); err != nil {
		return err
	}

	// LP tokens minted to an account the pool controls would be
	// unredeemable.
	return assertDistinctKeys(CodeSelfOwnership, r.PoolAddress, r.OutputLp.Owner, "output_lp.owner cannot be the pool")
}

func (r *WithdrawRequest) validate() error {
	if r.Pool.IsPaused {
		return &ValidationError{
			Code:  CodePoolPaused,
			Label: "pool",
		}
	}

	if err := assertKeys(CodeMintMismatch, r.Pool.PoolMint, r.PoolMint, "pool_mint"); err != nil {
		return err
	}
	if err := assertKeys(CodeMintMismatch, r.PoolMint, r.InputLp.Mint, "input_lp.mint"); err != nil {
		return err
	}

	if err := r.Output0.validate(&r.Pool.Token0); err != nil {
		return err
	}
	return r.Output1.validate(&r.Pool.Token1)
}
