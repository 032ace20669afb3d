package cpamm

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/cpamm-labs/cpamm-server/pkg/solana/token"
)

// MintView is the deserialized state of an SPL mint presented with a
// request. Authority keys are nil when the corresponding COption is unset
// on chain.
type MintView struct {
	Address         ed25519.PublicKey
	Decimals        uint8
	MintAuthority   ed25519.PublicKey
	FreezeAuthority ed25519.PublicKey
}

// NewMintView builds a MintView from a deserialized SPL mint.
func NewMintView(address ed25519.PublicKey, state *token.Mint) MintView {
	return MintView{
		Address:         address,
		Decimals:        state.Decimals,
		MintAuthority:   state.MintAuthority,
		FreezeAuthority: state.FreezeAuthority,
	}
}

// TokenAccountView is the deserialized state of an SPL token account
// presented with a request.
type TokenAccountView struct {
	Address ed25519.PublicKey
	Mint    ed25519.PublicKey
	Owner   ed25519.PublicKey
}

// NewTokenAccountView builds a TokenAccountView from a deserialized SPL
// token account.
func NewTokenAccountView(address ed25519.PublicKey, state *token.Account) TokenAccountView {
	return TokenAccountView{
		Address: address,
		Mint:    state.Mint,
		Owner:   state.Owner,
	}
}

// assertKeys is the sole primitive for identity comparison. Every higher
// level check reduces to invocations of it plus the distinctness assertion
// below.
func assertKeys(code ValidationCode, expected, actual ed25519.PublicKey, label string) error {
	if bytes.Equal(expected, actual) {
		return nil
	}
	return &ValidationError{
		Code:     code,
		Label:    label,
		Expected: expected,
		Actual:   actual,
	}
}

// assertDistinctKeys fails when the two keys are equal. Used for every
// anti-self-dealing check.
func assertDistinctKeys(code ValidationCode, a, b ed25519.PublicKey, label string) error {
	if !bytes.Equal(a, b) {
		return nil
	}
	return &ValidationError{
		Code:  code,
		Label: label,
	}
}

// assertAssociatedTokenAccount fails when actual isn't the canonical
// associated token account for the (wallet, mint) pair.
func assertAssociatedTokenAccount(code ValidationCode, actual, wallet, mint ed25519.PublicKey, label string) error {
	expected, err := token.GetAssociatedAccount(wallet, mint)
	if err != nil {
		return errors.Wrap(err, "error deriving associated token account")
	}
	return assertKeys(code, expected, actual, label)
}

// SwapLeg is one side of a swap as presented by the caller: the user's
// token account and the reserve the user claims to be trading against.
type SwapLeg struct {
	User    TokenAccountView
	Reserve ed25519.PublicKey
}

func (l *SwapLeg) validate(slot *TokenSlot) error {
	if err := assertKeys(CodeReserveMismatch, slot.Reserve, l.Reserve, "reserve"); err != nil {
		return err
	}
	if err := assertKeys(CodeMintMismatch, slot.Mint, l.User.Mint, "user.mint"); err != nil {
		return err
	}
	return assertDistinctKeys(CodeSelfDealing, l.Reserve, l.User.Address, "user cannot be the reserve account")
}

// FeeLeg is one side of a deposit or withdrawal: a SwapLeg plus the
// protocol fee account for that side.
type FeeLeg struct {
	User    TokenAccountView
	Reserve ed25519.PublicKey
	Fees    ed25519.PublicKey
}

func (l *FeeLeg) validate(slot *TokenSlot) error {
	if err := assertKeys(CodeFeeMismatch, slot.Fees, l.Fees, "fees"); err != nil {
		return err
	}
	if err := assertKeys(CodeReserveMismatch, slot.Reserve, l.Reserve, "reserve"); err != nil {
		return err
	}
	if err := assertKeys(CodeMintMismatch, slot.Mint, l.User.Mint, "user.mint"); err != nil {
		return err
	}
	if err := assertDistinctKeys(CodeSelfDealing, l.Fees, l.User.Address, "user cannot be the fees account"); err != nil {
		return err
	}
	return assertDistinctKeys(CodeSelfDealing, l.Reserve, l.User.Address, "user cannot be the reserve account")
}

// InitTokenSlot is one proposed asset side at pool creation time, before
// any TokenSlot is persisted.
type InitTokenSlot struct {
	Mint    MintView
	Fees    TokenAccountView
	Reserve ed25519.PublicKey
}

// validate establishes the slot invariants all later operations assume:
// the fee account accrues the slot's mint, is owned by the pool, the
// reserve is the canonical associated token account of (pool, mint), and
// fees and reserve are different accounts.
func (s *InitTokenSlot) validate(pool ed25519.PublicKey) error {
	if err := assertKeys(CodeMintMismatch, s.Mint.Address, s.Fees.Mint, "fees.mint"); err != nil {
		return err
	}
	if err := assertKeys(CodeKeyMismatch, pool, s.Fees.Owner, "fees.owner"); err != nil {
		return err
	}
	if err := assertAssociatedTokenAccount(CodeReserveMismatch, s.Reserve, pool, s.Mint.Address, "reserve"); err != nil {
		return err
	}
	return assertDistinctKeys(CodeFeeEqualsReserve, s.Fees.Address, s.Reserve, "fees cannot equal reserve")
}

// InferSwapDirection selects the input and output slots for a swap by
// matching the presented input reserve against persisted state, so callers
// never declare a direction explicitly. A reserve matching neither slot
// falls through to token 1, where leg validation rejects it with a reserve
// mismatch. It never silently succeeds.
func InferSwapDirection(pool *PoolAccount, inputReserve ed25519.PublicKey) (input, output *TokenSlot) {
	if bytes.Equal(inputReserve, pool.Token0.Reserve) {
		return &pool.Token0, &pool.Token1
	}
	return &pool.Token1, &pool.Token0
}
