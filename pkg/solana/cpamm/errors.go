package cpamm

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// ValidationCode mirrors the program's custom error enum for account
// validation failures.
type ValidationCode uint32

const (
	// A presented account doesn't match the expected key for its role
	CodeKeyMismatch ValidationCode = iota + 0x1770

	// The pool is paused
	CodePoolPaused

	// Pool mint decimals aren't the max of the two token mint decimals
	CodeDecimalsMismatch

	// Pool mint is missing a mint or freeze authority
	CodeMissingAuthority

	// Pool mint authority isn't the pool
	CodeAuthorityMismatch

	// A presented account's mint doesn't match the expected mint
	CodeMintMismatch

	// A presented reserve doesn't match the persisted reserve
	CodeReserveMismatch

	// A presented fee account doesn't match the persisted fee account
	CodeFeeMismatch

	// Proposed fee account and reserve are the same account
	CodeFeeEqualsReserve

	// A user account doubles as a protocol-controlled account
	CodeSelfDealing

	// LP tokens would be minted to an account the pool owns
	CodeSelfOwnership

	// The two token mints are the same
	CodeTokensEqual

	// The two token mints aren't in sorted order
	CodeTokensNotSorted
)

func (c ValidationCode) String() string {
	switch c {
	case CodeKeyMismatch:
		return "key_mismatch"
	case CodePoolPaused:
		return "pool_paused"
	case CodeDecimalsMismatch:
		return "decimals_mismatch"
	case CodeMissingAuthority:
		return "missing_authority"
	case CodeAuthorityMismatch:
		return "authority_mismatch"
	case CodeMintMismatch:
		return "mint_mismatch"
	case CodeReserveMismatch:
		return "reserve_mismatch"
	case CodeFeeMismatch:
		return "fee_mismatch"
	case CodeFeeEqualsReserve:
		return "fee_equals_reserve"
	case CodeSelfDealing:
		return "self_dealing"
	case CodeSelfOwnership:
		return "self_ownership"
	case CodeTokensEqual:
		return "tokens_equal"
	case CodeTokensNotSorted:
		return "tokens_not_sorted"
	}
	return "unknown"
}

// ValidationError is the failure surfaced when a request's accounts violate
// a pool invariant. The label identifies the account role being checked and
// is propagated verbatim from the validator.
type ValidationError struct {
	Code     ValidationCode
	Label    string
	Expected []byte
	Actual   []byte
}

func (e *ValidationError) Error() string {
	if len(e.Expected) > 0 || len(e.Actual) > 0 {
		return fmt.Sprintf(
			"%s: %s (expected %s, got %s)",
			e.Code,
			e.Label,
			base58.Encode(e.Expected),
			base58.Encode(e.Actual),
		)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Label)
}

// IsValidationError returns the typed validation failure, if err is one.
func IsValidationError(err error) (*ValidationError, bool) {
	validationError, ok := err.(*ValidationError)
	return validationError, ok
}
