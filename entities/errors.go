package entities

import (
	"errors"
	"fmt"
)

// Base error classes. Every rejection wraps exactly one of these so callers
// can classify with errors.Is without inspecting messages.
var (
	// ErrPrecondition rejects a submission before any state change; never
	// retried automatically.
	ErrPrecondition = errors.New("precondition failed")

	// ErrCapExceeded rejects a submission that ran into a daily cap; the
	// caller may resubmit in a later epoch.
	ErrCapExceeded = errors.New("cap exceeded")

	// ErrArithmetic marks a fatal arithmetic failure for one submission:
	// uninitialized divisors, checked-op overflow, score multiples above the
	// sanity ceiling. Never silently clamps or wraps.
	ErrArithmetic = errors.New("arithmetic failure")

	ErrStoreEntityNotFound = errors.New("store resource not found")
)

// Precondition rejections.
var (
	ErrDuplicateSubmission = fmt.Errorf("%w: submission key already recorded", ErrPrecondition)
	ErrNotRegistered       = fmt.Errorf("%w: participant not registered", ErrPrecondition)
	ErrUnknownSymbol       = fmt.Errorf("%w: unknown asset symbol", ErrPrecondition)
	ErrUnknownOrigin       = fmt.Errorf("%w: unknown origin tag", ErrPrecondition)
	ErrFlaggedParticipant  = fmt.Errorf("%w: participant flagged by dispute subsystem", ErrPrecondition)
	ErrMalformedAmount     = fmt.Errorf("%w: malformed amount string", ErrPrecondition)
	ErrSelfTransfer        = fmt.Errorf("%w: transfer to own address", ErrPrecondition)
	ErrAmountTooLow        = fmt.Errorf("%w: usd value below minimum", ErrPrecondition)
	ErrAddressNotOwned     = fmt.Errorf("%w: address not owned or not active", ErrPrecondition)
	ErrEmptyParam          = fmt.Errorf("%w: empty parameter", ErrPrecondition)
	ErrParamOutOfBounds    = fmt.Errorf("%w: parameter out of bounds", ErrPrecondition)
	ErrRecordNotFound      = fmt.Errorf("%w: submission record not found", ErrPrecondition)
)

// Cap rejections.
var (
	ErrParticipantDailyCap  = fmt.Errorf("%w: participant daily power cap for asset", ErrCapExceeded)
	ErrAssetDailyCap        = fmt.Errorf("%w: asset daily power cap", ErrCapExceeded)
	ErrAssetShareCap        = fmt.Errorf("%w: asset share of network power", ErrCapExceeded)
	ErrVerifyQueueFull      = fmt.Errorf("%w: pending verification queue full", ErrCapExceeded)
	ErrTooManySubmissions   = fmt.Errorf("%w: participant daily submission limit", ErrCapExceeded)
)

// Arithmetic rejections.
var (
	ErrZeroBaseline  = fmt.Errorf("%w: baseline not initialized", ErrArithmetic)
	ErrOverflow      = fmt.Errorf("%w: checked operation overflow", ErrArithmetic)
	ErrScoreTooLarge = fmt.Errorf("%w: score multiple above sanity ceiling", ErrArithmetic)
	ErrFrozenEpoch   = fmt.Errorf("%w: epoch already archived", ErrArithmetic)
)
