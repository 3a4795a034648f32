package model

import "errors"

// Kind classifies an engine error by how the caller should react.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInput errors are caller-correctable.
	KindInput
	// KindState errors mean the operation does not fit the account's phase.
	KindState
	// KindTemporal errors may succeed if retried later.
	KindTemporal
	// KindSolvency means the pool cannot cover the yield; emergency exit still works.
	KindSolvency
	// KindTransfer means the ledger refused or failed a transfer.
	KindTransfer
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindState:
		return "state"
	case KindTemporal:
		return "temporal"
	case KindSolvency:
		return "solvency"
	case KindTransfer:
		return "transfer"
	case KindAuth:
		return "auth"
	}
	return "unknown"
}

// Error is a classified engine error. Sentinels are compared by identity.
type Error struct {
	Code string
	Kind Kind
}

func (e *Error) Error() string { return e.Code }

var (
	ErrInvalidAmount  = &Error{"invalid amount", KindInput}
	ErrZeroRate       = &Error{"zero rate", KindInput}
	ErrNonSequential  = &Error{"non-sequential period index", KindInput}
	ErrExceedsMaxLock = &Error{"exceeds max lock time", KindInput}

	ErrNoStake        = &Error{"no stake", KindState}
	ErrAlreadyPending = &Error{"unstake already pending", KindState}
	ErrNotPending     = &Error{"no unstake pending", KindState}
	ErrNoYield        = &Error{"no yield", KindState}

	ErrStillInCooldown    = &Error{"still in cooldown", KindTemporal}
	ErrPeriodAlreadyEnded = &Error{"period already ended", KindTemporal}
	ErrProgramEnded       = &Error{"program ended", KindTemporal}

	ErrInsufficientPool = &Error{"insufficient rewards pool", KindSolvency}

	ErrTransferFailed = &Error{"transfer failed", KindTransfer}

	ErrUnauthorized = &Error{"unauthorized", KindAuth}
)

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
