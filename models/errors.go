package models

import "errors"

// Ledger invariant violations. All of them are rejected before any counter
// is touched, so a caller observing one of these can assume the ledger is
// exactly as it was before the call.
var (
	ErrInsufficientStock = errors.New("insufficient stock available")
	ErrInvalidRelease    = errors.New("release quantity exceeds reserved stock")
	ErrInvalidConfirm    = errors.New("confirm quantity exceeds reserved stock")
	ErrInvalidAdjustment = errors.New("adjustment below reserved stock")

	// ErrInvalidState is returned for a lifecycle transition attempted on a
	// reservation that is no longer active.
	ErrInvalidState = errors.New("reservation is not active")
)
