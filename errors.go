package partstock

import "errors"

// Service-level errors. Ledger and lifecycle invariant violations live in
// the models package next to the entities that raise them; transaction
// conflicts come from the driver package. The distinctions matter to
// callers: a missing reservation ("never existed") is not the same as an
// inactive one ("already resolved"), and an untracked product ("initialize
// stock first") is not the same as insufficient stock ("wait for restock").
var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrProductNotFound     = errors.New("product not found in catalog")
	ErrProductNotTracked   = errors.New("stock not initialized for product")
	ErrLedgerExists        = errors.New("stock already initialized for product")
)
