package models

import (
	"time"

	"github.com/google/uuid"

	"gofalre.io/partstock/models/enum"
)

// Reservation is a time-bounded hold of quantity against one ledger. It is
// created active and moves exactly once into one of the terminal states:
// confirmed, released or expired.
type Reservation struct {
	ID            uuid.UUID              `json:"id"`
	LedgerID      uint64                 `json:"ledger_id"`
	Quantity      int64                  `json:"quantity"`
	RequesterID   string                 `json:"requester_id"`
	CorrelationID string                 `json:"correlation_id"`
	Status        enum.ReservationStatus `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
	ExpiresAt     time.Time              `json:"expires_at"`
}

func NewReservation(ledgerID uint64, quantity int64, requesterID, correlationID string, ttl time.Duration) *Reservation {
	now := time.Now()
	return &Reservation{
		ID:            uuid.New(),
		LedgerID:      ledgerID,
		Quantity:      quantity,
		RequesterID:   requesterID,
		CorrelationID: correlationID,
		Status:        enum.ReservationStatusActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
}

func (r *Reservation) IsActive() bool {
	return r.Status == enum.ReservationStatusActive
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Confirm transitions active → confirmed.
func (r *Reservation) Confirm() error {
	if !r.IsActive() {
		return ErrInvalidState
	}
	r.Status = enum.ReservationStatusConfirmed
	return nil
}

// Release transitions active → released.
func (r *Reservation) Release() error {
	if !r.IsActive() {
		return ErrInvalidState
	}
	r.Status = enum.ReservationStatusReleased
	return nil
}

// Expire transitions active → expired once the hold is past its deadline.
// A reservation that already left the active state is left untouched and
// reported as not changed, so sweeper re-runs are no-ops rather than errors.
func (r *Reservation) Expire(now time.Time) (bool, error) {
	if !r.IsActive() {
		return false, nil
	}
	if !r.IsExpired(now) {
		return false, ErrInvalidState
	}
	r.Status = enum.ReservationStatusExpired
	return true, nil
}
