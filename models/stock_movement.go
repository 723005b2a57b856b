package models

import (
	"time"

	"github.com/google/uuid"

	"gofalre.io/partstock/models/enum"
)

// StockMovement is an append-only audit record of a single counter change.
// Quantity is always the positive magnitude; the direction is implied by
// the movement type. Movements are never updated or deleted.
type StockMovement struct {
	ID         uuid.UUID         `json:"id"`
	LedgerID   uint64            `json:"ledger_id"`
	Type       enum.MovementType `json:"type"`
	Quantity   int64             `json:"quantity"`
	Reason     string            `json:"reason"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewStockMovement(ledgerID uint64, movementType enum.MovementType, quantity int64, reason string) *StockMovement {
	return &StockMovement{
		ID:         uuid.New(),
		LedgerID:   ledgerID,
		Type:       movementType,
		Quantity:   quantity,
		Reason:     reason,
		OccurredAt: time.Now(),
	}
}
