package models

import (
	"time"

	"gofalre.io/partstock/models/enum"
)

// LowStockEvent is published when a confirm or adjust operation leaves the
// available quantity at or below the reorder point.
type LowStockEvent struct {
	SKU          string    `json:"sku"`
	VariantSKU   string    `json:"variant_sku,omitempty"`
	Available    int64     `json:"available"`
	ReorderPoint int64     `json:"reorder_point"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// StockChangedEvent is published after every committed ledger mutation so
// downstream consumers can invalidate their own caches.
type StockChangedEvent struct {
	SKU        string            `json:"sku"`
	VariantSKU string            `json:"variant_sku,omitempty"`
	Available  int64             `json:"available"`
	Reserved   int64             `json:"reserved"`
	Movement   enum.MovementType `json:"movement"`
	OccurredAt time.Time         `json:"occurred_at"`
}
