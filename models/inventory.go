package models

import "time"

// Inventory is the stock ledger for one SKU, or one SKU+variant pair.
// QuantityAvailable + QuantityReserved is the total on-hand quantity; that
// total only moves through AdjustTotalTo, never as a side effect of the
// reserve/release/confirm cycle (confirm excepted, which ships units out).
type Inventory struct {
	ID                uint64    `json:"id"`
	SKU               string    `json:"sku"`
	VariantSKU        string    `json:"variant_sku"`
	QuantityAvailable int64     `json:"quantity_available"`
	QuantityReserved  int64     `json:"quantity_reserved"`
	MinimumStockLevel int64     `json:"minimum_stock_level"`
	ReorderPoint      int64     `json:"reorder_point"`
	Version           int64     `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	LastUpdated       time.Time `json:"last_updated"`
}

// TotalOnHand is the conceptual total quantity the warehouse holds.
func (i *Inventory) TotalOnHand() int64 {
	return i.QuantityAvailable + i.QuantityReserved
}

func (i *Inventory) CanReserve(quantity int64) bool {
	return quantity > 0 && quantity <= i.QuantityAvailable
}

// Reserve moves quantity from available to reserved.
func (i *Inventory) Reserve(quantity int64) error {
	if !i.CanReserve(quantity) {
		return ErrInsufficientStock
	}
	i.QuantityAvailable -= quantity
	i.QuantityReserved += quantity
	i.LastUpdated = time.Now()
	return nil
}

// Release moves quantity from reserved back to available.
func (i *Inventory) Release(quantity int64) error {
	if quantity <= 0 || quantity > i.QuantityReserved {
		return ErrInvalidRelease
	}
	i.QuantityReserved -= quantity
	i.QuantityAvailable += quantity
	i.LastUpdated = time.Now()
	return nil
}

// ConfirmSale removes quantity from reserved. The units leave the ledger
// permanently, so the total on-hand drops.
func (i *Inventory) ConfirmSale(quantity int64) error {
	if quantity <= 0 || quantity > i.QuantityReserved {
		return ErrInvalidConfirm
	}
	i.QuantityReserved -= quantity
	i.LastUpdated = time.Now()
	return nil
}

// AdjustTotalTo sets the total on-hand quantity. The new total can never
// drop below what active reservations currently hold.
func (i *Inventory) AdjustTotalTo(newTotal int64) error {
	if newTotal < 0 || newTotal < i.QuantityReserved {
		return ErrInvalidAdjustment
	}
	i.QuantityAvailable = newTotal - i.QuantityReserved
	i.LastUpdated = time.Now()
	return nil
}

func (i *Inventory) IsOutOfStock() bool {
	return i.QuantityAvailable == 0
}

func (i *Inventory) IsLowStock() bool {
	return i.QuantityAvailable <= i.ReorderPoint
}

func (i *Inventory) IsBelowMinimum() bool {
	return i.QuantityAvailable < i.MinimumStockLevel
}
