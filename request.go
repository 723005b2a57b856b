package partstock

import "time"

type InitializeStockParams struct {
	SKU               string
	VariantSKU        string
	TotalQuantity     int64
	MinimumStockLevel int64
	ReorderPoint      int64
	Reason            string
}

type ReserveStockParams struct {
	SKU           string
	VariantSKU    string
	Quantity      int64
	RequesterID   string
	CorrelationID string
	// TTL overrides the configured default hold duration; zero keeps the default.
	TTL time.Duration
}

type AdjustStockParams struct {
	SKU        string
	VariantSKU string
	NewTotal   int64
	Reason     string
}
