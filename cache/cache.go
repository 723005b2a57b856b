package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gofalre.io/partstock/models"
)

const defaultTTL = 5 * time.Minute

// Store keeps read-side ledger snapshots in Redis. The database stays the
// source of truth: the domain service invalidates the snapshot after every
// committed mutation, and cache failures degrade to a database read.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewStore(client *redis.Client, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		ttl:    defaultTTL,
		logger: logger,
	}
}

func ledgerKey(sku, variantSKU string) string {
	return fmt.Sprintf("ledger:%s:%s", sku, variantSKU)
}

func (s *Store) GetLedger(ctx context.Context, sku, variantSKU string) (*models.Inventory, bool) {
	data, err := s.client.Get(ctx, ledgerKey(sku, variantSKU)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Error("failed to read cached ledger", zap.String("sku", sku), zap.Error(err))
		}
		return nil, false
	}

	var inv models.Inventory
	if err = json.Unmarshal(data, &inv); err != nil {
		s.logger.Error("failed to decode cached ledger", zap.String("sku", sku), zap.Error(err))
		return nil, false
	}

	return &inv, true
}

func (s *Store) SetLedger(ctx context.Context, inv *models.Inventory) {
	data, err := json.Marshal(inv)
	if err != nil {
		s.logger.Error("failed to encode ledger", zap.String("sku", inv.SKU), zap.Error(err))
		return
	}

	if err = s.client.Set(ctx, ledgerKey(inv.SKU, inv.VariantSKU), data, s.ttl).Err(); err != nil {
		s.logger.Error("failed to cache ledger", zap.String("sku", inv.SKU), zap.Error(err))
	}
}

func (s *Store) InvalidateLedger(ctx context.Context, sku, variantSKU string) {
	if err := s.client.Del(ctx, ledgerKey(sku, variantSKU)).Err(); err != nil {
		s.logger.Error("failed to invalidate cached ledger", zap.String("sku", sku), zap.Error(err))
	}
}
