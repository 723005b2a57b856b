package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"gofalre.io/partstock/driver"
	"gofalre.io/partstock/models"
)

var _ Repository = (*repository)(nil)

type Repository interface {
	GetBySKU(ctx context.Context, tx pgx.Tx, sku, variantSKU string) (*models.Inventory, error)
	GetBySKUForUpdate(ctx context.Context, tx pgx.Tx, sku, variantSKU string) (*models.Inventory, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*models.Inventory, error)
	Create(ctx context.Context, tx pgx.Tx, inv *models.Inventory) error
	UpdateCounters(ctx context.Context, tx pgx.Tx, inv *models.Inventory) error
	CreateMovement(ctx context.Context, tx pgx.Tx, movement *models.StockMovement) error
	ListMovements(ctx context.Context, tx pgx.Tx, ledgerID uint64, limit, offset uint64) ([]*models.StockMovement, error)
}

type repository struct {
	conn   driver.PostgresPool
	logger *zap.Logger
}

func NewRepository(conn driver.PostgresPool, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		logger: logger,
	}
}

// dbtx is the common surface of a pgx.Tx and the pool, so every query can
// run either inside a caller-owned transaction or standalone.
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *repository) db(tx pgx.Tx) dbtx {
	if tx != nil {
		return tx
	}
	return r.conn
}

const ledgerColumns = `id, sku, variant_sku, quantity_available, quantity_reserved,
	minimum_stock_level, reorder_point, version, created_at, last_updated`

func scanLedger(row pgx.Row) (*models.Inventory, error) {
	var inv models.Inventory
	if err := row.Scan(
		&inv.ID,
		&inv.SKU,
		&inv.VariantSKU,
		&inv.QuantityAvailable,
		&inv.QuantityReserved,
		&inv.MinimumStockLevel,
		&inv.ReorderPoint,
		&inv.Version,
		&inv.CreatedAt,
		&inv.LastUpdated,
	); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) GetBySKU(ctx context.Context, tx pgx.Tx, sku, variantSKU string) (*models.Inventory, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM inventory_ledgers
		WHERE sku = $1 AND variant_sku = $2`

	return scanLedger(r.db(tx).QueryRow(ctx, query, sku, variantSKU))
}

// GetBySKUForUpdate locks the ledger row for the rest of the transaction.
// Every check-then-act sequence against a ledger must go through one of the
// ForUpdate getters so concurrent mutations are serialized per row.
func (r *repository) GetBySKUForUpdate(ctx context.Context, tx pgx.Tx, sku, variantSKU string) (*models.Inventory, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM inventory_ledgers
		WHERE sku = $1 AND variant_sku = $2
		FOR UPDATE`

	return scanLedger(r.db(tx).QueryRow(ctx, query, sku, variantSKU))
}

func (r *repository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*models.Inventory, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM inventory_ledgers
		WHERE id = $1
		FOR UPDATE`

	return scanLedger(r.db(tx).QueryRow(ctx, query, id))
}

func (r *repository) Create(ctx context.Context, tx pgx.Tx, inv *models.Inventory) error {
	query := `INSERT INTO inventory_ledgers
		(sku, variant_sku, quantity_available, quantity_reserved, minimum_stock_level, reorder_point)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, last_updated`

	if err := r.db(tx).QueryRow(ctx, query,
		inv.SKU,
		inv.VariantSKU,
		inv.QuantityAvailable,
		inv.QuantityReserved,
		inv.MinimumStockLevel,
		inv.ReorderPoint,
	).Scan(&inv.ID, &inv.Version, &inv.CreatedAt, &inv.LastUpdated); err != nil {
		r.logger.Error("failed to create ledger",
			zap.String("sku", inv.SKU),
			zap.String("variant_sku", inv.VariantSKU),
			zap.Error(err))
		return err
	}

	return nil
}

// UpdateCounters writes the mutated counters back, guarded by the version
// read inside the same transaction. A zero-row update means another writer
// slipped in between; that surfaces as a transient conflict, never as a
// silent overwrite.
func (r *repository) UpdateCounters(ctx context.Context, tx pgx.Tx, inv *models.Inventory) error {
	query := `UPDATE inventory_ledgers
		SET quantity_available = $1,
			quantity_reserved = $2,
			minimum_stock_level = $3,
			reorder_point = $4,
			version = version + 1,
			last_updated = now()
		WHERE id = $5 AND version = $6`

	tag, err := r.db(tx).Exec(ctx, query,
		inv.QuantityAvailable,
		inv.QuantityReserved,
		inv.MinimumStockLevel,
		inv.ReorderPoint,
		inv.ID,
		inv.Version,
	)
	if err != nil {
		r.logger.Error("failed to update ledger counters", zap.Uint64("ledger_id", inv.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: ledger %d version %d", driver.ErrTxConflict, inv.ID, inv.Version)
	}

	inv.Version++
	return nil
}

func (r *repository) CreateMovement(ctx context.Context, tx pgx.Tx, movement *models.StockMovement) error {
	query := `INSERT INTO stock_movements
		(id, ledger_id, movement_type, quantity, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db(tx).Exec(ctx, query,
		movement.ID,
		movement.LedgerID,
		movement.Type,
		movement.Quantity,
		movement.Reason,
		movement.OccurredAt,
	); err != nil {
		r.logger.Error("failed to create stock movement",
			zap.Uint64("ledger_id", movement.LedgerID),
			zap.String("type", string(movement.Type)),
			zap.Error(err))
		return err
	}

	return nil
}

func (r *repository) ListMovements(ctx context.Context, tx pgx.Tx, ledgerID uint64, limit, offset uint64) ([]*models.StockMovement, error) {
	query := `SELECT id, ledger_id, movement_type, quantity, reason, occurred_at
		FROM stock_movements
		WHERE ledger_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db(tx).Query(ctx, query, ledgerID, limit, offset)
	if err != nil {
		r.logger.Error("failed to list stock movements", zap.Uint64("ledger_id", ledgerID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	movements := make([]*models.StockMovement, 0)
	for rows.Next() {
		var m models.StockMovement
		if err = rows.Scan(&m.ID, &m.LedgerID, &m.Type, &m.Quantity, &m.Reason, &m.OccurredAt); err != nil {
			return nil, err
		}
		movements = append(movements, &m)
	}

	return movements, rows.Err()
}
