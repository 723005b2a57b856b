package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"gofalre.io/partstock/driver"
)

// Repository is the slice of the catalog subsystem the inventory core
// consumes: product identity is owned elsewhere, stock is never tracked for
// a SKU the catalog does not know about.
type Repository interface {
	ProductExists(ctx context.Context, tx pgx.Tx, sku string) (bool, error)
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

func (r *repository) ProductExists(ctx context.Context, tx pgx.Tx, sku string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`

	var exists bool
	var row pgx.Row
	if tx != nil {
		row = tx.QueryRow(ctx, query, sku)
	} else {
		row = r.conn.QueryRow(ctx, query, sku)
	}

	if err := row.Scan(&exists); err != nil {
		r.logger.Error("failed to look up product", zap.String("sku", sku), zap.Error(err))
		return false, err
	}

	return exists, nil
}
