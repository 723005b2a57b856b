package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"gofalre.io/partstock/driver"
	"gofalre.io/partstock/models"
	"gofalre.io/partstock/models/enum"
)

var _ Repository = (*repository)(nil)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, res *models.Reservation) error
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Reservation, error)
	// UpdateStatus transitions a reservation from one status to another and
	// reports whether a row actually changed. A false result means the
	// reservation was no longer in the expected status when the update ran,
	// which is how confirm/release/expire races resolve to exactly one winner.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to enum.ReservationStatus) (bool, error)
	ListExpired(ctx context.Context, tx pgx.Tx, now time.Time, limit uint64) ([]*models.Reservation, error)
	ListActiveByLedger(ctx context.Context, tx pgx.Tx, ledgerID uint64) ([]*models.Reservation, error)
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

const reservationColumns = `id, ledger_id, quantity, requester_id, correlation_id, status, created_at, expires_at`

func scanReservation(row pgx.Row) (*models.Reservation, error) {
	var res models.Reservation
	if err := row.Scan(
		&res.ID,
		&res.LedgerID,
		&res.Quantity,
		&res.RequesterID,
		&res.CorrelationID,
		&res.Status,
		&res.CreatedAt,
		&res.ExpiresAt,
	); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) Create(ctx context.Context, tx pgx.Tx, res *models.Reservation) error {
	query := `INSERT INTO reservations
		(id, ledger_id, quantity, requester_id, correlation_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.db(tx).Exec(ctx, query,
		res.ID,
		res.LedgerID,
		res.Quantity,
		res.RequesterID,
		res.CorrelationID,
		res.Status,
		res.CreatedAt,
		res.ExpiresAt,
	); err != nil {
		r.logger.Error("failed to create reservation",
			zap.String("reservation_id", res.ID.String()),
			zap.Uint64("ledger_id", res.LedgerID),
			zap.Error(err))
		return err
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE id = $1`

	return scanReservation(r.db(tx).QueryRow(ctx, query, id))
}

func (r *repository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to enum.ReservationStatus) (bool, error) {
	query := `UPDATE reservations
		SET status = $1
		WHERE id = $2 AND status = $3`

	tag, err := r.db(tx).Exec(ctx, query, to, id, from)
	if err != nil {
		r.logger.Error("failed to update reservation status",
			zap.String("reservation_id", id.String()),
			zap.String("to", string(to)),
			zap.Error(err))
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (r *repository) ListExpired(ctx context.Context, tx pgx.Tx, now time.Time, limit uint64) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3`

	rows, err := r.db(tx).Query(ctx, query, enum.ReservationStatusActive, now, limit)
	if err != nil {
		r.logger.Error("failed to list expired reservations", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (r *repository) ListActiveByLedger(ctx context.Context, tx pgx.Tx, ledgerID uint64) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE ledger_id = $1 AND status = $2
		ORDER BY created_at`

	rows, err := r.db(tx).Query(ctx, query, ledgerID, enum.ReservationStatusActive)
	if err != nil {
		r.logger.Error("failed to list active reservations", zap.Uint64("ledger_id", ledgerID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectReservations(rows)
}

func collectReservations(rows pgx.Rows) ([]*models.Reservation, error) {
	reservations := make([]*models.Reservation, 0)
	for rows.Next() {
		var res models.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.LedgerID,
			&res.Quantity,
			&res.RequesterID,
			&res.CorrelationID,
			&res.Status,
			&res.CreatedAt,
			&res.ExpiresAt,
		); err != nil {
			return nil, err
		}
		reservations = append(reservations, &res)
	}
	return reservations, rows.Err()
}
