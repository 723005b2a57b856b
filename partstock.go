package partstock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"gofalre.io/partstock/catalog"
	"gofalre.io/partstock/ledger"
	"gofalre.io/partstock/models"
	"gofalre.io/partstock/models/enum"
	"gofalre.io/partstock/reservation"
)

const (
	defaultReservationTTL = 30 * time.Minute
	defaultReorderPoint   = 10
	defaultMovementLimit  = 50
	sweepBatchSize        = 100
	sweepWorkers          = 4
)

type Service interface {
	InitializeStock(ctx context.Context, params InitializeStockParams) (*models.Inventory, error)
	ReserveStock(ctx context.Context, params ReserveStockParams) (*models.Reservation, error)
	ConfirmReservation(ctx context.Context, reservationID uuid.UUID) error
	ReleaseStock(ctx context.Context, reservationID uuid.UUID, reason string) error
	AdjustStock(ctx context.Context, params AdjustStockParams) error
	IsStockAvailable(ctx context.Context, sku, variantSKU string, quantity int64) (bool, error)
	GetLedger(ctx context.Context, sku, variantSKU string) (*models.Inventory, error)
	ListMovements(ctx context.Context, sku, variantSKU string, limit, offset uint64) ([]*models.StockMovement, error)
	ListActiveReservations(ctx context.Context, sku, variantSKU string) ([]*models.Reservation, error)
	CleanupExpiredReservations(ctx context.Context) (int, error)
	Close()
}

// TxManager is the unit-of-work boundary every mutating operation runs in:
// ledger change, reservation transition and movement write commit together
// or not at all. driver.TransactionManager is the production implementation.
type TxManager interface {
	ExecuteTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
	ExecuteTransactionWithRetry(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// LedgerCache is the external cache collaborator. The orchestrator
// invalidates explicitly after each committed mutation; there is no
// framework hook doing it behind the scenes.
type LedgerCache interface {
	GetLedger(ctx context.Context, sku, variantSKU string) (*models.Inventory, bool)
	SetLedger(ctx context.Context, inv *models.Inventory)
	InvalidateLedger(ctx context.Context, sku, variantSKU string)
}

type service struct {
	ledger      ledger.Repository
	reservation reservation.Repository
	catalog     catalog.Repository

	transactionManager TxManager
	cache              LedgerCache
	events             Publisher
	workerPool         *WorkerPool

	reservationTTL time.Duration
	logger         *zap.Logger
}

func NewService(
	ledgerRepo ledger.Repository, reservationRepo reservation.Repository, catalogRepo catalog.Repository,
	tm TxManager, cache LedgerCache, events Publisher,
	reservationTTL time.Duration,
	logger *zap.Logger) Service {

	if reservationTTL <= 0 {
		reservationTTL = defaultReservationTTL
	}

	return &service{
		ledger:             ledgerRepo,
		reservation:        reservationRepo,
		catalog:            catalogRepo,
		transactionManager: tm,
		cache:              cache,
		events:             events,
		workerPool:         NewWorkerPool(sweepWorkers, logger),
		reservationTTL:     reservationTTL,
		logger:             logger,
	}
}

// InitializeStock creates the ledger for a SKU that the catalog knows about
// but stock has never been tracked for. Reservations against a SKU without
// a ledger fail; this is the explicit opt-in.
func (s *service) InitializeStock(ctx context.Context, params InitializeStockParams) (*models.Inventory, error) {
	if params.TotalQuantity < 0 || params.MinimumStockLevel < 0 || params.ReorderPoint < 0 {
		return nil, models.ErrInvalidAdjustment
	}

	var inv *models.Inventory
	err := s.transactionManager.ExecuteTransactionWithRetry(ctx, func(tx pgx.Tx) error {
		// 1. 確認商品存在於目錄
		exists, err := s.catalog.ProductExists(ctx, tx, params.SKU)
		if err != nil {
			return fmt.Errorf("failed to look up product: %w", err)
		}
		if !exists {
			return ErrProductNotFound
		}

		// 2. 同一個 SKU 不允許重複初始化
		if _, err = s.ledger.GetBySKUForUpdate(ctx, tx, params.SKU, params.VariantSKU); err == nil {
			return ErrLedgerExists
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to get ledger: %w", err)
		}

		inv = &models.Inventory{
			SKU:               params.SKU,
			VariantSKU:        params.VariantSKU,
			QuantityAvailable: params.TotalQuantity,
			MinimumStockLevel: params.MinimumStockLevel,
			ReorderPoint:      params.ReorderPoint,
		}
		if err = s.ledger.Create(ctx, tx, inv); err != nil {
			return fmt.Errorf("failed to create ledger: %w", err)
		}

		// 3. 初始入庫也要留下異動紀錄
		if params.TotalQuantity > 0 {
			reason := params.Reason
			if reason == "" {
				reason = "initial stock"
			}
			movement := models.NewStockMovement(inv.ID, enum.MovementTypeIncoming, params.TotalQuantity, reason)
			if err = s.ledger.CreateMovement(ctx, tx, movement); err != nil {
				return fmt.Errorf("failed to create stock movement: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterLedgerMutation(ctx, inv, enum.MovementTypeIncoming, false)
	return inv, nil
}

// ReserveStock places a time-bounded hold of quantity against one ledger.
// The ledger decrement, the reservation row and the audit movement are one
// atomic unit; a losing concurrent attempt observes a clean failure and an
// untouched ledger.
func (s *service) ReserveStock(ctx context.Context, params ReserveStockParams) (*models.Reservation, error) {
	if params.Quantity <= 0 {
		return nil, models.ErrInsufficientStock
	}

	ttl := params.TTL
	if ttl <= 0 {
		ttl = s.reservationTTL
	}

	var (
		res      *models.Reservation
		snapshot *models.Inventory
	)
	err := s.transactionManager.ExecuteTransactionWithRetry(ctx, func(tx pgx.Tx) error {
		// 1. 鎖定庫存帳本，序列化同一列上的 check-then-act
		inv, err := s.ledger.GetBySKUForUpdate(ctx, tx, params.SKU, params.VariantSKU)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotTracked
			}
			return fmt.Errorf("failed to get ledger: %w", err)
		}

		// 2. 扣減可用量、增加保留量
		if err = inv.Reserve(params.Quantity); err != nil {
			return err
		}
		if err = s.ledger.UpdateCounters(ctx, tx, inv); err != nil {
			return fmt.Errorf("failed to update ledger: %w", err)
		}

		// 3. 建立保留紀錄與異動紀錄
		res = models.NewReservation(inv.ID, params.Quantity, params.RequesterID, params.CorrelationID, ttl)
		if err = s.reservation.Create(ctx, tx, res); err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}

		movement := models.NewStockMovement(inv.ID, enum.MovementTypeReserved, params.Quantity,
			fmt.Sprintf("reserved by %s", params.RequesterID))
		if err = s.ledger.CreateMovement(ctx, tx, movement); err != nil {
			return fmt.Errorf("failed to create stock movement: %w", err)
		}

		snapshot = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterLedgerMutation(ctx, snapshot, enum.MovementTypeReserved, false)
	return res, nil
}

// ConfirmReservation turns a hold into a sale: the reserved units leave the
// ledger permanently.
func (s *service) ConfirmReservation(ctx context.Context, reservationID uuid.UUID) error {
	var (
		snapshot *models.Inventory
		lowStock bool
	)
	err := s.transactionManager.ExecuteTransactionWithRetry(ctx, func(tx pgx.Tx) error {
		res, err := s.getReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if err = res.Confirm(); err != nil {
			return err
		}

		// 1. 鎖定帳本後再做狀態轉移，確保只有一個贏家；
		//    條件更新是併發下的最終仲裁，實體轉移只驗證讀到的那份
		inv, err := s.ledger.GetByIDForUpdate(ctx, tx, res.LedgerID)
		if err != nil {
			return fmt.Errorf("failed to get ledger: %w", err)
		}

		changed, err := s.reservation.UpdateStatus(ctx, tx, reservationID,
			enum.ReservationStatusActive, enum.ReservationStatusConfirmed)
		if err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}
		if !changed {
			return models.ErrInvalidState
		}

		// 2. 保留量轉為售出，總庫存永久下降
		if err = inv.ConfirmSale(res.Quantity); err != nil {
			return err
		}
		if err = s.ledger.UpdateCounters(ctx, tx, inv); err != nil {
			return fmt.Errorf("failed to update ledger: %w", err)
		}

		movement := models.NewStockMovement(inv.ID, enum.MovementTypeSold, res.Quantity,
			fmt.Sprintf("sale confirmed for %s", res.RequesterID))
		if err = s.ledger.CreateMovement(ctx, tx, movement); err != nil {
			return fmt.Errorf("failed to create stock movement: %w", err)
		}

		snapshot = inv
		lowStock = inv.IsLowStock()
		return nil
	})
	if err != nil {
		return err
	}

	s.afterLedgerMutation(ctx, snapshot, enum.MovementTypeSold, lowStock)
	return nil
}

// ReleaseStock cancels an active hold and returns its quantity to the
// available pool.
func (s *service) ReleaseStock(ctx context.Context, reservationID uuid.UUID, reason string) error {
	if reason == "" {
		reason = "reservation cancelled"
	}

	var snapshot *models.Inventory
	err := s.transactionManager.ExecuteTransactionWithRetry(ctx, func(tx pgx.Tx) error {
		res, err := s.getReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if err = res.Release(); err != nil {
			return err
		}

		inv, err := s.ledger.GetByIDForUpdate(ctx, tx, res.LedgerID)
		if err != nil {
			return fmt.Errorf("failed to get ledger: %w", err)
		}

		changed, err := s.reservation.UpdateStatus(ctx, tx, reservationID,
			enum.ReservationStatusActive, enum.ReservationStatusReleased)
		if err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}
		if !changed {
			return models.ErrInvalidState
		}

		if err = inv.Release(res.Quantity); err != nil {
			return err
		}
		if err = s.ledger.UpdateCounters(ctx, tx, inv); err != nil {
			return fmt.Errorf("failed to update ledger: %w", err)
		}

		movement := models.NewStockMovement(inv.ID, enum.MovementTypeReleased, res.Quantity, reason)
		if err = s.ledger.CreateMovement(ctx, tx, movement); err != nil {
			return fmt.Errorf("failed to create stock movement: %w", err)
		}

		snapshot = inv
		return nil
	})
	if err != nil {
		return err
	}

	s.afterLedgerMutation(ctx, snapshot, enum.MovementTypeReleased, false)
	return nil
}

// AdjustStock sets the total on-hand quantity, e.g. after a physical
// recount or a delivery. The ledger is created on first use with a default
// reorder point; the signed difference against the previous availability
// decides whether the movement is incoming or outgoing.
func (s *service) AdjustStock(ctx context.Context, params AdjustStockParams) error {
	var (
		snapshot     *models.Inventory
		movementType enum.MovementType
		lowStock     bool
	)
	err := s.transactionManager.ExecuteTransactionWithRetry(ctx, func(tx pgx.Tx) error {
		inv, err := s.ledger.GetBySKUForUpdate(ctx, tx, params.SKU, params.VariantSKU)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to get ledger: %w", err)
			}

			// 1. 首次調整時自動建立帳本
			exists, lookupErr := s.catalog.ProductExists(ctx, tx, params.SKU)
			if lookupErr != nil {
				return fmt.Errorf("failed to look up product: %w", lookupErr)
			}
			if !exists {
				return ErrProductNotFound
			}

			inv = &models.Inventory{
				SKU:          params.SKU,
				VariantSKU:   params.VariantSKU,
				ReorderPoint: defaultReorderPoint,
			}
			if err = s.ledger.Create(ctx, tx, inv); err != nil {
				return fmt.Errorf("failed to create ledger: %w", err)
			}
		}

		// 2. 以前後可用量差額決定異動方向與幅度
		previousAvailable := inv.QuantityAvailable
		if err = inv.AdjustTotalTo(params.NewTotal); err != nil {
			return err
		}

		// 3. 總量沒變就不寫帳、不發事件
		diff := inv.QuantityAvailable - previousAvailable
		if diff == 0 {
			return nil
		}

		if err = s.ledger.UpdateCounters(ctx, tx, inv); err != nil {
			return fmt.Errorf("failed to update ledger: %w", err)
		}

		quantity := diff
		movementType = enum.MovementTypeIncoming
		if diff < 0 {
			quantity = -diff
			movementType = enum.MovementTypeOutgoing
		}

		movement := models.NewStockMovement(inv.ID, movementType, quantity, params.Reason)
		if err = s.ledger.CreateMovement(ctx, tx, movement); err != nil {
			return fmt.Errorf("failed to create stock movement: %w", err)
		}

		snapshot = inv
		lowStock = inv.IsLowStock()
		return nil
	})
	if err != nil {
		return err
	}

	s.afterLedgerMutation(ctx, snapshot, movementType, lowStock)
	return nil
}

// IsStockAvailable is a read-only availability check. An untracked product
// reads as unavailable rather than as an error.
func (s *service) IsStockAvailable(ctx context.Context, sku, variantSKU string, quantity int64) (bool, error) {
	inv, err := s.getLedgerCached(ctx, sku, variantSKU)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return inv.CanReserve(quantity), nil
}

func (s *service) GetLedger(ctx context.Context, sku, variantSKU string) (*models.Inventory, error) {
	inv, err := s.getLedgerCached(ctx, sku, variantSKU)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotTracked
		}
		return nil, err
	}
	return inv, nil
}

func (s *service) ListMovements(ctx context.Context, sku, variantSKU string, limit, offset uint64) ([]*models.StockMovement, error) {
	inv, err := s.getLedgerCached(ctx, sku, variantSKU)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotTracked
		}
		return nil, err
	}

	if limit == 0 {
		limit = defaultMovementLimit
	}

	return s.ledger.ListMovements(ctx, nil, inv.ID, limit, offset)
}

func (s *service) ListActiveReservations(ctx context.Context, sku, variantSKU string) ([]*models.Reservation, error) {
	inv, err := s.getLedgerCached(ctx, sku, variantSKU)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotTracked
		}
		return nil, err
	}

	return s.reservation.ListActiveByLedger(ctx, nil, inv.ID)
}

// CleanupExpiredReservations releases every active reservation past its
// deadline, each in its own transaction so one bad record cannot block the
// rest. It scans in batches and keeps going until the backlog is drained.
// It returns how many reservations were expired. Safe to run concurrently
// with live traffic and with itself: the conditional status transition
// guarantees each reservation is released at most once.
func (s *service) CleanupExpiredReservations(ctx context.Context) (int, error) {
	total := 0
	for {
		expired, err := s.reservation.ListExpired(ctx, nil, time.Now(), sweepBatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to list expired reservations: %w", err)
		}

		var (
			wg    sync.WaitGroup
			count atomic.Int64
		)
		for _, res := range expired {
			res := res
			wg.Add(1)
			s.workerPool.Submit(func() {
				defer wg.Done()
				changed, err := s.expireReservation(ctx, res.ID)
				if err != nil {
					s.logger.Error("failed to expire reservation",
						zap.String("reservation_id", res.ID.String()),
						zap.Error(err))
					return
				}
				if changed {
					count.Add(1)
				}
			})
		}
		wg.Wait()
		total += int(count.Load())

		// Failed records stay active and would be listed again next round,
		// so stop as soon as a pass comes back short or makes no progress.
		if len(expired) < sweepBatchSize || count.Load() == 0 {
			return total, nil
		}
	}
}

// expireReservation runs the release path for one overdue reservation.
// Reservations that already left the active state are skipped, not failed,
// so sweeper re-runs and overlapping passes are harmless.
func (s *service) expireReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	var (
		snapshot *models.Inventory
		changed  bool
	)
	err := s.transactionManager.ExecuteTransactionWithRetry(ctx, func(tx pgx.Tx) error {
		snapshot = nil
		changed = false

		res, err := s.getReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		// 尚未到期或已離開 active 的保留直接跳過
		if due, expireErr := res.Expire(time.Now()); expireErr != nil || !due {
			return nil
		}

		inv, err := s.ledger.GetByIDForUpdate(ctx, tx, res.LedgerID)
		if err != nil {
			return fmt.Errorf("failed to get ledger: %w", err)
		}

		changed, err = s.reservation.UpdateStatus(ctx, tx, reservationID,
			enum.ReservationStatusActive, enum.ReservationStatusExpired)
		if err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}
		if !changed {
			// 另一個路徑已處理過這筆保留
			return nil
		}

		if err = inv.Release(res.Quantity); err != nil {
			return err
		}
		if err = s.ledger.UpdateCounters(ctx, tx, inv); err != nil {
			return fmt.Errorf("failed to update ledger: %w", err)
		}

		movement := models.NewStockMovement(inv.ID, enum.MovementTypeReleased, res.Quantity, "reservation expired")
		if err = s.ledger.CreateMovement(ctx, tx, movement); err != nil {
			return fmt.Errorf("failed to create stock movement: %w", err)
		}

		snapshot = inv
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed && snapshot != nil {
		s.afterLedgerMutation(ctx, snapshot, enum.MovementTypeReleased, false)
	}
	return changed, nil
}

func (s *service) Close() {
	s.workerPool.Shutdown()
}

func (s *service) getReservation(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Reservation, error) {
	res, err := s.reservation.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return res, nil
}

func (s *service) getLedgerCached(ctx context.Context, sku, variantSKU string) (*models.Inventory, error) {
	if inv, found := s.cache.GetLedger(ctx, sku, variantSKU); found {
		return inv, nil
	}

	inv, err := s.ledger.GetBySKU(ctx, nil, sku, variantSKU)
	if err != nil {
		return nil, err
	}

	s.cache.SetLedger(ctx, inv)
	return inv, nil
}

// afterLedgerMutation runs the post-commit side effects: explicit cache
// invalidation, a stock-changed event, and a low-stock notification when
// the mutation left availability at or below the reorder point. All of it
// is fire-and-forget; the transaction is already durable.
func (s *service) afterLedgerMutation(ctx context.Context, inv *models.Inventory, movement enum.MovementType, lowStock bool) {
	if inv == nil {
		return
	}

	s.cache.InvalidateLedger(ctx, inv.SKU, inv.VariantSKU)

	now := time.Now()
	s.events.PublishStockChanged(ctx, &models.StockChangedEvent{
		SKU:        inv.SKU,
		VariantSKU: inv.VariantSKU,
		Available:  inv.QuantityAvailable,
		Reserved:   inv.QuantityReserved,
		Movement:   movement,
		OccurredAt: now,
	})

	if lowStock {
		s.events.PublishLowStock(ctx, &models.LowStockEvent{
			SKU:          inv.SKU,
			VariantSKU:   inv.VariantSKU,
			Available:    inv.QuantityAvailable,
			ReorderPoint: inv.ReorderPoint,
			OccurredAt:   now,
		})
	}
}
