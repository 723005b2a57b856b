package partstock

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gofalre.io/partstock/models"
)

const (
	subjectStockLow     = "inventory.stock.low"
	subjectStockChanged = "inventory.stock.changed"
)

// Publisher is the outbound message-bus abstraction. Publishing is
// fire-and-forget: the ledger transaction has already committed by the time
// an event goes out, so a publish failure is logged and dropped, never
// propagated back to the caller and never rolled back.
type Publisher interface {
	PublishLowStock(ctx context.Context, event *models.LowStockEvent)
	PublishStockChanged(ctx context.Context, event *models.StockChangedEvent)
}

type EventManager struct {
	natsConn *nats.Conn
	logger   *zap.Logger
}

func NewEventManager(natsConn *nats.Conn, logger *zap.Logger) *EventManager {
	return &EventManager{
		natsConn: natsConn,
		logger:   logger,
	}
}

func (em *EventManager) PublishLowStock(ctx context.Context, event *models.LowStockEvent) {
	em.publish(subjectStockLow, event)
}

func (em *EventManager) PublishStockChanged(ctx context.Context, event *models.StockChangedEvent) {
	em.publish(subjectStockChanged, event)
}

func (em *EventManager) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		em.logger.Error("failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}

	if err = em.natsConn.Publish(subject, data); err != nil {
		em.logger.Error("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
