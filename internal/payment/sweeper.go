package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ritikgupta28/chocodivine/internal/stores/kafka"
	"github.com/ritikgupta28/chocodivine/pkg/logkey"
)

// Sweeper deletes gateway orders whose grace period elapsed without a
// payment confirmation. Eligibility is a persisted timestamp written at
// order creation, so a restart loses no cleanup and never deletes early.
type Sweeper struct {
	store    OrderStore
	producer EventProducer
	interval time.Duration
}

func NewSweeper(store OrderStore, producer EventProducer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{store: store, producer: producer, interval: interval}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx, time.Now().UTC()); err != nil {
				slog.Error("abandoned order sweep failed", slog.String(logkey.ERROR, err.Error()))
			}
		}
	}
}

// SweepOnce performs a single sweep. The store's conditional delete is the
// entire concurrency story: an order confirmed at the same instant simply is
// not matched, so a late success never loses a paid order.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	deleted, err := s.store.DeleteAbandoned(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, order := range deleted {
		slog.Info("deleted abandoned order",
			slog.String(logkey.OrderID, order.ID),
			slog.String(logkey.UserID, order.Buyer.UserID))
		s.publishAbandoned(order.ID, order.Buyer.UserID)
	}
	return len(deleted), nil
}

func (s *Sweeper) publishAbandoned(orderID, userID string) {
	if s.producer == nil {
		return
	}
	payload, err := json.Marshal(kafka.OrderAbandonedEvent{
		OrderId:   orderID,
		UserId:    userID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("failed to marshal order abandoned event", slog.String(logkey.ERROR, err.Error()))
		return
	}
	if err := s.producer.ProduceMessage(kafka.TopicOrderAbandoned, []byte(orderID), payload); err != nil {
		slog.Error("failed to produce order abandoned event",
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
	}
}
