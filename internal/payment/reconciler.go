package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/ritikgupta28/chocodivine/internal/gateway"
	"github.com/ritikgupta28/chocodivine/internal/orders"
	"github.com/ritikgupta28/chocodivine/internal/stores/kafka"
	"github.com/ritikgupta28/chocodivine/pkg/logkey"
)

// OrderStore is the slice of the order store the payment flow needs.
type OrderStore interface {
	GetByID(ctx context.Context, orderID string) (orders.Order, error)
	MarkPaymentConfirmed(ctx context.Context, orderID string) error
	DeleteAbandoned(ctx context.Context, now time.Time) ([]orders.Order, error)
}

// StatusChecker is the outbound server-to-server status query.
type StatusChecker interface {
	Check(ctx context.Context, orderID string) (gateway.StatusResult, error)
}

// EventProducer publishes order lifecycle events. A nil producer disables
// publishing.
type EventProducer interface {
	ProduceMessage(topic string, key []byte, value []byte) error
}

// Outcome classifies a handled callback for logging and metrics. It is never
// exposed to the remote caller; the HTTP response is the same generic 200
// acknowledgment in every case.
type Outcome int

const (
	OutcomeConfirmed Outcome = iota
	OutcomeNotSuccessful
	OutcomeUntrusted
	OutcomeUnknownOrder
	OutcomeStoreError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeNotSuccessful:
		return "not_successful"
	case OutcomeUntrusted:
		return "untrusted"
	case OutcomeUnknownOrder:
		return "unknown_order"
	case OutcomeStoreError:
		return "store_error"
	}
	return "unknown"
}

// Reconciler drives an order from AwaitingCallback to Confirmed. The
// Abandoned side of the state machine lives in the Sweeper; the two meet
// only through the store's conditional delete.
type Reconciler struct {
	cfg      gateway.Config
	store    OrderStore
	status   StatusChecker
	producer EventProducer
}

func NewReconciler(cfg gateway.Config, store OrderStore, status StatusChecker, producer EventProducer) *Reconciler {
	return &Reconciler{cfg: cfg, store: store, status: status, producer: producer}
}

// HandleCallback processes the gateway's asynchronous POST. Whatever it
// returns, the handler answers 200: the gateway is the caller here and just
// needs the retries to stop.
func (r *Reconciler) HandleCallback(ctx context.Context, form url.Values) Outcome {
	params := make(map[string]string, len(form))
	for key := range form {
		params[key] = form.Get(key)
	}
	supplied := params[gateway.ChecksumField]
	delete(params, gateway.ChecksumField)

	orderID := params["ORDERID"]

	if supplied == "" || !gateway.Verify(params, r.cfg.MerchantKey, supplied) {
		slog.Error("callback checksum verification failed, ignoring",
			slog.String(logkey.OrderID, orderID))
		return OutcomeUntrusted
	}

	order, err := r.store.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			// Possibly already swept; nothing to reconcile and nothing to
			// report back to the gateway.
			slog.Info("callback for unknown order", slog.String(logkey.OrderID, orderID))
			return OutcomeUnknownOrder
		}
		slog.Error("failed to load order for callback",
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		return OutcomeStoreError
	}

	inboundSuccess := params["STATUS"] == gateway.StatusSuccess
	outcome := OutcomeNotSuccessful

	if inboundSuccess {
		if err := r.store.MarkPaymentConfirmed(ctx, orderID); err != nil {
			if errors.Is(err, orders.ErrNotFound) {
				return OutcomeUnknownOrder
			}
			slog.Error("failed to mark payment confirmed",
				slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
			return OutcomeStoreError
		}
		outcome = OutcomeConfirmed
		r.publishPaid(order)
	}

	// Trust but verify: confirm the verdict with the gateway over a separate
	// server-initiated channel. Detached from the request context so the
	// buyer-facing acknowledgment never waits on it.
	go r.verifyWithGateway(context.WithoutCancel(ctx), orderID, inboundSuccess)

	return outcome
}

// verifyWithGateway runs the outbound status query and logs any disagreement
// with the inbound callback. Its result is informational: it never flips
// paymentConfirmed to true on its own.
func (r *Reconciler) verifyWithGateway(ctx context.Context, orderID string, inboundSuccess bool) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := r.status.Check(ctx, orderID)
	if err != nil {
		slog.Error("outbound status query failed",
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		return
	}

	if result.Success() != inboundSuccess {
		slog.Warn("gateway status disagrees with inbound callback",
			slog.String(logkey.OrderID, orderID),
			slog.Bool("InboundSuccess", inboundSuccess),
			slog.String("GatewayStatus", result.Status))
	}
}

func (r *Reconciler) publishPaid(order orders.Order) {
	if r.producer == nil {
		return
	}
	payload, err := json.Marshal(kafka.OrderPaidEvent{
		OrderId:   order.ID,
		UserId:    order.Buyer.UserID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("failed to marshal order paid event", slog.String(logkey.ERROR, err.Error()))
		return
	}
	if err := r.producer.ProduceMessage(kafka.TopicOrderPaid, []byte(order.ID), payload); err != nil {
		slog.Error("failed to produce order paid event",
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
	}
}
