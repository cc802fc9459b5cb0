package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritikgupta28/chocodivine/internal/gateway"
	"github.com/ritikgupta28/chocodivine/internal/orders"
	"github.com/ritikgupta28/chocodivine/internal/stores/kafka"
)

func eligibleAt(o orders.Order, at time.Time) orders.Order {
	o.CleanupEligibleAt = &at
	return o
}

func TestSweepDeletesOnlyExpiredUnconfirmedGatewayOrders(t *testing.T) {
	now := time.Now().UTC()
	store := newMockStore()
	producer := &mockProducer{}

	// Grace period elapsed, never confirmed: must go.
	store.put(eligibleAt(awaitingOrder("ord-expired"), now.Add(-time.Minute)))

	// Grace period elapsed but payment confirmed: must stay.
	confirmed := eligibleAt(awaitingOrder("ord-paid"), now.Add(-time.Minute))
	confirmed.PaymentConfirmed = true
	store.put(confirmed)

	// Still inside the grace period: must stay.
	store.put(eligibleAt(awaitingOrder("ord-fresh"), now.Add(time.Hour)))

	// Cash on delivery is never subject to cleanup.
	cod := awaitingOrder("ord-cod")
	cod.PaymentType = orders.PaymentDelivery
	cod.CleanupEligibleAt = nil
	store.put(cod)

	sweeper := NewSweeper(store, producer, time.Minute)
	deleted, err := sweeper.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, gone := store.get("ord-expired")
	assert.False(t, gone)
	for _, id := range []string{"ord-paid", "ord-fresh", "ord-cod"} {
		_, ok := store.get(id)
		assert.True(t, ok, "%s must survive the sweep", id)
	}

	events := producer.byTopic(kafka.TopicOrderAbandoned)
	require.Len(t, events, 1)
	assert.Equal(t, "ord-expired", events[0].key)
}

// A success callback and the grace period expiry landing on the same tick
// must resolve to confirmed-and-retained, whichever runs first wins nothing:
// the conditional delete simply cannot match a confirmed row.
func TestSameTickConfirmationAndSweep(t *testing.T) {
	now := time.Now().UTC()

	t.Run("callback first", func(t *testing.T) {
		store := newMockStore()
		store.put(eligibleAt(awaitingOrder("ord-race"), now))
		status := newMockStatus(gateway.StatusResult{Status: gateway.StatusSuccess}, nil)
		r := NewReconciler(testGatewayConfig(), store, status, nil)
		sweeper := NewSweeper(store, nil, time.Minute)

		outcome := r.HandleCallback(context.Background(), signedCallback(t, "ord-race", gateway.StatusSuccess))
		require.Equal(t, OutcomeConfirmed, outcome)

		deleted, err := sweeper.SweepOnce(context.Background(), now)
		require.NoError(t, err)
		assert.Zero(t, deleted)

		order, ok := store.get("ord-race")
		require.True(t, ok, "confirmed order must never be deleted")
		assert.True(t, order.PaymentConfirmed)
	})

	t.Run("sweep first", func(t *testing.T) {
		store := newMockStore()
		store.put(eligibleAt(awaitingOrder("ord-race"), now))
		status := newMockStatus(gateway.StatusResult{Status: gateway.StatusSuccess}, nil)
		r := NewReconciler(testGatewayConfig(), store, status, nil)
		sweeper := NewSweeper(store, nil, time.Minute)

		deleted, err := sweeper.SweepOnce(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)

		// The late callback finds nothing; the response to the gateway is
		// still a calm acknowledgment.
		outcome := r.HandleCallback(context.Background(), signedCallback(t, "ord-race", gateway.StatusSuccess))
		assert.Equal(t, OutcomeUnknownOrder, outcome)
	})
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := newMockStore()
	sweeper := NewSweeper(store, nil, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestOutcomeStringCovers(t *testing.T) {
	assert.Equal(t, "confirmed", OutcomeConfirmed.String())
	assert.Equal(t, "untrusted", OutcomeUntrusted.String())
	assert.Equal(t, "unknown_order", OutcomeUnknownOrder.String())
	assert.Equal(t, "not_successful", OutcomeNotSuccessful.String())
	assert.Equal(t, "store_error", OutcomeStoreError.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestCallbackFormParsing(t *testing.T) {
	// Duplicate fields in the urlencoded body must not smuggle a second
	// value past verification; only the first value is considered.
	store := newMockStore()
	store.put(awaitingOrder("ord-1"))
	status := newMockStatus(gateway.StatusResult{Status: gateway.StatusFailure}, nil)
	r := NewReconciler(testGatewayConfig(), store, status, nil)

	form := signedCallback(t, "ord-1", gateway.StatusFailure)
	form.Add("STATUS", gateway.StatusSuccess) // second value, ignored

	outcome := r.HandleCallback(context.Background(), form)
	assert.Equal(t, OutcomeNotSuccessful, outcome)

	order, _ := store.get("ord-1")
	assert.False(t, order.PaymentConfirmed)
}
