package payment

import (
	"context"
	"sync"
	"time"

	"github.com/ritikgupta28/chocodivine/internal/gateway"
	"github.com/ritikgupta28/chocodivine/internal/orders"
)

// mockStore mimics the store's conditional semantics in memory: confirmation
// and abandoned-deletion are mutually exclusive per order id.
type mockStore struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
}

func newMockStore() *mockStore {
	return &mockStore{orders: make(map[string]*orders.Order)}
}

func (m *mockStore) put(o orders.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := o
	m.orders[o.ID] = &cp
}

func (m *mockStore) get(id string) (orders.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return orders.Order{}, false
	}
	return *o, true
}

func (m *mockStore) GetByID(_ context.Context, orderID string) (orders.Order, error) {
	o, ok := m.get(orderID)
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (m *mockStore) MarkPaymentConfirmed(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.PaymentConfirmed = true
	return nil
}

func (m *mockStore) DeleteAbandoned(_ context.Context, now time.Time) ([]orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted []orders.Order
	for id, o := range m.orders {
		if o.PaymentType == orders.PaymentGateway && !o.PaymentConfirmed &&
			o.CleanupEligibleAt != nil && !o.CleanupEligibleAt.After(now) {
			deleted = append(deleted, *o)
			delete(m.orders, id)
		}
	}
	return deleted, nil
}

type mockStatus struct {
	result gateway.StatusResult
	err    error
	calls  chan string
}

func newMockStatus(result gateway.StatusResult, err error) *mockStatus {
	return &mockStatus{result: result, err: err, calls: make(chan string, 8)}
}

func (m *mockStatus) Check(_ context.Context, orderID string) (gateway.StatusResult, error) {
	m.calls <- orderID
	return m.result, m.err
}

type producedMessage struct {
	topic string
	key   string
	value []byte
}

type mockProducer struct {
	mu       sync.Mutex
	messages []producedMessage
}

func (m *mockProducer) ProduceMessage(topic string, key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, producedMessage{topic: topic, key: string(key), value: value})
	return nil
}

func (m *mockProducer) byTopic(topic string) []producedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []producedMessage
	for _, msg := range m.messages {
		if msg.topic == topic {
			out = append(out, msg)
		}
	}
	return out
}
