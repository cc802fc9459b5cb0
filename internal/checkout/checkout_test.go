package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritikgupta28/chocodivine/internal/orders"
	"github.com/ritikgupta28/chocodivine/internal/products"
	"github.com/ritikgupta28/chocodivine/internal/stores/kafka"
	"github.com/ritikgupta28/chocodivine/internal/users"
)

type mockCart struct {
	items      []users.CartItem
	clearCalls int
	clearErr   error
}

func (m *mockCart) GetCartItems(_ context.Context, _ string) ([]users.CartItem, error) {
	return m.items, nil
}

func (m *mockCart) ClearCart(_ context.Context, _ string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.clearCalls++
	m.items = nil
	return nil
}

type mockCatalog struct {
	products map[string]products.Product
}

func (m *mockCatalog) GetProductsByIDs(_ context.Context, ids []string) (map[string]products.Product, error) {
	out := map[string]products.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type mockOrderCreator struct {
	created []orders.NewOrder
	err     error
}

func (m *mockOrderCreator) Create(_ context.Context, no orders.NewOrder) (orders.Order, error) {
	if m.err != nil {
		return orders.Order{}, m.err
	}
	m.created = append(m.created, no)
	return orders.Order{
		ID:          "ord-1",
		Buyer:       no.Buyer,
		Products:    no.Products,
		PaymentType: no.PaymentType,
		Address:     no.Address,
	}, nil
}

type mockBuilder struct {
	html string
	err  error
}

func (m *mockBuilder) BuildRedirect(_ orders.Order) (string, error) {
	return m.html, m.err
}

type mockProducer struct {
	topics []string
}

func (m *mockProducer) ProduceMessage(topic string, _ []byte, _ []byte) error {
	m.topics = append(m.topics, topic)
	return nil
}

func validInput(pt orders.PaymentType) Input {
	return Input{
		PaymentType: pt,
		Address: orders.Address{
			Name:        "Ritik",
			Location:    "12 MG Road",
			PhoneNumber: "9876543210",
			City:        "Delhi",
			PostalCode:  "110001",
		},
	}
}

func fixture() (*Orchestrator, *mockCart, *mockOrderCreator, *mockProducer) {
	cart := &mockCart{items: []users.CartItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}}
	catalog := &mockCatalog{products: map[string]products.Product{
		"p1": {ID: "p1", Title: "Dark Truffle", Price: 10},
		"p2": {ID: "p2", Title: "Milk Bar", Price: 5},
	}}
	creator := &mockOrderCreator{}
	producer := &mockProducer{}
	o := NewOrchestrator(cart, catalog, creator, &mockBuilder{html: "<html>redirect</html>"}, producer)
	return o, cart, creator, producer
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	o, cart, creator, _ := fixture()
	cart.items = nil

	_, err := o.PlaceOrder(context.Background(), Buyer{UserID: "u1", Email: "b@example.com"}, validInput(orders.PaymentDelivery))
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, creator.created)
}

func TestPlaceOrderSnapshotsPrices(t *testing.T) {
	o, _, creator, _ := fixture()

	placed, err := o.PlaceOrder(context.Background(), Buyer{UserID: "u1", Email: "b@example.com"}, validInput(orders.PaymentDelivery))
	require.NoError(t, err)

	// [{price:10,qty:2},{price:5,qty:1}] -> 25
	assert.Equal(t, int64(25), placed.Order.Total())
	require.Len(t, creator.created, 1)
	assert.Equal(t, int64(10), creator.created[0].Products[0].Product.Price)
	assert.Equal(t, "Dark Truffle", creator.created[0].Products[0].Product.Title)
}

func TestPlaceOrderValidationFailureIsExclusive(t *testing.T) {
	o, cart, creator, producer := fixture()

	input := validInput(orders.PaymentDelivery)
	input.Address.PhoneNumber = "123" // wrong length

	_, err := o.PlaceOrder(context.Background(), Buyer{UserID: "u1", Email: "b@example.com"}, input)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "PhoneNumber", vErr.Field)
	assert.Equal(t, int64(25), vErr.CartTotal, "checkout view re-renders with the recomputed total")

	// The success branch must not have run at all.
	assert.Empty(t, creator.created, "no order on validation failure")
	assert.Zero(t, cart.clearCalls, "cart untouched on validation failure")
	assert.Empty(t, producer.topics)
}

func TestPlaceOrderValidationMessages(t *testing.T) {
	o, _, _, _ := fixture()

	cases := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"missing name", func(i *Input) { i.Address.Name = "" }, "Name"},
		{"missing location", func(i *Input) { i.Address.Location = "" }, "Location"},
		{"missing city", func(i *Input) { i.Address.City = "" }, "City"},
		{"short postal code", func(i *Input) { i.Address.PostalCode = "1100" }, "PostalCode"},
		{"alpha phone", func(i *Input) { i.Address.PhoneNumber = "98765abcde" }, "PhoneNumber"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput(orders.PaymentDelivery)
			tc.mutate(&input)
			_, err := o.PlaceOrder(context.Background(), Buyer{UserID: "u1", Email: "b@example.com"}, input)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestPlaceOrderDeliveryClearsCartNoRedirect(t *testing.T) {
	o, cart, _, producer := fixture()

	placed, err := o.PlaceOrder(context.Background(), Buyer{UserID: "u1", Email: "b@example.com"}, validInput(orders.PaymentDelivery))
	require.NoError(t, err)

	assert.Empty(t, placed.RedirectHTML)
	assert.Equal(t, 1, cart.clearCalls)
	assert.Equal(t, []string{kafka.TopicOrderPlaced}, producer.topics)
}

func TestPlaceOrderGatewayClearsCartThenRedirects(t *testing.T) {
	o, cart, _, _ := fixture()

	placed, err := o.PlaceOrder(context.Background(), Buyer{UserID: "u1", Email: "b@example.com"}, validInput(orders.PaymentGateway))
	require.NoError(t, err)

	assert.Equal(t, "<html>redirect</html>", placed.RedirectHTML)
	assert.Equal(t, 1, cart.clearCalls, "cart cleared before the redirect leaves the process")
	assert.Equal(t, orders.PaymentGateway, placed.Order.PaymentType)
}

func TestPlaceOrderMissingProduct(t *testing.T) {
	o, cart, creator, _ := fixture()
	cart.items = append(cart.items, users.CartItem{ProductID: "p-deleted", Quantity: 1})

	_, err := o.PlaceOrder(context.Background(), Buyer{UserID: "u1", Email: "b@example.com"}, validInput(orders.PaymentDelivery))
	assert.ErrorIs(t, err, ErrProductGone)
	assert.Empty(t, creator.created)
}

func TestPlaceOrderClearCartFailureSurfaces(t *testing.T) {
	o, cart, creator, _ := fixture()
	cart.clearErr = errors.New("connection reset")

	_, err := o.PlaceOrder(context.Background(), Buyer{UserID: "u1", Email: "b@example.com"}, validInput(orders.PaymentDelivery))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart not cleared")
	assert.Len(t, creator.created, 1, "order stays durable even when the cart clear fails")
}

func TestPlaceOrderStoreFailure(t *testing.T) {
	o, cart, creator, producer := fixture()
	creator.err = errors.New("insert failed")

	_, err := o.PlaceOrder(context.Background(), Buyer{UserID: "u1", Email: "b@example.com"}, validInput(orders.PaymentGateway))
	require.Error(t, err)
	assert.Zero(t, cart.clearCalls)
	assert.Empty(t, producer.topics)
}
