package orders

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		current FulfillmentState
		target  FulfillmentState
		want    bool
	}{
		{"pending to processing", FulfillmentPending, FulfillmentProcessing, true},
		{"processing to delivered", FulfillmentProcessing, FulfillmentDelivered, true},
		{"pending straight to delivered", FulfillmentPending, FulfillmentDelivered, false},
		{"delivered back to processing", FulfillmentDelivered, FulfillmentProcessing, false},
		{"processing back to pending", FulfillmentProcessing, FulfillmentPending, false},
		{"delivered is terminal", FulfillmentDelivered, FulfillmentDelivered, false},
		{"repeat processing", FulfillmentProcessing, FulfillmentProcessing, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.current, tc.target))
		})
	}
}

func TestTotalOf(t *testing.T) {
	lines := []Line{
		{Quantity: 2, Product: Snapshot{ProductID: "p1", Title: "Dark Truffle", Price: 10}},
		{Quantity: 1, Product: Snapshot{ProductID: "p2", Title: "Milk Bar", Price: 5}},
	}
	assert.Equal(t, int64(25), TotalOf(lines))

	// The snapshot is what it is; a later catalog price change cannot reach it.
	lines[0].Product.Price = 20
	assert.Equal(t, int64(45), TotalOf(lines), "total follows the snapshot, nothing else")
}

func validOrder() NewOrder {
	return NewOrder{
		Buyer: Buyer{Email: "buyer@example.com", UserID: "u1"},
		Products: []Line{
			{Quantity: 1, Product: Snapshot{ProductID: "p1", Title: "Hazelnut Box", Price: 450}},
		},
		PaymentType: PaymentDelivery,
		Address: Address{
			Name:        "Ritik",
			Location:    "12 MG Road",
			PhoneNumber: "9876543210",
			City:        "Delhi",
			PostalCode:  "110001",
		},
	}
}

func TestValidateNewOrder(t *testing.T) {
	require.NoError(t, validateNewOrder(validOrder()))

	t.Run("empty products", func(t *testing.T) {
		no := validOrder()
		no.Products = nil
		assert.True(t, errors.Is(validateNewOrder(no), ErrValidation))
	})

	t.Run("missing buyer", func(t *testing.T) {
		no := validOrder()
		no.Buyer.Email = ""
		assert.True(t, errors.Is(validateNewOrder(no), ErrValidation))
	})

	t.Run("unknown payment type", func(t *testing.T) {
		no := validOrder()
		no.PaymentType = "bitcoin"
		assert.True(t, errors.Is(validateNewOrder(no), ErrValidation))
	})

	t.Run("missing address field", func(t *testing.T) {
		no := validOrder()
		no.Address.City = ""
		assert.True(t, errors.Is(validateNewOrder(no), ErrValidation))
	})

	t.Run("non positive quantity", func(t *testing.T) {
		no := validOrder()
		no.Products[0].Quantity = 0
		assert.True(t, errors.Is(validateNewOrder(no), ErrValidation))
	})
}

func TestFulfillmentStateString(t *testing.T) {
	assert.Equal(t, "pending", FulfillmentPending.String())
	assert.Equal(t, "processing", FulfillmentProcessing.String())
	assert.Equal(t, "delivered", FulfillmentDelivered.String())
	assert.Equal(t, "unknown", FulfillmentState(7).String())
}
