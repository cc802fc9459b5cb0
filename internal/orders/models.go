package orders

import "time"

type PaymentType string

const (
	PaymentDelivery PaymentType = "delivery" // cash on delivery, never swept
	PaymentGateway  PaymentType = "gateway"
)

// FulfillmentState moves forward only: pending -> processing -> delivered.
type FulfillmentState int

const (
	FulfillmentPending    FulfillmentState = -1
	FulfillmentProcessing FulfillmentState = 0
	FulfillmentDelivered  FulfillmentState = 1
)

func (s FulfillmentState) String() string {
	switch s {
	case FulfillmentPending:
		return "pending"
	case FulfillmentProcessing:
		return "processing"
	case FulfillmentDelivered:
		return "delivered"
	}
	return "unknown"
}

// CanTransition reports whether target is the single legal next step from
// current. Anything else, including repeats and backward moves, is rejected
// so admin retries stay harmless no-ops.
func CanTransition(current, target FulfillmentState) bool {
	switch current {
	case FulfillmentPending:
		return target == FulfillmentProcessing
	case FulfillmentProcessing:
		return target == FulfillmentDelivered
	}
	return false
}

// Snapshot is the product as it looked when the order was placed. Later
// catalog edits never reach it.
type Snapshot struct {
	ProductID   string `json:"product_id"`
	Title       string `json:"title"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type Line struct {
	Quantity int      `json:"quantity"`
	Product  Snapshot `json:"product"`
}

type Buyer struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
}

type Address struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	PhoneNumber string `json:"phone_number"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
}

type Order struct {
	ID                string           `json:"id"`
	Buyer             Buyer            `json:"buyer"`
	Products          []Line           `json:"products"`
	PaymentType       PaymentType      `json:"payment_type"`
	PaymentConfirmed  bool             `json:"payment_confirmed"`
	FulfillmentState  FulfillmentState `json:"fulfillment_state"`
	Address           Address          `json:"address"`
	CleanupEligibleAt *time.Time       `json:"cleanup_eligible_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Total is the order amount in paise, computed from the snapshot only.
func (o Order) Total() int64 {
	return TotalOf(o.Products)
}

func TotalOf(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += int64(l.Quantity) * l.Product.Price
	}
	return total
}

type NewOrder struct {
	Buyer       Buyer
	Products    []Line
	PaymentType PaymentType
	Address     Address
}
