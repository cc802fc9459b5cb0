package kafka

import "time"

const (
	TopicOrderPlaced    = `order-service.order-placed`
	TopicOrderPaid      = `order-service.order-paid`
	TopicOrderAbandoned = `order-service.order-abandoned`
)

// Events produced around the order lifecycle. Keys are the order id so a
// single order's events land in one partition, in order.

type OrderPlacedEvent struct {
	OrderId     string    `json:"order_id"`
	UserId      string    `json:"user_id"`
	PaymentType string    `json:"payment_type"`
	TotalAmount int64     `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type OrderPaidEvent struct {
	OrderId   string    `json:"order_id"`
	UserId    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderAbandonedEvent struct {
	OrderId   string    `json:"order_id"`
	UserId    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
