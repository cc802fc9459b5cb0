package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ritikgupta28/chocodivine/internal/orders"
	"github.com/ritikgupta28/chocodivine/internal/products"
	"github.com/ritikgupta28/chocodivine/internal/stores/kafka"
	"github.com/ritikgupta28/chocodivine/internal/users"
	"github.com/ritikgupta28/chocodivine/pkg/logkey"
)

var (
	ErrEmptyCart   = errors.New("checkout: cart is empty")
	ErrProductGone = errors.New("checkout: cart references a product that no longer exists")
)

// ValidationError reports the first bad address field. It carries the
// recomputed cart total so the checkout view can be re-rendered without a
// second round trip, and without the cart going anywhere.
type ValidationError struct {
	Field     string
	Message   string
	CartTotal int64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout validation failed: %s %s", e.Field, e.Message)
}

type CartStore interface {
	GetCartItems(ctx context.Context, userID string) ([]users.CartItem, error)
	ClearCart(ctx context.Context, userID string) error
}

type Catalog interface {
	GetProductsByIDs(ctx context.Context, productIDs []string) (map[string]products.Product, error)
}

type OrderCreator interface {
	Create(ctx context.Context, no orders.NewOrder) (orders.Order, error)
}

type RedirectBuilder interface {
	BuildRedirect(order orders.Order) (string, error)
}

type EventProducer interface {
	ProduceMessage(topic string, key []byte, value []byte) error
}

// Orchestrator turns a cart into a pending order: snapshot, validate,
// persist, clear the cart, then either finish (cash on delivery) or hand the
// buyer to the gateway.
type Orchestrator struct {
	cart     CartStore
	catalog  Catalog
	orders   OrderCreator
	builder  RedirectBuilder
	producer EventProducer
	validate *validator.Validate
}

func NewOrchestrator(cart CartStore, catalog Catalog, oc OrderCreator, builder RedirectBuilder, producer EventProducer) *Orchestrator {
	return &Orchestrator{
		cart:     cart,
		catalog:  catalog,
		orders:   oc,
		builder:  builder,
		producer: producer,
		validate: validator.New(),
	}
}

type Buyer struct {
	UserID string
	Email  string
}

type Input struct {
	PaymentType orders.PaymentType
	Address     orders.Address
}

// Placed is the result of a successful checkout. RedirectHTML is empty for
// cash on delivery and carries the signed auto-submit page for the gateway
// path.
type Placed struct {
	Order        orders.Order
	RedirectHTML string
}

type addressForm struct {
	Name        string `validate:"required,min=1"`
	Location    string `validate:"required,min=1"`
	PhoneNumber string `validate:"required,len=10,numeric"`
	City        string `validate:"required,min=1"`
	PostalCode  string `validate:"required,len=6,numeric"`
}

// PlaceOrder runs the checkout. Validation failure and order creation are
// mutually exclusive: a rejected address leaves the cart and the store
// untouched.
func (o *Orchestrator) PlaceOrder(ctx context.Context, buyer Buyer, input Input) (Placed, error) {
	items, err := o.cart.GetCartItems(ctx, buyer.UserID)
	if err != nil {
		return Placed{}, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return Placed{}, ErrEmptyCart
	}

	lines, err := o.snapshot(ctx, items)
	if err != nil {
		return Placed{}, err
	}
	total := orders.TotalOf(lines)

	if vErr := o.validateAddress(input.Address, total); vErr != nil {
		return Placed{}, vErr
	}

	order, err := o.orders.Create(ctx, orders.NewOrder{
		Buyer:       orders.Buyer{Email: buyer.Email, UserID: buyer.UserID},
		Products:    lines,
		PaymentType: input.PaymentType,
		Address:     input.Address,
	})
	if err != nil {
		return Placed{}, fmt.Errorf("failed to create order: %w", err)
	}

	// The order is durable now; the cart is cleared exactly once, before any
	// redirect leaves this process, so a refreshed checkout page cannot
	// submit the same cart twice.
	if err := o.cart.ClearCart(ctx, buyer.UserID); err != nil {
		return Placed{}, fmt.Errorf("order %s created but cart not cleared: %w", order.ID, err)
	}

	o.publishPlaced(order)

	placed := Placed{Order: order}
	if input.PaymentType == orders.PaymentGateway {
		html, err := o.builder.BuildRedirect(order)
		if err != nil {
			return Placed{}, fmt.Errorf("failed to build gateway redirect for order %s: %w", order.ID, err)
		}
		placed.RedirectHTML = html
	}
	return placed, nil
}

// snapshot copies the live catalog rows into immutable order lines. Later
// price changes never reach an existing order.
func (o *Orchestrator) snapshot(ctx context.Context, items []users.CartItem) ([]orders.Line, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	catalog, err := o.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	lines := make([]orders.Line, 0, len(items))
	for _, item := range items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductGone, item.ProductID)
		}
		lines = append(lines, orders.Line{
			Quantity: item.Quantity,
			Product: orders.Snapshot{
				ProductID:   product.ID,
				Title:       product.Title,
				Price:       product.Price,
				Description: product.Description,
				ImageURL:    product.ImageURL,
			},
		})
	}
	return lines, nil
}

func (o *Orchestrator) validateAddress(addr orders.Address, cartTotal int64) error {
	form := addressForm{
		Name:        addr.Name,
		Location:    addr.Location,
		PhoneNumber: addr.PhoneNumber,
		City:        addr.City,
		PostalCode:  addr.PostalCode,
	}

	err := o.validate.Struct(form)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		first := vErrs[0]
		var msg string
		switch first.Tag() {
		case "required", "min":
			msg = "value missing"
		case "len":
			msg = "must be exactly " + first.Param() + " characters"
		case "numeric":
			msg = "must contain digits only"
		default:
			msg = "is invalid"
		}
		return &ValidationError{Field: first.Field(), Message: msg, CartTotal: cartTotal}
	}
	return fmt.Errorf("address validation failed: %w", err)
}

func (o *Orchestrator) publishPlaced(order orders.Order) {
	if o.producer == nil {
		return
	}
	payload, err := json.Marshal(kafka.OrderPlacedEvent{
		OrderId:     order.ID,
		UserId:      order.Buyer.UserID,
		PaymentType: string(order.PaymentType),
		TotalAmount: order.Total(),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		slog.Error("failed to marshal order placed event", slog.String(logkey.ERROR, err.Error()))
		return
	}
	if err := o.producer.ProduceMessage(kafka.TopicOrderPlaced, []byte(order.ID), payload); err != nil {
		slog.Error("failed to produce order placed event",
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
	}
}
