package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("order not found")
	ErrValidation = errors.New("order validation failed")
)

// Conf owns the orders table. Every mutation is a single conditional
// statement so row-level atomicity is the only concurrency control needed.
type Conf struct {
	db          *pgxpool.Pool
	gracePeriod time.Duration
}

// NewConf wires the store. gracePeriod is how long a gateway order may wait
// for a payment confirmation before the sweeper may delete it.
func NewConf(db *pgxpool.Pool, gracePeriod time.Duration) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if gracePeriod <= 0 {
		return nil, fmt.Errorf("grace period must be positive, got %s", gracePeriod)
	}
	return &Conf{db: db, gracePeriod: gracePeriod}, nil
}

func validateNewOrder(no NewOrder) error {
	switch {
	case len(no.Products) == 0:
		return fmt.Errorf("%w: no products", ErrValidation)
	case no.Buyer.Email == "" || no.Buyer.UserID == "":
		return fmt.Errorf("%w: buyer email and user id are required", ErrValidation)
	case no.PaymentType != PaymentDelivery && no.PaymentType != PaymentGateway:
		return fmt.Errorf("%w: unknown payment type %q", ErrValidation, no.PaymentType)
	case no.Address.Name == "" || no.Address.Location == "" || no.Address.PhoneNumber == "" ||
		no.Address.City == "" || no.Address.PostalCode == "":
		return fmt.Errorf("%w: all address fields are required", ErrValidation)
	}
	for _, line := range no.Products {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
	}
	return nil
}

// Create persists a new pending order. Gateway orders get a cleanup
// eligibility stamp so a sweep can find them if no confirmation ever lands.
func (c *Conf) Create(ctx context.Context, no NewOrder) (Order, error) {
	if err := validateNewOrder(no); err != nil {
		return Order{}, err
	}

	productsJSON, err := json.Marshal(no.Products)
	if err != nil {
		return Order{}, fmt.Errorf("failed to marshal product snapshot: %w", err)
	}

	order := Order{
		ID:               uuid.NewString(),
		Buyer:            no.Buyer,
		Products:         no.Products,
		PaymentType:      no.PaymentType,
		FulfillmentState: FulfillmentPending,
		Address:          no.Address,
	}
	if no.PaymentType == PaymentGateway {
		eligible := time.Now().UTC().Add(c.gracePeriod)
		order.CleanupEligibleAt = &eligible
	}

	query := `
		INSERT INTO orders (id, user_id, user_email, products, payment_type,
			payment_confirmed, fulfillment_state,
			address_name, address_location, address_phone, address_city, address_postal_code,
			cleanup_eligible_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = c.db.QueryRow(ctx, query,
		order.ID, order.Buyer.UserID, order.Buyer.Email, productsJSON, order.PaymentType,
		order.FulfillmentState,
		order.Address.Name, order.Address.Location, order.Address.PhoneNumber,
		order.Address.City, order.Address.PostalCode,
		order.CleanupEligibleAt,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return order, nil
}

const orderColumns = `
	id, user_id, user_email, products, payment_type, payment_confirmed,
	fulfillment_state, address_name, address_location, address_phone,
	address_city, address_postal_code, cleanup_eligible_at, created_at, updated_at
`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var productsJSON []byte
	err := row.Scan(
		&o.ID, &o.Buyer.UserID, &o.Buyer.Email, &productsJSON, &o.PaymentType, &o.PaymentConfirmed,
		&o.FulfillmentState, &o.Address.Name, &o.Address.Location, &o.Address.PhoneNumber,
		&o.Address.City, &o.Address.PostalCode, &o.CleanupEligibleAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(productsJSON, &o.Products); err != nil {
		return Order{}, fmt.Errorf("failed to unmarshal product snapshot: %w", err)
	}
	return o, nil
}

func (c *Conf) GetByID(ctx context.Context, orderID string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(c.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to query order: %w", err)
	}
	return order, nil
}

// UpdateFulfillment advances the fulfillment state. The WHERE clause encodes
// the legal predecessor, so illegal and repeated transitions touch zero rows
// and are reported as success.
func (c *Conf) UpdateFulfillment(ctx context.Context, orderID string, target FulfillmentState) error {
	if target != FulfillmentProcessing && target != FulfillmentDelivered {
		return nil
	}

	query := `
		UPDATE orders
		SET fulfillment_state = $2, updated_at = NOW()
		WHERE id = $1 AND fulfillment_state = $3
	`
	var predecessor FulfillmentState
	switch target {
	case FulfillmentProcessing:
		predecessor = FulfillmentPending
	case FulfillmentDelivered:
		predecessor = FulfillmentProcessing
	}

	tag, err := c.db.Exec(ctx, query, orderID, target, predecessor)
	if err != nil {
		return fmt.Errorf("failed to update fulfillment state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the order is gone or the transition was out of order. Only
		// the former is worth reporting.
		if _, err := c.GetByID(ctx, orderID); err != nil {
			return err
		}
	}
	return nil
}

// MarkPaymentConfirmed flips the confirmation flag. Repeated calls are
// harmless.
func (c *Conf) MarkPaymentConfirmed(ctx context.Context, orderID string) error {
	query := `
		UPDATE orders
		SET payment_confirmed = TRUE, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := c.db.Exec(ctx, query, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark payment confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIfUnconfirmed removes a gateway order that never saw a confirmed
// payment. The predicate keeps it mutually exclusive with a concurrent
// MarkPaymentConfirmed: a confirmed order touches zero rows here.
func (c *Conf) DeleteIfUnconfirmed(ctx context.Context, orderID string) (bool, error) {
	query := `
		DELETE FROM orders
		WHERE id = $1 AND payment_type = $2 AND payment_confirmed = FALSE
	`
	tag, err := c.db.Exec(ctx, query, orderID, PaymentGateway)
	if err != nil {
		return false, fmt.Errorf("failed to delete unconfirmed order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAbandoned is the sweep form of DeleteIfUnconfirmed: it removes every
// gateway order whose grace period elapsed without a confirmation and
// returns what was deleted so events can be emitted.
func (c *Conf) DeleteAbandoned(ctx context.Context, now time.Time) ([]Order, error) {
	query := `
		DELETE FROM orders
		WHERE payment_type = $1
		  AND payment_confirmed = FALSE
		  AND cleanup_eligible_at IS NOT NULL
		  AND cleanup_eligible_at <= $2
		RETURNING ` + orderColumns

	rows, err := c.db.Query(ctx, query, PaymentGateway, now)
	if err != nil {
		return nil, fmt.Errorf("failed to delete abandoned orders: %w", err)
	}
	defer rows.Close()

	var deleted []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deleted order: %w", err)
		}
		deleted = append(deleted, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deleted orders: %w", err)
	}
	return deleted, nil
}

// ListForUser returns a buyer's orders, undone first (the admin listing sort
// carried over from the storefront views).
func (c *Conf) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1
		ORDER BY fulfillment_state ASC, created_at DESC`
	return c.list(ctx, query, userID)
}

func (c *Conf) ListAll(ctx context.Context) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		ORDER BY fulfillment_state ASC, created_at DESC`
	return c.list(ctx, query)
}

func (c *Conf) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := c.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return out, nil
}
