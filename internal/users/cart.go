package users

import (
	"context"
	"fmt"
)

// AddToCart sets the quantity for a product line, inserting the line if the
// product is not in the cart yet. Setting rather than adding keeps repeated
// form submissions from silently inflating quantities.
func (c *Conf) AddToCart(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
	`
	if _, err := c.db.Exec(ctx, query, userID, productID, quantity); err != nil {
		return fmt.Errorf("failed to add product to cart: %w", err)
	}
	return nil
}

func (c *Conf) RemoveFromCart(ctx context.Context, userID, productID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`
	if _, err := c.db.Exec(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("failed to remove product from cart: %w", err)
	}
	return nil
}

func (c *Conf) GetCartItems(ctx context.Context, userID string) ([]CartItem, error) {
	query := `
		SELECT product_id, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := c.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []CartItem
	for rows.Next() {
		var item CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

func (c *Conf) ClearCart(ctx context.Context, userID string) error {
	if _, err := c.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
