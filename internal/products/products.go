package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

type Conf struct {
	db *pgxpool.Pool
}

func NewConf(db *pgxpool.Pool) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

func (c *Conf) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	product := Product{
		ID:          uuid.NewString(),
		Title:       np.Title,
		Price:       np.Price,
		Description: np.Description,
		ImageURL:    np.ImageURL,
		Stock:       np.Stock,
	}

	query := `
		INSERT INTO products (id, title, price, description, image_url, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRow(ctx, query,
		product.ID, product.Title, product.Price, product.Description, product.ImageURL, product.Stock,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}

	return product, nil
}

func (c *Conf) GetProductByID(ctx context.Context, productID string) (Product, error) {
	query := `
		SELECT id, title, price, description, image_url, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	var p Product
	err := c.db.QueryRow(ctx, query, productID).Scan(
		&p.ID, &p.Title, &p.Price, &p.Description, &p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// GetProductsByIDs fetches the live catalog rows for a set of ids, keyed by
// id. Missing ids are simply absent from the map.
func (c *Conf) GetProductsByIDs(ctx context.Context, productIDs []string) (map[string]Product, error) {
	if len(productIDs) == 0 {
		return map[string]Product{}, nil
	}

	query := `
		SELECT id, title, price, description, image_url, stock, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`
	rows, err := c.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	found := make(map[string]Product, len(productIDs))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Description, &p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		found[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return found, nil
}

func (c *Conf) UpdateProductInDB(ctx context.Context, productID string, p Product) (Product, error) {
	query := `
		UPDATE products
		SET title = $2, price = $3, description = $4, image_url = $5, stock = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	p.ID = productID
	err := c.db.QueryRow(ctx, query,
		productID, p.Title, p.Price, p.Description, p.ImageURL, p.Stock,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

func (c *Conf) DeleteProductFromDB(ctx context.Context, productID string) error {
	tag, err := c.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Conf) ListProductsFromDB(ctx context.Context, nameFilter string, limit, offset int) ([]Product, error) {
	query := `
		SELECT id, title, price, description, image_url, stock, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%')
		ORDER BY title
		LIMIT $2 OFFSET $3
	`
	rows, err := c.db.Query(ctx, query, nameFilter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Description, &p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return out, nil
}
