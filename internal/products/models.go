package products

import "time"

// Product is the canonical catalog record. Price is kept in the smallest
// currency unit (paise).
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       int64     `json:"price"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewProduct struct {
	Title       string `json:"title" validate:"required,min=1"`
	Price       int64  `json:"price" validate:"required,min=1"`
	Description string `json:"description" validate:"max=400"`
	ImageURL    string `json:"image_url"`
	Stock       int    `json:"stock" validate:"min=0"`
}
