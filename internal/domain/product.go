package domain

import "time"

type Product struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
	Stock     StockShape `json:"stock"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ProductSummary is the list view of a product.
type ProductSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
	}
}

// ProductInput is the full replacement body for a product.
type ProductInput struct {
	Name  string
	Price float64
	Stock StockShape
}

type ProductFilter struct {
	Name string
	Size string
}
