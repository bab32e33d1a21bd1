package domain

import "time"

const (
	EventOrderPlaced     = "OrderPlaced"
	EventOrderUpdated    = "OrderUpdated"
	EventOrderDeleted    = "OrderDeleted"
	EventProductUpserted = "ProductUpserted"
	EventProductDeleted  = "ProductDeleted"
)

type OrderLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// StockReservation records how much was taken from one bucket of a product.
// Size is empty for products that keep a single flat quantity.
type StockReservation struct {
	ProductID string `json:"product_id"`
	Position  int    `json:"position"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
}

type OrderPlacedEvent struct {
	OrderID      string             `json:"order_id"`
	UserID       string             `json:"user_id"`
	Items        []OrderLine        `json:"items"`
	Reservations []StockReservation `json:"reservations"`
	PlacedAt     time.Time          `json:"placed_at"`
}

type OrderUpdatedEvent struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	Items     []OrderLine `json:"items"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type OrderDeletedEvent struct {
	OrderID   string    `json:"order_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

type ProductUpsertedEvent struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProductDeletedEvent struct {
	ProductID string    `json:"product_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
