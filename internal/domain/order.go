package domain

import "time"

type OrderItem struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ProductIDs returns the distinct product ids of the order in first-seen order.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))

	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	return ids
}

type ProductDetails struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type OrderLineSummary struct {
	ProductDetails ProductDetails `json:"productDetails"`
	Qty            int            `json:"qty"`
}

type OrderSummary struct {
	ID    string             `json:"id"`
	Items []OrderLineSummary `json:"items"`
	Total float64            `json:"total"`
}

// Summarize joins the order's lines with products. Lines whose product is
// missing from products are dropped and do not count toward the total.
func (o *Order) Summarize(products map[string]ProductSummary) OrderSummary {
	summary := OrderSummary{
		ID:    o.ID,
		Items: make([]OrderLineSummary, 0, len(o.Items)),
	}

	for _, item := range o.Items {
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}

		summary.Items = append(summary.Items, OrderLineSummary{
			ProductDetails: ProductDetails{ID: product.ID, Name: product.Name},
			Qty:            item.Qty,
		})
		summary.Total += product.Price * float64(item.Qty)
	}

	return summary
}
