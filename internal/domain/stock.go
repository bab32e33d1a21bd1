package domain

import (
	"encoding/json"
	"errors"
)

type Bucket struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type StockKind int

const (
	StockBucketed StockKind = iota
	StockFlat
)

// StockShape is a product's sellable stock: either ordered size buckets or a
// single legacy flat quantity. The zero value is an empty bucket list.
type StockShape struct {
	kind    StockKind
	flat    int
	buckets []Bucket
}

func FlatStock(quantity int) StockShape {
	return StockShape{kind: StockFlat, flat: quantity}
}

func BucketedStock(buckets []Bucket) StockShape {
	cp := make([]Bucket, len(buckets))
	copy(cp, buckets)

	return StockShape{kind: StockBucketed, buckets: cp}
}

func (s StockShape) Kind() StockKind {
	return s.kind
}

func (s StockShape) IsFlat() bool {
	return s.kind == StockFlat
}

func (s StockShape) FlatQuantity() int {
	return s.flat
}

// Buckets returns a copy of the size buckets. A flat shape has none.
func (s StockShape) Buckets() []Bucket {
	if s.kind == StockFlat {
		return nil
	}

	cp := make([]Bucket, len(s.buckets))
	copy(cp, s.buckets)

	return cp
}

func (s StockShape) Available() int {
	if s.kind == StockFlat {
		return s.flat
	}

	total := 0
	for _, b := range s.buckets {
		total += b.Quantity
	}

	return total
}

// Deduction takes Quantity units from the bucket at Position. Flat stock is
// one implicit bucket at position 0 with an empty size.
type Deduction struct {
	Position int
	Size     string
	Quantity int
}

// PlanDeduction walks buckets in stored order and takes
// min(bucket, remaining) from each until requested is covered. It returns
// false, and no plan, when the shape cannot cover requested.
func (s StockShape) PlanDeduction(requested int) ([]Deduction, bool) {
	if requested <= 0 {
		return nil, true
	}
	if s.Available() < requested {
		return nil, false
	}

	if s.kind == StockFlat {
		return []Deduction{{Position: 0, Quantity: requested}}, true
	}

	plan := make([]Deduction, 0, len(s.buckets))
	remaining := requested
	for i, b := range s.buckets {
		if remaining == 0 {
			break
		}

		toDeduct := min(b.Quantity, remaining)
		if toDeduct <= 0 {
			continue
		}

		plan = append(plan, Deduction{Position: i, Size: b.Size, Quantity: toDeduct})
		remaining -= toDeduct
	}

	return plan, true
}

// Apply returns the shape left after plan has been taken.
func (s StockShape) Apply(plan []Deduction) StockShape {
	if s.kind == StockFlat {
		left := s.flat
		for _, d := range plan {
			left -= d.Quantity
		}

		return FlatStock(left)
	}

	next := BucketedStock(s.buckets)
	for _, d := range plan {
		next.buckets[d.Position].Quantity -= d.Quantity
	}

	return next
}

type stockJSON struct {
	Quantity *int     `json:"quantity,omitempty"`
	Sizes    []Bucket `json:"sizes,omitempty"`
}

func (s StockShape) MarshalJSON() ([]byte, error) {
	if s.kind == StockFlat {
		q := s.flat
		return json.Marshal(stockJSON{Quantity: &q})
	}

	sizes := s.buckets
	if sizes == nil {
		sizes = []Bucket{}
	}

	return json.Marshal(struct {
		Sizes []Bucket `json:"sizes"`
	}{Sizes: sizes})
}

func (s *StockShape) UnmarshalJSON(data []byte) error {
	var raw stockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Quantity != nil && raw.Sizes != nil {
		return errors.New("stock carries both sizes and quantity")
	}

	if raw.Quantity != nil {
		*s = FlatStock(*raw.Quantity)
		return nil
	}

	*s = BucketedStock(raw.Sizes)

	return nil
}
