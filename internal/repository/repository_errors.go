package repository

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrOrderNotFound = errors.New("order not found")

// ErrStockChanged is returned when a conditional decrement matched no row:
// the bucket holds less than the amount being taken.
var ErrStockChanged = errors.New("stock changed concurrently")
