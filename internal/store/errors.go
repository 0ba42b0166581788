package store

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnavailable     = errors.New("product is not available")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)

// InsufficientStockError is returned when a requested quantity exceeds the
// live stock of a product, including when a conditional decrement matched no
// document under concurrent checkouts.
type InsufficientStockError struct {
	ProductID primitive.ObjectID
	Name      string
	Available int
	Requested int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested", e.Name, e.Available, e.Requested)
}
