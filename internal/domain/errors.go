package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrDuplicateOrderItem      = errors.New("duplicate products in order, use the quantity field instead")
	ErrIllegalStatusTransition = errors.New("illegal transition of order status")
)

// ProductNotFoundError is returned when a referenced product does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with ID %d not found", e.ProductID)
}

// OrderNotFoundError is returned when a referenced order does not exist.
type OrderNotFoundError struct {
	OrderID int64
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order with ID %d not found", e.OrderID)
}

// InsufficientStockError is returned when a requested quantity exceeds the
// available stock, either during the optimistic pre-check or when the
// in-transaction decrement would drive stock below zero.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product ID %d, requested: %d, available: %d",
		e.ProductID, e.Requested, e.Available)
}

// InvalidOrderDataError wraps a storage failure that aborted order placement
// inside the atomic section.
type InvalidOrderDataError struct {
	Cause error
}

func (e *InvalidOrderDataError) Error() string {
	return fmt.Sprintf("invalid order data: %v", e.Cause)
}

func (e *InvalidOrderDataError) Unwrap() error {
	return e.Cause
}
