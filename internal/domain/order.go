package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

// CanTransitionTo reports whether an order may move from one status to another.
// The only legal transition is pending -> completed.
func CanTransitionTo(from, to OrderStatus) bool {
	return from == OrderStatusPending && to == OrderStatusCompleted
}

type OrderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	// UnitPrice is the product price captured at order-creation time.
	// Later price changes never touch it.
	UnitPrice float64 `json:"unit_price"`
}

type Order struct {
	ID         int64       `json:"id"`
	Status     OrderStatus `json:"status"`
	TotalPrice float64     `json:"total_price"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
