package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_shop/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	// ErrProductInUse is returned when deleting a product that is still
	// referenced by order items.
	ErrProductInUse = errors.New("product is referenced by existing orders")
)

// StockUnderflowError is returned by OrderTx.AdjustStock when the delta would
// drive the stock counter below zero. It is evaluated against the value
// visible inside the transaction, not a stale read.
type StockUnderflowError struct {
	ProductID int64
	Current   int
	Delta     int
}

func (e *StockUnderflowError) Error() string {
	return fmt.Sprintf("cannot reduce stock below zero (product_id=%d, current=%d, change=%d)",
		e.ProductID, e.Current, e.Delta)
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OrderEvent is an outbox row recorded in the same transaction as the order
// it describes and published asynchronously by the outbox poller.
type OrderEvent struct {
	ID        uuid.UUID
	OrderID   int64
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// OrderTx is a single atomic unit of work for order placement. Writes made
// through it are never observable to other sessions until Commit.
type OrderTx interface {
	// InsertOrder persists the order row and fills in the generated ID and
	// timestamps.
	InsertOrder(ctx context.Context, order *domain.Order) error
	// InsertOrderItems persists the line items for an order and returns them
	// with generated IDs.
	InsertOrderItems(ctx context.Context, orderID int64, items []domain.OrderItem) ([]domain.OrderItem, error)
	// AdjustStock applies a signed stock delta, re-checking stock >= 0 at
	// write time. Returns the updated product, ErrProductNotFound, or a
	// *StockUnderflowError.
	AdjustStock(ctx context.Context, productID int64, delta int) (*domain.Product, error)
	// RecordOrderEvent appends an outbox event to the unit of work.
	RecordOrderEvent(ctx context.Context, event *OrderEvent) error
	Commit() error
	Rollback() error
}

// Store is the persistence contract consumed by the service layer.
type Store interface {
	ListProducts(ctx context.Context, limit, offset int) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error

	BeginOrderTx(ctx context.Context) (OrderTx, error)

	UnprocessedOrderEvents(ctx context.Context, limit int) ([]*OrderEvent, error)
	MarkOrderEventProcessed(ctx context.Context, id uuid.UUID) error

	RunMigrations(cred *Credentials) error
	Close() error
}
