package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
)

// orderTx wraps a *sql.Tx so that order creation, line items, stock deltas
// and the outbox event commit as one unit or not at all.
type orderTx struct {
	tx *sql.Tx
}

func (r *Repository) BeginOrderTx(ctx context.Context) (OrderTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin order tx: %w", err)
	}
	return &orderTx{tx: tx}, nil
}

func (t *orderTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO orders (status, total_price, created_at, updated_at)
	          VALUES ($1, $2, NOW(), NOW())
	          RETURNING id, created_at, updated_at`

	err := t.tx.QueryRowContext(ctx, query, order.Status, order.TotalPrice).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *orderTx) InsertOrderItems(ctx context.Context, orderID int64, items []domain.OrderItem) ([]domain.OrderItem, error) {
	query := `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`

	inserted := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		item.OrderID = orderID
		err := t.tx.QueryRowContext(ctx, query,
			orderID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
		).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("insert order item for product %d: %w", item.ProductID, err)
		}
		inserted = append(inserted, item)
	}
	return inserted, nil
}

// AdjustStock applies a signed delta to a product's stock. The WHERE clause
// re-checks stock + delta >= 0 against the value visible inside this
// transaction, which is what serializes concurrent decrements racing for the
// same rows.
func (t *orderTx) AdjustStock(ctx context.Context, productID int64, delta int) (*domain.Product, error) {
	query := `UPDATE products
	          SET stock = stock + $2, updated_at = NOW()
	          WHERE id = $1 AND stock + $2 >= 0
	          RETURNING id, name, description, price, stock, created_at, updated_at`

	p := &domain.Product{}
	err := t.tx.QueryRowContext(ctx, query, productID, delta).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("adjust stock for product %d: %w", productID, err)
	}

	// No row matched: either the product is gone or the delta would
	// underflow. Tell the two apart with the stock visible in this tx.
	var current int
	err = t.tx.QueryRowContext(ctx,
		`SELECT stock FROM products WHERE id = $1`, productID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read stock for product %d: %w", productID, err)
	}

	return nil, &StockUnderflowError{ProductID: productID, Current: current, Delta: delta}
}

func (t *orderTx) RecordOrderEvent(ctx context.Context, event *OrderEvent) error {
	query := `INSERT INTO order_events (id, order_id, event_type, payload, created_at)
	          VALUES ($1, $2, $3, $4, NOW())`

	if _, err := t.tx.ExecContext(ctx, query,
		event.ID,
		event.OrderID,
		event.EventType,
		event.Payload,
	); err != nil {
		return fmt.Errorf("record order event: %w", err)
	}
	return nil
}

func (t *orderTx) Commit() error {
	return t.tx.Commit()
}

func (t *orderTx) Rollback() error {
	return t.tx.Rollback()
}
