package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

// LineItem is one (product, quantity) pair within an order request.
type LineItem struct {
	ProductID int64
	Quantity  int
}

type OrderService struct {
	repo   repository.Store
	cache  cache.ProductCache
	logger *zap.Logger
}

func NewOrderService(repo repository.Store, productCache cache.ProductCache, logger *zap.Logger) *OrderService {
	return &OrderService{repo: repo, cache: productCache, logger: logger}
}

// pricedLine carries the price snapshot taken during the pre-check so that a
// concurrent price change between validation and commit cannot leak into the
// stored order.
type pricedLine struct {
	productID int64
	quantity  int
	unitPrice float64
}

// PlaceOrder validates every line against live stock, computes the total from
// captured unit prices and commits the order, its items, the stock decrements
// and the outbox event as one atomic unit. Stock is checked twice: the
// optimistic pre-check gives early rejection with accurate availability, the
// conditional decrement inside the transaction is the actual guarantee under
// concurrent orders.
func (s *OrderService) PlaceOrder(ctx context.Context, items []LineItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			return nil, domain.ErrDuplicateOrderItem
		}
		seen[item.ProductID] = struct{}{}
	}

	// Optimistic pre-check: reject missing products and obvious stock
	// shortfalls before opening the transaction.
	lines := make([]pricedLine, 0, len(items))
	var totalPrice float64
	for _, item := range items {
		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &domain.ProductNotFoundError{ProductID: item.ProductID}
		}
		if err != nil {
			return nil, fmt.Errorf("fetch product %d: %w", item.ProductID, err)
		}

		if item.Quantity > product.Stock {
			return nil, &domain.InsufficientStockError{
				ProductID: product.ID,
				Requested: item.Quantity,
				Available: product.Stock,
			}
		}

		totalPrice += product.Price * float64(item.Quantity)
		lines = append(lines, pricedLine{
			productID: product.ID,
			quantity:  item.Quantity,
			unitPrice: product.Price,
		})
	}
	totalPrice = domain.Round2(totalPrice)

	order, err := s.commitOrder(ctx, lines, totalPrice)
	if err != nil {
		return nil, err
	}

	// Involved products changed; drop any cached copies.
	for _, line := range lines {
		if cerr := s.cache.Delete(ctx, line.productID); cerr != nil {
			s.logger.Warn("failed to invalidate product cache",
				zap.Int64("product_id", line.productID), zap.Error(cerr))
		}
	}

	s.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Float64("total_price", order.TotalPrice),
		zap.Int("items", len(order.Items)))

	return order, nil
}

// commitOrder runs the atomic section. On any failure the transaction is
// rolled back and no order, item or stock mutation is observable.
func (s *OrderService) commitOrder(ctx context.Context, lines []pricedLine, totalPrice float64) (*domain.Order, error) {
	tx, err := s.repo.BeginOrderTx(ctx)
	if err != nil {
		return nil, &domain.InvalidOrderDataError{Cause: err}
	}
	defer tx.Rollback() //nolint:errcheck

	order := &domain.Order{
		Status:     domain.OrderStatusPending,
		TotalPrice: totalPrice,
	}
	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, &domain.InvalidOrderDataError{Cause: err}
	}

	orderItems := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		orderItems = append(orderItems, domain.OrderItem{
			ProductID: line.productID,
			Quantity:  line.quantity,
			UnitPrice: line.unitPrice,
		})
	}
	inserted, err := tx.InsertOrderItems(ctx, order.ID, orderItems)
	if err != nil {
		return nil, &domain.InvalidOrderDataError{Cause: err}
	}
	order.Items = inserted

	// Authoritative re-check: the conditional decrement fails closed when a
	// concurrent order depleted the stock after the pre-check read it.
	for _, line := range lines {
		if _, err := tx.AdjustStock(ctx, line.productID, -line.quantity); err != nil {
			var underflow *repository.StockUnderflowError
			switch {
			case errors.As(err, &underflow):
				return nil, &domain.InsufficientStockError{
					ProductID: line.productID,
					Requested: line.quantity,
					Available: underflow.Current,
				}
			case errors.Is(err, repository.ErrProductNotFound):
				return nil, &domain.ProductNotFoundError{ProductID: line.productID}
			default:
				return nil, &domain.InvalidOrderDataError{Cause: err}
			}
		}
	}

	event, err := placedEvent(order)
	if err != nil {
		return nil, &domain.InvalidOrderDataError{Cause: err}
	}
	if err := tx.RecordOrderEvent(ctx, event); err != nil {
		return nil, &domain.InvalidOrderDataError{Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &domain.InvalidOrderDataError{Cause: err}
	}

	return order, nil
}

type placedEventItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type placedEventPayload struct {
	OrderID    int64             `json:"order_id"`
	Status     string            `json:"status"`
	TotalPrice float64           `json:"total_price"`
	Items      []placedEventItem `json:"items"`
}

func placedEvent(order *domain.Order) (*repository.OrderEvent, error) {
	payload := placedEventPayload{
		OrderID:    order.ID,
		Status:     string(order.Status),
		TotalPrice: order.TotalPrice,
		Items:      make([]placedEventItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, placedEventItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order event payload: %w", err)
	}

	return &repository.OrderEvent{
		ID:        uuid.New(),
		OrderID:   order.ID,
		EventType: "order.placed",
		Payload:   data,
	}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &domain.OrderNotFoundError{OrderID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	orders, err := s.repo.ListOrders(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order to a new status, rejecting transitions other
// than pending -> completed.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransitionTo(order.Status, status) {
		return nil, domain.ErrIllegalStatusTransition
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, id, status)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &domain.OrderNotFoundError{OrderID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	return updated, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	err := s.repo.DeleteOrder(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return &domain.OrderNotFoundError{OrderID: id}
	}
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	return nil
}
