package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/service"
)

// OrderService is the slice of the service layer the orders handler needs.
type OrderService interface {
	PlaceOrder(ctx context.Context, items []service.LineItem) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

type OrdersHandler struct {
	orders OrderService
}

func NewOrdersHandler(orders OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type OrderItemDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderCreateDTO struct {
	Items []OrderItemDTO `json:"items"`
}

type OrderStatusDTO struct {
	Status string `json:"status"`
}

// validate enforces the request shape before the core is invoked: at least
// one item, positive ids and quantities, each product at most once.
func (dto *OrderCreateDTO) validate() string {
	if len(dto.Items) == 0 {
		return "order must contain at least one item"
	}

	seen := make(map[int64]struct{}, len(dto.Items))
	for _, item := range dto.Items {
		if item.ProductID <= 0 {
			return "product_id must be a positive integer"
		}
		if item.Quantity <= 0 {
			return "quantity must be a positive integer"
		}
		if _, dup := seen[item.ProductID]; dup {
			return fmt.Sprintf("duplicate product ID %d in order, use the quantity field instead", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}

	return ""
}

// POST /api/v1/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var dto OrderCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if msg := dto.validate(); msg != "" {
		respondError(w, http.StatusUnprocessableEntity, "invalid_order", msg)
		return
	}

	items := make([]service.LineItem, 0, len(dto.Items))
	for _, item := range dto.Items {
		items = append(items, service.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.orders.PlaceOrder(r.Context(), items)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parseListParams(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_pagination", "limit and offset must be non-negative integers")
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "order_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// PATCH /api/v1/orders/{order_id}
func (h *OrdersHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "order_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	var dto OrderStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	status := domain.OrderStatus(dto.Status)
	if status != domain.OrderStatusPending && status != domain.OrderStatusCompleted {
		respondError(w, http.StatusUnprocessableEntity, "invalid_status",
			"status must be one of: pending, completed")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// DELETE /api/v1/orders/{order_id}
func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "order_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
