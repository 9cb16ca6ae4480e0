package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondDomainError maps the domain error taxonomy to transport codes:
// NotFound -> 404, Conflict (stock, transitions, references) -> 409,
// request-shape violations -> 422, persistence failures -> 400.
func respondDomainError(w http.ResponseWriter, err error) {
	var (
		productNotFound   *domain.ProductNotFoundError
		orderNotFound     *domain.OrderNotFoundError
		insufficientStock *domain.InsufficientStockError
		invalidOrderData  *domain.InvalidOrderDataError
	)

	switch {
	case errors.As(err, &productNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.As(err, &orderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.As(err, &insufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, domain.ErrEmptyOrder), errors.Is(err, domain.ErrDuplicateOrderItem):
		respondError(w, http.StatusUnprocessableEntity, "invalid_order", err.Error())
	case errors.Is(err, domain.ErrIllegalStatusTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, repository.ErrProductInUse):
		respondError(w, http.StatusConflict, "product_in_use", err.Error())
	case errors.As(err, &invalidOrderData):
		respondError(w, http.StatusBadRequest, "invalid_order_data", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
