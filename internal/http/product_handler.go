package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/service"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ProductService is the slice of the service layer the product handler needs.
type ProductService interface {
	List(ctx context.Context, limit, offset int) ([]*domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id int64, update service.ProductUpdate) (*domain.Product, error)
	Delete(ctx context.Context, id int64) (*domain.Product, error)
}

type ProductHandler struct {
	products ProductService
}

func NewProductHandler(products ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

type ProductCreateDTO struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

type ProductUpdateDTO struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
}

// hasTwoDecimalsAtMost rejects prices with more than two fractional digits.
func hasTwoDecimalsAtMost(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-9
}

func validateName(name string) string {
	if len(name) < 1 || len(name) > 100 {
		return "name must be between 1 and 100 characters"
	}
	return ""
}

func validateDescription(description string) string {
	if len(description) > 1000 {
		return "description must be at most 1000 characters"
	}
	return ""
}

func validatePrice(price float64) string {
	if price <= 0 {
		return "price must be positive"
	}
	if !hasTwoDecimalsAtMost(price) {
		return "price must have at most 2 decimal places"
	}
	return ""
}

func (dto *ProductCreateDTO) validate() string {
	if msg := validateName(dto.Name); msg != "" {
		return msg
	}
	if msg := validateDescription(dto.Description); msg != "" {
		return msg
	}
	if msg := validatePrice(dto.Price); msg != "" {
		return msg
	}
	if dto.Stock < 0 {
		return "stock must be non-negative"
	}
	return ""
}

func (dto *ProductUpdateDTO) validate() string {
	if dto.Name != nil {
		if msg := validateName(*dto.Name); msg != "" {
			return msg
		}
	}
	if dto.Description != nil {
		if msg := validateDescription(*dto.Description); msg != "" {
			return msg
		}
	}
	if dto.Price != nil {
		if msg := validatePrice(*dto.Price); msg != "" {
			return msg
		}
	}
	if dto.Stock != nil && *dto.Stock < 0 {
		return "stock must be non-negative"
	}
	return ""
}

func parseListParams(r *http.Request) (limit, offset int, ok bool) {
	limit, offset = defaultListLimit, 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		limit = n
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}

	return limit, offset, true
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parseListParams(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_pagination", "limit and offset must be non-negative integers")
		return
	}

	products, err := h.products.List(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	respondJSON(w, http.StatusOK, products)
}

// POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var dto ProductCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if msg := dto.validate(); msg != "" {
		respondError(w, http.StatusUnprocessableEntity, "invalid_product", msg)
		return
	}

	product := &domain.Product{
		Name:        dto.Name,
		Description: dto.Description,
		Price:       dto.Price,
		Stock:       dto.Stock,
	}
	if err := h.products.Create(r.Context(), product); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// PUT /api/v1/products/{product_id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var dto ProductUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if msg := dto.validate(); msg != "" {
		respondError(w, http.StatusUnprocessableEntity, "invalid_product", msg)
		return
	}

	product, err := h.products.Update(r.Context(), id, service.ProductUpdate{
		Name:        dto.Name,
		Description: dto.Description,
		Price:       dto.Price,
		Stock:       dto.Stock,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// DELETE /api/v1/products/{product_id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	product, err := h.products.Delete(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}
