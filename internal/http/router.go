package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter wires the REST surface: products CRUD and order placement.
func NewRouter(
	products *ProductHandler,
	orders *OrdersHandler,
	logger *zap.Logger,
	requestTimeout time.Duration,
	maxBodySize int64,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(maxBodySize))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Ecommerce API"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": "1.0.0"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.ListProducts)
			r.Post("/", products.CreateProduct)
			r.Get("/{product_id}", products.GetProduct)
			r.Put("/{product_id}", products.UpdateProduct)
			r.Delete("/{product_id}", products.DeleteProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.ListOrders)
			r.Post("/", orders.CreateOrder)
			r.Get("/{order_id}", orders.GetOrder)
			r.Patch("/{order_id}", orders.UpdateOrderStatus)
			r.Delete("/{order_id}", orders.DeleteOrder)
		})
	})

	return r
}
