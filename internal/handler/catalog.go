package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
)

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
}

// ListProducts возвращает каталог; параметр q включает поиск.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct возвращает карточку товара.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, "get product", err, zap.String("productID", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	p, err := h.service.CreateProduct(r.Context(), model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
		Stock:       req.Stock,
	})
	if err != nil {
		h.writeError(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct частично изменяет товар.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	var patch model.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w)
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, "update product", err, zap.String("productID", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct удаляет товар из каталога.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, "delete product", err, zap.String("productID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
