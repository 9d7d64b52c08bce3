package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart возвращает корзину текущего пользователя с итогами.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "get cart", err, zap.String("userID", user.ID))
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// AddToCart добавляет товар в корзину. Без quantity добавляется одна штука.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	req := addToCartRequest{Quantity: 1}
	if err := decodeJSON(r, &req); err != nil || req.ProductID == "" {
		badRequest(w)
		return
	}

	if err := h.service.AddToCart(r.Context(), user.ID, req.ProductID, req.Quantity); err != nil {
		h.writeError(w, "add to cart", err, zap.String("userID", user.ID))
		return
	}
	h.GetCart(w, r)
}

// UpdateCartItem задаёт количество товара; ноль удаляет строку.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var req cartQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	productID := chi.URLParam(r, "productID")
	if err := h.service.UpdateCartQuantity(r.Context(), user.ID, productID, req.Quantity); err != nil {
		h.writeError(w, "update cart", err, zap.String("userID", user.ID))
		return
	}
	h.GetCart(w, r)
}

// RemoveCartItem удаляет товар из корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productID")
	if err := h.service.RemoveFromCart(r.Context(), user.ID, productID); err != nil {
		h.writeError(w, "remove from cart", err, zap.String("userID", user.ID))
		return
	}
	h.GetCart(w, r)
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearCart(r.Context(), user.ID); err != nil {
		h.writeError(w, "clear cart", err, zap.String("userID", user.ID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
