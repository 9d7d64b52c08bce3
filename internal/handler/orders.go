package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
)

type checkoutRequest struct {
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	PaymentProof  string              `json:"paymentProof"`
}

type orderStatusRequest struct {
	Status model.OrderStatus `json:"status"`
	Notes  string            `json:"notes"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// Checkout оформляет заказ из корзины текущего пользователя.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	order, err := h.service.Checkout(r.Context(), user, req.PaymentMethod, req.PaymentProof)
	if err != nil {
		h.writeError(w, "checkout", err, zap.String("userID", user.ID))
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// GetOrders возвращает список заказов текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetUserOrders(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "get orders", err, zap.String("userID", user.ID))
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ; покупателю доступны только собственные заказы.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "orderID")
	order, err := h.service.GetOrder(r.Context(), user, id)
	if err != nil {
		h.writeError(w, "get order", err, zap.String("order", id))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// AdminListOrders возвращает все заказы; параметр status (через запятую) фильтрует выборку.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	var statuses []model.OrderStatus
	if v := r.URL.Query().Get("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			statuses = append(statuses, model.OrderStatus(strings.TrimSpace(s)))
		}
	}

	orders, err := h.service.GetAllOrdersForAdmin(r.Context(), statuses...)
	if err != nil {
		h.writeError(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// AdminConfirmOrder подтверждает оплату заказа.
func (h *Handler) AdminConfirmOrder(w http.ResponseWriter, r *http.Request) {
	h.resolveOrder(w, r, model.OrderStatusConfirmed)
}

// AdminCancelOrder отклоняет заказ.
func (h *Handler) AdminCancelOrder(w http.ResponseWriter, r *http.Request) {
	h.resolveOrder(w, r, model.OrderStatusCancelled)
}

func (h *Handler) resolveOrder(w http.ResponseWriter, r *http.Request, status model.OrderStatus) {
	var req notesRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w)
		return
	}

	id := chi.URLParam(r, "orderID")
	var (
		order *model.Order
		err   error
	)
	if status == model.OrderStatusConfirmed {
		order, err = h.service.ConfirmOrder(r.Context(), id, req.Notes)
	} else {
		order, err = h.service.CancelOrder(r.Context(), id, req.Notes)
	}
	if err != nil {
		h.writeError(w, "resolve order", err, zap.String("order", id))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// AdminUpdateOrderStatus переводит заказ в произвольный разрешённый статус.
func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	id := chi.URLParam(r, "orderID")
	order, err := h.service.UpdateOrderStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		h.writeError(w, "update order status", err, zap.String("order", id))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// AdminUpdateOrderNotes перезаписывает комментарий к заказу.
func (h *Handler) AdminUpdateOrderNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	id := chi.URLParam(r, "orderID")
	order, err := h.service.UpdateOrderNotes(r.Context(), id, req.Notes)
	if err != nil {
		h.writeError(w, "update order notes", err, zap.String("order", id))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// AdminStats возвращает сводку для главной страницы админки.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetDashboardStats(r.Context())
	if err != nil {
		h.writeError(w, "dashboard stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
