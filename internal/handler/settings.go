package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

// GetPublicSettings возвращает скидку и включённые способы оплаты для витрины.
func (h *Handler) GetPublicSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.PublicSettings(r.Context())
	if err != nil {
		h.writeError(w, "public settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// CalculateDiscount рассчитывает скидку для суммы из параметра subtotal.
func (h *Handler) CalculateDiscount(w http.ResponseWriter, r *http.Request) {
	subtotal, err := decimal.NewFromString(r.URL.Query().Get("subtotal"))
	if err != nil || subtotal.IsNegative() {
		badRequest(w)
		return
	}

	discount, err := h.service.CalculateDiscount(r.Context(), subtotal)
	if err != nil {
		h.writeError(w, "calculate discount", err)
		return
	}
	writeJSON(w, http.StatusOK, discount)
}

// AdminGetSettings возвращает документ настроек целиком.
func (h *Handler) AdminGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetSettings(r.Context())
	if err != nil {
		h.writeError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// AdminUpdateSettings заменяет документ настроек.
func (h *Handler) AdminUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req model.SiteSettings
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), req)
	if err != nil {
		h.writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// AdminListUsers возвращает зарегистрированных покупателей.
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
