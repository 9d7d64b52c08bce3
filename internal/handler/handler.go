// Package handler содержит HTTP-обработчики API витрины.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, email, password, name string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	ListProducts(ctx context.Context) ([]model.Product, error)
	SearchProducts(ctx context.Context, query string) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	GetCart(ctx context.Context, userID string) (*model.Cart, error)
	AddToCart(ctx context.Context, userID, productID string, quantity int) error
	UpdateCartQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error

	GetSettings(ctx context.Context) (*model.SiteSettings, error)
	UpdateSettings(ctx context.Context, settings model.SiteSettings) (*model.SiteSettings, error)
	CalculateDiscount(ctx context.Context, subtotal decimal.Decimal) (model.Discount, error)
	PublicSettings(ctx context.Context) (*service.PublicSettings, error)

	Checkout(ctx context.Context, user model.User, method model.PaymentMethod, proof string) (*model.Order, error)
	GetOrder(ctx context.Context, viewer model.User, id string) (*model.Order, error)
	GetUserOrders(ctx context.Context, userID string) ([]model.Order, error)
	GetAllOrdersForAdmin(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, notes string) (*model.Order, error)
	ConfirmOrder(ctx context.Context, id, notes string) (*model.Order, error)
	CancelOrder(ctx context.Context, id, notes string) (*model.Order, error)
	UpdateOrderNotes(ctx context.Context, id, notes string) (*model.Order, error)
	GetDashboardStats(ctx context.Context) (*model.DashboardStats, error)

	GetOrCreateConversation(ctx context.Context, user model.User) (*model.Conversation, error)
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	SendMessage(ctx context.Context, sender model.User, conversationID, content string) (*model.Message, error)
	MarkMessagesAsRead(ctx context.Context, reader model.User, conversationID string) error
	GetMessages(ctx context.Context, viewer model.User, conversationID string) ([]model.Message, error)
	GetUnreadCount(ctx context.Context, userID string) (int, error)
	GetTotalUnreadForAdmin(ctx context.Context) (int, error)

	Broker() notify.Broker
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	pollInterval   time.Duration

	streams      context.Context
	closeStreams context.CancelFunc
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// pollInterval задаёт период тиков в потоке событий.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, pollInterval time.Duration) *Handler {
	if pollInterval <= 0 {
		pollInterval = notify.DefaultInterval
	}
	streams, closeStreams := context.WithCancel(context.Background())
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		pollInterval:   pollInterval,
		streams:        streams,
		closeStreams:   closeStreams,
	}
}

// CloseStreams завершает открытые потоки событий. http.Server.Shutdown не отменяет
// контексты активных запросов, поэтому функция регистрируется через RegisterOnShutdown.
func (h *Handler) CloseStreams() {
	h.closeStreams()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func badRequest(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}

// writeError переводит ошибку бизнес-логики в HTTP-статус; неизвестные ошибки логируются как 500.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" error", append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidSettings),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrUnknownPaymentMethod):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrPaymentMethodDisabled),
		errors.Is(err, service.ErrPaymentProofRequired),
		errors.Is(err, service.ErrInvalidTotal):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func sessionUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	user, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return user, ok
}
