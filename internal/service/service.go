// Package service реализует бизнес-логику витрины: каталог, корзину, журнал заказов,
// настройки, чат поддержки и идентификацию.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/fulfillment"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/storage"
)

// Ошибки бизнес-логики.
var (
	ErrInvalidCredentials    = errors.New("email, password and name are required")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidProduct        = errors.New("invalid product")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrUnknownPaymentMethod  = errors.New("unknown payment method")
	ErrPaymentMethodDisabled = errors.New("payment method disabled")
	ErrPaymentProofRequired  = errors.New("payment proof required")
	ErrInvalidTotal          = errors.New("order total must not be negative")
	ErrInvalidStatus         = errors.New("unknown order status")
	ErrInvalidTransition     = errors.New("order status transition not allowed")
	ErrEmptyMessage          = errors.New("message content is empty")
	ErrInvalidSettings       = errors.New("invalid settings")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	ListProducts(ctx context.Context) ([]model.Product, error)
	SearchProducts(ctx context.Context, query string) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) error
	UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	GetCart(ctx context.Context, userID string) ([]model.CartItem, error)
	AddCartItem(ctx context.Context, userID string, product model.Product, quantity int) error
	SetCartItemQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error

	CreateOrder(ctx context.Context, o model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	UpdateOrder(ctx context.Context, id string, fn func(*model.Order) error) (*model.Order, error)
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	GetOrCreateConversation(ctx context.Context, c model.Conversation) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	AppendMessage(ctx context.Context, m model.Message) error
	MarkMessagesAsRead(ctx context.Context, conversationID, readerID string) error
	GetMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	CountUnreadMessages(ctx context.Context, userID string) (int, error)
	TotalUnreadForAdmin(ctx context.Context) (int, error)

	GetSettings(ctx context.Context) (*model.SiteSettings, error)
	InitSettings(ctx context.Context, defaults model.SiteSettings) (*model.SiteSettings, error)
	SaveSettings(ctx context.Context, s model.SiteSettings) error
}

// FulfillmentClient запрашивает состояние исполнения заказа во внешней системе.
type FulfillmentClient interface {
	Fetch(ctx context.Context, orderID string) (*fulfillment.Shipment, error)
}

// Options содержит необязательные зависимости сервиса.
type Options struct {
	Broker        notify.Broker
	Fulfillment   FulfillmentClient
	Proofs        storage.ObjectStore
	Logger        *zap.Logger
	AdminPassword string
}

// Service содержит бизнес-логику витрины.
type Service struct {
	repo          Repository
	broker        notify.Broker
	fulfillment   FulfillmentClient
	proofs        storage.ObjectStore
	logger        *zap.Logger
	adminPassword string
	now           func() time.Time
}

// NewService создаёт сервис с указанным репозиторием.
func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:          repo,
		broker:        opts.Broker,
		fulfillment:   opts.Fulfillment,
		proofs:        opts.Proofs,
		logger:        opts.Logger,
		adminPassword: opts.AdminPassword,
		now:           func() time.Time { return time.Now().UTC() },
	}
	if s.broker == nil {
		s.broker = notify.NewHub(0)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.adminPassword == "" {
		s.adminPassword = DefaultAdminPassword
	}
	return s
}

// Broker возвращает брокер событий для наблюдателей.
func (s *Service) Broker() notify.Broker {
	return s.broker
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	var errs []error
	if s.broker != nil {
		errs = append(errs, s.broker.Close())
	}
	if s.repo != nil {
		errs = append(errs, s.repo.Close())
	}
	return errors.Join(errs...)
}

// publish отправляет событие после фиксации записи; ошибка доставки не отменяет команду.
func (s *Service) publish(ctx context.Context, e notify.Event) {
	e.At = s.now()
	if err := s.broker.Publish(ctx, e); err != nil {
		s.logger.Warn("publish event failed", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}
