package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/fulfillment"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/storage"
	"github.com/mmeshcher/storefront/internal/validation"
)

const (
	proofURLExpiry     = 15 * time.Minute
	fulfillmentPeriod  = time.Second
	fulfillmentBatchSz = 100
)

// NewOrder содержит данные для создания заказа.
type NewOrder struct {
	Items         []model.CartItem
	Total         decimal.Decimal
	PaymentMethod model.PaymentMethod
	PaymentProof  string
}

// CreateOrder создаёт заказ в статусе pending со снимками пользователя и позиций.
func (s *Service) CreateOrder(ctx context.Context, user model.User, in NewOrder) (*model.Order, error) {
	if err := s.validateNewOrder(ctx, in); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate order id: %w", err)
	}

	o := model.Order{
		ID:            validation.OrderIDPrefix + id.String(),
		UserID:        user.ID,
		UserEmail:     user.Email,
		UserName:      user.Name,
		Items:         in.Items,
		Total:         in.Total,
		PaymentMethod: in.PaymentMethod,
		PaymentProof:  in.PaymentProof,
		Status:        model.OrderStatusPending,
		CreatedAt:     s.now(),
	}

	stored, err := s.storeProof(ctx, o.ID, in.PaymentProof)
	if err != nil {
		return nil, err
	}
	o.PaymentProof = stored

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		if stored != in.PaymentProof {
			if delErr := s.proofs.Delete(ctx, storage.ObjectKey(stored)); delErr != nil {
				s.logger.Warn("delete orphaned proof failed", zap.String("order", o.ID), zap.Error(delErr))
			}
		}
		return nil, err
	}

	s.publish(ctx, notify.Event{Kind: notify.KindOrderCreated, UserID: o.UserID, OrderID: o.ID})
	return &o, nil
}

func (s *Service) validateNewOrder(ctx context.Context, in NewOrder) error {
	if !in.PaymentMethod.Valid() {
		return ErrUnknownPaymentMethod
	}
	if in.PaymentProof == "" {
		return ErrPaymentProofRequired
	}
	if len(in.Items) == 0 {
		return ErrEmptyCart
	}
	if in.Total.IsNegative() {
		return ErrInvalidTotal
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}
	if cfg, ok := settings.PaymentMethods[in.PaymentMethod]; !ok || !cfg.Enabled {
		return ErrPaymentMethodDisabled
	}

	wanted := make(map[string]int, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
		wanted[item.Product.ID] += item.Quantity
	}
	for productID, qty := range wanted {
		p, err := s.repo.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if p.Stock < qty {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}
	}
	return nil
}

// storeProof выгружает подтверждение оплаты в объектное хранилище, если оно настроено и
// подтверждение передано как data URL. Иначе подтверждение хранится в заказе как есть.
func (s *Service) storeProof(ctx context.Context, orderID, proof string) (string, error) {
	if s.proofs == nil {
		return proof, nil
	}
	data, err := storage.ParseDataURL(proof)
	if err != nil {
		return proof, nil
	}

	key := fmt.Sprintf("proofs/%s.%s", orderID, data.Extension())
	if err := s.proofs.Put(ctx, key, bytes.NewReader(data.Data), int64(len(data.Data)), data.ContentType); err != nil {
		return "", fmt.Errorf("store payment proof: %w", err)
	}
	return storage.KeyPrefix + key, nil
}

// Checkout оформляет заказ из корзины пользователя с учётом текущей скидки и очищает корзину.
func (s *Service) Checkout(ctx context.Context, user model.User, method model.PaymentMethod, proof string) (*model.Order, error) {
	items, err := s.repo.GetCart(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	discount, err := s.CalculateDiscount(ctx, cartTotal(items))
	if err != nil {
		return nil, err
	}

	o, err := s.CreateOrder(ctx, user, NewOrder{
		Items:         items,
		Total:         discount.FinalTotal,
		PaymentMethod: method,
		PaymentProof:  proof,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.ClearCart(ctx, user.ID); err != nil {
		s.logger.Warn("clear cart after checkout failed", zap.String("user", user.ID), zap.Error(err))
	}
	return s.presentOrder(ctx, *o), nil
}

// UpdateOrderStatus переводит заказ в новый статус по таблице переходов.
// Непустые notes сохраняются вместе с переходом.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, notes string) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if !validation.IsValidOrderID(id) {
		return nil, repository.ErrOrderNotFound
	}

	o, err := s.repo.UpdateOrder(ctx, id, func(o *model.Order) error {
		if !o.Transition(status, s.now()) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
		}
		if notes != "" {
			o.Notes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Event{Kind: notify.KindOrderStatus, UserID: o.UserID, OrderID: o.ID})
	return s.presentOrder(ctx, *o), nil
}

// ConfirmOrder подтверждает оплату заказа.
func (s *Service) ConfirmOrder(ctx context.Context, id, notes string) (*model.Order, error) {
	return s.UpdateOrderStatus(ctx, id, model.OrderStatusConfirmed, notes)
}

// CancelOrder отклоняет заказ.
func (s *Service) CancelOrder(ctx context.Context, id, notes string) (*model.Order, error) {
	return s.UpdateOrderStatus(ctx, id, model.OrderStatusCancelled, notes)
}

// UpdateOrderNotes перезаписывает комментарий к заказу независимо от его статуса.
func (s *Service) UpdateOrderNotes(ctx context.Context, id, notes string) (*model.Order, error) {
	if !validation.IsValidOrderID(id) {
		return nil, repository.ErrOrderNotFound
	}
	o, err := s.repo.UpdateOrder(ctx, id, func(o *model.Order) error {
		o.Notes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Event{Kind: notify.KindOrderNotes, UserID: o.UserID, OrderID: o.ID})
	return s.presentOrder(ctx, *o), nil
}

// GetOrder возвращает заказ. Покупатель видит только свои заказы.
func (s *Service) GetOrder(ctx context.Context, viewer model.User, id string) (*model.Order, error) {
	if !validation.IsValidOrderID(id) {
		return nil, repository.ErrOrderNotFound
	}
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && o.UserID != viewer.ID {
		return nil, ErrForbidden
	}
	return s.presentOrder(ctx, *o), nil
}

// GetUserOrders возвращает заказы пользователя, новые первыми.
func (s *Service) GetUserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return s.listOrders(ctx, model.OrderFilter{UserID: userID})
}

// GetPendingOrders возвращает заказы, ожидающие проверки оплаты.
func (s *Service) GetPendingOrders(ctx context.Context) ([]model.Order, error) {
	return s.listOrders(ctx, model.OrderFilter{Statuses: []model.OrderStatus{model.OrderStatusPending}})
}

// GetAllOrdersForAdmin возвращает все заказы, при необходимости только с указанными статусами.
func (s *Service) GetAllOrdersForAdmin(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, ErrInvalidStatus
		}
	}
	return s.listOrders(ctx, model.OrderFilter{Statuses: statuses})
}

func (s *Service) listOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i] = *s.presentOrder(ctx, orders[i])
	}
	return orders, nil
}

// presentOrder подменяет ключ объекта подтверждения временной ссылкой на скачивание.
func (s *Service) presentOrder(ctx context.Context, o model.Order) *model.Order {
	if s.proofs == nil || !storage.IsObjectKey(o.PaymentProof) {
		return &o
	}
	u, err := s.proofs.PresignGet(ctx, storage.ObjectKey(o.PaymentProof), proofURLExpiry)
	if err != nil {
		s.logger.Warn("presign payment proof failed", zap.String("order", o.ID), zap.Error(err))
		return &o
	}
	o.PaymentProof = u
	return &o
}

// GetDashboardStats собирает сводку для админки. Выручка учитывает только завершённые заказы.
func (s *Service) GetDashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	orders, err := s.repo.ListOrders(ctx, model.OrderFilter{})
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.DashboardStats{
		TotalOrders:   len(orders),
		TotalProducts: len(products),
		TotalUsers:    len(users),
		TotalRevenue:  decimal.Zero,
	}
	for _, o := range orders {
		switch o.Status {
		case model.OrderStatusPending:
			stats.PendingOrders++
		case model.OrderStatusCompleted:
			stats.TotalRevenue = stats.TotalRevenue.Add(o.Total)
		}
	}
	return stats, nil
}

// StartFulfillmentUpdates запускает фоновый процесс обновления статусов заказов из системы исполнения.
func (s *Service) StartFulfillmentUpdates(ctx context.Context) {
	if s.fulfillment == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(fulfillmentPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processFulfillmentBatch(ctx)
			}
		}
	}()
}

func (s *Service) processFulfillmentBatch(ctx context.Context) {
	orders, err := s.repo.ListOrders(ctx, model.OrderFilter{
		Statuses: []model.OrderStatus{model.OrderStatusConfirmed, model.OrderStatusProcessing},
	})
	if err != nil {
		s.logger.Warn("list orders for fulfillment failed", zap.Error(err))
		return
	}
	if len(orders) > fulfillmentBatchSz {
		orders = orders[len(orders)-fulfillmentBatchSz:]
	}

	for _, o := range orders {
		shipment, err := s.fulfillment.Fetch(ctx, o.ID)
		var rl *fulfillment.RateLimitError
		switch {
		case errors.As(err, &rl):
			if rl.RetryAfter > 0 {
				timer := time.NewTimer(rl.RetryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		case errors.Is(err, fulfillment.ErrNotRegistered):
			continue
		case err != nil:
			s.logger.Debug("fulfillment request failed", zap.String("order", o.ID), zap.Error(err))
			continue
		}

		var next model.OrderStatus
		switch shipment.Status {
		case fulfillment.StatusShipping:
			next = model.OrderStatusProcessing
		case fulfillment.StatusDelivered:
			next = model.OrderStatusCompleted
		default:
			continue
		}
		if next == o.Status {
			continue
		}

		if _, err := s.UpdateOrderStatus(ctx, o.ID, next, ""); err != nil {
			if !errors.Is(err, ErrInvalidTransition) && !errors.Is(err, repository.ErrOrderNotFound) {
				s.logger.Warn("apply fulfillment status failed", zap.String("order", o.ID), zap.Error(err))
			}
			continue
		}
		s.logger.Info("order status updated by fulfillment",
			zap.String("order", o.ID),
			zap.String("status", string(next)),
			zap.String("carrier", shipment.Carrier),
			zap.String("tracking", shipment.TrackingNumber),
		)
	}
}
