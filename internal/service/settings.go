package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/repository"
)

// PublicSettings содержит часть настроек, видимую на витрине: скидку и включённые способы оплаты.
type PublicSettings struct {
	Discount       model.DiscountSettings                            `json:"discount"`
	PaymentMethods map[model.PaymentMethod]model.PaymentMethodConfig `json:"paymentMethods"`
}

// GetSettings возвращает настройки магазина. При первом чтении записывает значения по умолчанию.
func (s *Service) GetSettings(ctx context.Context) (*model.SiteSettings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, repository.ErrSettingsNotFound) {
		return nil, err
	}
	return s.repo.InitSettings(ctx, model.DefaultSettings())
}

// UpdateSettings заменяет документ настроек целиком. Значения не ограничиваются по диапазону.
func (s *Service) UpdateSettings(ctx context.Context, settings model.SiteSettings) (*model.SiteSettings, error) {
	switch settings.Discount.Type {
	case model.DiscountPercentage, model.DiscountFixed:
	default:
		return nil, ErrInvalidSettings
	}
	for method := range settings.PaymentMethods {
		if !method.Valid() {
			return nil, ErrUnknownPaymentMethod
		}
	}

	settings.Version = model.SettingsVersion
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Event{Kind: notify.KindSettingsUpdated})
	return &settings, nil
}

// CalculateDiscount рассчитывает скидку для суммы по текущим настройкам.
func (s *Service) CalculateDiscount(ctx context.Context, subtotal decimal.Decimal) (model.Discount, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return model.Discount{}, err
	}
	return settings.Discount.Calculate(subtotal), nil
}

// PublicSettings возвращает настройки для витрины без выключенных способов оплаты.
func (s *Service) PublicSettings(ctx context.Context) (*PublicSettings, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	methods := make(map[model.PaymentMethod]model.PaymentMethodConfig, len(settings.PaymentMethods))
	for method, cfg := range settings.PaymentMethods {
		if cfg.Enabled {
			methods[method] = cfg
		}
	}
	return &PublicSettings{Discount: settings.Discount, PaymentMethods: methods}, nil
}
