package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

// GetCart возвращает корзину пользователя с количеством, суммой и скидкой по текущим настройкам.
func (s *Service) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	items, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	subtotal := cartTotal(items)
	discount := settings.Discount.Calculate(subtotal)
	return &model.Cart{
		Items:    items,
		Count:    cartCount(items),
		Subtotal: subtotal,
		Discount: discount.Amount,
		Total:    discount.FinalTotal,
	}, nil
}

// AddToCart добавляет товар в корзину; повторное добавление увеличивает количество.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	return s.repo.AddCartItem(ctx, userID, *p, quantity)
}

// UpdateCartQuantity задаёт количество товара в корзине. Количество не больше нуля удаляет строку.
func (s *Service) UpdateCartQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return s.repo.RemoveCartItem(ctx, userID, productID)
	}
	return s.repo.SetCartItemQuantity(ctx, userID, productID, quantity)
}

// RemoveFromCart удаляет строку корзины; отсутствие строки не считается ошибкой.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID string) error {
	return s.repo.RemoveCartItem(ctx, userID, productID)
}

// ClearCart очищает корзину.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	return s.repo.ClearCart(ctx, userID)
}

func cartTotal(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func cartCount(items []model.CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
