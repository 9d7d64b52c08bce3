package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCompleted},
	OrderStatusProcessing: {OrderStatusCompleted},
}

// Valid сообщает, является ли статус одним из известных.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода в статус next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod обозначает способ ручной оплаты.
type PaymentMethod string

const (
	PaymentMethodBinance PaymentMethod = "binance"
	PaymentMethodUPI     PaymentMethod = "upi"
	PaymentMethodPayPal  PaymentMethod = "paypal"
)

// PaymentMethods перечисляет поддерживаемые способы оплаты в порядке отображения.
var PaymentMethods = []PaymentMethod{PaymentMethodBinance, PaymentMethodUPI, PaymentMethodPayPal}

// Valid сообщает, входит ли способ оплаты в поддерживаемый набор.
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// Order описывает заказ покупателя. Данные пользователя и позиции сохраняются снимком на момент оформления.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	UserEmail     string          `json:"userEmail"`
	UserName      string          `json:"userName"`
	Items         []CartItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	PaymentProof  string          `json:"paymentProof,omitempty"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	ConfirmedAt   *time.Time      `json:"confirmedAt,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// Transition переводит заказ в статус next и проставляет confirmedAt при первом подтверждении.
// Возвращает false, если переход не разрешён; заказ при этом не меняется.
func (o *Order) Transition(next OrderStatus, at time.Time) bool {
	if !o.Status.CanTransitionTo(next) {
		return false
	}
	o.Status = next
	if next == OrderStatusConfirmed && o.ConfirmedAt == nil {
		confirmedAt := at
		o.ConfirmedAt = &confirmedAt
	}
	return true
}

// OrderFilter задаёт выборку заказов. Пустые поля не ограничивают выборку.
type OrderFilter struct {
	UserID   string
	Statuses []OrderStatus
}

// Match сообщает, попадает ли заказ в выборку.
func (f OrderFilter) Match(o Order) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}
