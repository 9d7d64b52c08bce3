package model

import "github.com/shopspring/decimal"

// SettingsVersion задаёт версию схемы документа настроек.
const SettingsVersion = 1

// DiscountType описывает способ расчёта скидки.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// DiscountSettings описывает скидку на весь заказ.
type DiscountSettings struct {
	Enabled bool            `json:"enabled"`
	Type    DiscountType    `json:"type"`
	Value   decimal.Decimal `json:"value"`
}

// PaymentMethodConfig содержит реквизиты способа оплаты для страницы оформления.
type PaymentMethodConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	QRCode      string `json:"qrCode"`
	Address     string `json:"address"`
	Enabled     bool   `json:"enabled"`
}

// SiteSettings является единственным документом настроек магазина.
type SiteSettings struct {
	Version        int                                   `json:"version"`
	Discount       DiscountSettings                      `json:"discount"`
	PaymentMethods map[PaymentMethod]PaymentMethodConfig `json:"paymentMethods"`
}

// DefaultSettings возвращает настройки, записываемые при первом чтении.
func DefaultSettings() SiteSettings {
	return SiteSettings{
		Version: SettingsVersion,
		Discount: DiscountSettings{
			Enabled: false,
			Type:    DiscountPercentage,
			Value:   decimal.Zero,
		},
		PaymentMethods: map[PaymentMethod]PaymentMethodConfig{
			PaymentMethodBinance: {
				Name:        "Binance Pay",
				Description: "Scan with Binance App to pay",
				QRCode:      "/binance-qr-new.jpg",
				Address:     "User-4a7ec",
				Enabled:     true,
			},
			PaymentMethodUPI: {
				Name:        "PhonePe UPI",
				Description: "Scan & Pay Using PhonePe App",
				QRCode:      "/phonepe-qr.jpg",
				Address:     "PANCHANAN JANA",
				Enabled:     true,
			},
			PaymentMethodPayPal: {
				Name:        "PayPal",
				Description: "Pay with PayPal",
				QRCode:      "/paypal-qr.jpg",
				Address:     "satyabanpain0@gmail.com",
				Enabled:     true,
			},
		},
	}
}

// Discount содержит результат расчёта скидки.
type Discount struct {
	Amount     decimal.Decimal `json:"discountAmount"`
	FinalTotal decimal.Decimal `json:"finalTotal"`
}

// moneyPlaces совпадает с масштабом денежных колонок NUMERIC(12, 2).
const moneyPlaces = 2

// Calculate рассчитывает скидку для суммы subtotal. Скидка округляется до копеек
// банковским округлением, итог не бывает отрицательным.
func (d DiscountSettings) Calculate(subtotal decimal.Decimal) Discount {
	if !d.Enabled || !d.Value.IsPositive() {
		return Discount{Amount: decimal.Zero, FinalTotal: subtotal}
	}

	var amount decimal.Decimal
	if d.Type == DiscountPercentage {
		amount = subtotal.Mul(d.Value).Div(decimal.NewFromInt(100))
	} else {
		amount = d.Value
	}
	amount = amount.RoundBank(moneyPlaces)

	final := subtotal.Sub(amount).RoundBank(moneyPlaces)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return Discount{Amount: amount, FinalTotal: final}
}
