// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// OrderIDPrefix предшествует UUID в номере заказа.
const OrderIDPrefix = "ORD-"

// IsValidOrderID проверяет, что номер заказа имеет вид ORD-<uuid>.
func IsValidOrderID(id string) bool {
	rest, ok := strings.CutPrefix(id, OrderIDPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil && len(rest) == 36
}

// IsValidEmail проверяет адрес электронной почты без отображаемого имени.
func IsValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t\r\n<>") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && addr.Name == ""
}
