// Package repository содержит реализации хранилища витрины: PostgreSQL и in-memory.
package repository

import "errors"

// ErrUserExists возвращается при попытке создать пользователя с уже занятым email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound возвращается, если товара с таким идентификатором нет.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказа с таким идентификатором нет.
	ErrOrderNotFound = errors.New("order not found")
	// ErrConversationNotFound возвращается, если диалог не найден.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrSettingsNotFound возвращается, если документ настроек ещё не создан.
	ErrSettingsNotFound = errors.New("settings not found")
)

const settingsKey = "site_settings"
