package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

// DefaultAdminPassword используется для входа "admin", если пароль не задан конфигурацией.
const DefaultAdminPassword = "Mafi123"

const (
	adminLogin      = "admin"
	adminID         = "admin"
	adminEmail      = "admin@crimezone.com"
	adminGmailEmail = "admin@gmail.com"
	adminGmailPass  = "admin123"
	adminGmailID    = "admin-gmail"
)

// Register регистрирует нового покупателя и возвращает его учётную запись.
func (s *Service) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, ErrInvalidCredentials
	}
	if !validation.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         model.RoleUser,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login проверяет учётные данные. Служебные учётные записи администратора проверяются первыми
// и не хранятся в репозитории.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)

	switch {
	case email == adminLogin && password == s.adminPassword:
		return &model.User{ID: adminID, Email: adminEmail, Name: "Admin", Role: model.RoleAdmin}, nil
	case email == adminGmailEmail && password == adminGmailPass:
		return &model.User{ID: adminGmailID, Email: adminGmailEmail, Name: "Admin", Role: model.RoleAdmin}, nil
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return u, nil
}

// ListUsers возвращает зарегистрированных пользователей для админки.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}
