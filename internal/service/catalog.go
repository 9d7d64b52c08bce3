package service

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
)

//go:embed seed/catalog.yaml
var defaultCatalogSeed []byte

type catalogSeed struct {
	Products []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Price       string `yaml:"price"`
		Image       string `yaml:"image"`
		Category    string `yaml:"category"`
		Stock       int    `yaml:"stock"`
	} `yaml:"products"`
}

// LoadCatalogSeed читает товары для начального наполнения каталога.
// Пустой path означает встроенный набор.
func LoadCatalogSeed(path string) ([]model.Product, error) {
	data := defaultCatalogSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog seed: %w", err)
		}
		data = b
	}

	var seed catalogSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}

	products := make([]model.Product, 0, len(seed.Products))
	for _, p := range seed.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("parse price of %q: %w", p.Name, err)
		}
		products = append(products, model.Product{
			Name:        p.Name,
			Description: p.Description,
			Price:       price,
			Image:       p.Image,
			Category:    p.Category,
			Stock:       p.Stock,
		})
	}
	return products, nil
}

// SeedCatalog добавляет товары, только если каталог пуст. Возвращает число добавленных товаров.
func (s *Service) SeedCatalog(ctx context.Context, products []model.Product) (int, error) {
	existing, err := s.repo.ListProducts(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, p := range products {
		if _, err := s.CreateProduct(ctx, p); err != nil {
			return i, fmt.Errorf("seed product %q: %w", p.Name, err)
		}
	}
	s.logger.Info("catalog seeded", zap.Int("products", len(products)))
	return len(products), nil
}

// ListProducts возвращает весь каталог.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx)
}

// SearchProducts ищет товары по названию, описанию и категории без учёта регистра.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]model.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.ListProducts(ctx)
	}
	return s.repo.SearchProducts(ctx, query)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct добавляет товар в каталог, присваивая идентификатор и время создания.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	p.ID = uuid.NewString()
	p.CreatedAt = s.now()
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Event{Kind: notify.KindCatalogUpdated})
	return &p, nil
}

// UpdateProduct применяет частичное изменение товара.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, ErrInvalidProduct
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, ErrInvalidProduct
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, ErrInvalidProduct
	}

	p, err := s.repo.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.Event{Kind: notify.KindCatalogUpdated})
	return p, nil
}

// DeleteProduct удаляет товар. Снимки товара в заказах не затрагиваются.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, notify.Event{Kind: notify.KindCatalogUpdated})
	return nil
}

func validateProduct(p model.Product) error {
	if strings.TrimSpace(p.Name) == "" || p.Price.IsNegative() || p.Stock < 0 {
		return ErrInvalidProduct
	}
	return nil
}
