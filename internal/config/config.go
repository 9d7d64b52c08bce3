// Package config содержит логику чтения конфигурации витрины.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress   = "localhost:8080"
	defaultPollInterval = 2 * time.Second
	defaultProofsBucket = "payment-proofs"
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress               string        `env:"RUN_ADDRESS"`
	DatabaseURI              string        `env:"DATABASE_URI"`
	FulfillmentSystemAddress string        `env:"FULFILLMENT_SYSTEM_ADDRESS"`
	RedisAddress             string        `env:"REDIS_ADDRESS"`
	RedisPassword            string        `env:"REDIS_PASSWORD"`
	RedisChannel             string        `env:"REDIS_CHANNEL"`
	AuthSecret               string        `env:"AUTH_SECRET"`
	AdminPassword            string        `env:"ADMIN_PASSWORD"`
	PollInterval             time.Duration `env:"POLL_INTERVAL"`
	CatalogSeedFile          string        `env:"CATALOG_SEED_FILE"`

	ObjectStore ObjectStoreConfig
}

// ObjectStoreConfig описывает подключение к хранилищу подтверждений оплаты. Пустой Endpoint отключает хранилище.
type ObjectStoreConfig struct {
	Endpoint  string `env:"OBJECT_STORE_ENDPOINT"`
	AccessKey string `env:"OBJECT_STORE_ACCESS_KEY"`
	SecretKey string `env:"OBJECT_STORE_SECRET_KEY"`
	Bucket    string `env:"OBJECT_STORE_BUCKET"`
	UseSSL    bool   `env:"OBJECT_STORE_USE_SSL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envFulfillmentAddress := cfg.FulfillmentSystemAddress
	envRedisAddress := cfg.RedisAddress
	envAuthSecret := cfg.AuthSecret
	envPollInterval := cfg.PollInterval
	envCatalogSeedFile := cfg.CatalogSeedFile

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory storage when empty")
	flag.StringVar(&cfg.FulfillmentSystemAddress, "f", "", "fulfillment system address")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for the change feed")
	flag.StringVar(&cfg.AuthSecret, "s", "", "session signing secret")
	flag.DurationVar(&cfg.PollInterval, "p", defaultPollInterval, "change feed tick interval")
	flag.StringVar(&cfg.CatalogSeedFile, "seed", "", "catalog seed YAML file")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envFulfillmentAddress != "" {
		cfg.FulfillmentSystemAddress = envFulfillmentAddress
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envPollInterval > 0 {
		cfg.PollInterval = envPollInterval
	}
	if envCatalogSeedFile != "" {
		cfg.CatalogSeedFile = envCatalogSeedFile
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ObjectStore.Bucket == "" {
		cfg.ObjectStore.Bucket = defaultProofsBucket
	}

	return cfg, nil
}
