package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MISHA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageBackendRedis  = "redis"
	StorageBackendSQLite = "sqlite"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Catalog  CatalogConfig
	Pricing  PricingConfig
	Delivery DeliveryConfig
	Cart     CartConfig
	Sync     SyncConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == StorageBackendRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("redis url or address is required for the redis storage backend")
	}
	if _, err := cfg.Pricing.ParseTiers(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MISHA_APP_ENV" required:"true"`
	Port         string `envconfig:"MISHA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MISHA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MISHA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"MISHA_REDIS_URL"`
	Address      string        `envconfig:"MISHA_REDIS_ADDR"`
	Password     string        `envconfig:"MISHA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MISHA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MISHA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MISHA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MISHA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MISHA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MISHA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// StorageConfig selects the durable slot backend for persisted carts.
type StorageConfig struct {
	Backend    string `envconfig:"MISHA_STORAGE_BACKEND" default:"redis"`
	SQLitePath string `envconfig:"MISHA_STORAGE_SQLITE_PATH" default:"data/carts.db"`
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case StorageBackendRedis, StorageBackendSQLite:
		return nil
	}
	return fmt.Errorf("unknown storage backend %q", s.Backend)
}

type CatalogConfig struct {
	Path string `envconfig:"MISHA_CATALOG_PATH" default:"configs/products.json"`
}

// PricingConfig carries the bulk discount tier table as "minAmount:percent"
// pairs, highest tier wins, non-stacking.
type PricingConfig struct {
	BulkTiers string `envconfig:"MISHA_PRICING_BULK_TIERS" default:"10000:5,25000:10,50000:15,100000:20"`
}

// Tier is one bulk discount rule.
type Tier struct {
	MinAmount float64
	Percent   int
}

func (p PricingConfig) ParseTiers() ([]Tier, error) {
	raw := strings.TrimSpace(p.BulkTiers)
	if raw == "" {
		return nil, nil
	}
	var tiers []Tier
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid bulk tier %q", pair)
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bulk tier amount %q: %w", parts[0], err)
		}
		pct, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid bulk tier percent %q: %w", parts[1], err)
		}
		tiers = append(tiers, Tier{MinAmount: min, Percent: pct})
	}
	return tiers, nil
}

type DeliveryConfig struct {
	DefaultRegion        string  `envconfig:"MISHA_DELIVERY_DEFAULT_REGION" default:"nairobi"`
	NairobiStandard      float64 `envconfig:"MISHA_DELIVERY_NAIROBI_STANDARD" default:"300"`
	NairobiExpress       float64 `envconfig:"MISHA_DELIVERY_NAIROBI_EXPRESS" default:"500"`
	NairobiFreeThreshold float64 `envconfig:"MISHA_DELIVERY_NAIROBI_FREE_THRESHOLD" default:"2000"`
	OtherStandard        float64 `envconfig:"MISHA_DELIVERY_OTHER_STANDARD" default:"500"`
	OtherExpress         float64 `envconfig:"MISHA_DELIVERY_OTHER_EXPRESS" default:"800"`
	OtherFreeThreshold   float64 `envconfig:"MISHA_DELIVERY_OTHER_FREE_THRESHOLD" default:"5000"`
}

type CartConfig struct {
	StorageKey  string `envconfig:"MISHA_CART_STORAGE_KEY" default:"misha_foodstuffs_cart_v2"`
	BackupKeep  int    `envconfig:"MISHA_CART_BACKUP_KEEP" default:"3"`
	WarnOnClamp bool   `envconfig:"MISHA_CART_WARN_ON_CLAMP" default:"false"`
}

type SyncConfig struct {
	Channel string `envconfig:"MISHA_SYNC_CHANNEL" default:"misha:cart:events"`
}

type CheckoutConfig struct {
	WhatsAppNumber string `envconfig:"MISHA_CHECKOUT_WHATSAPP_NUMBER" default:"+254797005509"`
}
