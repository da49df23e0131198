package config

// Environment variable names shared between Load and the tests.
const (
	EnvAppEnv         = "MISHA_APP_ENV"
	EnvPort           = "MISHA_APP_PORT"
	EnvRedisURL       = "MISHA_REDIS_URL"
	EnvStorageBackend = "MISHA_STORAGE_BACKEND"
	EnvCatalogPath    = "MISHA_CATALOG_PATH"
	EnvBulkTiers      = "MISHA_PRICING_BULK_TIERS"
	EnvCartStorageKey = "MISHA_CART_STORAGE_KEY"
)
