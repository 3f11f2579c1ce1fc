package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roomly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	// StrategyConditional admits via a single conditional upsert;
	// StrategyTransactional serializes per room behind an advisory lock and a
	// multi-document transaction. Both honor the same admission contract.
	StrategyConditional   = "conditional"
	StrategyTransactional = "transactional"

	DefaultAdmissionStrategy = StrategyConditional
	DefaultAdmissionLockTTL  = 10 * time.Second

	DefaultCacheTTL             = 5 * time.Minute
	DefaultCacheCleanupInterval = 10 * time.Minute

	DefaultKafkaTopic = "roomly.reservations"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
