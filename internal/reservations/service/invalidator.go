package service

import (
	"roomly/pkg/cache"
	"roomly/pkg/logger"
)

const roomDirectoryKey = "rooms:directory"

func roomDetailKey(roomID string) string {
	return "room:" + roomID
}

// CacheInvalidator expires the cached read-models a successful admission or
// cancellation makes stale. It is strictly best-effort: the reservation is
// already durable by the time this runs, so failures are logged and swallowed.
type CacheInvalidator struct {
	cache cache.Cache
	log   *logger.Logger
}

func NewCacheInvalidator(c cache.Cache, log *logger.Logger) *CacheInvalidator {
	return &CacheInvalidator{cache: c, log: log}
}

func (ci *CacheInvalidator) Invalidate(roomID string) {
	defer func() {
		if r := recover(); r != nil {
			ci.log.Warn("Cache invalidation failed", "room_id", roomID, "error", r)
		}
	}()

	ci.cache.Invalidate(roomDetailKey(roomID))
	ci.cache.Invalidate(roomDirectoryKey)
}
