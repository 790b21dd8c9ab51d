package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// ContextCache is a write-through cache of per-chat session context maps so
// GetContext on the realtime hot path does not hit the database. Persisted
// state on the session row stays authoritative; entries here are evicted on
// write and expire on their own.
type ContextCache struct {
	cache *cache.Cache
}

func NewContextCache() *ContextCache {
	// Default expiration 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ContextCache{
		cache: c,
	}
}

func (r *ContextCache) Save(chatID string, contextMap map[string]interface{}) {
	r.cache.Set(chatID, contextMap, cache.DefaultExpiration)
}

func (r *ContextCache) Get(chatID string) (map[string]interface{}, bool) {
	if x, found := r.cache.Get(chatID); found {
		return x.(map[string]interface{}), true
	}
	return nil, false
}

func (r *ContextCache) Delete(chatID string) {
	r.cache.Delete(chatID)
}
