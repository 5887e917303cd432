package local

import (
	"context"
	"sync"
	"time"

	goasidecache "github.com/dgduncan/go-aside-cache"
	"github.com/dgduncan/go-aside-cache/caches"
)

// BasicCache keeps bundles in a map. The ttl passed to Save is ignored; the
// transport decides expiry from Bundle.ExpiresAt.
type BasicCache struct {
	cache map[string]*goasidecache.Bundle

	lock *sync.RWMutex
}

var _ goasidecache.Cache = BasicCache{}

func (bc BasicCache) Contains(_ context.Context, key string) (bool, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	_, found := bc.cache[key]
	return found, nil
}

func (bc BasicCache) Fetch(_ context.Context, key string) (*goasidecache.Bundle, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	val, found := bc.cache[key]
	if !found {
		return nil, caches.ErrNotFound
	}

	return val, nil
}

func (bc BasicCache) Save(_ context.Context, key string, item *goasidecache.Bundle, _ time.Duration) error {
	bc.lock.Lock()
	defer bc.lock.Unlock()

	bc.cache[key] = item

	return nil
}

func (bc BasicCache) Delete(_ context.Context, key string) error {
	bc.lock.Lock()
	defer bc.lock.Unlock()

	delete(bc.cache, key)

	return nil
}

// Len returns the number of stored bundles, fresh or not.
func (bc BasicCache) Len() int {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	return len(bc.cache)
}

func NewBasicCache() BasicCache {
	return BasicCache{
		cache: make(map[string]*goasidecache.Bundle),
		lock:  &sync.RWMutex{},
	}
}
