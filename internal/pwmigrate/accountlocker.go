package pwmigrate

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// accountLocks hands out one mutex per account ID so only one login rewrites a given hash at a time. Entries expire
// after a few idle minutes. The loader is suppressed so concurrent first lookups of the same ID share one mutex.
var accountLocks = ttlcache.New[string, *sync.Mutex](
	ttlcache.WithTTL[string, *sync.Mutex](5*time.Minute),
	ttlcache.WithLoader[string, *sync.Mutex](ttlcache.NewSuppressedLoader[string, *sync.Mutex](
		ttlcache.LoaderFunc[string, *sync.Mutex](
			func(c *ttlcache.Cache[string, *sync.Mutex], accountID string) *ttlcache.Item[string, *sync.Mutex] {
				return c.Set(accountID, &sync.Mutex{}, ttlcache.DefaultTTL)
			},
		),
		nil,
	)),
)

func tryLockAccount(accountID string) bool {
	return accountLocks.Get(accountID).Value().TryLock()
}

func unlockAccount(accountID string) {
	accountLocks.Get(accountID).Value().Unlock()
}
