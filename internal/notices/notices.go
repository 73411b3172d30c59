// Package notices holds banner messages shown to staff on the dashboard, such as configuration warnings.
package notices

import (
	"maps"
	"slices"
	"sync"
)

const (
	DefaultAdminPassword = "default-admin-password"
	NoTrustedProxies     = "no-trusted-proxies"
)

type Notice struct {
	ID      string
	Message string
}

var (
	notices     = map[string]string{}
	noticesLock sync.RWMutex
)

// AddMessage registers a notice. An existing notice with the same id is left as is.
func AddMessage(id string, message string) {
	noticesLock.Lock()
	defer noticesLock.Unlock()

	if _, exists := notices[id]; exists {
		return
	}
	notices[id] = message
}

func DeleteMessage(id string) {
	noticesLock.Lock()
	defer noticesLock.Unlock()

	delete(notices, id)
}

// GetNotices returns a copy of every notice ordered by id.
func GetNotices() []Notice {
	noticesLock.RLock()
	defer noticesLock.RUnlock()

	ret := make([]Notice, 0, len(notices))
	for _, id := range slices.Sorted(maps.Keys(notices)) {
		ret = append(ret, Notice{ID: id, Message: notices[id]})
	}
	return ret
}

func Reset() {
	noticesLock.Lock()
	defer noticesLock.Unlock()

	notices = map[string]string{}
}
