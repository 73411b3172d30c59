package trueip

import (
	"net/netip"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/config"
)

const (
	trustedProxiesConfigKey = "security.trusted_proxies.network"
	updateDebounceTime      = 100 * time.Millisecond
)

// parseTrusted accepts "10.0.0.1" or "172.16.0.0/12". A bare address becomes a single host prefix.
func parseTrusted(s string) (netip.Prefix, bool) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Masked(), true
	}
	if a, err := netip.ParseAddr(s); err == nil {
		a = a.Unmap()
		return netip.PrefixFrom(a, a.BitLen()), true
	}
	return netip.Prefix{}, false
}

// viperProvider trusts the addresses and networks listed in the config file.
type viperProvider struct {
	updateLock     sync.RWMutex
	lastUpdateTime time.Time

	trusted []netip.Prefix
}

func (vp *viperProvider) updateTrustedProxies() {
	vp.updateLock.Lock()
	defer vp.updateLock.Unlock()

	// fsnotify tends to fire several events for one save
	if time.Since(vp.lastUpdateTime) < updateDebounceTime {
		return
	}

	var trusted []netip.Prefix
	for _, curr := range viper.GetStringSlice(trustedProxiesConfigKey) {
		p, ok := parseTrusted(curr)
		if !ok {
			log.Warn().Str("input", curr).Msg("could not parse trusted proxy as CIDR or IP")
			continue
		}
		log.Debug().Str("prefix", p.String()).Msg("adding trusted proxy")
		trusted = append(trusted, p)
	}

	log.Info().Int("trusted_proxy_count", len(trusted)).Msg("loaded trusted proxies")
	vp.trusted = trusted
	vp.lastUpdateTime = time.Now()
}

func (vp *viperProvider) IsProxyTrusted(addr netip.Addr) bool {
	vp.updateLock.RLock()
	defer vp.updateLock.RUnlock()

	addr = addr.Unmap()
	for _, p := range vp.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (vp *viperProvider) ContainsProxies() bool {
	vp.updateLock.RLock()
	defer vp.updateLock.RUnlock()

	return len(vp.trusted) > 0
}

func newViperProvider() *viperProvider {
	vp := &viperProvider{}
	config.RegisterForUpdates(func(event fsnotify.Event) {
		vp.updateTrustedProxies()
	})

	vp.updateTrustedProxies()
	return vp
}
