// Package trueip works out the client address behind trusted reverse proxies. Login and lead submission limits are
// keyed on it.
package trueip

import (
	"net/http"
	"net/netip"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/notices"
)

const (
	trustedIpHeaderConfigKey = "security.real_ip_header"

	invalidHeaderNotice = "invalid-trusted-header-name"
)

type trustedProxyProvider interface {
	IsProxyTrusted(addr netip.Addr) bool
	ContainsProxies() bool
}

var (
	provider     trustedProxyProvider
	providerLock sync.RWMutex
)

// Initialize loads the trusted proxy list and keeps it current as the config file changes. With no proxies
// configured, forwarded headers are ignored and a notice is raised for the admins.
func Initialize() {
	vp := newViperProvider()

	providerLock.Lock()
	provider = vp
	providerLock.Unlock()

	updateNotice(vp)
	config.RegisterForUpdates(func(event fsnotify.Event) {
		log.Debug().Msg("reloading trusted proxy config")
		updateNotice(vp)
	})
}

func updateNotice(p trustedProxyProvider) {
	if p.ContainsProxies() {
		notices.DeleteMessage(notices.NoTrustedProxies)
		return
	}
	notices.AddMessage(notices.NoTrustedProxies, "Nenhum proxy confiável configurado (security.trusted_proxies.network). Cabeçalhos X-Forwarded-For são ignorados.")
}

func remoteAddr(r *http.Request) (netip.Addr, bool) {
	ap, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		return netip.Addr{}, false
	}
	return ap.Addr().Unmap(), true
}

func isTrustedProxy(r *http.Request) bool {
	if provider == nil {
		return false
	}

	remote, ok := remoteAddr(r)
	if !ok {
		log.Warn().Str("remote_addr", r.RemoteAddr).Msg("could not parse remote address for testing trusted proxy")
		return false
	}

	if provider.IsProxyTrusted(remote) {
		return true
	}

	log.Debug().Str("remote_ip", remote.String()).Msg("not trusting forwarded headers from unknown proxy")
	return false
}

// safeGetXForwardedFor returns the rightmost X-Forwarded-For entry of the last header, the only one a trusted proxy
// controls. Header.Get would return the first header.
func safeGetXForwardedFor(r *http.Request) string {
	headers := r.Header.Values("X-Forwarded-For")
	if len(headers) == 0 {
		return ""
	}
	parts := strings.Split(headers[len(headers)-1], ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

// normalize returns the canonical form of a forwarded address, or "" when it is not an address at all.
func normalize(s string) string {
	a, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return a.Unmap().String()
}

// Find returns the client address for r. Forwarded headers only count when the peer is a trusted proxy and they hold
// a valid address.
func Find(r *http.Request) string {
	providerLock.RLock()
	defer providerLock.RUnlock()

	if isTrustedProxy(r) {
		if trustedHeaderName := viper.GetString(trustedIpHeaderConfigKey); trustedHeaderName != "" {
			if contents := r.Header.Get(trustedHeaderName); contents != "" {
				if addr := normalize(contents); addr != "" {
					return addr
				}
				log.Warn().Str("trusted_header_name", trustedHeaderName).Str("value", contents).Msg("trusted header does not hold an address")
			} else {
				log.Warn().Str("trusted_header_name", trustedHeaderName).Msg("security.real_ip_header is set, but that header isn't in the request")
				notices.AddMessage(invalidHeaderNotice, "security.real_ip_header está configurado, mas o cabeçalho não aparece nas requisições.")
			}
		} else if fwd := safeGetXForwardedFor(r); fwd != "" {
			if addr := normalize(fwd); addr != "" {
				return addr
			}
			log.Warn().Str("x_forwarded_for", fwd).Msg("ignoring malformed X-Forwarded-For entry")
		}
	}

	if remote, ok := remoteAddr(r); ok {
		return remote.String()
	}

	log.Warn().Str("remote_addr", r.RemoteAddr).Msg("could not parse remote address")
	return r.RemoteAddr
}
