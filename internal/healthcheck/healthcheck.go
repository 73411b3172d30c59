// Package healthcheck probes a running leaddesk instance through its API banner.
package healthcheck

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const probePath = "/api"

var ErrNotLocal = errors.New("healthcheck: can only check health on localhost")

type Options struct {
	Timeout      time.Duration
	IgnoreBadTLS bool
}

// transport is replaced in tests so the client trusts httptest certificates.
var transport http.RoundTripper

type banner struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

func isLocal(hostname string) bool {
	if strings.EqualFold(hostname, "localhost") {
		return true
	}
	addr, err := netip.ParseAddr(hostname)
	return err == nil && addr.IsLoopback()
}

func newClient(opts Options) *http.Client {
	rt := transport
	if opts.IgnoreBadTLS {
		log.Warn().Msg("ignoring bad HTTPS certificates from server")
		rt = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 -- doing this at user's option
			},
		}
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: rt,
		// a redirect means the banner route is not being served
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// CheckHealth asks the instance at host for its API banner. Only a 200 carrying the JSON banner counts as healthy.
func CheckHealth(ctx context.Context, host string, opts Options) error {
	target, err := url.JoinPath(host, probePath)
	if err != nil {
		return fmt.Errorf("healthcheck: CheckHealth: bad host: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("healthcheck: CheckHealth: %w", err)
	}

	if !isLocal(req.URL.Hostname()) {
		return ErrNotLocal
	}

	log.Info().Str("target", target).Msg("starting health check")

	res, err := newClient(opts).Do(req) // #nosec G704 -- we limit this to localhost only
	if err != nil {
		return fmt.Errorf("healthcheck: CheckHealth: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Error().Str("target", target).Str("status", res.Status).Msg("bad status from server")
		return fmt.Errorf("healthcheck: CheckHealth: bad status from server: %s", res.Status)
	}

	var b banner
	if err := json.NewDecoder(res.Body).Decode(&b); err != nil {
		return fmt.Errorf("healthcheck: CheckHealth: unexpected response body: %w", err)
	}
	if b.Message == "" {
		return errors.New("healthcheck: CheckHealth: unexpected response body: no banner message")
	}

	log.Debug().Str("version", b.Version).Msg("server answered")
	return nil
}
