package securityheaders

import (
	"net/http"
	"strings"
)

const basePolicy = "default-src 'self'; style-src 'self'; img-src 'self' data:; form-action 'self'"

// privatePrefixes are staff-only pages that browsers and proxies must not cache.
var privatePrefixes = []string{"/admin", "/account", "/login"}

type Middleware struct {
	handler http.Handler
	policy  string
	denyAll bool
}

// NewSecurityHeadersMiddleware wraps next. frameAncestors lists the sites allowed to embed the public contact form;
// when empty no site may frame any page.
func NewSecurityHeadersMiddleware(next http.Handler, frameAncestors []string) *Middleware {
	m := &Middleware{handler: next}

	if len(frameAncestors) == 0 {
		m.denyAll = true
		m.policy = basePolicy + "; frame-ancestors 'none'"
	} else {
		m.policy = basePolicy + "; frame-ancestors 'self' " + strings.Join(frameAncestors, " ")
	}

	return m
}

func isPrivate(path string) bool {
	for _, p := range privatePrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()

	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Content-Security-Policy", m.policy)

	// panel pages are never framed, whatever the public form allows
	if m.denyAll || isPrivate(r.URL.Path) {
		h.Set("X-Frame-Options", "DENY")
	}

	if isPrivate(r.URL.Path) {
		h.Set("Cache-Control", "no-store")
	}

	m.handler.ServeHTTP(w, r)
}
