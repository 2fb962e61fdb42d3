package middleware

import (
	"net"
	"net/http"
	"strings"
)

// trustList holds the proxy addresses whose forwarded headers we believe.
type trustList struct {
	nets []*net.IPNet
	ips  []net.IP
}

// RealIP returns middleware that resolves the real client IP and stores it
// in the X-Real-IP header for downstream handlers and logging.
//
// Forwarded headers (CF-Connecting-IP, X-Forwarded-For) are only honored
// when the direct peer is one of the configured trusted proxies, given as
// IP addresses (e.g., "192.168.1.1") or CIDRs (e.g., "10.0.0.0/8").
func RealIP(trustedProxies []string) func(http.Handler) http.Handler {
	trust := newTrustList(trustedProxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := resolveClientIP(r, trust); ip != "" {
				r.Header.Set("X-Real-IP", ip)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newTrustList(trustedProxies []string) *trustList {
	t := &trustList{}

	for _, proxy := range trustedProxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}

		// CIDR form first
		if strings.Contains(proxy, "/") {
			_, network, err := net.ParseCIDR(proxy)
			if err == nil {
				t.nets = append(t.nets, network)
				continue
			}
		}

		if ip := net.ParseIP(proxy); ip != nil {
			t.ips = append(t.ips, ip)
		}
	}

	return t
}

// resolveClientIP returns the best guess at the true client address.
// Requests arriving from untrusted peers keep their direct RemoteAddr.
func resolveClientIP(r *http.Request, trust *trustList) string {
	remoteIP := stripPort(r.RemoteAddr)

	if !trust.contains(remoteIP) {
		return remoteIP
	}

	// Cloudflare's header takes priority when present
	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return strings.TrimSpace(cfIP)
	}

	// First entry of X-Forwarded-For is the originating client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	return remoteIP
}

func (t *trustList) contains(ipStr string) bool {
	if len(t.nets) == 0 && len(t.ips) == 0 {
		return false
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	for _, network := range t.nets {
		if network.Contains(ip) {
			return true
		}
	}

	for _, trusted := range t.ips {
		if trusted.Equal(ip) {
			return true
		}
	}

	return false
}

// stripPort extracts just the IP from RemoteAddr (which may include port)
func stripPort(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil {
		return host
	}

	// IPv6 without port parses directly
	if ip := net.ParseIP(remoteAddr); ip != nil {
		return remoteAddr
	}

	return remoteAddr
}
