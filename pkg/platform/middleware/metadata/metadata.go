package metadata

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"kitmatch/pkg/requestcontext"
)

// ClientMetadata stores the client IP and User-Agent in the context. The IP
// is the TCP peer; forwarding headers are ignored. Deployments behind a
// proxy use NewResolver with the proxy addresses instead.
func ClientMetadata(next http.Handler) http.Handler {
	return NewResolver(nil).Middleware(next)
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	return requestcontext.ClientIP(ctx)
}

// GetUserAgent retrieves the User-Agent from the context.
func GetUserAgent(ctx context.Context) string {
	return requestcontext.UserAgent(ctx)
}

// Resolver derives the client address the rate limiter keys on.
// X-Forwarded-For and X-Real-IP are only read when the TCP peer is one of
// the trusted proxies; any other caller could put anything there.
type Resolver struct {
	trusted []netip.Prefix
}

func NewResolver(trusted []netip.Prefix) *Resolver {
	return &Resolver{trusted: trusted}
}

func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), res.ClientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the peer address unless the peer is a trusted proxy. In
// that case it walks X-Forwarded-For from the right and returns the first hop
// that is not itself a trusted proxy, falling back to X-Real-IP.
func (res *Resolver) ClientIP(r *http.Request) string {
	peer, ok := parseAddr(r.RemoteAddr)
	if !ok {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	if !res.isTrusted(peer) {
		return peer.String()
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, ok := parseAddr(strings.TrimSpace(hops[i]))
		if !ok {
			break
		}
		if !res.isTrusted(hop) {
			return hop.String()
		}
	}
	if real, ok := parseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ok {
		return real.String()
	}
	return peer.String()
}

func (res *Resolver) isTrusted(addr netip.Addr) bool {
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// parseAddr accepts "ip" or "ip:port" and unmaps IPv4-in-IPv6.
func parseAddr(s string) (netip.Addr, bool) {
	if s == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

// AnonymizeIP truncates an address for logging: the last octet of IPv4 and
// the last 80 bits of IPv6 are zeroed.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return parsed.Mask(net.CIDRMask(48, 128)).String()
}

// DeviceSummary reduces a User-Agent header to "browser/os" for request logs.
func DeviceSummary(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	platform := ua.OSInfo().Name
	if browser == "" {
		browser = "unknown"
	}
	if platform == "" {
		platform = "unknown"
	}
	if ua.Mobile() {
		return browser + "/" + platform + " (mobile)"
	}
	return browser + "/" + platform
}
