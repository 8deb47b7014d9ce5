package metadata

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverClientIP(t *testing.T) {
	proxies := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("2001:db8:ffff::/48"),
	}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr ipv4", nil, nil, "192.0.2.10:5555", "192.0.2.10"},
		{"remote addr ipv6", nil, nil, "[2001:db8::1]:5555", "2001:db8::1"},
		{"mapped ipv4 peer", nil, nil, "[::ffff:192.0.2.10]:5555", "192.0.2.10"},
		{"forwarded ignored without trusted proxies", nil, map[string]string{"X-Forwarded-For": "198.51.100.9"}, "203.0.113.7:5555", "203.0.113.7"},
		{"real ip ignored without trusted proxies", nil, map[string]string{"X-Real-IP": "198.51.100.9"}, "203.0.113.7:5555", "203.0.113.7"},
		{"forwarded ignored from untrusted peer", proxies, map[string]string{"X-Forwarded-For": "198.51.100.9"}, "203.0.113.7:5555", "203.0.113.7"},
		{"trusted peer forwards client", proxies, map[string]string{"X-Forwarded-For": "198.51.100.9"}, "10.0.0.2:1234", "198.51.100.9"},
		{"rightmost untrusted hop wins", proxies, map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.9, 10.0.0.5"}, "10.0.0.2:1234", "198.51.100.9"},
		{"trusted ipv6 proxy", proxies, map[string]string{"X-Forwarded-For": "198.51.100.9"}, "[2001:db8:ffff::1]:443", "198.51.100.9"},
		{"garbage hop stops the walk", proxies, map[string]string{"X-Forwarded-For": "198.51.100.9, nonsense"}, "10.0.0.2:1234", "10.0.0.2"},
		{"real ip from trusted peer", proxies, map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.2:1234", "198.51.100.4"},
		{"only proxies in chain", proxies, map[string]string{"X-Forwarded-For": "10.1.1.1, 10.0.0.5"}, "10.0.0.2:1234", "10.0.0.2"},
		{"empty remote", nil, nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, NewResolver(tt.trusted).ClientIP(r))
		})
	}
}

func TestClientMetadataMiddleware(t *testing.T) {
	var gotIP, gotUA string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = GetClientIP(r.Context())
		gotUA = GetUserAgent(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/donors", nil)
	r.RemoteAddr = "192.0.2.44:9999"
	r.Header.Set("User-Agent", "curl/8.0")
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.0.2.44", gotIP)
	assert.Equal(t, "curl/8.0", gotUA)
}

func TestAnonymizeIP(t *testing.T) {
	assert.Equal(t, "203.0.113.0", AnonymizeIP("203.0.113.77"))
	assert.Equal(t, "2001:db8:1::", AnonymizeIP("2001:db8:1:2:3:4:5:6"))
	assert.Equal(t, "", AnonymizeIP("not-an-ip"))
}

func TestDeviceSummary(t *testing.T) {
	assert.Equal(t, "unknown", DeviceSummary(""))
	summary := DeviceSummary("Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36")
	assert.Contains(t, summary, "Chrome")
	assert.Contains(t, summary, "(mobile)")
}
