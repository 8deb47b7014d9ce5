package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 6, cfg.PickupCode.Length)
	assert.Equal(t, 20, cfg.PickupCode.MaxAttempts)
	assert.Equal(t, Limit{Requests: 5, Window: 300 * time.Second}, cfg.RateLimit.DonorForm)
	assert.Equal(t, FailurePolicyOpen, cfg.RateLimit.FailurePolicy)
	assert.Equal(t, []string{"log"}, cfg.Notify.Transports)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 3*time.Second, cfg.Notify.DeliveryTimeout)
	assert.Empty(t, cfg.Database.DSN, "memory store by default")
	assert.Empty(t, cfg.Server.TrustedProxies, "forwarding headers ignored by default")
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PICKUP_CODE_LENGTH", "8")
	t.Setenv("RATE_LIMIT_PICKUP_CONFIRM", "3/1m")
	t.Setenv("RATE_LIMIT_FAILURE_POLICY", "CLOSED")
	t.Setenv("NOTIFY_TRANSPORTS", "log, Kafka,log")
	t.Setenv("KAFKA_BROKERS", "localhost:9092,localhost:9093")
	t.Setenv("PUBLIC_BASE_URL", "https://kits.example.org/")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1, 2001:db8::/32")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.PickupCode.Length)
	assert.Equal(t, Limit{Requests: 3, Window: time.Minute}, cfg.RateLimit.PickupConfirm)
	assert.Equal(t, FailurePolicyClosed, cfg.RateLimit.FailurePolicy)
	assert.Equal(t, []string{"log", "kafka"}, cfg.Notify.Transports)
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, cfg.Notify.KafkaBrokers)
	assert.Equal(t, "https://kits.example.org", cfg.Server.PublicBaseURL)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.1/32"),
		netip.MustParsePrefix("2001:db8::/32"),
	}, cfg.Server.TrustedProxies)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"code too short":        {"PICKUP_CODE_LENGTH": "3"},
		"code too long":         {"PICKUP_CODE_LENGTH": "9"},
		"bad policy":            {"RATE_LIMIT_FAILURE_POLICY": "maybe"},
		"bad limit":             {"RATE_LIMIT_DONOR": "five"},
		"kafka without brokers": {"NOTIFY_TRANSPORTS": "kafka"},
		"unknown transport":     {"NOTIFY_TRANSPORTS": "sms"},
		"bad duration":          {"STORE_TIMEOUT": "soon"},
		"bad trusted proxy":     {"TRUSTED_PROXIES": "10.0.0.0/8,lb.internal"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
