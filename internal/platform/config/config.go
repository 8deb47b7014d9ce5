package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "kitmatch/pkg/platform/strings"
)

// Config is the full service configuration, read once at startup.
type Config struct {
	Server     Server
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	PickupCode PickupCodeConfig
	Notify     NotifyConfig

	// StoreTimeout bounds every record store transaction.
	StoreTimeout time.Duration
	LogLevel     string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
	// PublicBaseURL prefixes redemption URLs handed to the QR renderer.
	PublicBaseURL      string
	CORSAllowedOrigins []string
	// TrustedProxies are the peers whose X-Forwarded-For is believed. Empty
	// means the rate limiter keys on the TCP peer only.
	TrustedProxies []netip.Prefix
}

// DatabaseConfig selects the record store. An empty DSN means in-memory.
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the rate limit counter store. An empty URL means
// in-memory counters.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AuthConfig struct {
	JWTSigningKey          string
	Issuer                 string
	TokenTTL               time.Duration
	BootstrapAdminUsername string
	BootstrapAdminPassword string
}

// Limit is a fixed-window allowance.
type Limit struct {
	Requests int
	Window   time.Duration
}

type RateLimitConfig struct {
	Disabled bool
	// FailurePolicy is "open" (allow when the counter store fails) or "closed".
	FailurePolicy string
	DonorForm     Limit
	ReceiverForm  Limit
	PickupCheck   Limit
	PickupConfirm Limit
	Login         Limit
}

type PickupCodeConfig struct {
	Length      int
	MaxAttempts int
}

type NotifyConfig struct {
	// Transports lists enabled sinks: log, kafka, webhook, telegram.
	Transports     []string
	KafkaBrokers   []string
	KafkaTopic     string
	WebhookURL     string
	WebhookToken   string
	TelegramToken  string
	TelegramChatID int64
	// DeliveryTimeout bounds one fan-out; intake waits on it.
	DeliveryTimeout time.Duration
}

const (
	FailurePolicyOpen   = "open"
	FailurePolicyClosed = "closed"
)

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (*Config, error) {
	var errs []string
	e := &envReader{errs: &errs}

	cfg := &Config{
		Server: Server{
			Addr:               e.str("KITMATCH_ADDR", ":8080"),
			PublicBaseURL:      strings.TrimRight(e.str("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			CORSAllowedOrigins: e.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
			TrustedProxies:     e.prefixes("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			Driver:          e.str("DATABASE_DRIVER", "pgx"),
			DSN:             e.str("DATABASE_URL", ""),
			MaxOpenConns:    e.num("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    e.num("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.num("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.num("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Auth: AuthConfig{
			// Use a default for development - should be overridden in production
			JWTSigningKey:          e.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:                 e.str("JWT_ISSUER", "kitmatch"),
			TokenTTL:               e.duration("TOKEN_TTL", 12*time.Hour),
			BootstrapAdminUsername: e.str("BOOTSTRAP_ADMIN_USERNAME", ""),
			BootstrapAdminPassword: e.str("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
		RateLimit: RateLimitConfig{
			Disabled:      e.flag("RATE_LIMIT_DISABLED", false),
			FailurePolicy: strings.ToLower(e.str("RATE_LIMIT_FAILURE_POLICY", FailurePolicyOpen)),
			DonorForm:     e.limit("RATE_LIMIT_DONOR", Limit{Requests: 5, Window: 300 * time.Second}),
			ReceiverForm:  e.limit("RATE_LIMIT_RECEIVER", Limit{Requests: 5, Window: 300 * time.Second}),
			PickupCheck:   e.limit("RATE_LIMIT_PICKUP_CHECK", Limit{Requests: 30, Window: 300 * time.Second}),
			PickupConfirm: e.limit("RATE_LIMIT_PICKUP_CONFIRM", Limit{Requests: 10, Window: 300 * time.Second}),
			Login:         e.limit("RATE_LIMIT_LOGIN", Limit{Requests: 5, Window: 300 * time.Second}),
		},
		PickupCode: PickupCodeConfig{
			Length:      e.num("PICKUP_CODE_LENGTH", 6),
			MaxAttempts: e.num("PICKUP_CODE_MAX_ATTEMPTS", 20),
		},
		Notify: NotifyConfig{
			Transports:     e.lowerList("NOTIFY_TRANSPORTS", []string{"log"}),
			KafkaBrokers:   e.list("KAFKA_BROKERS", nil),
			KafkaTopic:     e.str("KAFKA_TOPIC", "kitmatch.notifications"),
			WebhookURL:     e.str("WHATSAPP_WEBHOOK_URL", ""),
			WebhookToken:   e.str("WHATSAPP_WEBHOOK_TOKEN", ""),
			TelegramToken:  e.str("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID: int64(e.num("TELEGRAM_CHAT_ID", 0)),

			DeliveryTimeout: e.duration("NOTIFY_DELIVERY_TIMEOUT", 3*time.Second),
		},
		StoreTimeout: e.duration("STORE_TIMEOUT", 5*time.Second),
		LogLevel:     e.str("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string
	if c.PickupCode.Length < 4 || c.PickupCode.Length > 8 {
		problems = append(problems, "PICKUP_CODE_LENGTH must be between 4 and 8")
	}
	if c.PickupCode.MaxAttempts < 1 {
		problems = append(problems, "PICKUP_CODE_MAX_ATTEMPTS must be positive")
	}
	if c.RateLimit.FailurePolicy != FailurePolicyOpen && c.RateLimit.FailurePolicy != FailurePolicyClosed {
		problems = append(problems, "RATE_LIMIT_FAILURE_POLICY must be open or closed")
	}
	if c.Database.Driver != "pgx" && c.Database.Driver != "postgres" {
		problems = append(problems, "DATABASE_DRIVER must be pgx or postgres")
	}
	for _, t := range c.Notify.Transports {
		switch t {
		case "log":
		case "kafka":
			if len(c.Notify.KafkaBrokers) == 0 {
				problems = append(problems, "KAFKA_BROKERS is required for the kafka transport")
			}
		case "webhook":
			if c.Notify.WebhookURL == "" {
				problems = append(problems, "WHATSAPP_WEBHOOK_URL is required for the webhook transport")
			}
		case "telegram":
			if c.Notify.TelegramToken == "" || c.Notify.TelegramChatID == 0 {
				problems = append(problems, "TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required for the telegram transport")
			}
		default:
			problems = append(problems, "unknown notification transport "+t)
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

type envReader struct {
	errs *[]string
}

func (e *envReader) fail(key string, err error) {
	*e.errs = append(*e.errs, fmt.Sprintf("%s: %v", key, err))
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) num(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *envReader) flag(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *envReader) list(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return pstrings.DedupeAndTrim(strings.Split(v, ","))
}

func (e *envReader) lowerList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return pstrings.DedupeAndTrimLower(strings.Split(v, ","))
}

// prefixes reads CIDRs; a bare address is taken as a single host.
func (e *envReader) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, v := range e.list(key, nil) {
		if v == "" {
			continue
		}
		if p, err := netip.ParsePrefix(v); err == nil {
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(v)
		if err != nil {
			e.fail(key, fmt.Errorf("invalid proxy %q", v))
			continue
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out
}

// limit reads "<requests>/<window>", e.g. "5/300s".
func (e *envReader) limit(key string, def Limit) Limit {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	reqs, window, ok := strings.Cut(v, "/")
	if !ok {
		e.fail(key, fmt.Errorf("expected <requests>/<window>, got %q", v))
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(reqs))
	if err != nil || n < 1 {
		e.fail(key, fmt.Errorf("invalid request count %q", reqs))
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(window))
	if err != nil || d <= 0 {
		e.fail(key, fmt.Errorf("invalid window %q", window))
		return def
	}
	return Limit{Requests: n, Window: d}
}
