package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	// AdminAPIKey guards diagnostic endpoints. Empty leaves them open.
	AdminAPIKey    string
	// TrustedProxies lists the peers whose X-Forwarded-For is believed. With
	// none configured the client IP is always the TCP peer.
	TrustedProxies []netip.Prefix
}

// Checkin holds the fixed parameters of the check-in decision.
type Checkin struct {
	CheckpointLat       float64
	CheckpointLon       float64
	MaxRadiusMeters     float64
	SimilarityThreshold float64
	TripNumberMax       int
}

// OTP holds one-time password lifecycle settings.
type OTP struct {
	TTL           time.Duration
	CodeLength    int
	// Retention is how long an unverified record is kept after issue. It must
	// exceed TTL so a late verify still reports Expired before the sweeper or
	// the Redis key expiry removes the record.
	Retention     time.Duration
	SweepInterval time.Duration
	Channel       string // "telegram" or "sms"
}

// Telegram configures the bot API delivery channel.
type Telegram struct {
	BotToken string
	APIURL   string
}

// Twilio configures the SMS delivery channel.
type Twilio struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Embedding configures the face embedding sidecar.
type Embedding struct {
	URL     string
	Timeout time.Duration
}

// RedisConfig configures the optional Redis OTP store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Audit configures the optional Kafka audit sink.
type Audit struct {
	KafkaBrokers []string
	Topic        string
	// PhoneHashKey keys the blake2b digest that replaces phones in audit events.
	PhoneHashKey string

	// OperationsSampleRate is the fraction of routine events kept.
	OperationsSampleRate float64
}

// RateLimit configures per-IP request budgets for the public endpoints.
type RateLimit struct {
	Disabled         bool
	OTPPerMinute     int
	CheckinPerMinute int
}

// Config is the full process configuration.
type Config struct {
	Server      Server
	Checkin     Checkin
	OTP         OTP
	Telegram    Telegram
	Twilio      Twilio
	Embedding   Embedding
	Redis       RedisConfig
	Audit       Audit
	RateLimit   RateLimit
	DatabaseURL string
}

// Defaults mirror the single checkpoint the service was first deployed for.
const (
	DefaultAddr                = ":8000"
	DefaultCheckpointLat       = 13.0179
	DefaultCheckpointLon       = 80.2533
	DefaultMaxRadiusMeters     = 50000
	DefaultSimilarityThreshold = 0.75
	DefaultTripNumberMax       = 20
	DefaultOTPTTL              = 300 * time.Second
	DefaultOTPCodeLength       = 6
	DefaultOTPSweepInterval    = 30 * time.Second
	DefaultOTPRetention        = 24 * time.Hour
	DefaultTelegramAPIURL      = "https://api.telegram.org"
	DefaultEmbeddingTimeout    = 10 * time.Second
	DefaultAuditTopic          = "tripmate.audit"
	DefaultOTPPerMinute        = 10
	DefaultCheckinPerMinute    = 20
)

// Load reads a .env file when present and then builds Config from the
// environment. A missing .env is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []string
	num := func(key string, def float64) float64 {
		v, err := envFloat(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	integer := func(key string, def int) int {
		v, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	dur := func(key string, def time.Duration) time.Duration {
		v, err := envDuration(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	proxies, err := parsePrefixes(splitList(os.Getenv("TRUSTED_PROXIES")))
	if err != nil {
		errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES: %v", err))
	}

	cfg := Config{
		Server: Server{
			Addr:           envString("ADDR", DefaultAddr),
			LogLevel:       envString("LOG_LEVEL", "info"),
			AdminAPIKey:    os.Getenv("ADMIN_API_KEY"),
			TrustedProxies: proxies,
		},
		Checkin: Checkin{
			CheckpointLat:       num("CHECKPOINT_LAT", DefaultCheckpointLat),
			CheckpointLon:       num("CHECKPOINT_LON", DefaultCheckpointLon),
			MaxRadiusMeters:     num("MAX_RADIUS_METERS", DefaultMaxRadiusMeters),
			SimilarityThreshold: num("SIMILARITY_THRESHOLD", DefaultSimilarityThreshold),
			TripNumberMax:       integer("TRIP_NUMBER_MAX", DefaultTripNumberMax),
		},
		OTP: OTP{
			TTL:           time.Duration(integer("OTP_TTL_SECONDS", int(DefaultOTPTTL/time.Second))) * time.Second,
			CodeLength:    integer("OTP_CODE_LENGTH", DefaultOTPCodeLength),
			Retention:     dur("OTP_RETENTION", DefaultOTPRetention),
			SweepInterval: dur("OTP_SWEEP_INTERVAL", DefaultOTPSweepInterval),
			Channel:       strings.ToLower(envString("OTP_CHANNEL", "telegram")),
		},
		Telegram: Telegram{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			APIURL:   envString("TELEGRAM_API_URL", DefaultTelegramAPIURL),
		},
		Twilio: Twilio{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		},
		Embedding: Embedding{
			URL:     os.Getenv("EMBEDDING_URL"),
			Timeout: dur("EMBEDDING_TIMEOUT", DefaultEmbeddingTimeout),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  dur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: dur("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: Audit{
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:        envString("AUDIT_TOPIC", DefaultAuditTopic),
			PhoneHashKey: os.Getenv("AUDIT_PHONE_HASH_KEY"),

			OperationsSampleRate: num("AUDIT_OPERATIONS_SAMPLE_RATE", 1),
		},
		RateLimit: RateLimit{
			Disabled:         envBool("RATE_LIMIT_DISABLED"),
			OTPPerMinute:     integer("RATE_LIMIT_OTP_PER_MINUTE", DefaultOTPPerMinute),
			CheckinPerMinute: integer("RATE_LIMIT_CHECKIN_PER_MINUTE", DefaultCheckinPerMinute),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the check-in and OTP logic cannot operate with.
func (c Config) Validate() error {
	switch {
	case c.Checkin.CheckpointLat < -90 || c.Checkin.CheckpointLat > 90:
		return fmt.Errorf("CHECKPOINT_LAT out of range: %v", c.Checkin.CheckpointLat)
	case c.Checkin.CheckpointLon < -180 || c.Checkin.CheckpointLon > 180:
		return fmt.Errorf("CHECKPOINT_LON out of range: %v", c.Checkin.CheckpointLon)
	case c.Checkin.MaxRadiusMeters <= 0:
		return fmt.Errorf("MAX_RADIUS_METERS must be positive")
	case c.Checkin.SimilarityThreshold < -1 || c.Checkin.SimilarityThreshold > 1:
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [-1, 1]")
	case c.Checkin.TripNumberMax < 1:
		return fmt.Errorf("TRIP_NUMBER_MAX must be at least 1")
	case c.OTP.TTL <= 0:
		return fmt.Errorf("OTP_TTL_SECONDS must be positive")
	case c.OTP.Retention <= c.OTP.TTL:
		return fmt.Errorf("OTP_RETENTION must be longer than the OTP TTL")
	case c.OTP.CodeLength < 4 || c.OTP.CodeLength > 10:
		return fmt.Errorf("OTP_CODE_LENGTH must be between 4 and 10")
	case c.OTP.Channel != "telegram" && c.OTP.Channel != "sms":
		return fmt.Errorf("OTP_CHANNEL must be telegram or sms, got %q", c.OTP.Channel)
	case c.RateLimit.OTPPerMinute < 1 || c.RateLimit.CheckinPerMinute < 1:
		return fmt.Errorf("rate limits must be at least 1 request per minute")
	case len(c.Audit.PhoneHashKey) > 64:
		return fmt.Errorf("AUDIT_PHONE_HASH_KEY must be at most 64 bytes")
	case c.Audit.OperationsSampleRate < 0 || c.Audit.OperationsSampleRate > 1:
		return fmt.Errorf("AUDIT_OPERATIONS_SAMPLE_RATE must be within [0, 1]")
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePrefixes accepts CIDRs and bare addresses, the latter as single-host
// prefixes.
func parsePrefixes(raw []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, r := range raw {
		if !strings.Contains(r, "/") {
			addr, err := netip.ParseAddr(r)
			if err != nil {
				return nil, err
			}
			addr = addr.Unmap()
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Masked())
	}
	return out, nil
}
