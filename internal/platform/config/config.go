package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "salegate/pkg/platform/strings"
)

// RedisConfig tunes the optional whitelist cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Config captures everything the engine needs from its environment so main
// stays lean. DatabaseURL and KafkaBrokers are optional: without them the
// engine runs on its in-memory stores, which is what the test harness uses.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig

	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// BootstrapAdmin seeds the authority set on first start.
	BootstrapAdmin string
	// CustodyAccount holds the sale allocation and locked amounts.
	CustodyAccount string
	// CollectorWallet receives proceeds and withdrawals.
	CollectorWallet string

	TotalSaleCap      string
	BonusReleaseDelay time.Duration
	TrancheInterval   time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:              envOr("SALEGATE_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("SALEGATE_DATABASE_URL"),
		AuditTopic:        envOr("SALEGATE_AUDIT_TOPIC", "salegate.audit.v1"),
		JWTIssuer:         envOr("SALEGATE_JWT_ISSUER", "salegate"),
		JWTAudience:       envOr("SALEGATE_JWT_AUDIENCE", "salegate"),
		BootstrapAdmin:    os.Getenv("SALEGATE_BOOTSTRAP_ADMIN"),
		CustodyAccount:    os.Getenv("SALEGATE_CUSTODY_ACCOUNT"),
		CollectorWallet:   os.Getenv("SALEGATE_COLLECTOR_WALLET"),
		TotalSaleCap:      envOr("SALEGATE_TOTAL_SALE_CAP", "0"),
		BonusReleaseDelay: envDurationOr("SALEGATE_BONUS_RELEASE_DELAY", 365*24*time.Hour),
		TrancheInterval:   envDurationOr("SALEGATE_TRANCHE_INTERVAL", 90*24*time.Hour),
	}

	if brokers := os.Getenv("SALEGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strutil.DedupeAndTrim(strings.Split(brokers, ","))
	}

	cfg.JWTSigningKey = os.Getenv("SALEGATE_JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("SALEGATE_REDIS_URL"),
		PoolSize:     envIntOr("SALEGATE_REDIS_POOL_SIZE", 10),
		MinIdleConns: envIntOr("SALEGATE_REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  envDurationOr("SALEGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDurationOr("SALEGATE_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDurationOr("SALEGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
