package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures all environment-driven settings so main stays lean.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string
	UploadDir   string
	FrontendURL string

	// On-chain registry.
	ChainRPCURL     string
	ContractAddress string
	ContractABI     string // optional override; the compiled-in ABI is used when empty
	ChainPrivateKey string // hex-encoded signer key; empty means read-only registry access
	ChainID         int64

	JWTSigningKey string

	// Audit streaming. Kafka is optional; events always land in the store.
	KafkaBrokers []string
	AuditTopic   string

	// Issuance intent reconciliation.
	IntentSweepInterval time.Duration
	IntentStuckAfter    time.Duration
	IntentMaxAttempts   int

	RegistryCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults. Callers load .env files before this runs.
func FromEnv() Config {
	cfg := Config{
		Addr:                getEnv("DHRUVA_ADDR", ":5000"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		ChainRPCURL:         os.Getenv("CHAIN_RPC_URL"),
		ContractAddress:     os.Getenv("CONTRACT_ADDRESS"),
		ContractABI:         os.Getenv("CONTRACT_ABI"),
		ChainPrivateKey:     os.Getenv("CHAIN_PRIVATE_KEY"),
		ChainID:             int64(getInt("CHAIN_ID", 1337)),
		JWTSigningKey:       getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AuditTopic:          getEnv("AUDIT_TOPIC", "dhruva.audit"),
		IntentSweepInterval: getDuration("INTENT_SWEEP_INTERVAL", time.Minute),
		IntentStuckAfter:    getDuration("INTENT_STUCK_AFTER", 2*time.Minute),
		IntentMaxAttempts:   getInt("INTENT_MAX_ATTEMPTS", 5),
		RegistryCacheTTL:    getDuration("REGISTRY_CACHE_TTL", 5*time.Minute),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitComma(brokers)
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
