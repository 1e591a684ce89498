// Package config loads runtime configuration from the environment, in the
// same style as the teacher's cmd/engine/main.go: required secrets fail
// fast via log.Fatalf, everything else falls back to a safe default.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/rawblock/hui-federated/internal/federated/aggregator"
	"github.com/rawblock/hui-federated/internal/mining"
)

// ServerConfig configures the federated coordination server (§6).
type ServerConfig struct {
	ListenAddr        string
	AdminAddr         string
	DatabaseURL       string
	MinClients        int
	SamplingRate      float64
	RoundTimeout      time.Duration
	HeartbeatInterval time.Duration
	ClientTTL         time.Duration
	Aggregation       aggregator.Policy
	Epsilon           float64
	Sensitivity       float64
	ResultsDir        string
	Mining            mining.Config
}

// requireEnv reads a required environment variable and exits if it is not
// set, mirroring the teacher's fail-fast startup checks.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or fallback for non-secret
// settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Fatalf("FATAL: environment variable %s must be a number, got %q", key, val)
	}
	return f
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("FATAL: environment variable %s must be an integer, got %q", key, val)
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Fatalf("FATAL: environment variable %s must be an integer, got %q", key, val)
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Fatalf("FATAL: environment variable %s must be a duration, got %q", key, val)
	}
	return d
}

// LoadServerConfig reads FEDERATED_* and HUI_* environment variables.
// DATABASE_URL is optional — persistence is skipped when unset, so a
// single node can run entirely off-grid (§6, §1 ambient stack);
// everything else has a usable default.
func LoadServerConfig() ServerConfig {
	mcfg := mining.DefaultConfig()
	mcfg.MinUtility = getEnvInt64("HUI_MIN_UTILITY", 0)
	mcfg.UpperBoundSlack = getEnvFloat("HUI_UPPER_BOUND_SLACK", mcfg.UpperBoundSlack)

	policy := aggregator.PolicySum
	if getEnvOrDefault("FEDERATED_AGGREGATION_POLICY", "sum") == "mean" {
		policy = aggregator.PolicyMean
	}

	return ServerConfig{
		ListenAddr:        getEnvOrDefault("FEDERATED_LISTEN_ADDR", ":8420"),
		AdminAddr:         getEnvOrDefault("FEDERATED_ADMIN_ADDR", ":8421"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		MinClients:        getEnvInt("FEDERATED_MIN_CLIENTS", 2),
		SamplingRate:      getEnvFloat("FEDERATED_SAMPLING_RATE", 1.0),
		RoundTimeout:      getEnvDuration("FEDERATED_ROUND_TIMEOUT", 2*time.Minute),
		HeartbeatInterval: getEnvDuration("FEDERATED_HEARTBEAT_INTERVAL", 30*time.Second),
		ClientTTL:         getEnvDuration("FEDERATED_CLIENT_TTL", 90*time.Second),
		Aggregation:       policy,
		Epsilon:           getEnvFloat("FEDERATED_DP_EPSILON", 0),
		Sensitivity:       getEnvFloat("FEDERATED_DP_SENSITIVITY", 1.0),
		ResultsDir:        getEnvOrDefault("FEDERATED_RESULTS_DIR", "./results"),
		Mining:            mcfg,
	}
}

// ClientConfig configures a federated client process.
type ClientConfig struct {
	ServerAddr     string
	DataPath       string
	PrivateKeyPath string
	MiningConfig   mining.Config
}

// LoadClientConfig reads the client's environment variables. SERVER_ADDR
// and DATA_PATH are required — there's no sensible default for either.
func LoadClientConfig() ClientConfig {
	mcfg := mining.DefaultConfig()
	mcfg.MinUtility = getEnvInt64("HUI_MIN_UTILITY", 0)

	return ClientConfig{
		ServerAddr:     requireEnv("SERVER_ADDR"),
		DataPath:       requireEnv("DATA_PATH"),
		PrivateKeyPath: getEnvOrDefault("PRIVATE_KEY_PATH", ""),
		MiningConfig:   mcfg,
	}
}
