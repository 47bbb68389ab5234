// Package hostcfg loads the environment-driven settings the host binaries
// (cmd/agvsim, cmd/agvserver) need but the core engine never touches: listen
// address, tick cadence, and the default map to generate on startup.
package hostcfg

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the host's environment-derived configuration. None of these
// values affect simulation determinism — they govern how often and where
// the host drives an otherwise-identical engine.
type Config struct {
	ListenAddr   string
	TickInterval int // milliseconds between driver-initiated ticks
	DefaultSeed  string
	DefaultNodes int
}

// Load reads a .env file if present (a missing file is not an error; its
// return value is deliberately ignored) and resolves Config from the
// environment, falling back to sensible defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:   getEnv("AGVSIM_LISTEN_ADDR", ":8080"),
		TickInterval: getEnvInt("AGVSIM_TICK_INTERVAL_MS", 16),
		DefaultSeed:  getEnv("AGVSIM_SEED", "warehouse-floor-1"),
		DefaultNodes: getEnvInt("AGVSIM_NODE_COUNT", 50),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
