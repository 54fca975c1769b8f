package config

import (
	"os"
	"strconv"
)

// Server captures memdomaind process configuration.
type Server struct {
	Addr          string
	DMAWorkers    int
	DMAQueueDepth int
	DMAArenaBytes int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("MEMDOMAIND_ADDR")
	if addr == "" {
		addr = ":9620"
	}

	return Server{
		Addr:          addr,
		DMAWorkers:    intFromEnv("MEMDOMAIND_DMA_WORKERS", 4),
		DMAQueueDepth: intFromEnv("MEMDOMAIND_DMA_QUEUE_DEPTH", 128),
		DMAArenaBytes: intFromEnv("MEMDOMAIND_DMA_ARENA_BYTES", 16<<20),
	}
}

func intFromEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
