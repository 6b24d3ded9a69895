package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults mirror the original demo's constants; each can be overridden
// through the environment (or a .env file next to the executable).
const (
	DefaultMappingName = `Global\UDCommMapping`
	DefaultIterations  = 10000
	DefaultWarmup      = 3 * time.Second
	DefaultJoinTimeout = 10 * time.Second
	DefaultPayload     = "hello, world!"
)

type Config struct {
	MappingName       string
	Iterations        int
	Warmup            time.Duration
	JoinTimeout       time.Duration
	Payload           string
	EnableFileLogging bool
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or executable directory
	envPaths := []string{".env"}

	// If running as executable, also try the executable's directory
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		envPaths = append(envPaths, filepath.Join(execDir, ".env"))
	}

	// Try to load .env file (ignore errors if file doesn't exist)
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			godotenv.Load(envPath)
			break
		}
	}

	cfg := &Config{
		MappingName:       DefaultMappingName,
		Iterations:        DefaultIterations,
		Warmup:            DefaultWarmup,
		JoinTimeout:       DefaultJoinTimeout,
		Payload:           DefaultPayload,
		EnableFileLogging: os.Getenv("ENABLE_FILE_LOGGING") == "true",
	}

	if v := os.Getenv("UDCOMM_MAPPING_NAME"); v != "" {
		cfg.MappingName = v
	}
	if v := os.Getenv("UDCOMM_PAYLOAD"); v != "" {
		cfg.Payload = v
	}
	if v := os.Getenv("UDCOMM_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("UDCOMM_ITERATIONS must be a positive integer, got %q", v)
		}
		cfg.Iterations = n
	}
	if v := os.Getenv("UDCOMM_WARMUP_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("UDCOMM_WARMUP_SECONDS must be a non-negative integer, got %q", v)
		}
		cfg.Warmup = time.Duration(n) * time.Second
	}
	if v := os.Getenv("UDCOMM_JOIN_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("UDCOMM_JOIN_TIMEOUT_SECONDS must be a positive integer, got %q", v)
		}
		cfg.JoinTimeout = time.Duration(n) * time.Second
	}

	return cfg, nil
}
