package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"UDCOMM_MAPPING_NAME", "UDCOMM_ITERATIONS", "UDCOMM_WARMUP_SECONDS",
		"UDCOMM_JOIN_TIMEOUT_SECONDS", "UDCOMM_PAYLOAD", "ENABLE_FILE_LOGGING",
	} {
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.MappingName != DefaultMappingName {
		t.Errorf("Expected MappingName %q, got %q", DefaultMappingName, cfg.MappingName)
	}
	if cfg.Iterations != DefaultIterations {
		t.Errorf("Expected Iterations %d, got %d", DefaultIterations, cfg.Iterations)
	}
	if cfg.Warmup != DefaultWarmup {
		t.Errorf("Expected Warmup %v, got %v", DefaultWarmup, cfg.Warmup)
	}
	if cfg.JoinTimeout != DefaultJoinTimeout {
		t.Errorf("Expected JoinTimeout %v, got %v", DefaultJoinTimeout, cfg.JoinTimeout)
	}
	if cfg.Payload != DefaultPayload {
		t.Errorf("Expected Payload %q, got %q", DefaultPayload, cfg.Payload)
	}
	if cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be false by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	os.Setenv("UDCOMM_MAPPING_NAME", "Local\\UDCommTest")
	os.Setenv("UDCOMM_ITERATIONS", "500")
	os.Setenv("UDCOMM_WARMUP_SECONDS", "0")
	os.Setenv("UDCOMM_JOIN_TIMEOUT_SECONDS", "2")
	os.Setenv("UDCOMM_PAYLOAD", "ping")
	os.Setenv("ENABLE_FILE_LOGGING", "true")

	defer func() {
		os.Unsetenv("UDCOMM_MAPPING_NAME")
		os.Unsetenv("UDCOMM_ITERATIONS")
		os.Unsetenv("UDCOMM_WARMUP_SECONDS")
		os.Unsetenv("UDCOMM_JOIN_TIMEOUT_SECONDS")
		os.Unsetenv("UDCOMM_PAYLOAD")
		os.Unsetenv("ENABLE_FILE_LOGGING")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.MappingName != "Local\\UDCommTest" {
		t.Errorf("Expected MappingName 'Local\\UDCommTest', got %q", cfg.MappingName)
	}
	if cfg.Iterations != 500 {
		t.Errorf("Expected Iterations 500, got %d", cfg.Iterations)
	}
	if cfg.Warmup != 0 {
		t.Errorf("Expected Warmup 0, got %v", cfg.Warmup)
	}
	if cfg.JoinTimeout != 2*time.Second {
		t.Errorf("Expected JoinTimeout 2s, got %v", cfg.JoinTimeout)
	}
	if cfg.Payload != "ping" {
		t.Errorf("Expected Payload 'ping', got %q", cfg.Payload)
	}
	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true")
	}
}

func TestLoadRejectsBadIterations(t *testing.T) {
	cases := []string{"0", "-3", "ten"}
	for _, v := range cases {
		os.Setenv("UDCOMM_ITERATIONS", v)
		if _, err := Load(); err == nil {
			t.Errorf("Expected error for UDCOMM_ITERATIONS=%q, got nil", v)
		}
	}
	os.Unsetenv("UDCOMM_ITERATIONS")
}
