package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8000},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Index:    IndexConfig{Host: "nebula-index-abc123.svc.pinecone.io"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingIndexHost(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Host = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing index host")
	}
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	for _, threshold := range []float64{-1.5, 1.5} {
		cfg := validConfig()
		cfg.Graph.SimilarityThreshold = threshold

		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for threshold %v", threshold)
		}
	}
}

func TestValidate_MaxTopKBelowDefault(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultTopK = 50
	cfg.Search.MaxTopK = 10

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for max_top_k < default_top_k")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Cache.TTLSec != 3600 {
		t.Errorf("expected cache TTL default 3600, got %d", cfg.Cache.TTLSec)
	}
	if cfg.RateLimit.Requests != 20 || cfg.RateLimit.WindowSec != 60 {
		t.Errorf("expected rate limit defaults 20/60, got %d/%d",
			cfg.RateLimit.Requests, cfg.RateLimit.WindowSec)
	}
	if cfg.Graph.SimilarityThreshold != 0.5 {
		t.Errorf("expected similarity threshold default 0.5, got %v", cfg.Graph.SimilarityThreshold)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("expected embedding dimensions default 384, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Search.DefaultTopK != 20 || cfg.Search.MaxTopK != 100 {
		t.Errorf("expected top_k defaults 20/100, got %d/%d",
			cfg.Search.DefaultTopK, cfg.Search.MaxTopK)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("NEBULA_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("api_key: ${NEBULA_TEST_KEY}")))
	if got != "api_key: secret" {
		t.Errorf("unexpected expansion: %q", got)
	}

	got = string(expandEnvVars([]byte("port: ${NEBULA_TEST_UNSET:-8000}")))
	if got != "port: 8000" {
		t.Errorf("unexpected default expansion: %q", got)
	}
}
