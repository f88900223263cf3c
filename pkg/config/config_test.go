package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RD_API_KEY", "")
	t.Setenv("RD_DEMO", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Detector.BaseURL != "https://api.prd.realitydefender.xyz" {
		t.Errorf("unexpected base url %q", cfg.Detector.BaseURL)
	}
	if cfg.Detector.PresignRetries != 12 || cfg.Detector.PresignBaseDelay != 800*time.Millisecond {
		t.Errorf("unexpected presign policy %d/%v", cfg.Detector.PresignRetries, cfg.Detector.PresignBaseDelay)
	}
	if cfg.Analysis.PollInterval != 3*time.Second || cfg.Analysis.Deadline != 180*time.Second {
		t.Errorf("unexpected poll settings %v/%v", cfg.Analysis.PollInterval, cfg.Analysis.Deadline)
	}
	if cfg.Upload.MaxSizeBytes != 5<<20 || cfg.Upload.MaxDuration != 15*time.Second {
		t.Errorf("unexpected upload limits %d/%v", cfg.Upload.MaxSizeBytes, cfg.Upload.MaxDuration)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("expected kafka disabled by default, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_DemoFlag(t *testing.T) {
	t.Setenv("RD_DEMO", "1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Detector.Demo {
		t.Error("expected RD_DEMO=1 to enable demo mode")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("RD_API_KEY", "")
	t.Setenv("RD_DEMO", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}

	cfg.Detector.Demo = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("demo mode needs no credential, got %v", err)
	}

	cfg.Analysis.Deadline = time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for deadline shorter than poll interval")
	}
}
