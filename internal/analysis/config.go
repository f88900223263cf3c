package analysis

import (
	"github.com/your-org/voicecheck/pkg/config"
	"github.com/your-org/voicecheck/pkg/detector"
	"github.com/your-org/voicecheck/pkg/retry"
)

// DetectorConfig maps runtime configuration onto the detector client.
func DetectorConfig(cfg *config.Config) detector.Config {
	d := cfg.Detector
	return detector.Config{
		BaseURL:        d.BaseURL,
		APIKey:         d.APIKey,
		PresignPolicy:  retry.Policy{Retries: d.PresignRetries, BaseDelay: d.PresignBaseDelay},
		PresignTimeout: d.PresignTimeout,
		UploadTimeout:  d.UploadTimeout,
		FetchTimeout:   d.FetchTimeout,
	}
}

// OptionsFromConfig maps runtime configuration onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	threshold := cfg.Analysis.VerdictThreshold
	return Options{
		Demo:             cfg.Detector.Demo,
		Limits:           Limits{MaxBytes: cfg.Upload.MaxSizeBytes, MaxDuration: cfg.Upload.MaxDuration},
		PollInterval:     cfg.Analysis.PollInterval,
		Deadline:         cfg.Analysis.Deadline,
		VerdictThreshold: &threshold,
		DefaultClipPath:  cfg.Analysis.DefaultClipPath,
		ProbePolicy:      retry.Policy{Retries: cfg.Detector.ProbeRetries, BaseDelay: cfg.Detector.ProbeBaseDelay},
	}
}
