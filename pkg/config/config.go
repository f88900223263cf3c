package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the voicecheck binaries.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Detector DetectorConfig
	Analysis AnalysisConfig
	Upload   UploadConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	Tracing  TracingConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"voicecheck"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":3000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"200s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

// DetectorConfig configures the remote detection service client.
type DetectorConfig struct {
	APIKey  string `env:"RD_API_KEY"`
	BaseURL string `env:"RD_BASE" envDefault:"https://api.prd.realitydefender.xyz"`
	Demo    bool   `env:"RD_DEMO" envDefault:"false"`

	PresignRetries   int           `env:"RD_PRESIGN_RETRIES" envDefault:"12"`
	PresignBaseDelay time.Duration `env:"RD_PRESIGN_BASE_DELAY" envDefault:"800ms"`
	ProbeRetries     int           `env:"RD_PROBE_RETRIES" envDefault:"3"`
	ProbeBaseDelay   time.Duration `env:"RD_PROBE_BASE_DELAY" envDefault:"600ms"`

	PresignTimeout time.Duration `env:"RD_PRESIGN_TIMEOUT" envDefault:"20s"`
	UploadTimeout  time.Duration `env:"RD_UPLOAD_TIMEOUT" envDefault:"20s"`
	FetchTimeout   time.Duration `env:"RD_FETCH_TIMEOUT" envDefault:"20s"`
}

// AnalysisConfig configures the orchestration loop.
type AnalysisConfig struct {
	PollInterval     time.Duration `env:"ANALYSIS_POLL_INTERVAL" envDefault:"3s"`
	Deadline         time.Duration `env:"ANALYSIS_DEADLINE" envDefault:"180s"`
	VerdictThreshold float64       `env:"ANALYSIS_VERDICT_THRESHOLD" envDefault:"0.5"`
	DefaultClipPath  string        `env:"ANALYSIS_DEFAULT_CLIP"`
}

type UploadConfig struct {
	MaxSizeBytes      int64         `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"5242880"`
	MaxDuration       time.Duration `env:"UPLOAD_MAX_DURATION" envDefault:"15s"`
	MultipartMemBytes int64         `env:"UPLOAD_MULTIPART_MEM_BYTES" envDefault:"6291456"`
}

type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic            string        `env:"KAFKA_ANALYSIS_TOPIC" envDefault:"voicecheck.analysis.completed"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"1"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"100ms"`
}

type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"none"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"voicecheck-clips"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=voicecheck"`
}

type MetricsConfig struct {
	Addr string `env:"METRICS_ADDR" envDefault:":9102"`
}

// ErrMissingCredential is returned by Validate when the detector credential
// is absent outside demo mode.
var ErrMissingCredential = errors.New("RD_API_KEY is not set")

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration the service cannot run with. A missing
// credential is reported but callers may choose to start anyway and fail
// each submission instead.
func (c *Config) Validate() error {
	var errs []error
	if !c.Detector.Demo && c.Detector.APIKey == "" {
		errs = append(errs, ErrMissingCredential)
	}
	if c.Analysis.PollInterval <= 0 {
		errs = append(errs, errors.New("ANALYSIS_POLL_INTERVAL must be positive"))
	}
	if c.Analysis.Deadline < c.Analysis.PollInterval {
		errs = append(errs, errors.New("ANALYSIS_DEADLINE must be at least one poll interval"))
	}
	if c.Analysis.VerdictThreshold < 0 || c.Analysis.VerdictThreshold > 1 {
		errs = append(errs, errors.New("ANALYSIS_VERDICT_THRESHOLD must be within [0,1]"))
	}
	return errors.Join(errs...)
}
