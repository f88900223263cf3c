package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/voicecheck/pkg/audio"
	"github.com/your-org/voicecheck/pkg/detector"
	"github.com/your-org/voicecheck/pkg/metrics"
	"github.com/your-org/voicecheck/pkg/retry"
	"github.com/your-org/voicecheck/pkg/storage/objectstore"
)

// ErrMissingID is returned by Status for an empty job id.
var ErrMissingID = errors.New("requestId required")

// Publisher emits analysis events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, event any, headers map[string]string) error
	Close(ctx context.Context) error
}

// Service is the caller-facing analysis surface shared by the HTTP server
// and the CLI.
type Service struct {
	client       *detector.Client
	orchestrator *Orchestrator
	store        objectstore.Client
	producer     Publisher
	logger       *zap.Logger
	metrics      *metrics.Metrics

	demo        bool
	limits      Limits
	threshold   float64
	clipPath    string
	probePolicy retry.Policy
	now         func() time.Time
}

// Options tunes a Service. Zero values take the documented defaults.
type Options struct {
	Demo             bool
	Limits           Limits
	PollInterval     time.Duration
	Deadline         time.Duration
	VerdictThreshold *float64 // nil selects DefaultVerdictThreshold
	DefaultClipPath  string
	ProbePolicy      retry.Policy
	OnStage          func(Stage)
}

type Params struct {
	Client   *detector.Client
	Store    objectstore.Client // optional clip archive
	Producer Publisher          // optional event sink
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Options  Options
}

// NewService constructs a Service.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := p.Options
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits
	}
	threshold := DefaultVerdictThreshold
	if opts.VerdictThreshold != nil {
		threshold = *opts.VerdictThreshold
	}

	return &Service{
		client: p.Client,
		orchestrator: NewOrchestrator(p.Client, OrchestratorConfig{
			PollInterval:     opts.PollInterval,
			Deadline:         opts.Deadline,
			VerdictThreshold: &threshold,
			Logger:           logger,
			Metrics:          p.Metrics,
			OnStage:          opts.OnStage,
		}),
		store:       p.Store,
		producer:    p.Producer,
		logger:      logger,
		metrics:     p.Metrics,
		demo:        opts.Demo,
		limits:      opts.Limits,
		threshold:   threshold,
		clipPath:    opts.DefaultClipPath,
		probePolicy: opts.ProbePolicy,
		now:         time.Now,
	}
}

// Demo reports whether the service short-circuits every request.
func (s *Service) Demo() bool { return s.demo }

// Limits returns the clip limits the service enforces.
func (s *Service) Limits() Limits { return s.limits }

// Analyze validates clip and runs it through the remote detector. A nil clip
// selects the default clip. Validation failures are returned before any
// network call, in demo mode too.
func (s *Service) Analyze(ctx context.Context, clip *Clip) (*Result, error) {
	start := s.now()
	if clip == nil {
		var err error
		if clip, err = s.DefaultClip(); err != nil {
			return nil, err
		}
	}
	if err := clip.Validate(s.limits); err != nil {
		return nil, err
	}
	if s.demo {
		return DemoResult("", s.now().Sub(start)), nil
	}

	id := uuid.NewString()
	objectKey := s.archive(ctx, id, clip, start)

	res, err := s.orchestrator.Run(ctx, clip)
	elapsed := s.now().Sub(start)
	event := AnalysisEvent{
		ID:              id,
		InferenceTimeMs: elapsed.Milliseconds(),
		ClipName:        clip.Name,
		ContentType:     clip.MIMEType,
		SizeBytes:       int64(len(clip.Data)),
		ObjectKey:       objectKey,
		CreatedAt:       s.now().UTC(),
	}

	if err != nil {
		s.metrics.RecordAnalysis(ctx, metrics.OutcomeError, elapsed.Seconds())
		s.logger.Error("analysis failed", zap.String("analysis_id", id), zap.Error(err))
		event.Error = err.Error()
		s.publish(ctx, EventAnalysisFailed, event)
		return nil, err
	}

	s.metrics.RecordAnalysis(ctx, analysisOutcome(res), elapsed.Seconds())

	event.RequestID = res.RequestID
	event.Status = res.Status
	event.Verdict = res.Verdict
	event.Confidence = res.Confidence
	event.Terminal = res.Terminal()
	s.publish(ctx, EventAnalysisCompleted, event)
	return res, nil
}

func analysisOutcome(res *Result) string {
	switch {
	case !res.Terminal():
		return metrics.OutcomeDeadline
	case res.State == detector.StateFailed:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeCompleted
	}
}

// Status summarises job id without re-submitting anything.
func (s *Service) Status(ctx context.Context, id string) (*Result, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if s.demo {
		res := DemoResult(id, 0)
		res.InferenceTimeMs = nil
		return res, nil
	}
	js, err := s.client.FetchStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	return Summarize(id, js, s.threshold), nil
}

// ProbeResult reports whether an upload slot could be obtained.
type ProbeResult struct {
	OK      bool   `json:"ok"`
	Demo    bool   `json:"demo,omitempty"`
	ID      string `json:"id,omitempty"`
	URLHead string `json:"urlHead,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Probe requests one upload slot under the probe retry policy. Nothing is
// uploaded.
func (s *Service) Probe(ctx context.Context) (*ProbeResult, error) {
	if s.demo {
		return &ProbeResult{OK: true, Demo: true}, nil
	}
	name := fmt.Sprintf("probe-%d.wav", s.now().UnixMilli())
	slot, err := s.client.WithPresignPolicy(s.probePolicy).RequestUploadSlot(ctx, name)
	if err != nil {
		return nil, err
	}
	head := slot.SignedURL
	if len(head) > 80 {
		head = head[:80]
	}
	s.logger.Debug("presign probe succeeded", zap.String("name", name), zap.String("job_id", slot.JobID()))
	return &ProbeResult{OK: true, ID: slot.JobID(), URLHead: head, Name: name}, nil
}

// DebugInfo is the configuration snapshot served on the debug endpoint.
type DebugInfo struct {
	detector.CredentialInfo
	Base string `json:"base"`
	Demo bool   `json:"demo"`
}

func (s *Service) Debug() DebugInfo {
	return DebugInfo{CredentialInfo: s.client.Credential(), Base: s.client.BaseURL(), Demo: s.demo}
}

// DefaultClip loads the configured default clip, or synthesises a one second
// 220 Hz tone when none is configured.
func (s *Service) DefaultClip() (*Clip, error) {
	if s.clipPath != "" {
		data, err := os.ReadFile(s.clipPath)
		if err != nil {
			return nil, fmt.Errorf("read default clip: %w", err)
		}
		return NewClip(data, filepath.Base(s.clipPath), "audio/wav", "")
	}
	const rate = 16000
	data := audio.EncodePCM16(audio.Tone(220, time.Second, rate, 0.5), rate)
	return NewClip(data, defaultClipName, defaultMIME, "")
}

// archive stores the clip before submission. Failures are logged and
// otherwise ignored.
func (s *Service) archive(ctx context.Context, id string, clip *Clip, now time.Time) string {
	if s.store == nil {
		return ""
	}
	key := fmt.Sprintf("clips/%s/%s", now.UTC().Format("2006/01/02"), UploadName(clip.Name, now))
	obj := objectstore.Object{
		Key:         key,
		ContentType: clip.MIMEType,
		Metadata: map[string]string{
			"analysis_id":       id,
			"original_filename": clip.Name,
		},
	}
	if err := s.store.Put(ctx, obj, bytes.NewReader(clip.Data), int64(len(clip.Data))); err != nil {
		s.logger.Warn("archive clip failed", zap.String("analysis_id", id), zap.Error(err))
		return ""
	}
	return key
}

func (s *Service) publish(ctx context.Context, eventType string, event AnalysisEvent) {
	if s.producer == nil {
		return
	}
	headers := map[string]string{
		"analysis_id": event.ID,
		"event_type":  eventType,
	}
	if err := s.producer.PublishJSON(ctx, event.ID, event, headers); err != nil {
		s.logger.Warn("publish analysis event failed",
			zap.String("analysis_id", event.ID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// Close releases underlying resources.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	if s.producer != nil {
		errs = append(errs, s.producer.Close(ctx))
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
