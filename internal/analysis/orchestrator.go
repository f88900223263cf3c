package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/your-org/voicecheck/pkg/detector"
	"github.com/your-org/voicecheck/pkg/metrics"
	"github.com/your-org/voicecheck/pkg/retry"
	"github.com/your-org/voicecheck/pkg/tracing"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultDeadline     = 180 * time.Second
)

// ErrNoJobID is returned when a successful presign carries neither a media
// id nor a request id.
var ErrNoJobID = errors.New("no mediaId from presign")

// Stage is a step of the per-clip state machine.
type Stage string

const (
	StageSlotRequested Stage = "SLOT_REQUESTED"
	StageUploading     Stage = "UPLOADING"
	StagePolling       Stage = "POLLING"
	StageDone          Stage = "DONE"
	StageFailed        Stage = "FAILED"
)

// JobClient is the remote job protocol the orchestrator drives.
type JobClient interface {
	RequestUploadSlot(ctx context.Context, name string) (*detector.UploadSlot, error)
	UploadBytes(ctx context.Context, target string, data []byte, mimeType string) error
	FetchStatus(ctx context.Context, id string) (*detector.JobStatus, error)
}

// OrchestratorConfig configures an Orchestrator. Zero values take defaults.
type OrchestratorConfig struct {
	PollInterval     time.Duration
	Deadline         time.Duration
	VerdictThreshold *float64

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// OnStage observes state transitions. May be nil.
	OnStage func(Stage)
}

// Orchestrator drives one clip through presign, upload and polling.
type Orchestrator struct {
	client    JobClient
	interval  time.Duration
	deadline  time.Duration
	threshold float64
	logger    *zap.Logger
	metrics   *metrics.Metrics
	onStage   func(Stage)

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator constructs an Orchestrator around client.
func NewOrchestrator(client JobClient, cfg OrchestratorConfig) *Orchestrator {
	o := &Orchestrator{
		client:    client,
		interval:  cfg.PollInterval,
		deadline:  cfg.Deadline,
		threshold: DefaultVerdictThreshold,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		onStage:   cfg.OnStage,
		now:       time.Now,
		sleep:     retry.Sleep,
	}
	if o.interval <= 0 {
		o.interval = DefaultPollInterval
	}
	if o.deadline <= 0 {
		o.deadline = DefaultDeadline
	}
	if cfg.VerdictThreshold != nil {
		o.threshold = *cfg.VerdictThreshold
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Run submits clip and waits for a verdict. It returns an error only when
// the job could not be created or the caller cancelled. When the overall
// deadline passes first, the last non-terminal status is returned as a
// result; callers must read that as "still analyzing".
func (o *Orchestrator) Run(ctx context.Context, clip *Clip) (res *Result, err error) {
	start := o.now()
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	ctx, span := tracing.Start(ctx, "analysis.run",
		attribute.String("clip.name", clip.Name),
		attribute.Int("clip.bytes", len(clip.Data)),
	)
	defer func() {
		if err != nil {
			o.stage(StageFailed)
		}
		if res != nil {
			span.SetAttributes(attribute.String("job.status", res.Status))
		}
		tracing.End(span, err)
	}()

	o.stage(StageSlotRequested)
	name := UploadName(clip.Name, start)
	slot, err := o.requestSlot(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("request upload slot: %w", err)
	}
	o.logger.Info("upload slot acquired",
		zap.String("file_name", name),
		zap.String("media_id", slot.MediaID),
		zap.String("request_id", slot.RequestID),
	)

	o.stage(StageUploading)
	if err := o.upload(ctx, slot, clip); err != nil {
		return nil, fmt.Errorf("upload clip: %w", err)
	}

	id := slot.JobID()
	if id == "" {
		return nil, ErrNoJobID
	}
	span.SetAttributes(attribute.String("job.id", id))

	o.stage(StagePolling)
	js, err := o.poll(ctx, parent, id, start.Add(o.deadline))
	if err != nil {
		return nil, err
	}

	res = Summarize(id, js, o.threshold)
	res.InferenceTimeMs = millis(o.now().Sub(start))
	o.stage(StageDone)
	o.logger.Info("analysis finished",
		zap.String("job_id", id),
		zap.String("status", res.Status),
		zap.String("verdict", res.Verdict),
		zap.Bool("terminal", res.Terminal()),
	)
	return res, nil
}

func (o *Orchestrator) requestSlot(ctx context.Context, name string) (slot *detector.UploadSlot, err error) {
	ctx, span := tracing.Start(ctx, "analysis.presign", attribute.String("file.name", name))
	defer func() { tracing.End(span, err) }()
	return o.client.RequestUploadSlot(ctx, name)
}

func (o *Orchestrator) upload(ctx context.Context, slot *detector.UploadSlot, clip *Clip) (err error) {
	ctx, span := tracing.Start(ctx, "analysis.upload", attribute.String("mime", clip.MIMEType))
	defer func() { tracing.End(span, err) }()
	return o.client.UploadBytes(ctx, slot.SignedURL, clip.Data, clip.MIMEType)
}

// poll fetches the job status every interval until it is terminal or the
// deadline passes. Fetch failures count as "no update this cycle". Only
// cancellation of parent aborts polling with an error.
func (o *Orchestrator) poll(ctx, parent context.Context, id string, deadline time.Time) (*detector.JobStatus, error) {
	ctx, span := tracing.Start(ctx, "analysis.poll", attribute.String("job.id", id))
	defer span.End()

	last := &detector.JobStatus{State: detector.StateAnalyzing, Status: detector.StatusAnalyzing}
	cycles := 0
	for o.now().Before(deadline) {
		cycles++
		js, err := o.client.FetchStatus(ctx, id)
		switch {
		case err != nil:
			if parent.Err() != nil {
				return nil, parent.Err()
			}
			o.metrics.RecordPoll(parent, "error")
			o.logger.Warn("status fetch failed, will retry",
				zap.String("job_id", id),
				zap.Int("cycle", cycles),
				zap.Error(err),
			)
		case js.State.Terminal():
			o.metrics.RecordPoll(parent, "terminal")
			span.SetAttributes(attribute.Int("poll.cycles", cycles))
			return js, nil
		default:
			o.metrics.RecordPoll(parent, "analyzing")
			last = js
		}

		if ctx.Err() != nil {
			break
		}
		if err := o.sleep(ctx, o.interval); err != nil {
			if parent.Err() != nil {
				return nil, parent.Err()
			}
			break
		}
	}

	span.SetAttributes(attribute.Int("poll.cycles", cycles), attribute.Bool("poll.deadline", true))
	o.logger.Warn("analysis deadline reached without a terminal status",
		zap.String("job_id", id),
		zap.String("last_status", last.Status),
	)
	return last, nil
}

func (o *Orchestrator) stage(s Stage) {
	if o.onStage != nil {
		o.onStage(s)
	}
}
