package analysis

import "time"

const (
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
)

// AnalysisEvent is emitted when an orchestration finishes, successfully or not.
type AnalysisEvent struct {
	ID              string    `json:"id"`
	RequestID       string    `json:"request_id,omitempty"`
	Status          string    `json:"status,omitempty"`
	Verdict         string    `json:"verdict,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty"`
	InferenceTimeMs int64     `json:"inference_time_ms"`
	Terminal        bool      `json:"terminal"`
	ClipName        string    `json:"clip_name"`
	ContentType     string    `json:"content_type"`
	SizeBytes       int64     `json:"size_bytes"`
	ObjectKey       string    `json:"object_key,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
