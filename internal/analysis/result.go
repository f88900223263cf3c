package analysis

import (
	"encoding/json"
	"time"

	"github.com/your-org/voicecheck/pkg/detector"
)

// Verdict labels produced when the provider gives no explicit verdict.
const (
	VerdictFake         = "fake"
	VerdictReal         = "real"
	VerdictInconclusive = "inconclusive"

	// DefaultVerdictThreshold splits confidence into fake (above) and real.
	DefaultVerdictThreshold = 0.5
)

// Result is the caller-facing summary of an analysis. It is never mutated
// after construction.
type Result struct {
	RequestID       string          `json:"requestId"`
	Status          string          `json:"status"`
	Verdict         string          `json:"verdict,omitempty"`
	Confidence      *float64        `json:"confidence"`
	InferenceTimeMs *int64          `json:"inferenceTimeMs,omitempty"`
	Raw             json.RawMessage `json:"raw"`

	// State is the coarse job state the result was built from.
	State detector.JobState `json:"-"`
}

// Terminal reports whether the job reached a final state. A non-terminal
// result means the job is still analyzing and its outcome is unknown.
func (r *Result) Terminal() bool { return r.State.Terminal() }

// Summarize maps a job observation to a Result. Non-terminal observations
// carry their status only; verdict and confidence stay unset.
//
// Verdict precedence: the provider's explicit verdict or label, else the
// confidence compared against threshold, else inconclusive.
func Summarize(id string, js *detector.JobStatus, threshold float64) *Result {
	r := &Result{RequestID: id, State: js.State, Status: js.Status, Raw: js.Summary}
	if len(r.Raw) == 0 {
		r.Raw = js.Raw
	}
	if !js.State.Terminal() {
		return r
	}

	r.Confidence = js.Confidence
	switch {
	case js.Verdict != "":
		r.Verdict = js.Verdict
	case js.Confidence == nil:
		r.Verdict = VerdictInconclusive
	case *js.Confidence > threshold:
		r.Verdict = VerdictFake
	default:
		r.Verdict = VerdictReal
	}
	return r
}

// DemoResult is the canned answer returned in demo mode.
func DemoResult(id string, elapsed time.Duration) *Result {
	if id == "" {
		id = "demo-local"
	}
	return &Result{
		RequestID:       id,
		Status:          "done",
		Verdict:         VerdictInconclusive,
		InferenceTimeMs: millis(elapsed),
		Raw:             json.RawMessage(`{"source":"demo"}`),
		State:           detector.StateCompleted,
	}
}

func millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
