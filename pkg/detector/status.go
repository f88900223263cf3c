package detector

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusAnalyzing is the only non-terminal status label the service reports.
const StatusAnalyzing = "ANALYZING"

// JobState is the coarse state of a remote job.
type JobState int

const (
	StateAnalyzing JobState = iota
	StateCompleted
	StateFailed
)

func (s JobState) String() string {
	switch s {
	case StateAnalyzing:
		return "analyzing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can occur.
func (s JobState) Terminal() bool { return s != StateAnalyzing }

// failureLabels are terminal statuses that carry no usable verdict.
var failureLabels = map[string]struct{}{
	"ERROR":              {},
	"FAILED":             {},
	"UNABLE_TO_EVALUATE": {},
}

// JobStatus is one observation of a remote job. Only State, Status and the
// raw payloads are guaranteed; Verdict and Confidence are filled when the
// provider reports them.
type JobStatus struct {
	State      JobState
	Status     string
	Verdict    string
	Confidence *float64
	Metadata   map[string]any

	// Summary is the provider's status summary object, Raw the whole body.
	Summary json.RawMessage
	Raw     json.RawMessage
}

// ParseJobStatus decodes a status response body. A body without a summary
// or without a status label is still analyzing.
func ParseJobStatus(body []byte) (*JobStatus, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return nil, fmt.Errorf("%w: status: %s", ErrMalformedResponse, truncate(body))
	}

	js := &JobStatus{State: StateAnalyzing, Status: StatusAnalyzing, Raw: json.RawMessage(body)}
	summary, ok := SummaryRules.Object(doc)
	if !ok {
		return js, nil
	}
	js.Summary, _ = json.Marshal(summary)

	if status, ok := StatusRules.Text(summary); ok {
		js.Status = status
	}
	js.Verdict, _ = VerdictRules.Text(summary)
	if v, ok := ConfidenceRules.Number(summary); ok {
		if c, ok := normalizeConfidence(v); ok {
			js.Confidence = &c
		}
	}
	if md, ok := summary["metadata"].(map[string]any); ok {
		js.Metadata = md
	}
	js.State = classify(js.Status)
	return js, nil
}

func classify(status string) JobState {
	label := strings.ToUpper(strings.TrimSpace(status))
	if label == StatusAnalyzing {
		return StateAnalyzing
	}
	if _, ok := failureLabels[label]; ok {
		return StateFailed
	}
	return StateCompleted
}
