package detector

import "testing"

func TestParseJobStatus(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name       string
		body       string
		state      JobState
		status     string
		verdict    string
		confidence *float64
	}{
		{"no summary yet", `{"name":"clip"}`, StateAnalyzing, "ANALYZING", "", nil},
		{"summary without status", `{"resultsSummary":{}}`, StateAnalyzing, "ANALYZING", "", nil},
		{"analyzing", `{"resultsSummary":{"status":"ANALYZING"}}`, StateAnalyzing, "ANALYZING", "", nil},
		{"state fallback", `{"resultsSummary":{"state":"AUTHENTIC"}}`, StateCompleted, "AUTHENTIC", "", nil},
		{"explicit verdict", `{"resultsSummary":{"status":"DONE","verdict":"fake","metadata":{"confidence":0.7}}}`, StateCompleted, "DONE", "fake", f(0.7)},
		{"label", `{"resultsSummary":{"status":"DONE","label":"real"}}`, StateCompleted, "DONE", "real", nil},
		{"finalScore precedence", `{"resultsSummary":{"status":"DONE","metadata":{"finalScore":0.2,"confidence":0.9}}}`, StateCompleted, "DONE", "", f(0.2)},
		{"percentage score", `{"resultsSummary":{"status":"MANIPULATED","metadata":{"finalScore":87}}}`, StateCompleted, "MANIPULATED", "", f(0.87)},
		{"fractional score above one", `{"resultsSummary":{"status":"DONE","metadata":{"finalScore":1.5}}}`, StateCompleted, "DONE", "", f(1)},
		{"top level score", `{"resultsSummary":{"status":"DONE","score":"0.4"}}`, StateCompleted, "DONE", "", f(0.4)},
		{"out of range score", `{"resultsSummary":{"status":"DONE","score":-3}}`, StateCompleted, "DONE", "", nil},
		{"failure", `{"resultsSummary":{"status":"UNABLE_TO_EVALUATE"}}`, StateFailed, "UNABLE_TO_EVALUATE", "", nil},
		{"nested response", `{"response":{"resultsSummary":{"status":"AUTHENTIC"}}}`, StateCompleted, "AUTHENTIC", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			js, err := ParseJobStatus([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if js.State != tt.state {
				t.Errorf("state = %v, want %v", js.State, tt.state)
			}
			if js.Status != tt.status {
				t.Errorf("status = %q, want %q", js.Status, tt.status)
			}
			if js.Verdict != tt.verdict {
				t.Errorf("verdict = %q, want %q", js.Verdict, tt.verdict)
			}
			switch {
			case tt.confidence == nil && js.Confidence != nil:
				t.Errorf("confidence = %v, want nil", *js.Confidence)
			case tt.confidence != nil && (js.Confidence == nil || *js.Confidence != *tt.confidence):
				t.Errorf("confidence = %v, want %v", js.Confidence, *tt.confidence)
			}
		})
	}
}

func TestRules_FirstMatchWins(t *testing.T) {
	doc := map[string]any{
		"media_id": "snake",
		"response": map[string]any{"mediaId": "nested"},
	}
	got, ok := MediaIDRules.Text(doc)
	if !ok || got != "nested" {
		t.Errorf("expected nested camelCase to win over flat snake_case, got %q", got)
	}

	if _, ok := SignedURLRules.Text(map[string]any{"signedUrl": ""}); ok {
		t.Error("empty strings must not match")
	}
	if _, ok := SignedURLRules.Text(map[string]any{"response": "not an object"}); ok {
		t.Error("non-object intermediate must not match")
	}
}
