package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/your-org/voicecheck/pkg/detector"
	"github.com/your-org/voicecheck/pkg/risk"
)

func completed(conf float64) *Result {
	return &Result{RequestID: "m1", Status: "FAKE", Verdict: VerdictFake, Confidence: &conf, State: detector.StateCompleted}
}

func flatTimeline(v float64, n int) *risk.Timeline {
	tl := &risk.Timeline{SampleRate: 16000, Hop: 533, Window: risk.WindowSize, Risk: make([]float64, n)}
	for i := range tl.Risk {
		tl.Risk[i] = v
	}
	return tl
}

func TestSession_BlendsOnceInEitherOrder(t *testing.T) {
	cases := []struct {
		name          string
		timelineFirst bool
	}{
		{name: "timeline first", timelineFirst: true},
		{name: "result first", timelineFirst: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession()
			_, token := s.Begin(context.Background(), testClip())

			if tc.timelineFirst {
				s.SetTimeline(token, flatTimeline(0.4, 3))
				s.Complete(token, completed(0.8))
			} else {
				s.Complete(token, completed(0.8))
				s.SetTimeline(token, flatTimeline(0.4, 3))
			}
			// Repeated completion must not blend again.
			s.Complete(token, completed(0.8))

			if !s.Blended() {
				t.Fatal("expected blended timeline")
			}
			tl := s.Timeline()
			local, conf := 0.4, 0.8
			want := (local + (1 - conf)) / 2
			for i, r := range tl.Risk {
				if r != want {
					t.Errorf("frame %d: want %v got %v", i, want, r)
				}
			}
		})
	}
}

func TestSession_NoConfidenceKeepsLocalTimeline(t *testing.T) {
	s := NewSession()
	_, token := s.Begin(context.Background(), testClip())
	s.SetTimeline(token, flatTimeline(0.3, 2))
	s.Complete(token, &Result{Status: "done", Verdict: VerdictInconclusive, State: detector.StateCompleted})

	if s.Blended() {
		t.Error("expected no blend without confidence")
	}
	if got := s.Timeline().Risk[0]; got != 0.3 {
		t.Errorf("expected local risk 0.3, got %v", got)
	}
}

func TestSession_NewAnalysisSupersedes(t *testing.T) {
	s := NewSession()
	first, oldToken := s.Begin(context.Background(), testClip())
	_, newToken := s.Begin(context.Background(), testClip())

	if !errors.Is(first.Err(), context.Canceled) {
		t.Fatalf("expected previous analysis cancelled, got %v", first.Err())
	}
	if oldToken == newToken {
		t.Fatal("expected a fresh token")
	}
	if s.SetTimeline(oldToken, flatTimeline(0.9, 1)) {
		t.Error("stale timeline must be dropped")
	}
	if s.Complete(oldToken, completed(0.1)) {
		t.Error("stale result must be dropped")
	}
	if s.Timeline() != nil || s.Result() != nil {
		t.Error("expected no state from the superseded analysis")
	}
}

func TestSession_TimelineIsCopied(t *testing.T) {
	s := NewSession()
	_, token := s.Begin(context.Background(), testClip())
	s.SetTimeline(token, flatTimeline(0.5, 2))

	tl := s.Timeline()
	tl.Risk[0] = 1
	if s.Timeline().Risk[0] != 0.5 {
		t.Error("expected Timeline to return a copy")
	}
}

func TestSession_Cancel(t *testing.T) {
	s := NewSession()
	ctx, token := s.Begin(context.Background(), testClip())
	s.Cancel()

	if ctx.Err() == nil {
		t.Fatal("expected context cancelled")
	}
	if s.Complete(token, completed(0.5)) {
		t.Error("expected updates after Cancel to be dropped")
	}
}
