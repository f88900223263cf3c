package analysis

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/your-org/voicecheck/pkg/risk"
)

// Session is the single-flight state of one display surface: the analysis
// in flight, the clip it belongs to, its local timeline and the remote
// result. Beginning a new analysis cancels the previous one; updates that
// carry a superseded token are dropped.
type Session struct {
	mu sync.Mutex

	token    string
	cancel   context.CancelFunc
	clip     *Clip
	timeline *risk.Timeline
	result   *Result
	blended  bool
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// Begin cancels any in-flight analysis and starts tracking clip. The
// returned context is cancelled when the analysis is superseded.
func (s *Session) Begin(ctx context.Context, clip *Clip) (context.Context, string) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.token = uuid.NewString()
	s.cancel = cancel
	s.clip = clip
	s.timeline = nil
	s.result = nil
	s.blended = false
	return ctx, s.token
}

// SetTimeline stores the local estimate for the analysis identified by
// token. It reports false when token is stale.
func (s *Session) SetTimeline(token string, tl *risk.Timeline) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		return false
	}
	s.timeline = tl
	s.blendLocked()
	return true
}

// Complete stores the remote result for token. It reports false when token
// is stale.
func (s *Session) Complete(token string, res *Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		return false
	}
	s.result = res
	s.blendLocked()
	return true
}

// blendLocked folds the verdict confidence into the timeline once both are
// known. A result without confidence leaves the timeline local.
func (s *Session) blendLocked() {
	if s.blended || s.timeline == nil || s.result == nil {
		return
	}
	if !s.result.Terminal() || s.result.Confidence == nil {
		return
	}
	s.timeline.Blend(*s.result.Confidence)
	s.blended = true
}

// Timeline returns a copy of the current timeline, or nil.
func (s *Session) Timeline() *risk.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeline == nil {
		return nil
	}
	return s.timeline.Clone()
}

func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) Clip() *Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clip
}

// Blended reports whether the current timeline includes the remote verdict.
func (s *Session) Blended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blended
}

// Cancel aborts the in-flight analysis, if any. State is kept for display.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.token = ""
}
