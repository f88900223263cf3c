package retry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type statusErr struct{ code int }

func (e statusErr) Error() string { return "status" }

func (e statusErr) Retryable() bool {
	switch e.code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

type recorder struct{ delays []time.Duration }

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	for _, n := range []int{0, 1, 3, 4} {
		rec := &recorder{}
		ex := &Executor{Policy: Policy{Retries: 4, BaseDelay: 400 * time.Millisecond}, Sleep: rec.sleep}

		calls := 0
		got, err := Do(context.Background(), ex, func(context.Context) (string, error) {
			calls++
			if calls <= n {
				return "", statusErr{code: 503}
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if got != "ok" {
			t.Errorf("n=%d: expected ok, got %q", n, got)
		}
		if len(rec.delays) != n {
			t.Fatalf("n=%d: expected %d sleeps, got %d", n, n, len(rec.delays))
		}
		for i, d := range rec.delays {
			want := 400 * math.Pow(1.8, float64(i+1))
			if diff := math.Abs(float64(d)/float64(time.Millisecond) - want); diff > 1 {
				t.Errorf("n=%d: sleep %d = %v, want ~%.1fms", n, i+1, d, want)
			}
		}
	}
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	rec := &recorder{}
	ex := &Executor{Policy: Policy{Retries: 12, BaseDelay: time.Second}, Sleep: rec.sleep}

	calls := 0
	_, err := Do(context.Background(), ex, func(context.Context) (int, error) {
		calls++
		return 0, statusErr{code: 400}
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(rec.delays) != 0 {
		t.Errorf("expected no sleeps, got %d", len(rec.delays))
	}
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	rec := &recorder{}
	ex := &Executor{Policy: Policy{Retries: 3, BaseDelay: 10 * time.Millisecond}, Sleep: rec.sleep}

	codes := []int{500, 502, 503, 504}
	calls := 0
	_, err := Do(context.Background(), ex, func(context.Context) (int, error) {
		code := codes[calls]
		calls++
		return 0, statusErr{code: code}
	})
	var se statusErr
	if !errors.As(err, &se) {
		t.Fatalf("expected statusErr, got %v", err)
	}
	if se.code != 504 {
		t.Errorf("expected last error (504), got %d", se.code)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
	if len(rec.delays) != 3 {
		t.Errorf("expected 3 sleeps, got %d", len(rec.delays))
	}
}

func TestDo_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ex := &Executor{
		Policy: Policy{Retries: 5, BaseDelay: time.Hour},
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return Sleep(ctx, d)
		},
	}

	_, err := Do(ctx, ex, func(context.Context) (int, error) {
		return 0, statusErr{code: 502}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: 800 * time.Millisecond}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1440 * time.Millisecond},
		{2, 2592 * time.Millisecond},
		{3, 4666 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", statusErr{429}, true},
		{"404", statusErr{404}, false},
		{"wrapped 503", errors.Join(errors.New("presign"), statusErr{503}), true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
