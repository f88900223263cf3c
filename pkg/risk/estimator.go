// Package risk derives a frame-by-frame suspicion signal from decoded audio
// and blends it with a remote verdict for display.
//
// The estimator is a heuristic proxy. It combines spectral flatness with a
// harmonics-to-noise-like band ratio and makes no claim to ground truth. It
// is pure and deterministic: the same samples always yield the same bits.
package risk

import (
	"errors"
	"math"
)

const (
	// WindowSize is the analysis frame length in samples.
	WindowSize = 1024

	// FramesPerSecond fixes the hop at sampleRate/30, about 33 ms.
	FramesPerSecond = 30

	lowBandHz  = 300
	highBandHz = 3000

	logFloor   = 1e-10
	flatGain   = 10
	ratioScale = 10
)

// ErrInvalidSampleRate is returned for a non-positive sample rate.
var ErrInvalidSampleRate = errors.New("risk: sample rate must be positive")

// Frame holds the per-frame features and the combined risk.
type Frame struct {
	// Start is the frame start in samples.
	Start int
	// Flatness is the normalised spectral flatness in [0,1].
	Flatness float64
	// Harmonic is the normalised band ratio in [0,1].
	Harmonic float64
	// Risk is the mean of Flatness and Harmonic.
	Risk float64
}

// Timeline is one risk value per analysis frame, in temporal order.
type Timeline struct {
	SampleRate int
	Hop        int
	Window     int
	Risk       []float64
}

// Hop returns the frame advance for sampleRate.
func Hop(sampleRate int) int {
	h := int(math.Round(float64(sampleRate) / FramesPerSecond))
	if h < 1 {
		h = 1
	}
	return h
}

// Analyze frames samples (one channel, native rate) and computes the
// features of every full window. Trailing samples that do not fill a window
// are dropped.
func Analyze(samples []float64, sampleRate int) ([]Frame, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	hop := Hop(sampleRate)
	if len(samples) < WindowSize {
		return []Frame{}, nil
	}

	s := newSpectrum(WindowSize, sampleRate)
	frames := make([]Frame, 0, (len(samples)-WindowSize)/hop+1)
	for start := 0; start+WindowSize <= len(samples); start += hop {
		mags := s.magnitudes(samples[start : start+WindowSize])
		f := Frame{
			Start:    start,
			Flatness: clamp01(flatness(mags) * flatGain),
			Harmonic: clamp01(s.bandRatio(mags) / ratioScale),
		}
		f.Risk = (f.Flatness + f.Harmonic) / 2
		frames = append(frames, f)
	}
	return frames, nil
}

// Estimate returns the risk timeline of samples.
func Estimate(samples []float64, sampleRate int) (*Timeline, error) {
	frames, err := Analyze(samples, sampleRate)
	if err != nil {
		return nil, err
	}
	t := &Timeline{
		SampleRate: sampleRate,
		Hop:        Hop(sampleRate),
		Window:     WindowSize,
		Risk:       make([]float64, len(frames)),
	}
	for i, f := range frames {
		t.Risk[i] = f.Risk
	}
	return t, nil
}

// FrameStart returns the start time of frame i in seconds.
func (t *Timeline) FrameStart(i int) float64 {
	return float64(i*t.Hop) / float64(t.SampleRate)
}

// Duration is the time covered by the timeline: the end of its last window.
func (t *Timeline) Duration() float64 {
	if len(t.Risk) == 0 || t.SampleRate <= 0 {
		return 0
	}
	last := (len(t.Risk) - 1) * t.Hop
	return float64(last+t.Window) / float64(t.SampleRate)
}

// Mean returns the average risk, or 0 for an empty timeline.
func (t *Timeline) Mean() float64 {
	if len(t.Risk) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range t.Risk {
		sum += r
	}
	return sum / float64(len(t.Risk))
}

// spectrum computes a Hann-windowed direct DFT over bins [0, N/2).
type spectrum struct {
	n      int
	rate   int
	window []float64
	cos    []float64
	sin    []float64
	buf    []float64
	mags   []float64
}

func newSpectrum(n, rate int) *spectrum {
	s := &spectrum{
		n:      n,
		rate:   rate,
		window: make([]float64, n),
		cos:    make([]float64, n),
		sin:    make([]float64, n),
		buf:    make([]float64, n),
		mags:   make([]float64, n/2),
	}
	for i := 0; i < n; i++ {
		s.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		s.cos[i] = math.Cos(2 * math.Pi * float64(i) / float64(n))
		s.sin[i] = math.Sin(2 * math.Pi * float64(i) / float64(n))
	}
	return s
}

// magnitudes returns |X[k]| for k in [0, N/2). The returned slice is reused
// by the next call.
func (s *spectrum) magnitudes(frame []float64) []float64 {
	x := s.buf
	for i, v := range frame {
		x[i] = v * s.window[i]
	}
	for k := range s.mags {
		var re, im float64
		idx := 0
		for i := 0; i < s.n; i++ {
			re += x[i] * s.cos[idx]
			im -= x[i] * s.sin[idx]
			idx += k
			if idx >= s.n {
				idx -= s.n
			}
		}
		s.mags[k] = math.Hypot(re, im)
	}
	return s.mags
}

// bandRatio is (mid+high)/(low+ε) over squared magnitudes, 0 for silence.
func (s *spectrum) bandRatio(mags []float64) float64 {
	var low, mid, high float64
	binHz := float64(s.rate) / float64(s.n)
	for k, m := range mags {
		e := m * m
		switch f := float64(k) * binHz; {
		case f < lowBandHz:
			low += e
		case f <= highBandHz:
			mid += e
		default:
			high += e
		}
	}
	if low+mid+high == 0 {
		return 0
	}
	return (mid + high) / (low + logFloor)
}

// flatness is the geometric over the arithmetic mean of mags.
func flatness(mags []float64) float64 {
	var logSum, sum float64
	for _, m := range mags {
		logSum += math.Log(m + logFloor)
		sum += m
	}
	n := float64(len(mags))
	if n == 0 || sum == 0 {
		return 0
	}
	return math.Exp(logSum/n) / (sum / n)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
