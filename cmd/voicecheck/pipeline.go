package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/voicecheck/internal/analysis"
	"github.com/your-org/voicecheck/pkg/audio"
	"github.com/your-org/voicecheck/pkg/risk"
)

// loadClip reads path and validates it against the service limits.
func loadClip(path, declared string, limits analysis.Limits) (*analysis.Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clip: %w", err)
	}
	clip, err := analysis.NewClip(data, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), declared)
	if err != nil {
		return nil, err
	}
	if err := clip.Validate(limits); err != nil {
		return nil, err
	}
	return clip, nil
}

// estimate decodes a WAV clip and computes its local risk timeline.
func estimate(clip *analysis.Clip) (*risk.Timeline, error) {
	decoded, err := audio.Decode(clip.Data)
	if err != nil {
		return nil, err
	}
	return risk.Estimate(decoded.Mono(), decoded.SampleRate)
}

// runAnalysis estimates locally and submits remotely at the same time, then
// hands both to the session, which blends them once. It reports whether the
// analysis is still the session's current one.
func runAnalysis(ctx context.Context, session *analysis.Session, token string, clip *analysis.Clip) (*analysis.Result, bool, error) {
	var res *analysis.Result
	current := true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tl, err := estimate(clip)
		if err != nil {
			cli.logger.Debug("no local timeline", zap.String("clip", clip.Name), zap.Error(err))
			return nil
		}
		if !session.SetTimeline(token, tl) {
			current = false
		}
		return nil
	})
	g.Go(func() error {
		r, err := cli.service.Analyze(gctx, clip)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if !session.Complete(token, res) {
		current = false
	}
	return res, current, nil
}

// render prints the result and the session's timeline.
func render(w io.Writer, session *analysis.Session, res *analysis.Result, width int, pngPath string) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(w, string(out))
	if !res.Terminal() {
		fmt.Fprintln(w, "still analyzing: query again with `voicecheck status "+res.RequestID+"`")
	}

	tl := session.Timeline()
	if tl == nil {
		return nil
	}
	label := "local"
	if session.Blended() {
		label = "blended"
	}
	fmt.Fprintf(w, "%s risk %s mean=%.3f over %.2fs\n", label, tl.ANSI(width), tl.Mean(), tl.Duration())

	if pngPath != "" {
		return writePNG(tl, pngPath, width)
	}
	return nil
}

func writePNG(tl *risk.Timeline, path string, width int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := tl.WritePNG(f, width*8, 48); err != nil {
		f.Close()
		return fmt.Errorf("write png: %w", err)
	}
	return f.Close()
}
